// Package instance implements one synthesizer instance: its lifecycle state
// machine, its bank and engine handle, and its channel table.
//
// Every mutating operation holds the instance lock for its whole duration,
// so loads, note and program commands and disposal on the same instance
// never interleave. Instances do not share state with each other.
package instance

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leandrodaf/midisynth/internal/channels"
	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// State is a lifecycle state.
type State int32

const (
	Unloaded State = iota
	Loading
	Ready
	Disposed
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Disposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Program is a bank select and program pair.
type Program struct {
	Bank    int
	Program int
}

// Instance is a single synthesizer bound to one bank at a time.
type Instance struct {
	id     contracts.InstanceID
	engine contracts.Engine
	caps   contracts.Capabilities
	logger contracts.Logger

	mu     sync.Mutex
	state  atomic.Int32
	bank   *contracts.Bank
	handle contracts.EngineHandle
	table  *channels.Table
}

// New creates an Unloaded instance.
func New(id contracts.InstanceID, engine contracts.Engine, logger contracts.Logger) *Instance {
	caps := engine.Capabilities()
	return &Instance{
		id:     id,
		engine: engine,
		caps:   caps,
		logger: logger,
		table:  channels.NewTable(caps.Channels),
	}
}

// ID returns the instance id.
func (i *Instance) ID() contracts.InstanceID { return i.id }

// State returns the current lifecycle state without waiting for the lock.
func (i *Instance) State() State { return State(i.state.Load()) }

// Capabilities returns the engine limits this instance validates against.
func (i *Instance) Capabilities() contracts.Capabilities { return i.caps }

func (i *Instance) setState(s State) { i.state.Store(int32(s)) }

// Load parses data and attaches it to the engine, replacing the current
// bank. On any failure the instance keeps its previous state, bank and
// engine handle.
func (i *Instance) Load(loader contracts.BankLoader, data []byte, def Program) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	prev := i.State()
	if prev == Disposed {
		return contracts.Errorf(contracts.CodeNotInitialized, "sfId %d is disposed", i.id)
	}
	if err := i.checkProgram(def.Bank, def.Program); err != nil {
		return err
	}

	i.setState(Loading)
	committed := false
	defer func() {
		if !committed {
			i.setState(prev)
		}
	}()

	start := time.Now()
	i.logger.Info("loading soundfont",
		i.logger.Field().Uint32("sfId", uint32(i.id)),
		i.logger.Field().Int("bytes", len(data)),
		i.logger.Field().String("previousState", prev.String()))

	bank, err := loader.Parse(data)
	if err != nil {
		i.logLoadFailure(err)
		return contracts.Errorf(contracts.CodeLoadFailed, "could not parse soundbank: %v", err)
	}
	if bank == nil || len(bank.Presets) == 0 {
		i.logLoadFailure(errors.New("empty bank"))
		return contracts.Errorf(contracts.CodeLoadFailed, "soundbank contains no instruments")
	}

	handle, err := i.engine.Attach(bank)
	if err != nil {
		i.logLoadFailure(err)
		if errors.Is(err, contracts.ErrEngineUnavailable) {
			return contracts.Errorf(contracts.CodeEngineUnavailable, "synthesis engine failed to start: %v", err)
		}
		return contracts.Errorf(contracts.CodeLoadFailed, "engine could not attach soundbank: %v", err)
	}

	for ch := 0; ch < i.table.Len(); ch++ {
		if err := i.engine.ProgramChange(handle, ch, def.Bank, def.Program); err != nil {
			i.engine.Detach(handle)
			i.logLoadFailure(err)
			return contracts.Errorf(contracts.CodeLoadFailed,
				"engine rejected bank %d program %d on channel %d: %v", def.Bank, def.Program, ch, err)
		}
	}

	if i.handle != nil {
		i.silence()
		i.engine.Detach(i.handle)
	}
	i.bank = bank
	i.handle = handle
	i.table.Reset()
	for ch := 0; ch < i.table.Len(); ch++ {
		i.table.SetProgram(ch, def.Bank, def.Program)
	}
	committed = true
	i.setState(Ready)

	i.logger.Info("soundfont loaded",
		i.logger.Field().Uint32("sfId", uint32(i.id)),
		i.logger.Field().String("bank", bank.Name),
		i.logger.Field().Int("presets", len(bank.Presets)),
		i.logger.Field().Duration("took", time.Since(start)))
	return nil
}

func (i *Instance) logLoadFailure(err error) {
	i.logger.Warn("soundfont load failed",
		i.logger.Field().Uint32("sfId", uint32(i.id)),
		i.logger.Field().Error("error", err))
}

// SelectInstrument applies (bank, program) to ch. A selection equal to the
// current one is not sent to the engine again, unless the engine shares its
// channels and another instance has since changed what ch plays. On failure
// the channel keeps its previous selection.
func (i *Instance) SelectInstrument(ch, bank, program int) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.requireReady(); err != nil {
		return err
	}
	if err := i.checkChannel(ch); err != nil {
		return err
	}
	if err := i.checkProgram(bank, program); err != nil {
		return err
	}
	if !i.table.NeedsProgram(ch, bank, program) && i.outputPlays(ch, bank, program) {
		return nil
	}
	if err := i.engine.ProgramChange(i.handle, ch, bank, program); err != nil {
		return engineError("program change", err)
	}
	i.table.SetProgram(ch, bank, program)
	return nil
}

// PlayNote starts key on ch. Playing a key that is already sounding
// re-triggers it. A velocity of zero releases the key, as on the wire.
func (i *Instance) PlayNote(ch, key, velocity int) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.requireReady(); err != nil {
		return err
	}
	if err := i.checkChannel(ch); err != nil {
		return err
	}
	if velocity == 0 {
		return i.stopNote(ch, key)
	}
	if err := i.engine.NoteOn(i.handle, ch, key, velocity); err != nil {
		return engineError("note on", err)
	}
	i.table.NoteOn(ch, key)
	return nil
}

// StopNote releases key on ch. Releasing a key that is not sounding is a
// no-op, including any engine error it produces.
func (i *Instance) StopNote(ch, key int) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.requireReady(); err != nil {
		return err
	}
	if err := i.checkChannel(ch); err != nil {
		return err
	}
	return i.stopNote(ch, key)
}

func (i *Instance) stopNote(ch, key int) error {
	st, _ := i.table.Channel(ch)
	active := st.IsActive(key)
	if err := i.engine.NoteOff(i.handle, ch, key); err != nil && active {
		return engineError("note off", err)
	}
	i.table.NoteOff(ch, key)
	return nil
}

// outputPlays reports whether a shared output channel still plays the
// selection. Engines with private channels always do.
func (i *Instance) outputPlays(ch, bank, program int) bool {
	shared, ok := i.engine.(contracts.SharedChannels)
	if !ok {
		return true
	}
	b, p, set := shared.CurrentProgram(ch)
	return set && b == bank && p == program
}

// StopAllNotes sends note-off for every key on every channel and forgets
// all sounding keys. Engine errors are counted and logged, never returned.
func (i *Instance) StopAllNotes() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.requireReady(); err != nil {
		return err
	}
	failed := 0
	for ch := 0; ch < i.table.Len(); ch++ {
		for key := 0; key <= contracts.MaxKey; key++ {
			if err := i.engine.NoteOff(i.handle, ch, key); err != nil {
				failed++
			}
		}
	}
	i.table.ClearNotes()
	if failed > 0 {
		i.logger.Debug("ignored note-off failures during stop all",
			i.logger.Field().Uint32("sfId", uint32(i.id)),
			i.logger.Field().Int("failed", failed))
	}
	return nil
}

// Instruments returns the bank's instrument names, at most one per channel.
func (i *Instance) Instruments() ([]string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.requireReady(); err != nil {
		return nil, err
	}
	return i.bank.InstrumentNames(i.table.Len()), nil
}

// ChannelState returns a copy of ch's state.
func (i *Instance) ChannelState(ch int) (channels.State, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.checkChannel(ch); err != nil {
		return channels.State{}, err
	}
	st, _ := i.table.Channel(ch)
	return st, nil
}

// Dispose releases the engine handle and moves the instance to Disposed.
// It waits for an in-flight load to finish first. It reports false when
// the instance was already disposed.
func (i *Instance) Dispose() bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.State() == Disposed {
		return false
	}
	if i.handle != nil {
		i.silence()
		i.engine.Detach(i.handle)
	}
	i.handle = nil
	i.bank = nil
	i.table.Reset()
	i.setState(Disposed)
	i.logger.Info("synthesizer disposed", i.logger.Field().Uint32("sfId", uint32(i.id)))
	return true
}

// silence releases every sounding key on the current handle, ignoring errors.
func (i *Instance) silence() {
	for ch := 0; ch < i.table.Len(); ch++ {
		st, _ := i.table.Channel(ch)
		for _, key := range st.ActiveNotes() {
			_ = i.engine.NoteOff(i.handle, ch, key)
		}
	}
	i.table.ClearNotes()
}

func (i *Instance) requireReady() error {
	if s := i.State(); s != Ready {
		return contracts.Errorf(contracts.CodeNotInitialized, "sfId %d is %s", i.id, s)
	}
	return nil
}

func (i *Instance) checkChannel(ch int) error {
	if ch < 0 || ch >= i.table.Len() {
		return contracts.Errorf(contracts.CodeInvalidArgument, "channel %d outside 0-%d", ch, i.table.Len()-1)
	}
	return nil
}

func (i *Instance) checkProgram(bank, program int) error {
	if bank < 0 || bank > i.caps.MaxBank {
		return contracts.Errorf(contracts.CodeInvalidArgument, "bank %d outside 0-%d", bank, i.caps.MaxBank)
	}
	if program < 0 || program > i.caps.MaxProgram {
		return contracts.Errorf(contracts.CodeInvalidArgument, "program %d outside 0-%d", program, i.caps.MaxProgram)
	}
	return nil
}

func engineError(op string, err error) error {
	return contracts.Errorf(contracts.CodeEngineUnavailable, "%s failed: %v", op, err)
}
