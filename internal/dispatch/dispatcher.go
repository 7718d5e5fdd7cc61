// Package dispatch is the single entry point of the control layer: it
// validates commands, resolves their target instance and applies them.
//
// Validation runs in a fixed order before any instance is touched: the
// command name, then argument presence, types and ranges, then the target
// id, then the instance state. The first failing step wins.
package dispatch

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/leandrodaf/midisynth/internal/instance"
	"github.com/leandrodaf/midisynth/internal/quietswap"
	"github.com/leandrodaf/midisynth/internal/registry"
	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// Command names accepted by Dispatch.
const (
	CmdCreate           = "create"
	CmdListInstances    = "listInstances"
	CmdLoadSoundfont    = "loadSoundfont"
	CmdChangeSoundfont  = "changeSoundfont"
	CmdSelectInstrument = "selectInstrument"
	CmdPlayNote         = "playNote"
	CmdStopNote         = "stopNote"
	CmdStopAllNotes     = "stopAllNotes"
	CmdUnloadSoundfont  = "unloadSoundfont"
	CmdDispose          = "dispose"
	CmdIsInitialized    = "isInitialized"
	CmdGetInstruments   = "getInstruments"
)

// Source is a soundfont given either as bytes or as a file path.
type Source struct {
	Data []byte
	Path string
}

// Dispatcher applies commands to the instances of one registry.
type Dispatcher struct {
	registry *registry.Registry
	loader   contracts.BankLoader
	quiet    *quietswap.Controller
	caps     contracts.Capabilities
	defaults instance.Program
	logger   contracts.Logger
	readFile func(string) ([]byte, error)
	handlers map[string]handler
}

type handler func(d *Dispatcher, ctx context.Context, args Args) (any, error)

// New builds a dispatcher from fully defaulted options. Options.Engine and
// Options.BankLoader must be set.
func New(opts *contracts.Options) *Dispatcher {
	settle := opts.SettleDelay
	if !opts.SettleDelaySet() && settle == 0 {
		settle = contracts.DefaultSettleDelay
	}
	d := &Dispatcher{
		registry: registry.New(opts.Engine, opts.Logger),
		loader:   opts.BankLoader,
		quiet:    quietswap.New(opts.Output, settle, opts.Logger),
		caps:     opts.Engine.Capabilities(),
		defaults: instance.Program{Bank: opts.DefaultBank, Program: opts.DefaultProgram},
		logger:   opts.Logger,
		readFile: os.ReadFile,
	}
	d.handlers = commandTable()
	return d
}

// Registry exposes the underlying registry.
func (d *Dispatcher) Registry() *registry.Registry { return d.registry }

// Capabilities returns the engine limits commands are validated against.
func (d *Dispatcher) Capabilities() contracts.Capabilities { return d.caps }

// Dispatch runs the named command. Every failure is a *contracts.Error.
func (d *Dispatcher) Dispatch(ctx context.Context, method string, args map[string]any) (any, error) {
	h, ok := d.handlers[method]
	if !ok {
		return nil, contracts.Errorf(contracts.CodeInvalidArgument, "unknown command %q", method)
	}
	start := time.Now()
	res, err := h(d, ctx, Args(args))
	d.timed(method, start, err)
	return res, err
}

// Create adds an Unloaded instance and returns its id.
func (d *Dispatcher) Create() contracts.InstanceID {
	return d.registry.Create().ID()
}

// LoadSoundfont loads src into the instance target, or into a new instance
// when target is nil, and returns the instance id. A new instance whose
// first load fails is removed again.
func (d *Dispatcher) LoadSoundfont(ctx context.Context, src Source, target *contracts.InstanceID, def instance.Program) (contracts.InstanceID, error) {
	if err := d.checkSource(src); err != nil {
		return 0, err
	}
	if err := d.checkProgram(def.Bank, def.Program); err != nil {
		return 0, err
	}

	var inst *instance.Instance
	created := false
	if target != nil {
		var err error
		if inst, err = d.registry.Get(*target); err != nil {
			return 0, err
		}
	} else {
		inst = d.registry.Create()
		created = true
	}

	if err := d.load(ctx, inst, src, def); err != nil {
		if created {
			d.discard(inst)
		}
		return 0, err
	}
	return inst.ID(), nil
}

// ChangeSoundfont replaces the bank of an existing instance. The previous
// bank stays in place when the new one fails to load.
func (d *Dispatcher) ChangeSoundfont(ctx context.Context, id contracts.InstanceID, src Source) error {
	if err := d.checkSource(src); err != nil {
		return err
	}
	inst, err := d.registry.Get(id)
	if err != nil {
		return err
	}
	return d.load(ctx, inst, src, d.defaults)
}

func (d *Dispatcher) load(ctx context.Context, inst *instance.Instance, src Source, def instance.Program) error {
	data, err := d.readSource(src)
	if err != nil {
		return err
	}
	restore := d.quiet.Mute()
	err = inst.Load(d.loader, data, def)
	restore(ctx)
	return err
}

func (d *Dispatcher) discard(inst *instance.Instance) {
	if _, err := d.registry.Remove(inst.ID()); err == nil {
		inst.Dispose()
	}
}

func (d *Dispatcher) readSource(src Source) ([]byte, error) {
	if src.Data != nil {
		return src.Data, nil
	}
	data, err := d.readFile(src.Path)
	if err != nil {
		return nil, contracts.Errorf(contracts.CodeLoadFailed, "could not read soundfont %s: %v", src.Path, err)
	}
	if len(data) == 0 {
		return nil, contracts.Errorf(contracts.CodeLoadFailed, "soundfont %s is empty", src.Path)
	}
	return data, nil
}

// SelectInstrument sets the bank and program of one channel.
func (d *Dispatcher) SelectInstrument(id contracts.InstanceID, channel, bank, program int) error {
	if err := d.checkChannel(channel); err != nil {
		return err
	}
	if err := d.checkProgram(bank, program); err != nil {
		return err
	}
	inst, err := d.registry.Get(id)
	if err != nil {
		return err
	}
	return inst.SelectInstrument(channel, bank, program)
}

// PlayNote starts a note.
func (d *Dispatcher) PlayNote(id contracts.InstanceID, channel, key, velocity int) error {
	if err := d.checkNote(channel, key); err != nil {
		return err
	}
	if velocity < 0 || velocity > contracts.MaxVelocity {
		return contracts.Errorf(contracts.CodeInvalidArgument, "velocity %d outside 0-%d", velocity, contracts.MaxVelocity)
	}
	inst, err := d.registry.Get(id)
	if err != nil {
		return err
	}
	return inst.PlayNote(channel, key, velocity)
}

// StopNote releases a note. Releasing a silent key succeeds.
func (d *Dispatcher) StopNote(id contracts.InstanceID, channel, key int) error {
	if err := d.checkNote(channel, key); err != nil {
		return err
	}
	inst, err := d.registry.Get(id)
	if err != nil {
		return err
	}
	return inst.StopNote(channel, key)
}

// StopAllNotes silences every key on every channel of id.
func (d *Dispatcher) StopAllNotes(id contracts.InstanceID) error {
	inst, err := d.registry.Get(id)
	if err != nil {
		return err
	}
	return inst.StopAllNotes()
}

// Unload disposes id and removes it from the registry. Unloading an id
// that was already removed succeeds with alreadyDisposed set; an id that
// was never issued is NOT_FOUND.
func (d *Dispatcher) Unload(id contracts.InstanceID) (alreadyDisposed bool, err error) {
	inst, err := d.registry.Remove(id)
	if err != nil {
		if d.registry.Issued(id) {
			return true, nil
		}
		return false, err
	}
	inst.Dispose()
	return false, nil
}

// DisposeAll disposes every instance in parallel and returns how many were
// torn down.
func (d *Dispatcher) DisposeAll() int {
	ids := d.registry.List()
	var (
		wg sync.WaitGroup
		mu sync.Mutex
		n  int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id contracts.InstanceID) {
			defer wg.Done()
			if already, err := d.Unload(id); err == nil && !already {
				mu.Lock()
				n++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()
	d.logger.Info("all synthesizers disposed", d.logger.Field().Int("count", n))
	return n
}

// IsInitialized reports whether id is Ready. Unknown ids are not.
func (d *Dispatcher) IsInitialized(id contracts.InstanceID) bool {
	inst, err := d.registry.Get(id)
	return err == nil && inst.State() == instance.Ready
}

// AnyInitialized reports whether at least one instance is Ready.
func (d *Dispatcher) AnyInitialized() bool {
	for _, id := range d.registry.List() {
		if d.IsInitialized(id) {
			return true
		}
	}
	return false
}

// Instruments returns the instrument names of id's bank.
func (d *Dispatcher) Instruments(id contracts.InstanceID) ([]string, error) {
	inst, err := d.registry.Get(id)
	if err != nil {
		return nil, err
	}
	return inst.Instruments()
}

func (d *Dispatcher) checkSource(src Source) error {
	switch {
	case src.Data != nil && len(src.Data) == 0:
		return contracts.Errorf(contracts.CodeInvalidArgument, "data is empty")
	case src.Data == nil && src.Path == "":
		return contracts.Errorf(contracts.CodeInvalidArgument, "soundfont data or path is required")
	}
	return nil
}

func (d *Dispatcher) checkChannel(ch int) error {
	if ch < 0 || ch >= d.caps.Channels {
		return contracts.Errorf(contracts.CodeInvalidArgument, "channel %d outside 0-%d", ch, d.caps.Channels-1)
	}
	return nil
}

func (d *Dispatcher) checkNote(ch, key int) error {
	if err := d.checkChannel(ch); err != nil {
		return err
	}
	if key < 0 || key > contracts.MaxKey {
		return contracts.Errorf(contracts.CodeInvalidArgument, "key %d outside 0-%d", key, contracts.MaxKey)
	}
	return nil
}

func (d *Dispatcher) checkProgram(bank, program int) error {
	if bank < 0 || bank > d.caps.MaxBank {
		return contracts.Errorf(contracts.CodeInvalidArgument, "bank %d outside 0-%d", bank, d.caps.MaxBank)
	}
	if program < 0 || program > d.caps.MaxProgram {
		return contracts.Errorf(contracts.CodeInvalidArgument, "program %d outside 0-%d", program, d.caps.MaxProgram)
	}
	return nil
}

// timed logs how long a command took at debug level.
func (d *Dispatcher) timed(method string, start time.Time, err error) {
	fields := []contracts.Field{
		d.logger.Field().String("method", method),
		d.logger.Field().Duration("took", time.Since(start)),
	}
	if err != nil {
		fields = append(fields, d.logger.Field().String("code", string(contracts.CodeOf(err))))
		d.logger.Debug("command failed", append(fields, d.logger.Field().Error("error", err))...)
		return
	}
	d.logger.Debug("command handled", fields...)
}

func confirm(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
