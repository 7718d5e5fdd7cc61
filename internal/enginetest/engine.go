// Package enginetest provides an in-memory engine and bank loader that
// record every call, for tests of the control layer.
package enginetest

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// Event kinds recorded by Engine.
const (
	KindAttach  = "attach"
	KindProgram = "program"
	KindNoteOn  = "noteon"
	KindNoteOff = "noteoff"
	KindDetach  = "detach"
)

// Event is one recorded engine call.
type Event struct {
	Kind    string
	Handle  int
	Channel int
	A, B    int // bank/program, key/velocity or key
}

// Handle is the handle type returned by Engine.Attach.
type Handle struct {
	ID   int
	Bank *contracts.Bank
}

// Engine is a recording contracts.Engine.
type Engine struct {
	Caps contracts.Capabilities

	mu         sync.Mutex
	attachErr  error
	noteOnErr  error
	noteOffErr error
	programErr error
	onAttach   func(*contracts.Bank)
	next       int
	live       map[int]*contracts.Bank
	events     []Event
}

// NewEngine creates an engine with contracts.DefaultCapabilities.
func NewEngine() *Engine {
	return &Engine{Caps: contracts.DefaultCapabilities(), live: make(map[int]*contracts.Bank)}
}

// FailAttach makes subsequent Attach calls return err (nil clears it).
func (e *Engine) FailAttach(err error) { e.mu.Lock(); e.attachErr = err; e.mu.Unlock() }

// FailNoteOn makes subsequent NoteOn calls return err.
func (e *Engine) FailNoteOn(err error) { e.mu.Lock(); e.noteOnErr = err; e.mu.Unlock() }

// FailNoteOff makes subsequent NoteOff calls return err.
func (e *Engine) FailNoteOff(err error) { e.mu.Lock(); e.noteOffErr = err; e.mu.Unlock() }

// FailProgram makes subsequent ProgramChange calls return err.
func (e *Engine) FailProgram(err error) { e.mu.Lock(); e.programErr = err; e.mu.Unlock() }

// OnAttach installs a hook run at the start of Attach, outside the engine lock.
func (e *Engine) OnAttach(fn func(*contracts.Bank)) { e.mu.Lock(); e.onAttach = fn; e.mu.Unlock() }

func (e *Engine) Capabilities() contracts.Capabilities { return e.Caps }

func (e *Engine) Attach(bank *contracts.Bank) (contracts.EngineHandle, error) {
	e.mu.Lock()
	hook := e.onAttach
	e.mu.Unlock()
	if hook != nil {
		hook(bank)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.attachErr != nil {
		return nil, e.attachErr
	}
	e.next++
	e.live[e.next] = bank
	e.events = append(e.events, Event{Kind: KindAttach, Handle: e.next})
	return &Handle{ID: e.next, Bank: bank}, nil
}

func (e *Engine) ProgramChange(h contracts.EngineHandle, channel, bankSelect, program int) error {
	return e.record(h, Event{Kind: KindProgram, Channel: channel, A: bankSelect, B: program}, e.programErr)
}

func (e *Engine) NoteOn(h contracts.EngineHandle, channel, key, velocity int) error {
	return e.record(h, Event{Kind: KindNoteOn, Channel: channel, A: key, B: velocity}, e.noteOnErr)
}

func (e *Engine) NoteOff(h contracts.EngineHandle, channel, key int) error {
	return e.record(h, Event{Kind: KindNoteOff, Channel: channel, A: key}, e.noteOffErr)
}

func (e *Engine) Detach(h contracts.EngineHandle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	hd := h.(*Handle)
	delete(e.live, hd.ID)
	e.events = append(e.events, Event{Kind: KindDetach, Handle: hd.ID})
}

func (e *Engine) record(h contracts.EngineHandle, ev Event, fail error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	hd, ok := h.(*Handle)
	if !ok {
		return errors.New("foreign handle")
	}
	if _, live := e.live[hd.ID]; !live {
		return fmt.Errorf("handle %d is detached", hd.ID)
	}
	if fail != nil {
		return fail
	}
	ev.Handle = hd.ID
	e.events = append(e.events, ev)
	return nil
}

// Events returns a copy of all recorded calls.
func (e *Engine) Events() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Event, len(e.events))
	copy(out, e.events)
	return out
}

// Count returns how many events of kind were recorded.
func (e *Engine) Count(kind string) int {
	n := 0
	for _, ev := range e.Events() {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// Reset forgets recorded events.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = nil
}

// Live returns the number of attached handles.
func (e *Engine) Live() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.live)
}

// Loader parses "name:preset1,preset2,..." into a bank. Data starting
// with "corrupt" fails to parse.
type Loader struct{}

// ErrCorrupt is returned by Loader for corrupt input.
var ErrCorrupt = errors.New("corrupt soundbank")

func (Loader) Parse(data []byte) (*contracts.Bank, error) {
	s := string(data)
	if strings.HasPrefix(s, "corrupt") {
		return nil, ErrCorrupt
	}
	name, list, _ := strings.Cut(s, ":")
	bank := &contracts.Bank{Name: name, Source: data}
	if list == "" {
		return bank, nil
	}
	for i, p := range strings.Split(list, ",") {
		bank.Presets = append(bank.Presets, contracts.Preset{Name: p, Program: i})
	}
	return bank, nil
}

// BankData builds loader input for a bank with n presets named name-0..name-n-1.
func BankData(name string, n int) []byte {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("%s-%d", name, i)
	}
	return []byte(name + ":" + strings.Join(names, ","))
}
