// Package midiout is a contracts.Engine that renders through an external
// MIDI output: a hardware port, a virtual port or the OS software synth.
//
// All instances attached to one Engine share a single output port and its
// 16 channels. The port is opened by the first Attach and closed when the
// last handle detaches. The engine keeps the instances apart on the shared
// channels:
//
//   - every handle remembers its own program per channel, and the program
//     is sent again before a note whenever another handle changed it;
//   - a key held by several handles is released on the port only when the
//     last of them lets go.
//
// The soundbank itself stays on the host; only its preset names are used.
package midiout

import (
	"errors"
	"fmt"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"go.uber.org/multierr"

	"github.com/leandrodaf/midisynth/sdk/contracts"
)

const (
	ccBankMSB      = 0
	ccBankLSB      = 32
	ccAllNotesOff  = 123
	bankSelectBits = 7
)

// Port is an open MIDI output.
type Port interface {
	Send(msg []byte) error
	Close() error
}

// Opener opens the output port. An error makes Attach fail with
// contracts.ErrEngineUnavailable.
type Opener func() (Port, error)

type selection struct {
	bank, program int
	set           bool
}

type keyState [contracts.MaxChannels][contracts.MaxKey + 1]bool

// Engine sends channel messages to a shared Port.
type Engine struct {
	name   string
	open   Opener
	logger contracts.Logger

	mu       sync.Mutex
	port     Port
	gen      int
	users    int
	current  [contracts.MaxChannels]selection
	held     [contracts.MaxChannels][contracts.MaxKey + 1]int
	teardown error
}

type handle struct {
	bank     *contracts.Bank
	once     sync.Once
	gen      int
	detached bool
	programs [contracts.MaxChannels]selection
	keys     keyState
}

// New returns an engine named name whose port is produced by open.
func New(name string, open Opener, logger contracts.Logger) *Engine {
	return &Engine{name: name, open: open, logger: logger}
}

// Name identifies the output, for logs.
func (e *Engine) Name() string { return e.name }

// Capabilities implements contracts.Engine.
func (e *Engine) Capabilities() contracts.Capabilities { return contracts.DefaultCapabilities() }

// Attach implements contracts.Engine.
func (e *Engine) Attach(bank *contracts.Bank) (contracts.EngineHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.port == nil {
		p, err := e.open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", contracts.ErrEngineUnavailable, e.name, err)
		}
		e.port = p
		e.gen++
		e.current = [contracts.MaxChannels]selection{}
		e.held = [contracts.MaxChannels][contracts.MaxKey + 1]int{}
		e.logger.Info("MIDI output opened", e.logger.Field().String("output", e.name))
	}
	e.users++
	return &handle{bank: bank, gen: e.gen}, nil
}

// ProgramChange implements contracts.Engine. The bank select is sent as
// CC0/CC32 before the program change.
func (e *Engine) ProgramChange(h contracts.EngineHandle, channel, bankSelect, program int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	hd, err := e.live(h, channel, 0)
	if err != nil {
		return err
	}
	sel := selection{bank: bankSelect, program: program, set: true}
	if err := e.sendProgram(channel, sel); err != nil {
		return err
	}
	hd.programs[channel] = sel
	return nil
}

// NoteOn implements contracts.Engine. A velocity of zero releases the key.
func (e *Engine) NoteOn(h contracts.EngineHandle, channel, key, velocity int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	hd, err := e.live(h, channel, key)
	if err != nil {
		return err
	}
	if velocity == 0 {
		return e.release(hd, channel, key)
	}
	if want := hd.programs[channel]; want.set && e.current[channel] != want {
		if err := e.sendProgram(channel, want); err != nil {
			return err
		}
	}
	if err := e.send(midi.NoteOn(uint8(channel), uint8(key), uint8(velocity))); err != nil {
		return err
	}
	if !hd.keys[channel][key] {
		hd.keys[channel][key] = true
		e.held[channel][key]++
	}
	return nil
}

// NoteOff implements contracts.Engine. The key keeps sounding while another
// handle still holds it.
func (e *Engine) NoteOff(h contracts.EngineHandle, channel, key int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	hd, err := e.live(h, channel, key)
	if err != nil {
		return err
	}
	return e.release(hd, channel, key)
}

// CurrentProgram reports the selection the output channel plays now,
// whichever handle sent it.
func (e *Engine) CurrentProgram(channel int) (bankSelect, program int, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.port == nil || channel < 0 || channel >= contracts.MaxChannels {
		return 0, 0, false
	}
	s := e.current[channel]
	return s.bank, s.program, s.set
}

// Detach implements contracts.Engine. Keys the handle still holds are
// released. When the last handle detaches, All Notes Off is sent on every
// channel and the port is closed.
func (e *Engine) Detach(h contracts.EngineHandle) {
	hd, ok := h.(*handle)
	if !ok {
		return
	}
	hd.once.Do(func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.port == nil || hd.gen != e.gen {
			hd.detached = true
			return
		}

		var err error
		for ch := range hd.keys {
			for key, on := range hd.keys[ch] {
				if on {
					err = multierr.Append(err, e.release(hd, ch, key))
				}
			}
		}
		hd.detached = true

		e.users--
		if e.users <= 0 {
			err = multierr.Append(err, e.closePort())
		}
		if err != nil {
			e.teardown = multierr.Append(e.teardown, err)
			e.logger.Warn("MIDI output detach incomplete",
				e.logger.Field().String("output", e.name),
				e.logger.Field().Int("errors", len(multierr.Errors(err))),
				e.logger.Field().Error("error", err))
		}
	})
}

// Close releases the port if handles are still attached and returns every
// teardown error collected since the last Close.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	if e.port != nil {
		err = e.closePort()
	}
	err = multierr.Append(e.teardown, err)
	e.teardown = nil
	return err
}

func (e *Engine) closePort() error {
	var err error
	for ch := uint8(0); ch < contracts.MaxChannels; ch++ {
		err = multierr.Append(err, e.port.Send(midi.ControlChange(ch, ccAllNotesOff, 0).Bytes()))
	}
	err = multierr.Append(err, e.port.Close())
	e.port = nil
	e.users = 0
	e.logger.Info("MIDI output closed", e.logger.Field().String("output", e.name))
	return err
}

var errDetached = errors.New("midiout: handle is detached")

// live resolves h for a send. It must be called with e.mu held.
func (e *Engine) live(h contracts.EngineHandle, channel, key int) (*handle, error) {
	hd, ok := h.(*handle)
	if !ok {
		return nil, fmt.Errorf("midiout: foreign handle %T", h)
	}
	if hd.detached || e.port == nil || hd.gen != e.gen {
		return nil, errDetached
	}
	if channel < 0 || channel >= contracts.MaxChannels || key < 0 || key > contracts.MaxKey {
		return nil, fmt.Errorf("midiout: channel %d key %d out of range", channel, key)
	}
	return hd, nil
}

func (e *Engine) release(hd *handle, channel, key int) error {
	if hd.keys[channel][key] {
		hd.keys[channel][key] = false
		e.held[channel][key]--
	}
	if e.held[channel][key] > 0 {
		return nil
	}
	return e.send(midi.NoteOff(uint8(channel), uint8(key)))
}

func (e *Engine) sendProgram(channel int, sel selection) error {
	ch := uint8(channel)
	err := e.send(
		midi.ControlChange(ch, ccBankMSB, uint8(sel.bank>>bankSelectBits)&0x7f),
		midi.ControlChange(ch, ccBankLSB, uint8(sel.bank)&0x7f),
		midi.ProgramChange(ch, uint8(sel.program)),
	)
	if err != nil {
		e.current[channel] = selection{}
		return err
	}
	e.current[channel] = sel
	return nil
}

func (e *Engine) send(msgs ...midi.Message) error {
	for _, m := range msgs {
		if err := e.port.Send(m.Bytes()); err != nil {
			return fmt.Errorf("midiout: %s: send %s: %w", e.name, m, err)
		}
	}
	return nil
}
