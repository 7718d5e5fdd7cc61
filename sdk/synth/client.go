// Package synth is the public entry point: it builds the control layer for
// the running OS and exposes its commands as typed methods.
package synth

import (
	"context"
	"io"

	"github.com/leandrodaf/midisynth/internal/dispatch"
	"github.com/leandrodaf/midisynth/internal/instance"
	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// Synthesizer manages any number of independent synthesizer instances.
// All methods are safe for concurrent use. Every error it returns is a
// *contracts.Error.
type Synthesizer struct {
	d      *dispatch.Dispatcher
	engine contracts.Engine
	logger contracts.Logger
}

// NewSynthesizer creates a Synthesizer with the specified options.
// It applies default options and initializes the engine.
func NewSynthesizer(opts ...contracts.Option) (*Synthesizer, error) {
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &Synthesizer{d: dispatch.New(options), engine: options.Engine, logger: options.Logger}, nil
}

// Dispatch runs a command by name, as a transport would.
func (s *Synthesizer) Dispatch(ctx context.Context, method string, args map[string]any) (any, error) {
	return s.d.Dispatch(ctx, method, args)
}

// Dispatcher exposes the underlying dispatcher for transports.
func (s *Synthesizer) Dispatcher() *dispatch.Dispatcher { return s.d }

// Create adds an empty instance.
func (s *Synthesizer) Create() contracts.InstanceID { return s.d.Create() }

// Instances lists the live instance ids in ascending order.
func (s *Synthesizer) Instances() []contracts.InstanceID { return s.d.Registry().List() }

// LoadSoundfont loads data into a new instance and selects bank/program on
// every channel.
func (s *Synthesizer) LoadSoundfont(ctx context.Context, data []byte, bank, program int) (contracts.InstanceID, error) {
	return s.d.LoadSoundfont(ctx, dispatch.Source{Data: data}, nil, instance.Program{Bank: bank, Program: program})
}

// LoadSoundfontFile is LoadSoundfont reading from path.
func (s *Synthesizer) LoadSoundfontFile(ctx context.Context, path string, bank, program int) (contracts.InstanceID, error) {
	return s.d.LoadSoundfont(ctx, dispatch.Source{Path: path}, nil, instance.Program{Bank: bank, Program: program})
}

// ReloadSoundfont loads data into the existing instance id.
func (s *Synthesizer) ReloadSoundfont(ctx context.Context, id contracts.InstanceID, data []byte, bank, program int) error {
	_, err := s.d.LoadSoundfont(ctx, dispatch.Source{Data: data}, &id, instance.Program{Bank: bank, Program: program})
	return err
}

// ChangeSoundfont replaces the bank of id, keeping the old one on failure.
func (s *Synthesizer) ChangeSoundfont(ctx context.Context, id contracts.InstanceID, data []byte) error {
	return s.d.ChangeSoundfont(ctx, id, dispatch.Source{Data: data})
}

// SelectInstrument sets the bank and program of one channel.
func (s *Synthesizer) SelectInstrument(id contracts.InstanceID, channel, bank, program int) error {
	return s.d.SelectInstrument(id, channel, bank, program)
}

// PlayNote starts key on channel.
func (s *Synthesizer) PlayNote(id contracts.InstanceID, channel, key, velocity int) error {
	return s.d.PlayNote(id, channel, key, velocity)
}

// StopNote releases key on channel.
func (s *Synthesizer) StopNote(id contracts.InstanceID, channel, key int) error {
	return s.d.StopNote(id, channel, key)
}

// StopAllNotes silences every key of id.
func (s *Synthesizer) StopAllNotes(id contracts.InstanceID) error {
	return s.d.StopAllNotes(id)
}

// Unload disposes id. Unloading an already disposed id succeeds.
func (s *Synthesizer) Unload(id contracts.InstanceID) error {
	_, err := s.d.Unload(id)
	return err
}

// IsInitialized reports whether id has a soundfont loaded.
func (s *Synthesizer) IsInitialized(id contracts.InstanceID) bool { return s.d.IsInitialized(id) }

// Instruments lists the instruments of id's soundfont, at most one per channel.
func (s *Synthesizer) Instruments(id contracts.InstanceID) ([]string, error) {
	return s.d.Instruments(id)
}

// Close disposes every instance. When the engine is an io.Closer it is
// closed too, and the errors it collected while tearing instances down are
// returned.
func (s *Synthesizer) Close() error {
	n := s.d.DisposeAll()
	var err error
	if c, ok := s.engine.(io.Closer); ok {
		err = c.Close()
	}
	s.logger.Debug("synthesizer closed",
		s.logger.Field().Int("disposed", n),
		s.logger.Field().Bool("clean", err == nil))
	return err
}
