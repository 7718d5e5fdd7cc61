package synth

import (
	"github.com/leandrodaf/midisynth/internal/logger"
	"github.com/leandrodaf/midisynth/internal/soundbank"
	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// DefaultClientName is registered with the OS MIDI service when no name is set.
const DefaultClientName = "Go MIDI Synth"

// applyDefaultOptions sets default values for Options if not explicitly provided.
// The engine is chosen for the running OS when none is given.
func applyDefaultOptions(opts ...contracts.Option) (*contracts.Options, error) {
	options := &contracts.Options{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Logger == nil {
		options.Logger = logger.NewZapLogger()
	}
	options.Logger.SetLevel(options.LogLevel)

	if options.ClientName == "" {
		options.ClientName = DefaultClientName
	}
	if options.BankLoader == nil {
		options.BankLoader = soundbank.NewLoader()
	}
	if options.Engine == nil {
		engine, err := NewEngine(options)
		if err != nil {
			return nil, err
		}
		options.Engine = engine
	}
	return options, nil
}
