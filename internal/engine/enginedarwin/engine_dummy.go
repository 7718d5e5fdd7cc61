//go:build !darwin
// +build !darwin

// Package enginedarwin drives a CoreMIDI destination on macOS.
package enginedarwin

import (
	"errors"

	"github.com/leandrodaf/midisynth/internal/engine/midiout"
	"github.com/leandrodaf/midisynth/sdk/contracts"
)

var errUnavailable = errors.New("CoreMIDI is not available on this platform")

// NewEngine returns an engine whose every Attach fails with
// contracts.ErrEngineUnavailable.
func NewEngine(options *contracts.Options) (contracts.Engine, error) {
	options.Logger.Info("Using dummy CoreMIDI engine for non-macOS system")
	return midiout.New("coremidi", func() (midiout.Port, error) {
		return nil, errUnavailable
	}, options.Logger), nil
}

// ListDestinations always fails outside macOS.
func ListDestinations() ([]contracts.DeviceInfo, error) {
	return nil, errUnavailable
}
