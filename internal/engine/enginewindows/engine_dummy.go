//go:build !windows
// +build !windows

// Package enginewindows drives a winmm MIDI output device on Windows.
package enginewindows

import (
	"errors"

	"github.com/leandrodaf/midisynth/internal/engine/midiout"
	"github.com/leandrodaf/midisynth/sdk/contracts"
)

var errUnavailable = errors.New("winmm is not available on this platform")

// NewEngine returns an engine whose every Attach fails with
// contracts.ErrEngineUnavailable.
func NewEngine(options *contracts.Options) (contracts.Engine, error) {
	options.Logger.Info("Using dummy winmm engine for non-Windows system")
	return midiout.New("winmm", func() (midiout.Port, error) {
		return nil, errUnavailable
	}, options.Logger), nil
}

// ListDestinations always fails outside Windows.
func ListDestinations() ([]contracts.DeviceInfo, error) {
	return nil, errUnavailable
}
