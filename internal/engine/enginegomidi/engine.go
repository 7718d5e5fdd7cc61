// Package enginegomidi drives any output port registered with the gomidi
// driver registry.
package enginegomidi

import (
	"errors"
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/leandrodaf/midisynth/internal/engine/midiout"
	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// Errors returned when selecting an output.
var (
	ErrNoOutputs    = errors.New("no MIDI outputs registered")
	ErrNoSuchOutput = errors.New("MIDI output not found")
)

// outs is drivers.Outs, replaceable in tests.
var outs = drivers.Outs

type outPort struct{ out drivers.Out }

func (p outPort) Send(msg []byte) error { return p.out.Send(msg) }
func (p outPort) Close() error          { return p.out.Close() }

// NewEngine returns an engine for the first output whose name starts with
// options.Destination, or the first output when it is empty.
func NewEngine(options *contracts.Options) (contracts.Engine, error) {
	open := func() (midiout.Port, error) {
		out, err := findOut(options.Destination)
		if err != nil {
			return nil, err
		}
		if err := out.Open(); err != nil {
			return nil, fmt.Errorf("open %s: %w", out, err)
		}
		options.Logger.Info("MIDI output selected", options.Logger.Field().String("output", out.String()))
		return outPort{out: out}, nil
	}
	return midiout.New("gomidi", open, options.Logger), nil
}

// ListDestinations lists the outputs of the registered driver.
func ListDestinations() ([]contracts.DeviceInfo, error) {
	list, err := outs()
	if err != nil {
		return nil, err
	}
	devices := make([]contracts.DeviceInfo, len(list))
	for i, o := range list {
		devices[i] = contracts.DeviceInfo{Index: i, Name: o.String(), EntityName: o.String()}
	}
	return devices, nil
}

func findOut(prefix string) (drivers.Out, error) {
	list, err := outs()
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNoOutputs
	}
	if prefix == "" {
		return list[0], nil
	}
	for _, o := range list {
		if strings.HasPrefix(o.String(), prefix) {
			return o, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoSuchOutput, prefix)
}
