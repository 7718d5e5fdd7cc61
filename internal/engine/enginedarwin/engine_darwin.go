//go:build darwin
// +build darwin

// Package enginedarwin drives a CoreMIDI destination on macOS.
package enginedarwin

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/youpy/go-coremidi"

	"github.com/leandrodaf/midisynth/internal/engine/midiout"
	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// Error definitions for CoreMIDI output issues.
var (
	ErrNoDestinations    = errors.New("no MIDI destinations found")
	ErrNoSuchDestination = errors.New("MIDI destination not found")
	ErrCreateOutputPort  = errors.New("error creating output port")
)

// destinationPort sends packets from one CoreMIDI output port to one destination.
type destinationPort struct {
	mu     sync.Mutex
	port   coremidi.OutputPort
	dest   coremidi.Destination
	closed bool
}

func (p *destinationPort) Send(msg []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("coremidi: port closed")
	}
	packet := coremidi.NewPacket(msg, 0)
	return packet.Send(&p.port, &p.dest)
}

func (p *destinationPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// NewEngine creates a CoreMIDI client and returns an engine that plays
// through the destination named by options.Destination, or the first
// destination when it is empty.
func NewEngine(options *contracts.Options) (contracts.Engine, error) {
	client, err := coremidi.NewClient(options.ClientName)
	if err != nil {
		return nil, fmt.Errorf("%w: coremidi client: %v", contracts.ErrEngineUnavailable, err)
	}
	options.Logger.Info("CoreMIDI client successfully created",
		options.Logger.Field().String("client", options.ClientName))

	open := func() (midiout.Port, error) {
		dest, err := findDestination(options.Destination)
		if err != nil {
			return nil, err
		}
		port, err := coremidi.NewOutputPort(client, "Output Port")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCreateOutputPort, err)
		}
		options.Logger.Info("MIDI destination selected",
			options.Logger.Field().String("destination", dest.Name()))
		return &destinationPort{port: port, dest: dest}, nil
	}
	return midiout.New("coremidi", open, options.Logger), nil
}

// ListDestinations returns the CoreMIDI destinations an engine can drive.
func ListDestinations() ([]contracts.DeviceInfo, error) {
	dests, err := coremidi.AllDestinations()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI destinations: %w", err)
	}
	if len(dests) == 0 {
		return nil, ErrNoDestinations
	}
	out := make([]contracts.DeviceInfo, len(dests))
	for i, d := range dests {
		out[i] = contracts.DeviceInfo{Index: i, Name: d.Name(), EntityName: d.Name()}
	}
	return out, nil
}

func findDestination(prefix string) (coremidi.Destination, error) {
	dests, err := coremidi.AllDestinations()
	if err != nil {
		return coremidi.Destination{}, fmt.Errorf("error retrieving MIDI destinations: %w", err)
	}
	if len(dests) == 0 {
		return coremidi.Destination{}, ErrNoDestinations
	}
	if prefix == "" {
		return dests[0], nil
	}
	for _, d := range dests {
		if strings.HasPrefix(d.Name(), prefix) {
			return d, nil
		}
	}
	return coremidi.Destination{}, fmt.Errorf("%w: %q", ErrNoSuchDestination, prefix)
}
