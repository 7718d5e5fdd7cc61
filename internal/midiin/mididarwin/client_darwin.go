//go:build darwin
// +build darwin

// Package mididarwin captures note events from CoreMIDI sources on macOS.
package mididarwin

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/youpy/go-coremidi"

	"github.com/leandrodaf/midisynth/internal/midiin"
	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// Error definitions for MIDI connection and handling issues.
var (
	ErrNoMIDIDevices       = errors.New("no MIDI devices found")
	ErrInvalidMIDIDevice   = errors.New("invalid MIDI device")
	ErrMIDIConnectionError = errors.New("error connecting to MIDI device")
	ErrCreateInputPort     = errors.New("error creating input port")
)

type portConnection interface {
	Disconnect()
}

// Client captures note events from one CoreMIDI source at a time.
type Client struct {
	logger    contracts.Logger
	events    atomic.Value // chan<- contracts.NoteEvent
	client    coremidi.Client
	inputPort coremidi.InputPort
	portConn  portConnection
	mu        sync.Mutex
	capturing bool
	wg        sync.WaitGroup
}

// NewInputClient creates a CoreMIDI client registered as options.ClientName.
func NewInputClient(options *contracts.Options) (contracts.InputClient, error) {
	client, err := coremidi.NewClient(options.ClientName)
	if err != nil {
		return nil, err
	}
	options.Logger.Info("MIDI input client successfully created")
	return &Client{logger: options.Logger, client: client}, nil
}

// ListDevices returns the available CoreMIDI sources.
func (m *Client) ListDevices() ([]contracts.DeviceInfo, error) {
	sources, err := coremidi.AllSources()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI sources: %w", err)
	}
	if len(sources) == 0 {
		m.logger.Warn(ErrNoMIDIDevices.Error())
		return nil, ErrNoMIDIDevices
	}

	devices := make([]contracts.DeviceInfo, len(sources))
	for i, source := range sources {
		entity := source.Entity()
		devices[i] = contracts.DeviceInfo{
			Index:        i,
			Name:         source.Name(),
			EntityName:   entity.Name(),
			Manufacturer: entity.Manufacturer(),
		}
	}
	return devices, nil
}

// SelectDevice connects to the source at deviceID, dropping any previous one.
func (m *Client) SelectDevice(deviceID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sources, err := coremidi.AllSources()
	if err != nil {
		return fmt.Errorf("error retrieving MIDI sources: %w", err)
	}
	if deviceID < 0 || deviceID >= len(sources) {
		m.logger.Error(ErrInvalidMIDIDevice.Error(), m.logger.Field().Int("deviceID", deviceID))
		return ErrInvalidMIDIDevice
	}

	if m.portConn != nil {
		m.portConn.Disconnect()
		m.portConn = nil
	}

	source := sources[deviceID]
	m.logger.Info("MIDI device selected",
		m.logger.Field().Int("deviceID", deviceID),
		m.logger.Field().String("deviceName", source.Name()))

	m.inputPort, err = coremidi.NewInputPort(m.client, "Input Port", m.handlePacket)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCreateInputPort, err)
	}
	m.portConn, err = m.inputPort.Connect(source)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMIDIConnectionError, err)
	}
	return nil
}

func (m *Client) handlePacket(_ coremidi.Source, packet coremidi.Packet) {
	m.wg.Add(1)
	defer m.wg.Done()

	events, _ := m.events.Load().(chan<- contracts.NoteEvent)
	if events == nil {
		return
	}
	for _, ev := range midiin.Decode(packet.Data) {
		select {
		case events <- ev:
		default:
			m.logger.Warn("Event buffer full; dropping MIDI event")
		}
	}
}

// StartCapture delivers note events to events until Stop.
func (m *Client) StartCapture(events chan<- contracts.NoteEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if events == nil {
		m.logger.Error("StartCapture called with nil channel")
		return
	}
	if m.capturing {
		m.logger.Warn("Capture already started; replacing event channel")
	}
	m.events.Store(events)
	m.capturing = true
	m.logger.Info("Starting MIDI event capture")
}

// Stop disconnects the source and waits for in-flight packets.
func (m *Client) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.capturing && m.portConn == nil {
		return nil
	}
	m.capturing = false
	if m.portConn != nil {
		m.portConn.Disconnect()
		m.portConn = nil
	}
	m.events.Store((chan<- contracts.NoteEvent)(nil))
	m.wg.Wait()
	m.logger.Info("MIDI capture stopped")
	return nil
}
