//go:build windows
// +build windows

// Package midiwindows captures note events from winmm input devices on Windows.
package midiwindows

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/leandrodaf/midisynth/internal/midiin"
	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// HMIDIIN is a winmm input device handle.
type HMIDIIN windows.Handle

// Constants for callback flags
const (
	CALLBACK_FUNCTION = 0x00030000
	MIDI_IO_STATUS    = 0x00000020
)

// Constants for MIDI message types
const (
	MIM_OPEN      = 0x3C1
	MIM_CLOSE     = 0x3C2
	MIM_DATA      = 0x3C3
	MIM_ERROR     = 0x3C5
	MIM_LONGERROR = 0x3C6
	MIM_MOREDATA  = 0x3CC
)

type midiInCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	dwSupport      uint32
}

// ErrNoMIDIDevices is returned when winmm reports no input device.
var ErrNoMIDIDevices = errors.New("no MIDI devices found")

var (
	winmm                = windows.NewLazySystemDLL("winmm.dll")
	procMidiInGetNumDevs = winmm.NewProc("midiInGetNumDevs")
	procMidiInGetDevCaps = winmm.NewProc("midiInGetDevCapsW")
	procMidiInOpen       = winmm.NewProc("midiInOpen")
	procMidiInStart      = winmm.NewProc("midiInStart")
	procMidiInStop       = winmm.NewProc("midiInStop")
	procMidiInClose      = winmm.NewProc("midiInClose")
)

// One callback serves every client; clients are found by handle.
var (
	callback = windows.NewCallback(midiInCallback)
	clients  sync.Map // HMIDIIN -> *Client
)

// Client captures note events from one winmm input device.
type Client struct {
	logger   contracts.Logger
	events   atomic.Value // chan<- contracts.NoteEvent
	handle   HMIDIIN
	portConn bool
	mu       sync.Mutex
}

// NewInputClient creates a winmm input client.
func NewInputClient(options *contracts.Options) (contracts.InputClient, error) {
	options.Logger.Info("MIDI input client created for Windows")
	return &Client{logger: options.Logger}, nil
}

// ListDevices lists the winmm input devices.
func (m *Client) ListDevices() ([]contracts.DeviceInfo, error) {
	r0, _, _ := procMidiInGetNumDevs.Call()
	numDevices := uint32(r0)
	if numDevices == 0 {
		m.logger.Warn("No MIDI devices found")
		return nil, ErrNoMIDIDevices
	}

	devices := make([]contracts.DeviceInfo, 0, numDevices)
	for i := uint32(0); i < numDevices; i++ {
		var caps midiInCaps
		r1, _, _ := procMidiInGetDevCaps.Call(
			uintptr(i),
			uintptr(unsafe.Pointer(&caps)),
			unsafe.Sizeof(caps),
		)
		if r1 != 0 {
			m.logger.Warn("Failed to get MIDI device information", m.logger.Field().Uint32("deviceID", i))
			continue
		}
		name := windows.UTF16ToString(caps.szPname[:])
		devices = append(devices, contracts.DeviceInfo{
			Index:        int(i),
			Name:         name,
			EntityName:   name,
			Manufacturer: fmt.Sprintf("MID: %d PID: %d", caps.wMid, caps.wPid),
		})
	}
	return devices, nil
}

// SelectDevice opens the input device deviceID, closing any previous one.
func (m *Client) SelectDevice(deviceID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.portConn {
		if err := m.closeDevice(); err != nil {
			return fmt.Errorf("failed to stop previous MIDI capture: %w", err)
		}
	}

	var h HMIDIIN
	r1, _, err := procMidiInOpen.Call(
		uintptr(unsafe.Pointer(&h)),
		uintptr(deviceID),
		callback,
		0,
		uintptr(CALLBACK_FUNCTION|MIDI_IO_STATUS),
	)
	if r1 != 0 {
		m.logger.Error("Failed to open MIDI device",
			m.logger.Field().Int("deviceID", deviceID),
			m.logger.Field().Error("error", err))
		return fmt.Errorf("failed to open MIDI device %d: %v", deviceID, err)
	}
	m.handle = h
	m.portConn = true
	clients.Store(h, m)
	m.logger.Info("MIDI device connected", m.logger.Field().Int("deviceID", deviceID))
	return nil
}

// StartCapture starts the device and delivers note events to events.
func (m *Client) StartCapture(events chan<- contracts.NoteEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.portConn || m.handle == 0 {
		m.logger.Error("Cannot start capture: No MIDI device selected")
		return
	}
	m.events.Store(events)

	if r1, _, err := procMidiInStart.Call(uintptr(m.handle)); r1 != 0 {
		m.logger.Error("Failed to start MIDI capture", m.logger.Field().Error("error", err))
		return
	}
	m.logger.Info("MIDI capture started")
}

func midiInCallback(hMidiIn uintptr, wMsg uint32, dwInstance uintptr, dwParam1 uintptr, dwParam2 uintptr) uintptr {
	v, ok := clients.Load(HMIDIIN(hMidiIn))
	if !ok {
		return 0
	}
	m := v.(*Client)

	switch wMsg {
	case MIM_DATA:
		ev, ok := midiin.FromShortMessage(uint32(dwParam1))
		if !ok {
			return 0
		}
		if ch, _ := m.events.Load().(chan<- contracts.NoteEvent); ch != nil {
			select {
			case ch <- ev:
			default:
				m.logger.Warn("MIDI event channel is full; event discarded")
			}
		}
	case MIM_ERROR, MIM_LONGERROR:
		m.logger.Error("MIDI input error", m.logger.Field().Uint32("msg", wMsg))
	case MIM_OPEN, MIM_CLOSE, MIM_MOREDATA:
	default:
		m.logger.Debug("Unknown MIDI message", m.logger.Field().Uint32("msg", wMsg))
	}
	return 0
}

// Stop stops capture and closes the device.
func (m *Client) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.portConn {
		return nil
	}
	if err := m.closeDevice(); err != nil {
		return fmt.Errorf("failed to stop MIDI capture: %w", err)
	}
	m.logger.Info("MIDI capture stopped and device closed")
	return nil
}

func (m *Client) closeDevice() error {
	if r1, _, err := procMidiInStop.Call(uintptr(m.handle)); r1 != 0 {
		return err
	}
	if r1, _, err := procMidiInClose.Call(uintptr(m.handle)); r1 != 0 {
		return err
	}
	clients.Delete(m.handle)
	m.portConn = false
	m.handle = 0
	m.events.Store((chan<- contracts.NoteEvent)(nil))
	return nil
}
