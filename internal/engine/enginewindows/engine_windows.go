//go:build windows
// +build windows

// Package enginewindows drives a winmm MIDI output device on Windows.
package enginewindows

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/leandrodaf/midisynth/internal/engine/midiout"
	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// HMIDIOUT is a winmm output device handle.
type HMIDIOUT windows.Handle

// Struct representing MIDI output device capabilities
type midiOutCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	wTechnology    uint16
	wVoices        uint16
	wNotes         uint16
	wChannelMask   uint16
	dwSupport      uint32
}

// Error definitions for winmm output issues.
var (
	ErrNoOutputDevices = errors.New("no MIDI output devices found")
	ErrNoSuchDevice    = errors.New("MIDI output device not found")
)

// Load the winmm.dll library and required functions
var (
	winmm                 = windows.NewLazySystemDLL("winmm.dll")
	procMidiOutGetNumDevs = winmm.NewProc("midiOutGetNumDevs")
	procMidiOutGetDevCaps = winmm.NewProc("midiOutGetDevCapsW")
	procMidiOutOpen       = winmm.NewProc("midiOutOpen")
	procMidiOutShortMsg   = winmm.NewProc("midiOutShortMsg")
	procMidiOutReset      = winmm.NewProc("midiOutReset")
	procMidiOutClose      = winmm.NewProc("midiOutClose")
)

type devicePort struct {
	mu     sync.Mutex
	handle HMIDIOUT
}

// Send packs a short message into the DWORD layout midiOutShortMsg expects.
func (p *devicePort) Send(msg []byte) error {
	var packed uint32
	for i := 0; i < len(msg) && i < 3; i++ {
		packed |= uint32(msg[i]) << (8 * i)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle == 0 {
		return errors.New("winmm: device closed")
	}
	if r1, _, err := procMidiOutShortMsg.Call(uintptr(p.handle), uintptr(packed)); r1 != 0 {
		return fmt.Errorf("midiOutShortMsg failed (%d): %v", r1, err)
	}
	return nil
}

func (p *devicePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle == 0 {
		return nil
	}
	procMidiOutReset.Call(uintptr(p.handle))
	r1, _, err := procMidiOutClose.Call(uintptr(p.handle))
	p.handle = 0
	if r1 != 0 {
		return fmt.Errorf("midiOutClose failed (%d): %v", r1, err)
	}
	return nil
}

// NewEngine returns an engine for the output device whose name starts with
// options.Destination, or device 0 (usually the GS wavetable synth).
func NewEngine(options *contracts.Options) (contracts.Engine, error) {
	options.Logger.Info("MIDI engine created for Windows")

	open := func() (midiout.Port, error) {
		id, name, err := findDevice(options.Destination)
		if err != nil {
			return nil, err
		}
		port := &devicePort{}
		r1, _, err := procMidiOutOpen.Call(
			uintptr(unsafe.Pointer(&port.handle)),
			uintptr(id),
			0, 0, 0,
		)
		if r1 != 0 {
			options.Logger.Error("Failed to open MIDI output device",
				options.Logger.Field().Int("deviceID", id),
				options.Logger.Field().Error("error", err))
			return nil, fmt.Errorf("failed to open MIDI output device %d: %v", id, err)
		}
		options.Logger.Info("MIDI output device connected",
			options.Logger.Field().Int("deviceID", id),
			options.Logger.Field().String("deviceName", name))
		return port, nil
	}
	return midiout.New("winmm", open, options.Logger), nil
}

// ListDestinations lists the winmm output devices.
func ListDestinations() ([]contracts.DeviceInfo, error) {
	r0, _, _ := procMidiOutGetNumDevs.Call()
	numDevices := uint32(r0)
	if numDevices == 0 {
		return nil, ErrNoOutputDevices
	}

	devices := make([]contracts.DeviceInfo, 0, numDevices)
	for i := uint32(0); i < numDevices; i++ {
		var caps midiOutCaps
		r1, _, _ := procMidiOutGetDevCaps.Call(
			uintptr(i),
			uintptr(unsafe.Pointer(&caps)),
			unsafe.Sizeof(caps),
		)
		if r1 != 0 {
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

func findDevice(prefix string) (int, string, error) {
	devices, err := ListDestinations()
	if err != nil {
		return 0, "", err
	}
	if prefix == "" {
		return devices[0].Index, devices[0].Name, nil
	}
	for _, d := range devices {
		if strings.HasPrefix(d.Name, prefix) {
			return d.Index, d.Name, nil
		}
	}
	return 0, "", fmt.Errorf("%w: %q", ErrNoSuchDevice, prefix)
}
