// Package midigomidi captures note events from inputs of the registered
// gomidi driver.
package midigomidi

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/leandrodaf/midisynth/internal/midiin"
	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// ErrInvalidMIDIDevice is returned for an index outside the input list.
var ErrInvalidMIDIDevice = errors.New("invalid MIDI device")

// ins is drivers.Ins, replaceable in tests.
var ins = drivers.Ins

// Client listens to one gomidi input at a time.
type Client struct {
	logger contracts.Logger

	events atomic.Value // chan<- contracts.NoteEvent

	mu   sync.Mutex
	in   drivers.In
	stop func()
}

// NewInputClient returns a client for the registered gomidi driver.
func NewInputClient(options *contracts.Options) (contracts.InputClient, error) {
	return &Client{logger: options.Logger}, nil
}

// ListDevices lists the driver's inputs.
func (c *Client) ListDevices() ([]contracts.DeviceInfo, error) {
	list, err := ins()
	if err != nil {
		return nil, err
	}
	devices := make([]contracts.DeviceInfo, len(list))
	for i, in := range list {
		devices[i] = contracts.DeviceInfo{Index: i, Name: in.String(), EntityName: in.String()}
	}
	return devices, nil
}

// SelectDevice picks the input at deviceID. Listening starts with StartCapture.
func (c *Client) SelectDevice(deviceID int) error {
	list, err := ins()
	if err != nil {
		return err
	}
	if deviceID < 0 || deviceID >= len(list) {
		return ErrInvalidMIDIDevice
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.in = list[deviceID]
	c.logger.Info("MIDI device selected",
		c.logger.Field().Int("deviceID", deviceID),
		c.logger.Field().String("deviceName", c.in.String()))
	return nil
}

// StartCapture opens the selected input and forwards note events.
func (c *Client) StartCapture(events chan<- contracts.NoteEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.in == nil || events == nil {
		c.logger.Error("Cannot start capture: No MIDI device selected")
		return
	}
	c.stopLocked()
	c.events.Store(events)

	stop, err := midi.ListenTo(c.in, c.handle, midi.HandleError(func(err error) {
		c.logger.Warn("MIDI input error", c.logger.Field().Error("error", err))
	}))
	if err != nil {
		c.logger.Error("Failed to start MIDI capture", c.logger.Field().Error("error", fmt.Errorf("listen %s: %w", c.in, err)))
		return
	}
	c.stop = stop
	c.logger.Info("MIDI capture started")
}

func (c *Client) handle(msg midi.Message, _ int32) {
	events, _ := c.events.Load().(chan<- contracts.NoteEvent)
	if events == nil {
		return
	}
	now := uint64(time.Now().UTC().UnixNano())
	for _, ev := range midiin.Decode(msg.Bytes()) {
		ev.Timestamp = now
		select {
		case events <- ev:
		default:
			c.logger.Warn("Event buffer full; dropping MIDI event")
		}
	}
}

// Stop ends capture and closes the input.
func (c *Client) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	if c.in != nil && c.in.IsOpen() {
		return c.in.Close()
	}
	return nil
}

func (c *Client) stopLocked() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	c.events.Store((chan<- contracts.NoteEvent)(nil))
}
