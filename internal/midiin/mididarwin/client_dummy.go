//go:build !darwin
// +build !darwin

package mididarwin

import (
	"fmt"

	"github.com/leandrodaf/midisynth/sdk/contracts"
)

type dummyClient struct {
	logger contracts.Logger
}

func NewInputClient(options *contracts.Options) (contracts.InputClient, error) {
	options.Logger.Info("Using dummy MIDI input client for non-macOS system")
	return &dummyClient{logger: options.Logger}, nil
}

func (m *dummyClient) ListDevices() ([]contracts.DeviceInfo, error) {
	m.logger.Warn("ListDevices called on dummy MIDI client")
	return nil, fmt.Errorf("MIDI input is not available on this platform")
}

func (m *dummyClient) SelectDevice(int) error {
	m.logger.Warn("SelectDevice called on dummy MIDI client")
	return fmt.Errorf("MIDI input is not available on this platform")
}

func (m *dummyClient) StartCapture(chan<- contracts.NoteEvent) {
	m.logger.Warn("StartCapture called on dummy MIDI client")
}

func (m *dummyClient) Stop() error { return nil }
