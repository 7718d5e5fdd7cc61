package synth

import (
	"runtime"

	"github.com/leandrodaf/midisynth/internal/logger"
	"github.com/leandrodaf/midisynth/internal/midiin/mididarwin"
	"github.com/leandrodaf/midisynth/internal/midiin/midigomidi"
	"github.com/leandrodaf/midisynth/internal/midiin/midiwindows"
	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// inputInitializers maps OS names to their native MIDI input client.
var inputInitializers = map[string]func(*contracts.Options) (contracts.InputClient, error){
	"darwin":  mididarwin.NewInputClient,
	"windows": midiwindows.NewInputClient,
}

// NewInputClient returns a MIDI input client for the running OS, falling
// back to the gomidi driver on systems without a native client.
func NewInputClient(opts ...contracts.Option) (contracts.InputClient, error) {
	options := &contracts.Options{}
	for _, opt := range opts {
		opt(options)
	}
	if options.Logger == nil {
		options.Logger = logger.NewZapLogger()
	}
	if options.ClientName == "" {
		options.ClientName = DefaultClientName
	}
	if initializer, ok := inputInitializers[runtime.GOOS]; ok {
		return initializer(options)
	}
	return midigomidi.NewInputClient(options)
}
