package synth

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/leandrodaf/midisynth/internal/engine/enginedarwin"
	"github.com/leandrodaf/midisynth/internal/engine/enginegomidi"
	"github.com/leandrodaf/midisynth/internal/engine/enginewindows"
	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// ErrUnknownEngine is returned by NewEngineByName for an unrecognised name.
var ErrUnknownEngine = errors.New("unknown engine")

type engineInitializer func(*contracts.Options) (contracts.Engine, error)

// engineInitializers maps engine names to their constructors.
var engineInitializers = map[string]engineInitializer{
	"coremidi": enginedarwin.NewEngine,
	"winmm":    enginewindows.NewEngine,
	"gomidi":   enginegomidi.NewEngine,
}

// nativeEngines maps OS names to their native engine.
var nativeEngines = map[string]string{
	"darwin":  "coremidi",
	"windows": "winmm",
}

// NewEngine returns the native engine of the running OS, or the gomidi
// driver engine on other systems.
func NewEngine(opts *contracts.Options) (contracts.Engine, error) {
	return NewEngineByName("auto", opts)
}

// NewEngineByName returns the engine called name. "auto" and "" pick the
// native engine of the running OS.
func NewEngineByName(name string, opts *contracts.Options) (contracts.Engine, error) {
	name = resolve(name)
	initializer, ok := engineInitializers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, name)
	}
	opts.Logger.Info("synthesis engine selected",
		opts.Logger.Field().String("engine", name),
		opts.Logger.Field().String("os", runtime.GOOS))
	return initializer(opts)
}

var destinationListers = map[string]func() ([]contracts.DeviceInfo, error){
	"coremidi": enginedarwin.ListDestinations,
	"winmm":    enginewindows.ListDestinations,
	"gomidi":   enginegomidi.ListDestinations,
}

// ListDestinations returns the outputs the engine called name can drive.
func ListDestinations(name string) ([]contracts.DeviceInfo, error) {
	list, ok := destinationListers[resolve(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, name)
	}
	return list()
}

func resolve(name string) string {
	if name != "" && name != "auto" {
		return name
	}
	if native, ok := nativeEngines[runtime.GOOS]; ok {
		return native
	}
	return "gomidi"
}
