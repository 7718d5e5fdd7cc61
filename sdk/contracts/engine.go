package contracts

// InstanceID identifies a synthesizer instance for the lifetime of a registry.
type InstanceID uint32

// MIDI limits shared by the control layer and the engines.
const (
	MaxChannels = 16
	MaxKey      = 127
	MaxVelocity = 127
)

// Capabilities describes what an engine accepts. Values outside these
// ranges are rejected before reaching the engine.
type Capabilities struct {
	Channels   int // Number of addressable channels, at most MaxChannels.
	MaxBank    int // Highest accepted bank select value, inclusive.
	MaxProgram int // Highest accepted program number, inclusive.
}

// DefaultCapabilities matches a General MIDI device with 14-bit bank select.
func DefaultCapabilities() Capabilities {
	return Capabilities{Channels: MaxChannels, MaxBank: 16383, MaxProgram: 127}
}

// EngineHandle is an opaque reference to resources an engine attached for one bank.
type EngineHandle interface{}

// Engine renders note and program events for attached banks.
//
// Attach should wrap ErrEngineUnavailable when the engine itself cannot
// start; any other Attach error is treated as a load failure.
type Engine interface {
	Capabilities() Capabilities
	Attach(bank *Bank) (EngineHandle, error)
	ProgramChange(h EngineHandle, channel, bankSelect, program int) error
	NoteOn(h EngineHandle, channel, key, velocity int) error
	NoteOff(h EngineHandle, channel, key int) error
	Detach(h EngineHandle)
}

// OutputLevel is the audible output whose level the quiet swap forces to
// silence during a (re)load.
type OutputLevel interface {
	Level() float64
	SetLevel(level float64)
}

// SharedChannels is implemented by engines whose handles play on the same
// output channels. CurrentProgram reports what the channel plays now,
// whichever handle selected it.
type SharedChannels interface {
	CurrentProgram(channel int) (bankSelect, program int, ok bool)
}
