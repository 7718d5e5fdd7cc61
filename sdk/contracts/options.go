package contracts

import "time"

// DefaultSettleDelay is how long output stays muted after a soundfont load
// before the previous level is restored.
const DefaultSettleDelay = time.Second

// Options configures a synthesizer control layer.
type Options struct {
	Logger         Logger        // Logger for lifecycle events and errors.
	LogLevel       LogLevel      // Level of logging to use.
	Engine         Engine        // Synthesis backend; chosen per OS when nil.
	BankLoader     BankLoader    // Soundbank parser.
	Output         OutputLevel   // Output muted during loads; nil disables muting.
	SettleDelay    time.Duration // Wait before restoring output after a load.
	DefaultBank    int           // Bank applied to every channel after a load.
	DefaultProgram int           // Program applied to every channel after a load.
	Destination    string        // Engine output destination name or prefix.
	ClientName     string        // Name the process registers with the OS MIDI service.

	settleDelaySet bool
}

// SettleDelaySet reports whether WithSettleDelay was applied, so an explicit
// zero can be told apart from the default.
func (o *Options) SettleDelaySet() bool {
	return o.settleDelaySet
}

// Option is a function that modifies Options.
type Option func(*Options)

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(opts *Options) {
		opts.Logger = l
	}
}

// WithLogLevel sets the logging level.
func WithLogLevel(level LogLevel) Option {
	return func(opts *Options) {
		opts.LogLevel = level
	}
}

// WithEngine sets the synthesis engine.
func WithEngine(e Engine) Option {
	return func(opts *Options) {
		opts.Engine = e
	}
}

// WithBankLoader sets the soundbank parser.
func WithBankLoader(l BankLoader) Option {
	return func(opts *Options) {
		opts.BankLoader = l
	}
}

// WithOutputLevel sets the output muted during soundfont loads.
func WithOutputLevel(out OutputLevel) Option {
	return func(opts *Options) {
		opts.Output = out
	}
}

// WithSettleDelay overrides DefaultSettleDelay. Zero restores output as soon
// as the load finishes.
func WithSettleDelay(d time.Duration) Option {
	return func(opts *Options) {
		opts.SettleDelay = d
		opts.settleDelaySet = true
	}
}

// WithDefaultProgram sets the instrument every channel starts with after a load.
func WithDefaultProgram(bank, program int) Option {
	return func(opts *Options) {
		opts.DefaultBank = bank
		opts.DefaultProgram = program
	}
}

// WithDestination selects the engine output by name or name prefix.
func WithDestination(name string) Option {
	return func(opts *Options) {
		opts.Destination = name
	}
}

// WithClientName sets the name registered with the OS MIDI service.
func WithClientName(name string) Option {
	return func(opts *Options) {
		opts.ClientName = name
	}
}
