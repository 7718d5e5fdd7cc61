package contracts

import "time"

// LogLevel represents the severity level for logging.
// The values follow zapcore.Level so implementations can convert directly.
type LogLevel int8

const (
	// DebugLevel is for per-note and per-message traces.
	DebugLevel LogLevel = iota - 1
	// InfoLevel reports instance lifecycle changes such as loads and disposals.
	InfoLevel
	// WarnLevel reports recoverable problems, e.g. a failed reload that kept the previous bank.
	WarnLevel
	// ErrorLevel reports failures that reach the caller.
	ErrorLevel
	// FatalLevel indicates the process cannot continue.
	FatalLevel
)

// ParseLogLevel maps a textual level ("debug", "info", ...) to a LogLevel.
// Unknown values fall back to InfoLevel.
func ParseLogLevel(s string) LogLevel {
	switch s {
	case "debug", "DEBUG":
		return DebugLevel
	case "warn", "WARN", "warning":
		return WarnLevel
	case "error", "ERROR":
		return ErrorLevel
	case "fatal", "FATAL":
		return FatalLevel
	default:
		return InfoLevel
	}
}

// LogDestination specifies where the log messages should be directed.
type LogDestination string

const (
	// ConsoleLog directs log messages to stderr.
	ConsoleLog LogDestination = "console"
	// FileLog directs log messages to a file.
	FileLog LogDestination = "file"
)

// Field builds a single structured log field.
type Field interface {
	Bool(key string, val bool) Field
	Int(key string, val int) Field
	Float64(key string, val float64) Field
	String(key string, val string) Field
	Time(key string, val time.Time) Field
	Duration(key string, val time.Duration) Field
	Int64(key string, val int64) Field
	Error(key string, val error) Field
	Uint64(key string, val uint64) Field
	Uint32(key string, val uint32) Field
	Uint8(key string, val uint8) Field
}

// Logger is the logging contract used throughout the SDK.
type Logger interface {
	Info(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	Field() Field

	SetLevel(level LogLevel)
	SetDestination(dest LogDestination, filePath ...string)
}
