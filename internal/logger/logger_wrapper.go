package logger

import (
	"fmt"
	"os"
	"time"

	"github.com/leandrodaf/midisynth/sdk/contracts"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger implements contracts.Logger on top of zap.
type ZapLogger struct {
	logger *zap.Logger
	level  zap.AtomicLevel
	encCfg zapcore.EncoderConfig
}

// NewZapLogger creates a production (JSON, stderr) logger at info level.
func NewZapLogger() contracts.Logger {
	return newLogger(zap.NewProductionEncoderConfig(), zapcore.Lock(os.Stderr), zap.InfoLevel)
}

// NewDevelopmentLogger creates a human-readable console logger at debug level.
func NewDevelopmentLogger() contracts.Logger {
	return newLogger(zap.NewDevelopmentEncoderConfig(), zapcore.Lock(os.Stderr), zap.DebugLevel)
}

// NewNopLogger discards everything.
func NewNopLogger() contracts.Logger {
	return &ZapLogger{logger: zap.NewNop(), level: zap.NewAtomicLevelAt(zap.FatalLevel)}
}

// FromZap wraps an existing zap logger. The level filter is applied on top
// of whatever the logger's core already enables.
func FromZap(l *zap.Logger) contracts.Logger {
	return &ZapLogger{
		logger: l.WithOptions(zap.AddCallerSkip(1)),
		level:  zap.NewAtomicLevelAt(zap.DebugLevel),
		encCfg: zap.NewProductionEncoderConfig(),
	}
}

func newLogger(encCfg zapcore.EncoderConfig, sink zapcore.WriteSyncer, lvl zapcore.Level) *ZapLogger {
	level := zap.NewAtomicLevelAt(lvl)
	encCfg.EncodeTime = zapcore.RFC3339TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), sink, level)
	return &ZapLogger{
		logger: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)),
		level:  level,
		encCfg: encCfg,
	}
}

// Info logs a message at the INFO level
func (z *ZapLogger) Info(msg string, fields ...contracts.Field) {
	z.log(zapcore.InfoLevel, msg, fields...)
}

// Error logs a message at the ERROR level
func (z *ZapLogger) Error(msg string, fields ...contracts.Field) {
	z.log(zapcore.ErrorLevel, msg, fields...)
}

// Debug logs a message at the DEBUG level
func (z *ZapLogger) Debug(msg string, fields ...contracts.Field) {
	z.log(zapcore.DebugLevel, msg, fields...)
}

// Warn logs a message at the WARN level
func (z *ZapLogger) Warn(msg string, fields ...contracts.Field) {
	z.log(zapcore.WarnLevel, msg, fields...)
}

// Fatal logs a message at the FATAL level and terminates the application
func (z *ZapLogger) Fatal(msg string, fields ...contracts.Field) {
	z.log(zapcore.FatalLevel, msg, fields...)
	_ = z.logger.Sync()
	os.Exit(1)
}

// Field returns a new field builder.
func (z *ZapLogger) Field() contracts.Field {
	return zapField{}
}

// SetLevel sets the minimum level that is written.
func (z *ZapLogger) SetLevel(level contracts.LogLevel) {
	z.level.SetLevel(zapcore.Level(level))
}

// SetDestination redirects output to stderr or to a file. On failure to
// open the file the current destination is kept and the error is logged.
func (z *ZapLogger) SetDestination(dest contracts.LogDestination, filePath ...string) {
	var sink zapcore.WriteSyncer
	switch dest {
	case contracts.ConsoleLog:
		sink = zapcore.Lock(os.Stderr)
	case contracts.FileLog:
		if len(filePath) == 0 || filePath[0] == "" {
			z.Error("file log destination requires a path")
			return
		}
		f, err := os.OpenFile(filePath[0], os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			z.Error("failed to open log file", z.Field().String("path", filePath[0]), z.Field().Error("error", err))
			return
		}
		sink = zapcore.AddSync(f)
	default:
		z.Error(fmt.Sprintf("unknown log destination %q", dest))
		return
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(z.encCfg), sink, z.level)
	z.logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
}

func (z *ZapLogger) log(level zapcore.Level, msg string, fields ...contracts.Field) {
	if !z.level.Enabled(level) {
		return
	}
	ce := z.logger.Check(level, msg)
	if ce == nil {
		return
	}
	ce.Write(toZapFields(fields)...)
}

func toZapFields(fields []contracts.Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		if f, ok := field.(zapField); ok && f.set {
			out = append(out, f.field)
		}
	}
	return out
}

// zapField implements contracts.Field
type zapField struct {
	field zap.Field
	set   bool
}

func wrap(f zap.Field) contracts.Field { return zapField{field: f, set: true} }

func (zapField) Bool(key string, val bool) contracts.Field       { return wrap(zap.Bool(key, val)) }
func (zapField) Int(key string, val int) contracts.Field         { return wrap(zap.Int(key, val)) }
func (zapField) Float64(key string, val float64) contracts.Field { return wrap(zap.Float64(key, val)) }
func (zapField) String(key string, val string) contracts.Field   { return wrap(zap.String(key, val)) }
func (zapField) Time(key string, val time.Time) contracts.Field  { return wrap(zap.Time(key, val)) }
func (zapField) Int64(key string, val int64) contracts.Field     { return wrap(zap.Int64(key, val)) }
func (zapField) Uint64(key string, val uint64) contracts.Field   { return wrap(zap.Uint64(key, val)) }
func (zapField) Uint32(key string, val uint32) contracts.Field   { return wrap(zap.Uint32(key, val)) }
func (zapField) Uint8(key string, val uint8) contracts.Field     { return wrap(zap.Uint8(key, val)) }

func (zapField) Duration(key string, val time.Duration) contracts.Field {
	return wrap(zap.Duration(key, val))
}

func (zapField) Error(key string, val error) contracts.Field {
	return wrap(zap.NamedError(key, val))
}
