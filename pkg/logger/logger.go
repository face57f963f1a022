package logger

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents the logging level
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelSilent
)

// String returns the string representation of the level
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelSilent:
		return "SILENT"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string ("debug", "info", ...) to a Level.
// Unknown values fall back to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "silent", "off", "none":
		return LevelSilent
	default:
		return LevelInfo
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	case LevelSilent:
		// above every level zap emits through Debug..Error
		return zapcore.FatalLevel + 1
	default:
		return zapcore.InfoLevel
	}
}

// Logger provides structured logging with configurable levels
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	WithFields(fields ...Field) Logger
	SetLevel(level Level)
}

// Field represents a structured log field
type Field struct {
	Key   string
	Value any
}

// F is a convenience function for creating fields
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// zapLogger implements Logger on top of zap
type zapLogger struct {
	z     *zap.Logger
	level zap.AtomicLevel
}

// NewLogger creates a human-readable console logger with the specified level and output
func NewLogger(level Level, out io.Writer) Logger {
	if out == nil {
		out = os.Stderr
	}
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = "time"
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cfg.EncodeCaller = nil
	cfg.CallerKey = ""
	return build(zapcore.NewConsoleEncoder(cfg), level, out)
}

// NewJSONLogger creates a logger that writes one JSON object per line
func NewJSONLogger(level Level, out io.Writer) Logger {
	if out == nil {
		out = os.Stderr
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return build(zapcore.NewJSONEncoder(cfg), level, out)
}

func build(enc zapcore.Encoder, level Level, out io.Writer) Logger {
	atom := zap.NewAtomicLevelAt(level.zapLevel())
	core := zapcore.NewCore(enc, zapcore.AddSync(out), atom)
	return &zapLogger{z: zap.New(core), level: atom}
}

// NewDefaultLogger creates a logger with Info level writing to stderr
func NewDefaultLogger() Logger {
	return NewLogger(LevelInfo, os.Stderr)
}

// NewSilentLogger creates a logger that outputs nothing
func NewSilentLogger() Logger {
	return &zapLogger{z: zap.NewNop(), level: zap.NewAtomicLevelAt(LevelSilent.zapLevel())}
}

// SetLevel sets the minimum logging level. Loggers derived with
// WithFields share the level of their parent.
func (l *zapLogger) SetLevel(level Level) {
	l.level.SetLevel(level.zapLevel())
}

// WithFields returns a new logger with additional fields
func (l *zapLogger) WithFields(fields ...Field) Logger {
	return &zapLogger{z: l.z.With(toZap(fields)...), level: l.level}
}

func (l *zapLogger) Debug(msg string, fields ...Field) {
	l.z.Debug(msg, toZap(fields)...)
}

func (l *zapLogger) Info(msg string, fields ...Field) {
	l.z.Info(msg, toZap(fields)...)
}

func (l *zapLogger) Warn(msg string, fields ...Field) {
	l.z.Warn(msg, toZap(fields)...)
}

func (l *zapLogger) Error(msg string, fields ...Field) {
	l.z.Error(msg, toZap(fields)...)
}

func toZap(fields []Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		if err, ok := f.Value.(error); ok {
			out[i] = zap.NamedError(f.Key, err)
			continue
		}
		out[i] = zap.Any(f.Key, f.Value)
	}
	return out
}

// Global default logger
var defaultLogger = NewDefaultLogger()

// SetDefault sets the global default logger
func SetDefault(l Logger) {
	defaultLogger = l
}

// Default returns the global default logger
func Default() Logger {
	return defaultLogger
}
