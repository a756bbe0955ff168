package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a thin structured wrapper over zerolog. Callers never see
// zerolog types, only Fields.
type Logger struct {
	zl zerolog.Logger
}

type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	Output     string // stdout, stderr, or a file path
	TimeFormat string
}

func New(cfg *Config) (*Logger, error) {
	out, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}
	return newLogger(out, cfg)
}

func openOutput(name string) (io.Writer, error) {
	switch name {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	f, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", name, err)
	}
	return f, nil
}

func newLogger(out io.Writer, cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	tf := cfg.TimeFormat
	if tf == "" {
		tf = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = tf

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: tf}
	}

	zl := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		CallerWithSkipFrameCount(4).
		Logger()
	return &Logger{zl: zl}, nil
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger that stamps fields on every event.
func (l *Logger) With(fields ...Field) *Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = f.context(ctx)
	}
	return &Logger{zl: ctx.Logger()}
}

func (l *Logger) Debug(msg string, fields ...Field) { emit(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { emit(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { emit(l.zl.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { emit(l.zl.Error(), msg, fields) }

func emit(e *zerolog.Event, msg string, fields []Field) {
	if e == nil {
		return
	}
	for _, f := range fields {
		e = f.event(e)
	}
	e.Msg(msg)
}

// Field is one key/value pair. The value's dynamic type picks the zerolog
// encoder; a nil value is skipped.
type Field struct {
	Key   string
	Value any
}

func (f Field) event(e *zerolog.Event) *zerolog.Event {
	if f.Value == nil {
		return e
	}
	switch v := f.Value.(type) {
	case string:
		return e.Str(f.Key, v)
	case int:
		return e.Int(f.Key, v)
	case int64:
		return e.Int64(f.Key, v)
	case float64:
		return e.Float64(f.Key, v)
	case bool:
		return e.Bool(f.Key, v)
	case time.Duration:
		return e.Dur(f.Key, v)
	case error:
		return e.AnErr(f.Key, v)
	default:
		return e.Interface(f.Key, v)
	}
}

func (f Field) context(c zerolog.Context) zerolog.Context {
	if f.Value == nil {
		return c
	}
	switch v := f.Value.(type) {
	case string:
		return c.Str(f.Key, v)
	case int:
		return c.Int(f.Key, v)
	case int64:
		return c.Int64(f.Key, v)
	case float64:
		return c.Float64(f.Key, v)
	case bool:
		return c.Bool(f.Key, v)
	case time.Duration:
		return c.Dur(f.Key, v)
	case error:
		return c.AnErr(f.Key, v)
	default:
		return c.Interface(f.Key, v)
	}
}

func String(key, value string) Field          { return Field{key, value} }
func Strings(key string, value []string) Field { return Field{key, strings.Join(value, ", ")} }
func Int(key string, value int) Field          { return Field{key, value} }
func Int64(key string, value int64) Field      { return Field{key, value} }
func Float64(key string, value float64) Field  { return Field{key, value} }
func Bool(key string, value bool) Field        { return Field{key, value} }
func Any(key string, value any) Field          { return Field{key, value} }

// Duration is encoded in milliseconds.
func Duration(key string, value time.Duration) Field { return Field{key, value} }

// Error uses the conventional "error" key; a nil error adds nothing.
func Error(err error) Field { return Field{"error", err} }
