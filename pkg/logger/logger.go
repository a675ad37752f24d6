// Package logger provides a simple, clean logging interface.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Constants for logging operations.
const (
	callerSkipFrames = 2 // Skip frames: getCaller -> logging method -> actual caller
)

// Logger defines the logging interface.
type Logger interface {
	// Context-aware variants
	Info(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Debug(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Fatal(ctx context.Context, msg string, fields ...Field)

	Named(name string) Logger
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value interface{}
}

// Field constructors.
func String(key, val string) Field          { return Field{Key: key, Value: val} }
func Int(key string, val int) Field         { return Field{Key: key, Value: val} }
func Float64(key string, val float64) Field { return Field{Key: key, Value: val} }
func Any(key string, val interface{}) Field { return Field{Key: key, Value: val} }
func Error(err error) Field                 { return Field{Key: "error", Value: err} }

// zeroLogger implements Logger on top of zerolog.
type zeroLogger struct {
	zl zerolog.Logger
}

func (l *zeroLogger) Named(name string) Logger {
	return &zeroLogger{zl: l.zl.With().Str("logger", name).Logger()}
}

func (l *zeroLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.write(ctx, l.zl.Info(), msg, fields)
}

func (l *zeroLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.write(ctx, l.zl.Error(), msg, fields)
}

func (l *zeroLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.write(ctx, l.zl.Debug(), msg, fields)
}

func (l *zeroLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.write(ctx, l.zl.Warn(), msg, fields)
}

func (l *zeroLogger) Fatal(ctx context.Context, msg string, fields ...Field) {
	l.write(ctx, l.zl.Error(), msg, fields)
	os.Exit(1)
}

// write attaches fields and the caller location. A nil event means the level is disabled.
func (l *zeroLogger) write(ctx context.Context, ev *zerolog.Event, msg string, fields []Field) {
	if ev == nil {
		return
	}
	ev = ev.Ctx(ctx)
	for _, f := range fields {
		switch v := f.Value.(type) {
		case error:
			ev = ev.AnErr(f.Key, v)
		case string:
			ev = ev.Str(f.Key, v)
		case int:
			ev = ev.Int(f.Key, v)
		case float64:
			ev = ev.Float64(f.Key, v)
		default:
			ev = ev.Interface(f.Key, v)
		}
	}
	ev.Str("source", getCaller()).Msg(msg)
}

var (
	global Logger
	mu     sync.RWMutex
)

// Init initializes the global logger writing to stderr.
func Init() error {
	return InitWithWriter(os.Stderr)
}

// InitWithWriter initializes the global logger writing JSON lines to w.
func InitWithWriter(w io.Writer) error {
	if w == nil {
		return fmt.Errorf("logger writer must not be nil")
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	zl := zerolog.New(w).With().Timestamp().Logger()

	mu.Lock()
	global = &zeroLogger{zl: zl}
	mu.Unlock()
	return nil
}

// getCaller returns the caller location in format relative/path/file.go:line (IDE-friendly).
func getCaller() string {
	// getCaller -> write -> logging method -> actual caller
	_, file, line, ok := runtime.Caller(callerSkipFrames + 1)
	if !ok {
		return "unknown:0"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}

	relPath, err := filepath.Rel(cwd, file)
	if err != nil {
		return fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}

	return fmt.Sprintf("%s:%d", relPath, line)
}

// Get returns the global logger.
func Get() Logger {
	mu.RLock()
	defer mu.RUnlock()
	if global == nil {
		// The logger should be explicitly initialized by the application
		panic("logger not initialized. Call logger.Init() first")
	}
	return global
}

// Named creates a named logger.
func Named(name string) Logger {
	return Get().Named(name)
}

// Sync flushes buffered log entries.
func Sync() error {
	// zerolog writes synchronously; nothing to flush
	return nil
}

// SetLevel updates the current logging level for all loggers.
func SetLevel(level zerolog.Level) { zerolog.SetGlobalLevel(level) }

// SetLevelString parses and sets the logging level.
// Accepts: debug, info, warn/warning, error (case-insensitive).
func SetLevelString(level string) error {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		SetLevel(zerolog.DebugLevel)
	case "", "info":
		SetLevel(zerolog.InfoLevel)
	case "warn", "warning":
		SetLevel(zerolog.WarnLevel)
	case "error":
		SetLevel(zerolog.ErrorLevel)
	default:
		return fmt.Errorf("unknown log level: %s", level)
	}
	return nil
}
