// Package log provides the structured logger used throughout gbdtcore,
// backed by github.com/rs/zerolog. Components obtain a named logger with
// GetLoggerWithName and call Info/Debug/Warn/Error with slog-style
// key/value pairs, matching the calling convention the rest of the
// training core expects.
package log

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Logger is the structured logging interface components depend on.
type Logger interface {
	Debug(msg string, keyvals ...interface{})
	Info(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
	Error(msg string, keyvals ...interface{})
	WithField(key string, value interface{}) Logger
}

type zerologLogger struct {
	l zerolog.Logger
}

func (z *zerologLogger) event(e *zerolog.Event, msg string, keyvals []interface{}) {
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, keyvals[i+1])
	}
	e.Msg(msg)
}

func (z *zerologLogger) Debug(msg string, keyvals ...interface{}) {
	z.event(z.l.Debug(), msg, keyvals)
}

func (z *zerologLogger) Info(msg string, keyvals ...interface{}) {
	z.event(z.l.Info(), msg, keyvals)
}

func (z *zerologLogger) Warn(msg string, keyvals ...interface{}) {
	z.event(z.l.Warn(), msg, keyvals)
}

func (z *zerologLogger) Error(msg string, keyvals ...interface{}) {
	z.event(z.l.Error(), msg, keyvals)
}

func (z *zerologLogger) WithField(key string, value interface{}) Logger {
	return &zerologLogger{l: z.l.With().Interface(key, value).Logger()}
}

var (
	mu      sync.Mutex
	base    = zerolog.New(os.Stderr).With().Timestamp().Logger()
	initOne sync.Once
)

func init() {
	initOne.Do(func() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})
}

// SetupLogger configures the global log level ("debug", "info", "warn",
// "error", or "silent"/"off"); the writer is set by SetOutput. Passing
// an empty or unrecognized level leaves the current level unchanged.
func SetupLogger(level string) {
	mu.Lock()
	defer mu.Unlock()

	switch strings.ToLower(level) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "silent", "off":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	}
}

// SetOutput redirects the base logger's writer, primarily for tests that
// want to assert on emitted log lines.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	base = zerolog.New(w).With().Timestamp().Logger()
}

// GetLogger returns the unnamed base logger.
func GetLogger() Logger {
	mu.Lock()
	defer mu.Unlock()
	return &zerologLogger{l: base}
}

// GetLoggerWithName returns a logger tagged with a "component" field, the
// same convention as the teacher's log.GetLoggerWithName("LGBMClassifier").
func GetLoggerWithName(name string) Logger {
	mu.Lock()
	defer mu.Unlock()
	return &zerologLogger{l: base.With().Str("component", name).Logger()}
}
