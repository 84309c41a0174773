// Package logger provides the leveled, structured logger injected into every
// harness component.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level is a log priority. Lower values are higher priority: a message is
// emitted when its level is at or below the configured threshold.
type Level int

// Levels in priority order.
const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// String returns the lowercase level name.
func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// ParseLevel parses error, warn, info or debug (case-insensitive).
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LevelError, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "info", "":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q (want error, warn, info or debug)", s)
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelError:
		return zerolog.ErrorLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelDebug:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

// Fields is structured data attached to a log entry.
type Fields map[string]interface{}

// Logger writes leveled entries through zerolog.
type Logger struct {
	zl        zerolog.Logger
	threshold Level

	mu     sync.Mutex
	closer io.Closer
}

// New creates a Logger writing JSON lines to w.
func New(w io.Writer, threshold Level) *Logger {
	zl := zerolog.New(w).Level(threshold.zerolog()).With().Timestamp().Logger()
	return &Logger{zl: zl, threshold: threshold}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop(), threshold: LevelError}
}

// Options configures Open.
type Options struct {
	Level   Level
	File    string    // Append JSON lines to this file when set
	Console io.Writer // Human-readable output (nil = none)
}

// Open creates a Logger from options. The caller must Close it to release the
// log file.
func Open(opts Options) (*Logger, error) {
	var writers []io.Writer
	var closer io.Closer

	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //#nosec G304 -- user-provided log path
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		writers = append(writers, f)
		closer = f
	}
	if opts.Console != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: opts.Console, TimeFormat: time.TimeOnly})
	}
	if len(writers) == 0 {
		return Nop(), nil
	}

	l := New(zerolog.MultiLevelWriter(writers...), opts.Level)
	l.closer = closer
	return l, nil
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	return err
}

// Threshold returns the configured level.
func (l *Logger) Threshold() Level {
	return l.threshold
}

// Enabled reports whether a message at level would be emitted.
func (l *Logger) Enabled(level Level) bool {
	return l != nil && level <= l.threshold
}

// With returns a child logger that adds key=value to every entry.
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{
		zl:        l.zl.With().Interface(key, value).Logger(),
		threshold: l.threshold,
	}
}

// Log emits msg at level with optional data.
func (l *Logger) Log(level Level, msg string, data ...Fields) {
	if !l.Enabled(level) {
		return
	}
	ev := l.zl.WithLevel(level.zerolog())
	for _, d := range data {
		if d != nil {
			ev = ev.Fields(map[string]interface{}(d))
		}
	}
	ev.Msg(msg)
}

// Error logs at error level.
func (l *Logger) Error(msg string, data ...Fields) { l.Log(LevelError, msg, data...) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, data ...Fields) { l.Log(LevelWarn, msg, data...) }

// Info logs at info level.
func (l *Logger) Info(msg string, data ...Fields) { l.Log(LevelInfo, msg, data...) }

// Debug logs at debug level.
func (l *Logger) Debug(msg string, data ...Fields) { l.Log(LevelDebug, msg, data...) }
