// Package logger provides a process-wide structured logger. Components
// that degrade rather than fail (StoreError, EmbedderUnavailable,
// InvariantViolation, ParseFailure) log through here instead of
// returning the failure to the caller. The concept resolver and the FTS
// planner are the exceptions: they treat a failed store query as an
// empty result and do not log it.
package logger

import (
	"log/slog"
	"os"
	"sync"
)

var (
	defaultLogger *slog.Logger
	once          sync.Once
	level         = slog.LevelInfo
)

// SetLevel sets the minimum level for subsequent Init calls. Must be
// called before the first log call to take effect.
func SetLevel(l string) {
	switch l {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
}

// Init initializes the default logger with a JSON handler writing to
// os.Stderr, so stdout stays free for tool-surface output. Safe to call
// more than once; only the first call takes effect.
func Init() {
	once.Do(func() {
		defaultLogger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))
		slog.SetDefault(defaultLogger)
	})
}

// Get returns the process-wide logger, initializing it on first use.
func Get() *slog.Logger {
	Init()
	return defaultLogger
}

// Info logs an informational message.
func Info(msg string, args ...any) {
	Get().Info(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	Get().Warn(msg, args...)
}

// Error logs an error, attaching it as an "error" attribute.
func Error(msg string, err error, args ...any) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	Get().Error(msg, args...)
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	Get().Debug(msg, args...)
}
