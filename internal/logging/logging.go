// Package logging wraps charmbracelet/log for the logexport CLI.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// EnvLogLevel overrides the log level when --log-level is not given.
const EnvLogLevel = "LOGEXPORT_LOG_LEVEL"

// Logger is a wrapper around charmbracelet/log.Logger.
type Logger struct {
	*log.Logger
}

var (
	instance *Logger
	once     sync.Once
)

// Get returns the process-wide logger, writing to stderr.
func Get() *Logger {
	once.Do(func() {
		instance = New(os.Stderr)
	})
	return instance
}

// New creates a logger writing to w.
func New(w io.Writer) *Logger {
	return &Logger{
		Logger: log.NewWithOptions(w, log.Options{
			Level:           log.InfoLevel,
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
			Prefix:          "logexport",
		}),
	}
}

// ParseLevel maps a level name to a log.Level. Unknown names mean info.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "fatal":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

// SetLogLevel sets the log level from a string.
func (l *Logger) SetLogLevel(level string) {
	l.SetLevel(ParseLevel(level))
	l.Debug("log level set", "level", level)
}

// Configure applies the --log-level flag, falling back to
// LOGEXPORT_LOG_LEVEL when the flag is empty.
func (l *Logger) Configure(flagLevel string) {
	switch {
	case flagLevel != "":
		l.SetLogLevel(flagLevel)
	case os.Getenv(EnvLogLevel) != "":
		l.SetLogLevel(os.Getenv(EnvLogLevel))
	}
}

// Debug logs a debug message.
func Debug(msg string, keyvals ...any) {
	Get().Debug(msg, keyvals...)
}

// Info logs an info message.
func Info(msg string, keyvals ...any) {
	Get().Info(msg, keyvals...)
}

// Warn logs a warning message.
func Warn(msg string, keyvals ...any) {
	Get().Warn(msg, keyvals...)
}

// Error logs an error message.
func Error(msg string, keyvals ...any) {
	Get().Error(msg, keyvals...)
}
