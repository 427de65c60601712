// pkg/logger/logger.go
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Level is the minimum severity a Logger writes.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

// ParseLevel maps "debug", "info", "warn" and "error" to a Level.
// Anything else is treated as info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger is a wrapper around the standard log.Logger
type Logger struct {
	*log.Logger
	level     Level
	component string
}

// New creates a new logger instance writing to stdout with a standard prefix.
func New(prefix string) *Logger {
	return NewWithWriter(os.Stdout, prefix, LevelInfo)
}

// NewWithWriter creates a logger writing to w that drops lines below level.
func NewWithWriter(w io.Writer, prefix string, level Level) *Logger {
	return &Logger{
		Logger: log.New(w, prefix, log.LstdFlags|log.Lmsgprefix),
		level:  level,
	}
}

// Discard returns a logger that writes nothing. Used by tests.
func Discard() *Logger {
	return NewWithWriter(io.Discard, "", LevelError+1)
}

// With returns a logger sharing the same output that tags every line with
// the given component, e.g. "[aggregator]".
func (l *Logger) With(component string) *Logger {
	return &Logger{Logger: l.Logger, level: l.level, component: component}
}

// Enabled reports whether lines at lvl are written.
func (l *Logger) Enabled(lvl Level) bool {
	return lvl >= l.level
}

func (l *Logger) output(lvl Level, msg string) {
	if !l.Enabled(lvl) {
		return
	}
	var b strings.Builder
	b.WriteString(levelNames[lvl])
	b.WriteString(": ")
	if l.component != "" {
		b.WriteString("[")
		b.WriteString(l.component)
		b.WriteString("] ")
	}
	b.WriteString(msg)
	l.Output(3, b.String())
}

// Info logs an informational message.
func (l *Logger) Info(v ...interface{}) {
	l.output(LevelInfo, strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

// Error logs an error message.
func (l *Logger) Error(v ...interface{}) {
	l.output(LevelError, strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

// Warn logs a warning message.
func (l *Logger) Warn(v ...interface{}) {
	l.output(LevelWarn, strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.output(LevelDebug, fmt.Sprintf(format, args...))
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.output(LevelInfo, fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.output(LevelWarn, fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.output(LevelError, fmt.Sprintf(format, args...))
}
