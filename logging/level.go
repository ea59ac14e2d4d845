package logging

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap/zapcore"
)

// Level is an enum of log levels. Its value can be compared to the global zap levels.
type Level int

const (
	// DEBUG log level.
	DEBUG Level = iota - 1
	// INFO log level.
	INFO
	// WARN log level.
	WARN
	// ERROR log level.
	ERROR
)

func (level Level) String() string {
	switch level {
	case DEBUG:
		return "Debug"
	case INFO:
		return "Info"
	case WARN:
		return "Warn"
	case ERROR:
		return "Error"
	}

	panic(fmt.Sprintf("unreachable: %d", level))
}

// AsZap converts the Level to a zap equivalent.
func (level Level) AsZap() zapcore.Level {
	switch level {
	case DEBUG:
		return zapcore.DebugLevel
	case INFO:
		return zapcore.InfoLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	}

	panic(fmt.Sprintf("unreachable: %d", level))
}

// LevelFromString parses an input string to a log level. The string must be one of
// `debug`, `info`, `warn`, `warning`, or `error`. The parsing is case-insensitive.
func LevelFromString(input string) (Level, error) {
	switch strings.ToLower(input) {
	case "debug":
		return DEBUG, nil
	case "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	}

	return DEBUG, errors.Errorf("invalid log level: %q", input)
}

// AtomicLevel is a level that can be concurrently accessed.
type AtomicLevel struct {
	inner *atomic.Int32
}

// NewAtomicLevelAt creates a new AtomicLevel at the given level.
func NewAtomicLevelAt(initial Level) AtomicLevel {
	return AtomicLevel{atomic.NewInt32(int32(initial))}
}

// Get returns the level.
func (level AtomicLevel) Get() Level {
	return Level(level.inner.Load())
}

// Set sets the level.
func (level AtomicLevel) Set(newLevel Level) {
	level.inner.Store(int32(newLevel))
}
