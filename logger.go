package bulkscan

import (
	"fmt"
	"os"
	"strings"
)

// Logger defines logging methods used by the library. Implementations should be cheap.
// Default is FmtLogger which writes to stdout/stderr using fmt.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// FmtLogger is a minimal logger that prints messages with level prefixes.
// Debug/Info go to stdout; Warn/Error go to stderr.
type FmtLogger struct{}

// NewFmtLogger creates a new FmtLogger.
func NewFmtLogger() *FmtLogger { return &FmtLogger{} }

func (FmtLogger) Debugf(format string, args ...any) { fmt.Printf("[DEBUG] "+format+"\n", args...) }
func (FmtLogger) Infof(format string, args ...any)  { fmt.Printf("[INFO]  "+format+"\n", args...) }
func (FmtLogger) Warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "[WARN]  "+format+"\n", args...)
}
func (FmtLogger) Errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "[ERROR] "+format+"\n", args...)
}

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps "debug", "info", "warn" and "error" to a Level. Anything
// else is LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
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

// LevelLogger drops messages below Min before passing them to Next.
type LevelLogger struct {
	Next Logger
	Min  Level
}

// NewLevelLogger wraps next with a minimum level.
func NewLevelLogger(next Logger, minLevel Level) *LevelLogger {
	return &LevelLogger{Next: next, Min: minLevel}
}

func (l *LevelLogger) Debugf(format string, args ...any) {
	if l.Min <= LevelDebug {
		l.Next.Debugf(format, args...)
	}
}
func (l *LevelLogger) Infof(format string, args ...any) {
	if l.Min <= LevelInfo {
		l.Next.Infof(format, args...)
	}
}
func (l *LevelLogger) Warnf(format string, args ...any) {
	if l.Min <= LevelWarn {
		l.Next.Warnf(format, args...)
	}
}
func (l *LevelLogger) Errorf(format string, args ...any) { l.Next.Errorf(format, args...) }

type noopLogger struct{}

func (noopLogger) Debugf(string, ...any) {}
func (noopLogger) Infof(string, ...any)  {}
func (noopLogger) Warnf(string, ...any)  {}
func (noopLogger) Errorf(string, ...any) {}
