package observability

import (
	"log"
	"os"
)

// Level is a logging severity, ordered least to most severe.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string ("debug"/"info"/"warn"/"error") to a
// Level, defaulting to LevelInfo for anything unrecognized.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger is a tiny leveled wrapper over the standard library's log
// package — no external logging library appears anywhere in the
// retrieved example pack, so stdlib log is the grounded choice here
// (see DESIGN.md).
type Logger struct {
	min    Level
	stdlib *log.Logger
}

// New creates a Logger writing to stderr at or above min.
func New(min Level) *Logger {
	return &Logger{min: min, stdlib: log.New(os.Stderr, "", log.LstdFlags)}
}

func (l *Logger) logf(level Level, prefix, format string, args ...any) {
	if l == nil || level < l.min {
		return
	}
	l.stdlib.Printf(prefix+" "+format, args...)
}

func (l *Logger) Debugf(format string, args ...any) { l.logf(LevelDebug, "DEBUG", format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.logf(LevelInfo, "INFO", format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.logf(LevelWarn, "WARN", format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.logf(LevelError, "ERROR", format, args...) }
