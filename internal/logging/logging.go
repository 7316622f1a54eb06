// Package logging implements the leveled logging sink SPEC_FULL.md's
// ambient stack section names: one typed stream per level, console by
// default for error/warning and discarded by default for info/debug,
// with a per-level policy a caller can redirect or silence. No package
// in this module returns anything but plain errors and leaves reporting
// to the caller, so this wraps the standard library's log.Logger rather
// than reaching for a structured-logging third-party package.
package logging

import (
	"io"
	"log"
	"os"
)

// Level names one of the four severities a Logger writes at.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// Logger writes at four independent levels, each backed by its own
// *log.Logger so a level's destination can be redirected or silenced
// without touching the others.
type Logger struct {
	loggers [4]*log.Logger
}

// New returns a Logger with spec-default policy: error/warning go to
// os.Stderr, info/debug are discarded.
func New() *Logger {
	l := &Logger{}
	l.loggers[LevelError] = log.New(os.Stderr, "ERROR ", log.LstdFlags)
	l.loggers[LevelWarn] = log.New(os.Stderr, "WARN  ", log.LstdFlags)
	l.loggers[LevelInfo] = log.New(io.Discard, "INFO  ", log.LstdFlags)
	l.loggers[LevelDebug] = log.New(io.Discard, "DEBUG ", log.LstdFlags)
	return l
}

// SetPolicy redirects level's output to w (io.Discard silences it).
func (l *Logger) SetPolicy(level Level, w io.Writer) {
	l.loggers[level].SetOutput(w)
}

func (l *Logger) Errorf(format string, args ...any) { l.loggers[LevelError].Printf(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.loggers[LevelWarn].Printf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.loggers[LevelInfo].Printf(format, args...) }
func (l *Logger) Debugf(format string, args ...any) { l.loggers[LevelDebug].Printf(format, args...) }

// Default is the process-wide logger used by packages that don't carry
// their own Logger reference (rt's NUMA debug messages, the facade's
// MatSetEntry warnings, cmd/spmv's errors); callers that want scoped control over
// policy should construct their own Logger with New instead.
var Default = New()
