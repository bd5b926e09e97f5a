// Package diagnostics renders parse errors, type errors, and runtime
// faults to the console, and wires the pipeline's phase-transition
// debug logging. It is purely a presentation layer: nothing here
// changes compilation or execution outcomes.
package diagnostics

import (
	"fmt"
	"io"
	"os"

	"github.com/juju/loggo"
	"github.com/pterm/pterm"
)

var logger = loggo.GetLogger("ferro.diagnostics")

// LogLevel controls how much a Logger prints. Levels are ordered from
// quietest to loudest; a Logger at a given level prints everything at
// or below it.
type LogLevel int

const (
	LevelSilent LogLevel = iota
	LevelError
	LevelWarning
	LevelVerbose
)

// ParseLevel maps a config string (ferro.toml's diagnostics.log_level)
// to a LogLevel, defaulting to LevelWarning for an unrecognized or
// empty string.
func ParseLevel(s string) LogLevel {
	switch s {
	case "silent":
		return LevelSilent
	case "error":
		return LevelError
	case "verbose":
		return LevelVerbose
	default:
		return LevelWarning
	}
}

// Logger prints diagnostic output at a configured verbosity.
type Logger struct {
	level LogLevel
	out   io.Writer
}

// New creates a Logger writing to stderr at the given level.
func New(level LogLevel) *Logger {
	return &Logger{level: level, out: os.Stderr}
}

// SetOutput redirects where diagnostics are printed; tests use this
// to capture output instead of writing to stderr.
func (l *Logger) SetOutput(w io.Writer) { l.out = w }

func (l *Logger) banner(style *pterm.Style, tag, msg string) {
	fmt.Fprint(l.out, style.Sprint(tag))
	fmt.Fprintln(l.out, " "+msg)
}

// ReportError prints a fatal diagnostic (parse error, type error, or
// runtime fault) with a red banner. Always printed unless the Logger
// is at LevelSilent.
func (l *Logger) ReportError(tag string, err error) {
	if l.level < LevelError {
		return
	}
	l.banner(pterm.NewStyle(pterm.BgRed, pterm.FgWhite), tag, err.Error())
}

// ReportWarning prints a non-fatal diagnostic with a yellow banner.
// Printed at LevelWarning and above.
func (l *Logger) ReportWarning(tag, msg string) {
	if l.level < LevelWarning {
		return
	}
	l.banner(pterm.NewStyle(pterm.BgYellow, pterm.FgBlack), tag, msg)
}

// ReportSuccess prints a positive confirmation with a green banner.
// Printed at LevelWarning and above, matching the teacher's choice to
// treat routine success noise the same as warnings.
func (l *Logger) ReportSuccess(tag, msg string) {
	if l.level < LevelWarning {
		return
	}
	l.banner(pterm.NewStyle(pterm.BgLightGreen, pterm.FgBlack), tag, msg)
}

// Verbose prints a diagnostic detail only at LevelVerbose, such as a
// per-phase pipeline trace.
func (l *Logger) Verbose(tag, msg string) {
	if l.level < LevelVerbose {
		return
	}
	l.banner(pterm.NewStyle(pterm.BgCyan, pterm.FgBlack), tag, msg)
	logger.Debugf("%s: %s", tag, msg)
}

// Phase logs a pipeline phase transition (parse -> check -> compile
// -> optimize -> run) to the juju/loggo debug stream. It is always
// recorded at debug level regardless of the Logger's own level, since
// loggo has its own independent level configuration for anyone
// piping ferro's logs into a log aggregator.
func Phase(from, to string) {
	logger.Debugf("%s -> %s", from, to)
}
