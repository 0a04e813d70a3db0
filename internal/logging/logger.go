// Package logging implements the levelled, prefix-stacked logger from
// spec §4.7 and Design Note §9 ("Log prefix stack"). It generalizes the
// teacher's provisioning.Observer/ConsoleObserver shape (an interface
// plus a console implementation carrying contextual fields) to the
// spec's integer level bands and positional prefix stack instead of a
// key/value field bag.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Level bands from spec §3.
const (
	LevelInfo            = 0
	LevelVerbose         = 1
	LevelDebug           = 2
	LevelDebug2          = 3
	LevelDebug3          = 4
	LevelSSHVerbose      = 5
	LevelShellTrace      = 6
	LevelSSHExtraVerbose = 7
)

var levelNames = map[int]string{
	LevelInfo:            "INFO",
	LevelVerbose:         "VERBOSE",
	LevelDebug:           "DEBUG",
	LevelDebug2:          "DEBUG2",
	LevelDebug3:          "DEBUG3",
	LevelSSHVerbose:      "SSH-V",
	LevelShellTrace:      "TRACE",
	LevelSSHExtraVerbose: "SSH-VVV",
}

var (
	colorRed    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
	colorPurple = lipgloss.NewStyle().Foreground(lipgloss.Color("#a855f7"))
	colorGreen  = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e"))
	colorOrange = lipgloss.NewStyle().Foreground(lipgloss.Color("#f97316"))
	colorDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
)

// sink is the process-wide mutable resource the spec calls out in §5:
// "the logger is the only process-wide mutable resource; it must be
// safe for concurrent append from fan-out tasks (line-atomic writes)".
// A *sink is shared by every Logger value derived via WithPrefix, while
// the Logger value itself (verbosity, prefix stack) is copied, not
// shared — so child loggers never race on their own state, only on the
// final write.
type sink struct {
	mu       sync.Mutex
	w        io.Writer
	colorize bool
}

func (s *sink) writeLine(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, line)
}

// Logger is a small value type: copy it, don't share pointers to it.
// WithPrefix returns a derived copy with one more prefix pushed onto
// the stack, composing left-to-right as Design Note §9 specifies.
type Logger struct {
	sink     *sink
	verbose  int
	prefixes []string
}

// New creates a root Logger writing to w. verbose is the RunConfig
// verbosity level (0-7, spec §3). Colour output is used only when w is
// a TTY, exactly as the teacher's doctor.go gates styled vs. plain
// rendering with go-isatty.
func New(w io.Writer, verbose int) Logger {
	colorize := false
	if f, ok := w.(*os.File); ok {
		colorize = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return Logger{
		sink:    &sink{w: w, colorize: colorize},
		verbose: verbose,
	}
}

// WithPrefix returns a child logger with prefix pushed onto the
// contextual stack. Used by the fan-out runner and the node state
// machine to tag per-node output.
func (l Logger) WithPrefix(prefix string) Logger {
	next := make([]string, len(l.prefixes)+1)
	copy(next, l.prefixes)
	next[len(next)-1] = prefix
	l.prefixes = next
	return l
}

// Verbosity returns the configured verbosity threshold.
func (l Logger) Verbosity() int { return l.verbose }

// Enabled reports whether a message at the given level would be
// emitted.
func (l Logger) Enabled(level int) bool { return level <= l.verbose }

// Logf emits a message at the given level if the logger's verbosity
// threshold allows it. Each emission is prefixed with a timestamp
// (seconds, or sub-second when verbosity >= DEBUG2 per spec §4.7), the
// level name (once verbosity >= VERBOSE), and the prefix stack.
func (l Logger) Logf(level int, format string, args ...any) {
	if !l.Enabled(level) {
		return
	}
	l.sink.writeLine(l.render(level, fmt.Sprintf(format, args...)))
}

func (l Logger) render(level int, msg string) string {
	ts := l.timestamp()
	if l.sink.colorize {
		return l.colorized(level, ts, msg)
	}

	line := ts
	if l.verbose >= LevelVerbose {
		line += " [" + levelNames[level] + "]"
	}
	for _, p := range l.prefixes {
		line += " [" + p + "]"
	}
	return line + " " + msg
}

func (l Logger) colorized(level int, ts, msg string) string {
	style := styleFor(level)
	prefix := ts
	if l.verbose >= LevelVerbose {
		prefix += " " + colorDim.Render("["+levelNames[level]+"]")
	}
	for _, p := range l.prefixes {
		prefix += " " + colorDim.Render("["+p+"]")
	}
	return prefix + " " + style.Render(msg)
}

func styleFor(level int) lipgloss.Style {
	switch {
	case level == LevelInfo:
		return colorGreen
	case level <= LevelVerbose:
		return colorPurple
	case level >= LevelShellTrace:
		return colorOrange
	default:
		return colorDim
	}
}

func (l Logger) timestamp() string {
	now := time.Now()
	if l.verbose >= LevelDebug2 {
		return now.Format("15:04:05.000")
	}
	return now.Format("15:04:05")
}

// Info logs at LevelInfo (always emitted).
func (l Logger) Info(format string, args ...any) { l.Logf(LevelInfo, format, args...) }

// Verbosef logs at LevelVerbose.
func (l Logger) Verbosef(format string, args ...any) { l.Logf(LevelVerbose, format, args...) }

// Debugf logs at LevelDebug.
func (l Logger) Debugf(format string, args ...any) { l.Logf(LevelDebug, format, args...) }

// NoOp logs a mutating command that dry-run suppressed, per spec §4.2's
// dry-run gating contract: "log the intended command with a NO-OP
// marker and return success without executing".
func (l Logger) NoOp(command string) {
	l.Logf(LevelInfo, "NO-OP (dry-run): %s", command)
}

// Warn logs a warning (rendered in the orange band regardless of
// verbosity, since warnings matter at any level).
func (l Logger) Warn(format string, args ...any) {
	l.sink.writeLine(l.render(LevelShellTrace, "WARN: "+fmt.Sprintf(format, args...)))
}

// Error logs a failure (rendered in the red band regardless of
// verbosity).
func (l Logger) Error(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if !l.sink.colorize {
		l.sink.writeLine(l.render(LevelInfo, "ERROR: "+msg))
		return
	}
	prefix := l.timestamp()
	for _, p := range l.prefixes {
		prefix += " " + colorDim.Render("["+p+"]")
	}
	l.sink.writeLine(prefix + " " + colorRed.Render("ERROR: "+msg))
}
