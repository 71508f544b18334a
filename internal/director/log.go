package director

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// LogStatus represents the intent of a single log line. Not every
// status is a distinct verbosity tier - several map to the same
// LogLevel - matching the pkg/logger design.
type LogStatus int

const (
	Verbose LogStatus = iota
	Debug
	Info
	Success
	New
	Remove
	Stop
	Warn
	ErrorStatus
	Fatal
)

// LogLevel is the tiered importance used for verbosity filtering.
type LogLevel int

const (
	levelVerbose LogLevel = iota
	levelDebug
	levelInfo
	levelImportant
	levelWarning
	levelError
)

func (s LogStatus) level() LogLevel {
	switch s {
	case Verbose:
		return levelVerbose
	case Debug:
		return levelDebug
	case Info:
		return levelInfo
	case Success, New, Remove, Stop:
		return levelImportant
	case Warn:
		return levelWarning
	default:
		return levelError
	}
}

func (s LogStatus) tag() string {
	return [...]string{"V", "D", "I", "+", "NEW", "DEL", "STOP", "!", "!!", "PANIC"}[s]
}

func (s LogStatus) color() *color.Color {
	return [...]*color.Color{
		color.New(color.FgWhite, color.Faint, color.Italic),
		color.New(color.FgWhite, color.Faint, color.Italic),
		color.New(color.FgWhite),
		color.New(color.FgHiGreen),
		color.New(color.FgGreen, color.Italic),
		color.New(color.FgYellow, color.Italic),
		color.New(color.FgHiYellow),
		color.New(color.FgYellow, color.Underline),
		color.New(color.FgHiRed, color.Bold),
		color.New(color.FgHiRed, color.Bold, color.Underline),
	}[s]
}

// sink is the process-wide diagnostic sink: the single point every
// component's log line and every low-level dependency warning funnels
// through, mirroring the loggerMgr singleton and spec.md
// §4.1's "Qt-message-handler-like process-wide diagnostic sink".
type sink struct {
	mu    sync.Mutex
	minLevel LogLevel
	offset  int
	out   io.Writer
	fileOut io.Writer
}

func newSink(out io.Writer) *sink {
	return &sink{minLevel: levelInfo, out: out}
}

func (s *sink) setMinLevel(l LogLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.minLevel = l
}

// setFile attaches (or detaches, with nil) the rolling log file that
// every write is additionally mirrored to, per spec.md §6 "Persisted
// state" - plain, uncolored text.
func (s *sink) setFile(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fileOut = w
}

func (s *sink) emit(status LogStatus, name, format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if status.level() < s.minLevel {
		return
	}
	if len(name) > s.offset {
		s.offset = len(name)
	}
	padding := strings.Repeat(" ", s.offset-len(name))
	body := fmt.Sprintf(format, args...)
	plain := fmt.Sprintf("[%s]%s (%s) %s\n", name, padding, status.tag(), body)

	if s.out != nil {
		_, _ = status.color().Fprint(s.out, plain)
	}
	if s.fileOut != nil {
		_, _ = io.WriteString(s.fileOut, plain)
	}
}

// verbosityFromString maps the --log-level style strings to a LogLevel,
// matching the main.go parseLogLevelFromString.
func verbosityFromString(l string) (LogLevel, error) {
	switch strings.ToLower(l) {
	case "verbose":
		return levelVerbose, nil
	case "debug":
		return levelDebug, nil
	case "info":
		return levelInfo, nil
	case "important":
		return levelImportant, nil
	case "warning":
		return levelWarning, nil
	case "error":
		return levelError, nil
	default:
		return levelInfo, fmt.Errorf("logging level %q is not recognized", l)
	}
}
