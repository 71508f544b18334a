// Package director implements the Kernel's Director: the singleton log
// + verbosity gate + directive dispatcher described in spec.md §4.1. It
// is grounded on the pkg/logger (the colorized, tiered
// console sink) generalized with the Qt-message-handler-like
// process-wide diagnostic funnel and the directive-posting surface
// spec.md requires, plus the Directorate mixin DESIGN NOTES §9 asks to
// replace inheritance-of-postable-component with composition.
package director

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mitchellh/go-homedir"

	"github.com/oblivioncth/clifp/internal/directive"
)

// Verbosity gates which directives reach attached frontends, per
// spec.md §4.1. Errors are always logged regardless of gate.
type Verbosity int

const (
	Full Verbosity = iota
	Quiet
	Silent
)

const logFileExt = ".log"
const logMaxEntries = 50

// Director is the process-global log + directive dispatcher. One
// instance is constructed per run by Driver and threaded through Core
// and every Task/Command via Directorate.
type Director struct {
	sink   *sink
	bus    *directive.Bus
	verbosity Verbosity
	logFile  *os.File
}

// New constructs a Director writing console output to out (typically
// os.Stderr) with Full verbosity and no attached log file.
func New(out io.Writer) *Director {
	return &Director{
		sink: newSink(out),
		bus: directive.NewBus(),
	}
}

// Bus exposes the underlying directive bus so frontends (including the
// wsbridge) can Subscribe.
func (d *Director) Bus() *directive.Bus { return d.bus }

// SetVerbosity applies the Full/Quiet/Silent gate described in
// spec.md §4.1.
func (d *Director) SetVerbosity(v Verbosity) { d.verbosity = v }

// SetMinLogLevel configures the console/file log level independently of
// directive verbosity (main.go sets it from the config's log_level).
func (d *Director) SetMinLogLevel(name string) error {
	lvl, err := verbosityFromString(name)
	if err != nil {
		return err
	}
	d.sink.setMinLevel(lvl)
	return nil
}

// OpenLogFile opens (creating if needed) a rolling per-day log file
// under dir, pruning to logMaxEntries historical entries, per spec.md
// §6 "Persisted state". The extension matches the ".log".
func (d *Director) OpenLogFile(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	if err := pruneOldLogs(dir, logMaxEntries); err != nil {
		return fmt.Errorf("prune old logs: %w", err)
	}

	name := time.Now().Format("2006-01-02") + logFileExt
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	d.logFile = f
	d.sink.setFile(f)
	return nil
}

// Close releases the attached log file, if any.
func (d *Director) Close() error {
	if d.logFile != nil {
		d.sink.setFile(nil)
		return d.logFile.Close()
	}
	return nil
}

func pruneOldLogs(dir string, keep int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var logs []os.DirEntry
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == logFileExt {
			logs = append(logs, e)
		}
	}
	if len(logs) < keep {
		return nil
	}

	sort.Slice(logs, func(i, j int) bool { return logs[i].Name() < logs[j].Name() })
	for _, e := range logs[:len(logs)-keep+1] {
		_ = os.Remove(filepath.Join(dir, e.Name()))
	}
	return nil
}

// Log writes a plain diagnostic line tagged with the source component's
// name, without posting any directive. Used for internal bookkeeping
// (task enqueue/dequeue, command parsing) that isn't user-facing.
func (d *Director) Log(status LogStatus, source, format string, args ...any) {
	d.sink.emit(status, source, format, args...)
}

// DefaultLogDir resolves the per-user log directory the same way internal/config.go resolves cache/config dirs: an explicit
// override if given, else the user's home directory.
func DefaultLogDir(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".clifp", "log"), nil
}

// --- Directive posting surface -------------------------------------------------

// PostMessage emits an async Message directive from source.
func (d *Director) PostMessage(source, text string) {
	d.Log(Info, source, "%s", text)
	if d.verbosity >= Quiet {
		return
	}
	d.bus.Emit(&directive.Message{
		Envelope: directive.NewEnvelope(source, directive.KindAsync, directive.NameMessage),
		Text:   text,
	})
}

// PostError logs and (verbosity permitting) emits an async Error
// directive. Critical errors are emitted in Full and Quiet verbosity;
// in Silent verbosity every error is logged only, per spec.md §4.1 ("Errors are logged regardless of gate" + §7
// "Critical errors are shown... In Quiet verbosity, only critical
// errors pass; in Silent verbosity, errors are logged only").
func (d *Director) PostError(source string, code uint32, sev string, primary, specific string) {
	if specific != "" {
		d.Log(ErrorStatus, source, "%s: %s", primary, specific)
	} else {
		d.Log(ErrorStatus, source, "%s", primary)
	}

	if d.verbosity == Silent || (sev != "Critical" && d.verbosity >= Quiet) {
		return
	}
	d.bus.Emit(&directive.ErrorNotice{
		Envelope: directive.NewEnvelope(source, directive.KindAsync, directive.NameError),
		Code:   code,
		Severity: sev,
		Primary: primary,
		Specific: specific,
	})
}

// PostProcedureStart/Stop/Progress/Scale surface TDownload/TExtract/
// TMount progress as described in spec.md §4.2.
func (d *Director) PostProcedureStart(source, title string) {
	if d.verbosity >= Quiet {
		return
	}
	d.bus.Emit(&directive.ProcedureStart{
		Envelope: directive.NewEnvelope(source, directive.KindAsync, directive.NameProcedureStart),
		Title:  title,
	})
}

func (d *Director) PostProcedureStop(source string) {
	if d.verbosity >= Quiet {
		return
	}
	d.bus.Emit(&directive.ProcedureStop{
		Envelope: directive.NewEnvelope(source, directive.KindAsync, directive.NameProcedureStop),
	})
}

func (d *Director) PostProcedureProgress(source string, current int64) {
	if d.verbosity >= Quiet {
		return
	}
	d.bus.Emit(&directive.ProcedureProgress{
		Envelope: directive.NewEnvelope(source, directive.KindAsync, directive.NameProcedureProgress),
		Current: current,
	})
}

func (d *Director) PostProcedureScale(source string, max int64) {
	if d.verbosity >= Quiet {
		return
	}
	d.bus.Emit(&directive.ProcedureScale{
		Envelope: directive.NewEnvelope(source, directive.KindAsync, directive.NameProcedureScale),
		Max:   max,
	})
}

// PostStatusUpdate surfaces Core's statusHeading/statusMessage.
func (d *Director) PostStatusUpdate(source, heading, message string) {
	if d.verbosity >= Quiet {
		return
	}
	d.bus.Emit(&directive.StatusUpdate{
		Envelope: directive.NewEnvelope(source, directive.KindAsync, directive.NameStatusUpdate),
		Heading: heading,
		Message: message,
	})
}

// PostClipboardUpdate requests the frontend place text on the system
// clipboard (used by the `share -u` command).
func (d *Director) PostClipboardUpdate(source, text string) {
	if d.verbosity >= Quiet {
		return
	}
	d.bus.Emit(&directive.ClipboardUpdate{
		Envelope: directive.NewEnvelope(source, directive.KindAsync, directive.NameClipboardUpdate),
		Text:   text,
	})
}

// PostBlockingMessage emits a Sync BlockingMessage and suspends until
// rendered or ctx is cancelled, per spec.md §5's suspension-point rule.
// In Silent verbosity the message is logged only and treated as
// immediately rendered, matching spec.md §7's "In Silent verbosity,
// errors are logged only" extended to all sync directives.
func (d *Director) PostBlockingMessage(ctx context.Context, source, text string, selectable bool) error {
	d.Log(Info, source, "%s", text)
	if d.verbosity == Silent {
		return nil
	}
	return d.bus.EmitSync(ctx, &directive.BlockingMessage{
		Envelope:  directive.NewEnvelope(source, directive.KindSync, directive.NameBlockingMessage),
		Text:    text,
		Selectable: selectable,
	})
}

// PostBlockingError emits a Request BlockingError and blocks for the
// frontend's Choice. It is always Critical severity by construction
// (spec.md §7), so Quiet verbosity does not suppress it; in Silent
// verbosity it is logged only and def is returned without emitting.
func (d *Director) PostBlockingError(ctx context.Context, source string, code uint32, primary, specific string, choices []directive.Choice, def directive.Choice) directive.Choice {
	d.PostError(source, code, "Critical", primary, specific)
	if d.verbosity == Silent {
		return def
	}
	return d.bus.EmitRequestChoice(ctx, &directive.BlockingError{
		Envelope: directive.NewEnvelope(source, directive.KindRequest, directive.NameBlockingError),
		Code:   code,
		Severity: "Critical",
		Primary: primary,
		Specific: specific,
		Choices: choices,
		Default: def,
	})
}

// RequestSaveFilename, RequestExistingDir, RequestItemSelection and
// RequestYesOrNo post their respective Request directive and block for
// a typed reply, per spec.md §4.1's Request family table.
func (d *Director) RequestSaveFilename(ctx context.Context, source, caption, dir, filter string) string {
	req := &directive.SaveFilename{
		Envelope: directive.NewEnvelope(source, directive.KindRequest, directive.NameSaveFilename),
		Caption: caption, Dir: dir, Filter: filter,
		Reply: make(chan string, 1),
	}
	return directive.EmitRequestString(ctx, d.bus, req, req.Reply)
}

func (d *Director) RequestExistingDir(ctx context.Context, source, caption, dir string) string {
	req := &directive.ExistingDir{
		Envelope: directive.NewEnvelope(source, directive.KindRequest, directive.NameExistingDir),
		Caption: caption, Dir: dir,
		Reply: make(chan string, 1),
	}
	return directive.EmitRequestString(ctx, d.bus, req, req.Reply)
}

func (d *Director) RequestItemSelection(ctx context.Context, source, caption, label string, items []string) string {
	d.Log(Info, source, "Prompting user to disambiguate %d item(s)", len(items))
	req := &directive.ItemSelection{
		Envelope: directive.NewEnvelope(source, directive.KindRequest, directive.NameItemSelection),
		Caption: caption, Label: label, Items: items,
		Reply: make(chan string, 1),
	}
	return directive.EmitRequestString(ctx, d.bus, req, req.Reply)
}

func (d *Director) RequestYesOrNo(ctx context.Context, source, question string) bool {
	req := &directive.YesOrNo{
		Envelope: directive.NewEnvelope(source, directive.KindRequest, directive.NameYesOrNo),
		Question: question,
	}
	return d.bus.EmitRequestYesOrNo(ctx, req)
}
