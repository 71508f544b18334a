package task

import (
	"context"
	"time"

	"github.com/oblivioncth/clifp/internal/director"
	"github.com/oblivioncth/clifp/internal/kernelerr"
	"github.com/oblivioncth/clifp/internal/process"
)

const errBideFailed uint32 = kernelerr.TaskBlock + 5

// TBideProcess waits for a named process to appear within a grace
// window, then waits for it to terminate, per spec.md §4.2. The
// original tool implemented this only on Windows (Linux titles had no
// equivalent short-lived-launcher problem); internal/process's
// ProcessBider generalizes the state machine to both platforms behind
// a build-tag-selected probe, so this task is not itself platform-
// conditional - the platform split lives one layer down.
type TBideProcess struct {
	director.Directorate

	ProcessName string
	Grace    time.Duration
	Poll    time.Duration

	bider *process.ProcessBider
}

func NewTBideProcess(d director.Directorate, processName string, grace, poll time.Duration) *TBideProcess {
	return &TBideProcess{Directorate: d, ProcessName: processName, Grace: grace, Poll: poll}
}

func (t *TBideProcess) Stage() Stage { return StageAuxiliary }
func (t *TBideProcess) Name() string { return "TBideProcess" }

func (t *TBideProcess) Perform(ctx context.Context) kernelerr.Error {
	t.bider = process.NewProcessBider(t.Directorate, t.ProcessName, t.Grace, t.Poll)
	if err := t.bider.Run(ctx); err != nil {
		return kernelerr.New(errBideFailed, kernelerr.Error, "Failed to wait on process").WithSpecific(err.Error())
	}
	if t.bider.State() == process.BiderFail {
		return kernelerr.New(errBideFailed, kernelerr.Error, "Process bide ended in a failure state")
	}
	return kernelerr.Nil
}

func (t *TBideProcess) Stop() {}
