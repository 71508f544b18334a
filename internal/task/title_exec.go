package task

import (
	"context"
	"time"

	"github.com/oblivioncth/clifp/internal/director"
	"github.com/oblivioncth/clifp/internal/kernelerr"
	"github.com/oblivioncth/clifp/internal/process"
)

// TTitleExec specializes TExec for the primary title process: after
// the child exits, it optionally bides on a child-spawned helper
// process so short-lived launcher executables (a wrapper .exe that
// spawns the real game and exits immediately) don't prematurely
// release the pipeline, per spec.md §4.2. HelperProcessName empty
// skips the bide entirely.
type TTitleExec struct {
	*TExec

	HelperProcessName string
	HelperGrace    time.Duration
	HelperPoll    time.Duration

	bider *process.ProcessBider
}

// NewTTitleExec wraps a TExec with the title-specific post-exit bide.
func NewTTitleExec(d director.Directorate, appPath string, args []string, cwd string, env []string, helperProcessName string, helperGrace, helperPoll time.Duration) *TTitleExec {
	return &TTitleExec{
		TExec:       NewTExec(d, appPath, args, cwd, env, ExecBlocking, nil, "title"),
		HelperProcessName: helperProcessName,
		HelperGrace:    helperGrace,
		HelperPoll:    helperPoll,
	}
}

func (t *TTitleExec) Name() string { return "TTitleExec" }

func (t *TTitleExec) Perform(ctx context.Context) kernelerr.Error {
	if err := t.TExec.Perform(ctx); !err.Ok() {
		return err
	}

	if t.HelperProcessName == "" {
		return kernelerr.Nil
	}

	t.bider = process.NewProcessBider(t.Directorate, t.HelperProcessName, t.HelperGrace, t.HelperPoll)
	if err := t.bider.Run(ctx); err != nil {
		return kernelerr.New(errExecFailed, kernelerr.Warning, "Failed to bide on title helper process").WithSpecific(err.Error())
	}
	return kernelerr.Nil
}

func (t *TTitleExec) Stop() {
	t.TExec.Stop()
}
