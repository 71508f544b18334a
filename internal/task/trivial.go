package task

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/oblivioncth/clifp/internal/director"
	"github.com/oblivioncth/clifp/internal/kernelerr"
)

// TMessage posts a single async Message directive and completes
// immediately, per spec.md §4.2.
type TMessage struct {
	director.Directorate
	noopStop

	Text string
	stage Stage
}

func NewTMessage(d director.Directorate, stage Stage, text string) *TMessage {
	return &TMessage{Directorate: d, Text: text, stage: stage}
}

func (t *TMessage) Stage() Stage { return t.stage }
func (t *TMessage) Name() string { return "TMessage" }
func (t *TMessage) Perform(_ context.Context) kernelerr.Error {
	t.PostMessage(t.Text)
	return kernelerr.Nil
}

// TExtra opens a folder (the archive's "extras" directory for a
// title) in the platform's file manager.
type TExtra struct {
	director.Directorate
	noopStop

	Path string
}

func NewTExtra(d director.Directorate, path string) *TExtra {
	return &TExtra{Directorate: d, Path: path}
}

func (t *TExtra) Stage() Stage { return StagePrimary }
func (t *TExtra) Name() string { return "TExtra" }
func (t *TExtra) Perform(ctx context.Context) kernelerr.Error {
	opener := openerCommand()
	cmd := exec.CommandContext(ctx, opener, t.Path)
	if err := cmd.Start(); err != nil {
		return kernelerr.New(kernelerr.TaskBlock+7, kernelerr.Error, "Failed to open extras folder").WithSpecific(err.Error())
	}
	go func() { _ = cmd.Wait() }()
	return kernelerr.Nil
}

func openerCommand() string {
	if runtime.GOOS == "windows" {
		return "explorer"
	}
	return "xdg-open"
}

// TSleep waits a fixed duration, suspending at a sleep-timer
// suspension point per spec.md §5.
type TSleep struct {
	director.Directorate

	Duration time.Duration
}

func NewTSleep(d director.Directorate, duration time.Duration) *TSleep {
	return &TSleep{Directorate: d, Duration: duration}
}

func (t *TSleep) Stage() Stage { return StagePrimary }
func (t *TSleep) Name() string { return "TSleep" }
func (t *TSleep) Stop()    {}
func (t *TSleep) Perform(ctx context.Context) kernelerr.Error {
	select {
	case <-time.After(t.Duration):
		return kernelerr.Nil
	case <-ctx.Done():
		return kernelerr.New(kernelerr.TaskBlock+8, kernelerr.Warning, "Sleep was interrupted").WithSpecific(ctx.Err().Error())
	}
}

// TGeneric runs an arbitrary closure, used by commands that need a
// one-off piece of bookkeeping (e.g. "close deferred processes") that
// doesn't warrant its own task type.
type TGeneric struct {
	director.Directorate
	noopStop

	Label string
	Fn  func(ctx context.Context) error
	stage Stage
}

func NewTGeneric(d director.Directorate, stage Stage, label string, fn func(ctx context.Context) error) *TGeneric {
	return &TGeneric{Directorate: d, Label: label, Fn: fn, stage: stage}
}

func (t *TGeneric) Stage() Stage { return t.stage }
func (t *TGeneric) Name() string { return fmt.Sprintf("TGeneric(%s)", t.Label) }
func (t *TGeneric) Perform(ctx context.Context) kernelerr.Error {
	if err := t.Fn(ctx); err != nil {
		return kernelerr.New(kernelerr.TaskBlock+9, kernelerr.Error, "Generic task failed").WithSpecific(err.Error())
	}
	return kernelerr.Nil
}
