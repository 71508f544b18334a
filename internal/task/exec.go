package task

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/oblivioncth/clifp/internal/director"
	"github.com/oblivioncth/clifp/internal/kernelerr"
	"github.com/oblivioncth/clifp/internal/process"
)

const errExecFailed uint32 = kernelerr.TaskBlock + 4

// ExecMode selects how TExec relates its child's lifetime to the
// task's own completion, per spec.md §4.2.
type ExecMode int

const (
	// ExecBlocking does not complete until the child exits; its
	// stdout/stderr are logged per line.
	ExecBlocking ExecMode = iota
	// ExecDeferred hands the child to the DeferredProcessManager and
	// completes immediately.
	ExecDeferred
	// ExecDetached is fire-and-forget; the task completes immediately
	// without tracking the child at all.
	ExecDetached
)

// TExec spawns an executable in one of three modes. On Linux,
// Windows-native artefacts are bridged per spec.md §4.2: .bat scripts
// run under sh, non-natively-runnable .exe files run under a Windows
// compatibility layer. Args are passed straight through to execve, with
// no shell involved, so none of them are quoted.
type TExec struct {
	director.Directorate

	AppPath string
	Args  []string
	Cwd   string
	Env   []string
	Mode  ExecMode

	Deferred *process.DeferredProcessManager
	Label  string
}

// NewTExec constructs an exec task. deferred may be nil unless Mode is
// ExecDeferred.
func NewTExec(d director.Directorate, appPath string, args []string, cwd string, env []string, mode ExecMode, deferred *process.DeferredProcessManager, label string) *TExec {
	return &TExec{Directorate: d, AppPath: appPath, Args: args, Cwd: cwd, Env: env, Mode: mode, Deferred: deferred, Label: label}
}

func (t *TExec) Stage() Stage { return StagePrimary }
func (t *TExec) Name() string { return "TExec" }

func (t *TExec) Perform(ctx context.Context) kernelerr.Error {
	appPath, args := BridgeWindowsArtifact(t.AppPath, t.Args)

	cmd := exec.CommandContext(ctx, appPath, args...)
	cmd.Dir = t.Cwd
	cmd.Env = t.Env

	switch t.Mode {
	case ExecDetached:
		if err := cmd.Start(); err != nil {
			return kernelerr.New(errExecFailed, kernelerr.Error, "Failed to launch detached process").WithSpecific(err.Error())
		}
		go func() { _ = cmd.Wait() }()
		return kernelerr.Nil

	case ExecDeferred:
		if t.Deferred == nil {
			return kernelerr.New(errExecFailed, kernelerr.Critical, "No deferred process manager is available")
		}
		if err := t.Deferred.Spawn(t.Label, cmd); err != nil {
			return kernelerr.New(errExecFailed, kernelerr.Error, "Failed to spawn deferred service").WithSpecific(err.Error())
		}
		return kernelerr.Nil

	default: // ExecBlocking
		manager := process.NewBlockingProcessManager(t.Directorate, cmd)
		code, err := manager.Run(ctx)
		if err != nil {
			return kernelerr.New(errExecFailed, kernelerr.Error, fmt.Sprintf("Process %s exited with code %d", appPath, code)).WithSpecific(err.Error())
		}
		return kernelerr.Nil
	}
}

func (t *TExec) Stop() {
	// BlockingProcessManager.Run already honors ctx cancellation;
	// nothing further to do for Deferred/Detached, whose children
	// outlive this task by design.
}

// BridgeWindowsArtifact rewrites appPath/args on Linux so
// Windows-authored artefacts run under the available compatibility
// tooling, grounded on original_source's t-exec_linux.cpp bridging
// logic. It is a no-op on any other platform.
func BridgeWindowsArtifact(appPath string, args []string) (string, []string) {
	if runtime.GOOS != "linux" {
		return appPath, args
	}

	ext := strings.ToLower(filepath.Ext(appPath))
	switch ext {
	case ".bat":
		return "sh", append([]string{appPath}, args...)
	case ".exe":
		wineArgs := append([]string{"start", "/wait", "/unix", appPath}, args...)
		return "wine", wineArgs
	default:
		return appPath, args
	}
}

// SplitLaunchArgs tokenizes a launch command string (as stored in a
// game's Launch Command field) into argv elements for direct exec -
// there is no shell between TExec and the child process, so tokens are
// split on whitespace with a quoted substring (single or double)
// collapsed into one argument and its quote characters discarded,
// rather than re-quoted for a shell that will never see them.
func SplitLaunchArgs(launch string) []string {
	var out []string
	var b strings.Builder
	var inQuote rune
	haveToken := false

	flush := func() {
		if haveToken {
			out = append(out, b.String())
			b.Reset()
			haveToken = false
		}
	}

	for _, r := range launch {
		switch {
		case inQuote != 0:
			if r == inQuote {
				inQuote = 0
			} else {
				b.WriteRune(r)
			}
		case r == '"' || r == '\'':
			inQuote = r
			haveToken = true
		case r == ' ' || r == '\t':
			flush()
		default:
			b.WriteRune(r)
			haveToken = true
		}
	}
	flush()
	return out
}
