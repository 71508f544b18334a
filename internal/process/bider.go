// Package process implements CLIFp's external-process lifecycle
// tooling: line-buffered logging of a foreground child
// (BlockingProcessManager), a set of unattended background services
// brought up at startup and torn down at shutdown
// (DeferredProcessManager), and the cross-platform "wait for some
// other process by name" state machine (ProcessBider) that TBideProcess
// drives. Grounded on the pkg/worker (Sleeping/Working/
// Finished worker states, WakeupChan-driven resumption) generalized to
// the five-state machine original_source's ProcessBider implements in
// Qt.
package process

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oblivioncth/clifp/internal/director"
)

// BiderState is the ProcessBider's own five-state machine, matching
// spec.md §4.2's Idle -> Grace -> Waiting -> {Ran | NeverRan | Fail}.
type BiderState int

const (
	BiderIdle BiderState = iota
	BiderGrace
	BiderWaiting
	BiderRan
	BiderNeverRan
	BiderFail
)

func (s BiderState) String() string {
	switch s {
	case BiderIdle:
		return "Idle"
	case BiderGrace:
		return "Grace"
	case BiderWaiting:
		return "Waiting"
	case BiderRan:
		return "Ran"
	case BiderNeverRan:
		return "NeverRan"
	case BiderFail:
		return "Fail"
	default:
		return "Unknown"
	}
}

// probe is implemented per-platform (bider_linux.go, bider_windows.go)
// as the actual "is a process named name currently running" and
// "block until the process named name exits" primitives.
type probe interface {
	isRunning(ctx context.Context, name string) (bool, error)
	waitForExit(ctx context.Context, name string, pollEvery time.Duration) error
}

// ProcessBider waits for a process identified by name to start running
// (tolerating a grace period before it appears, since the watched
// process is typically a sibling spawned moments earlier by the title
// under TExec), then waits for it to exit - backing TBideProcess,
// spec.md §4.2.
type ProcessBider struct {
	director.Directorate

	name   string
	grace   time.Duration
	pollEvery time.Duration
	probe   probe

	mu  sync.Mutex
	state BiderState
}

// NewProcessBider constructs a bider for the process named
// processName. grace bounds how long to wait for the process to first
// appear; pollEvery is ignored by the Windows probe (which blocks on
// the OS process handle instead of polling), matching
// original_source's setPollRate doc comment ("Ignored on Windows").
func NewProcessBider(d director.Directorate, processName string, grace, pollEvery time.Duration) *ProcessBider {
	return &ProcessBider{
		Directorate: d,
		name:    processName,
		grace:    grace,
		pollEvery:  pollEvery,
		probe:    newPlatformProbe(),
		state:    BiderIdle,
	}
}

// State returns the bider's current state, safe for concurrent reads
// while Run executes on the Kernel's worker goroutine.
func (b *ProcessBider) State() BiderState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *ProcessBider) setState(s BiderState) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

// Run drives the bider through Idle -> Grace -> Waiting -> terminal,
// suspending at the process-exit point per spec.md §5's cooperative
// suspension model. A cancelled ctx at any suspension point unwinds
// immediately, leaving state at whatever it had reached.
func (b *ProcessBider) Run(ctx context.Context) error {
	b.setState(BiderGrace)
	b.Log(director.Info, "Waiting %s for process %q to be running", b.grace, b.name)

	appeared, err := b.waitForAppearance(ctx)
	if err != nil {
		b.setState(BiderFail)
		return err
	}
	if !appeared {
		b.setState(BiderNeverRan)
		b.Log(director.Info, "Wait-on process %q was not running after the grace period", b.name)
		return nil
	}

	b.setState(BiderWaiting)
	b.Log(director.Info, "Waiting for process %q to finish", b.name)

	if err := b.probe.waitForExit(ctx, b.name, b.pollEvery); err != nil {
		b.setState(BiderFail)
		return fmt.Errorf("wait on process %q: %w", b.name, err)
	}

	b.setState(BiderRan)
	b.Log(director.Info, "Wait-on process %q has finished", b.name)
	return nil
}

// IsRunning reports whether a process named name is currently running,
// a single-shot query used at startup to decide Standalone vs
// Companion services mode (spec.md §3's "services mode" field) without
// constructing a full ProcessBider.
func IsRunning(ctx context.Context, name string) (bool, error) {
	return newPlatformProbe().isRunning(ctx, name)
}

// waitForAppearance polls (at pollEvery, or a sensible default if
// unset) until the named process is seen running or grace elapses.
func (b *ProcessBider) waitForAppearance(ctx context.Context) (bool, error) {
	poll := b.pollEvery
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}

	deadline := time.Now().Add(b.grace)
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		running, err := b.probe.isRunning(ctx, b.name)
		if err != nil {
			return false, err
		}
		if running {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
		}
	}
}
