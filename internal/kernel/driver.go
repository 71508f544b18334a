package kernel

import (
	"context"
	"sync"

	"github.com/oblivioncth/clifp/internal/director"
	"github.com/oblivioncth/clifp/internal/task"
)

// RunStatus mirrors the WorkerStatus (Sleeping/Working/
// Finished), generalized from "a worker awaiting its next pipeline
// item" to "Driver awaiting its next task".
type RunStatus int

const (
	Idle RunStatus = iota
	Running
	Cancelling
	Done
)

// Driver owns a Core and drains its task queue to completion on a
// single goroutine, per spec.md §4.5/§5. Grounded on
// pkg/worker.taskWorker.Start/Sleep (a goroutine that works while
// there is a task, sleeps on a wakeup channel otherwise, and treats a
// closed wakeup channel as "exit now"): Driver's wakeupChan plays the
// same role, signalling "a new task may be waiting" rather than "a new pipeline stage is ready".
type Driver struct {
	director.Directorate

	core  *Core
	status *ErrorStatus

	mu     sync.Mutex
	runStatus RunStatus
	activeTask task.Task
	cancelFn  context.CancelFunc
	quitting  bool

	wakeupChan chan struct{}
	finished  chan int
}

// NewDriver constructs a Driver bound to core. status is shared with
// Core's errorStatus so tasks and the Driver loop observe the same
// set-once cell.
func NewDriver(d director.Directorate, core *Core, status *ErrorStatus) *Driver {
	return &Driver{
		Directorate: d,
		core:    core,
		status:   status,
		wakeupChan: make(chan struct{}, 1),
		finished:  make(chan int, 1),
	}
}

// Wakeup signals the Driver that Core's queue may have gained a task,
// e.g. after a Command has finished enqueueing its follow-on work.
// Non-blocking: a pending signal is coalesced, matching
// WakeupWorkers' send-without-blocking discipline.
func (drv *Driver) Wakeup() {
	select {
	case drv.wakeupChan <- struct{}{}:
	default:
	}
}

// Run drains core's queue to completion on the calling goroutine,
// honoring stage ordering, ErrorStatus-driven skip-on-critical, and
// cooperative cancellation, then sends the resulting process exit
// code on the channel returned by Finished.
//
// Quitting (ctx cancellation, e.g. the user's SIGINT, or an explicit
// QuitNow) never aborts the loop outright: per spec.md §5/§8, every
// remaining Shutdown-stage task must still run so cleanup happens
// regardless of how the run ended. Only non-Shutdown tasks are skipped
// once quitting, mirroring the existing HasCritical skip-gate.
func (drv *Driver) Run(ctx context.Context) {
	drv.setRunStatus(Running)

	for {
		t, ok := drv.core.Dequeue()
		if !ok {
			if drv.drainedQuit(ctx) {
				break
			}
			continue
		}

		if drv.isQuitting() && t.Stage() != task.StageShutdown {
			drv.Log(director.Info, "Skipping task %q (stage %s): quitting", t.Name(), t.Stage())
			continue
		}
		if drv.status.HasCritical() && t.Stage() != task.StageShutdown {
			drv.Log(director.Info, "Skipping task %q (stage %s): a prior Critical error aborted the run", t.Name(), t.Stage())
			continue
		}

		drv.runTask(ctx, t)

		if ctx.Err() != nil {
			drv.setQuitting()
		}
	}

	drv.setRunStatus(Done)
	drv.finish()
}

// drainedQuit blocks until either a task is enqueued (Wakeup fires),
// the context is cancelled, or a caller requested QuitNow - returning
// true in the latter two cases to stop Run's loop. This is Sleep()'s "block on wakeupChan, a close means exit"
// pattern, generalized to also select on ctx.Done.
func (drv *Driver) drainedQuit(ctx context.Context) bool {
	select {
	case _, alive := <-drv.wakeupChan:
		return !alive
	case <-ctx.Done():
		drv.setQuitting()
		return true
	}
}

func (drv *Driver) runTask(ctx context.Context, t task.Task) {
	taskCtx, cancel := context.WithCancel(ctx)

	drv.mu.Lock()
	drv.activeTask = t
	drv.cancelFn = cancel
	drv.mu.Unlock()

	drv.Log(director.Info, "Running task %q (stage %s)", t.Name(), t.Stage())

	err := t.Perform(taskCtx)
	cancel()

	drv.mu.Lock()
	drv.activeTask = nil
	drv.cancelFn = nil
	drv.mu.Unlock()

	if !err.Ok() {
		drv.status.Set(err)
		drv.Log(director.ErrorStatus, "Task %q reported a %s error (%d): %s - %s", t.Name(), err.Severity, err.Code, err.Primary, err.Specific)
	}
}

// CancelActiveLongTask cancels whichever task is currently running,
// if any, letting it unwind at its next cooperative suspension point
// per spec.md §5. It does not stop the Driver itself - the queue
// continues draining afterward.
func (drv *Driver) CancelActiveLongTask() {
	drv.mu.Lock()
	t, cancel := drv.activeTask, drv.cancelFn
	drv.mu.Unlock()

	if t == nil {
		return
	}
	drv.Log(director.Info, "Cancelling active task %q", t.Name())
	t.Stop()
	if cancel != nil {
		cancel()
	}
}

// QuitNow cancels the active task (if any) and marks the run as
// quitting: every remaining non-Shutdown task is now skipped, but
// Shutdown-stage tasks already queued still run to completion, per
// spec.md §5/§8. If the queue is otherwise empty, closing the wakeup
// channel also lets Run's drainedQuit return immediately rather than
// block on a Wakeup that will never come.
func (drv *Driver) QuitNow() {
	drv.setRunStatus(Cancelling)
	drv.setQuitting()
	drv.CancelActiveLongTask()

	drv.mu.Lock()
	defer drv.mu.Unlock()
	select {
	case <-drv.wakeupChan:
	default:
	}
	close(drv.wakeupChan)
}

func (drv *Driver) setQuitting() {
	drv.mu.Lock()
	drv.quitting = true
	drv.mu.Unlock()
}

func (drv *Driver) isQuitting() bool {
	drv.mu.Lock()
	defer drv.mu.Unlock()
	return drv.quitting
}

// Close marks the Driver's queue as complete: once drained, Run exits
// cleanly without waiting on further Wakeup signals, matching Close() semantics for a worker that will receive no more
// work. Unlike QuitNow, Close does not touch any currently active task
// - it only governs what happens once the queue naturally empties,
// which is the right shape for a one-shot CLI invocation whose Command
// enqueues everything up front before Run ever starts.
func (drv *Driver) Close() {
	drv.mu.Lock()
	defer drv.mu.Unlock()
	select {
	case <-drv.wakeupChan:
	default:
	}
	close(drv.wakeupChan)
}

func (drv *Driver) setRunStatus(s RunStatus) {
	drv.mu.Lock()
	drv.runStatus = s
	drv.mu.Unlock()
}

// Status reports the Driver's current run status.
func (drv *Driver) Status() RunStatus {
	drv.mu.Lock()
	defer drv.mu.Unlock()
	return drv.runStatus
}

// finish computes the final process exit code from the shared
// ErrorStatus and publishes it on the Finished channel exactly once.
func (drv *Driver) finish() {
	code := drv.status.ExitCode()
	drv.Log(director.Info, "Driver finished, exit code %d", code)
	drv.finished <- code
}

// Finished returns the channel Driver publishes its single exit code
// result to once Run returns.
func (drv *Driver) Finished() <-chan int {
	return drv.finished
}
