// Package kernel implements Core (the per-run context commands operate
// against) and Driver (the worker that owns Core and drains its task
// queue to completion), per spec.md §4.3/§4.5. Grounded on pkg/worker.WorkerPool (a single goroutine draining a task
// set to completion, respecting a started/not-started guard)
// generalized from "N parallel pipeline-stage workers" to "one FIFO
// queue drained strictly in order, honoring cooperative cancellation".
package kernel

import (
	"sync"

	"github.com/oblivioncth/clifp/internal/kernelerr"
)

// ErrorStatus is the set-once cell Driver uses to decide the run's
// final exit code: it accepts the first non-ok error and ignores every
// later write, preserving the initial cause, per spec.md §3.
type ErrorStatus struct {
	mu sync.Mutex
	set bool
	err kernelerr.Error
}

// Set records err as the run's error status, but only if no prior
// error has already been recorded.
func (s *ErrorStatus) Set(err kernelerr.Error) {
	if err.Ok() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		s.set = true
		s.err = err
	}
}

// Get returns the recorded error, or kernelerr.Nil if none was set.
func (s *ErrorStatus) Get() kernelerr.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// HasCritical reports whether the recorded error (if any) is Critical
// severity - the condition that causes Driver to skip remaining
// non-Shutdown tasks.
func (s *ErrorStatus) HasCritical() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set && s.err.Severity == kernelerr.Critical
}

// ExitCode returns the recorded error's domain code, or 0 if the run
// completed without error.
func (s *ErrorStatus) ExitCode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		return 0
	}
	return int(s.err.Code)
}
