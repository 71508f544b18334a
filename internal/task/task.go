// Package task implements the Kernel's Task hierarchy: the common
// Task contract (perform/stop/stage) plus every concrete task type
// named in spec.md §4.2. Grounded on the pkg/worker
// (Sleeping/Working/Finished worker lifecycle, Execute(Worker) error
// contract) generalized from "one worker per pipeline stage, looping
// over WorkerTaskMeta.Execute" to "one Task per unit of work, run
// once by Driver and then discarded".
package task

import (
	"context"

	"github.com/oblivioncth/clifp/internal/kernelerr"
)

// Stage orders task execution within a run, per spec.md §5's
// "Stages do not interleave" guarantee.
type Stage int

const (
	StageStartup Stage = iota
	StagePrimary
	StageAuxiliary
	StageShutdown
)

func (s Stage) String() string {
	switch s {
	case StageStartup:
		return "Startup"
	case StagePrimary:
		return "Primary"
	case StageAuxiliary:
		return "Auxiliary"
	case StageShutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// Task is the common contract every concrete task type implements.
// Perform starts (and, for cooperative tasks, suspends at a well-
// defined I/O point within) the work and returns exactly once with the
// outcome. Stop requests cancellation of an in-flight Perform; it is a
// no-op for tasks that cannot be interrupted mid-flight.
type Task interface {
	Stage() Stage
	Name() string
	Perform(ctx context.Context) kernelerr.Error
	Stop()
}

// noopStop is embedded by task types with nothing cancellable to
// interrupt (TMessage, TExtra, TGeneric), so they satisfy Task without
// repeating an empty Stop method.
type noopStop struct{}

func (noopStop) Stop() {}
