package schedule

import (
	"fmt"

	"github.com/Nwokike/museum-harvester/pkg/failure"
)

type SchedErrorCause string

const (
	ErrCauseCancelled SchedErrorCause = "run cancelled"
	ErrCauseClosed    SchedErrorCause = "scheduler closed"
)

type SchedError struct {
	Message string
	Cause   SchedErrorCause
}

func (e *SchedError) Error() string {
	return fmt.Sprintf("schedule error: %s", e.Cause)
}

func (e *SchedError) Severity() failure.Severity {
	// Cancellation is an orderly shutdown signal, not a run abort;
	// the orchestrator drains and flushes on it.
	return failure.SeverityRecoverable
}

func (e *SchedError) Kind() failure.Kind {
	return failure.KindUnknown
}
