package pipeline

import (
	"fmt"

	"github.com/Nwokike/museum-harvester/pkg/failure"
)

type RunErrorCause string

const (
	ErrCauseUnknownArchive RunErrorCause = "unknown archive"
	ErrCauseSeedRejected   RunErrorCause = "seed rejected"
	ErrCauseStorageFatal   RunErrorCause = "storage failure"
	// Per-task causes; the run keeps draining past them.
	ErrCauseRobotsDisallowed    RunErrorCause = "robots disallowed"
	ErrCauseLocalSeedUnreadable RunErrorCause = "local seed unreadable"
)

// RunError is a pipeline-level failure: the abort causes end the run,
// the per-task causes fail only the task that raised them.
type RunError struct {
	Message string
	Cause   RunErrorCause
}

func (e *RunError) Error() string {
	return fmt.Sprintf("pipeline error: %s, %s", e.Cause, e.Message)
}

func (e *RunError) Severity() failure.Severity {
	switch e.Cause {
	case ErrCauseRobotsDisallowed, ErrCauseLocalSeedUnreadable:
		return failure.SeverityRecoverable
	default:
		return failure.SeverityFatal
	}
}

func (e *RunError) Kind() failure.Kind {
	switch e.Cause {
	case ErrCauseStorageFatal:
		return failure.KindPersistenceIO
	case ErrCauseRobotsDisallowed, ErrCauseLocalSeedUnreadable:
		return failure.KindPermanentDenied
	default:
		return failure.KindUnknown
	}
}
