package pipeline

import (
	"time"

	"github.com/Nwokike/museum-harvester/pkg/failure"
)

// State is the orchestrator lifecycle. Transitions only move forward:
// Seeding → Draining → DrainingWithCancellation → Finished, with
// DrainingWithCancellation skipped on a clean drain.
type State string

const (
	StateSeeding                  State = "seeding"
	StateDraining                 State = "draining"
	StateDrainingWithCancellation State = "draining-with-cancellation"
	StateFinished                 State = "finished"
)

// Summary is the terminal accounting of one run. It is derived from
// orchestrator counters, never from recorded metadata.
type Summary struct {
	RunID              string
	RecordsWritten     int
	ImagesStored       int
	ImagesDeduplicated int
	ImagesDegraded     int
	RecordsSkipped     int
	TasksFailed        int
	FailuresByKind     map[failure.Kind]int
	// AttemptsByCount buckets finalized tasks by the number of retries
	// they needed: AttemptsByCount[0] counts tasks that succeeded or
	// failed on their first dispatch, AttemptsByCount[3] tasks retried
	// three times.
	AttemptsByCount map[int]int
	Cancelled       bool
	Duration        time.Duration
}
