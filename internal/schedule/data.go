package schedule

import (
	"time"

	"github.com/Nwokike/museum-harvester/internal/archive"
	"github.com/Nwokike/museum-harvester/internal/fetcher"
	"github.com/Nwokike/museum-harvester/pkg/failure"
)

// Scheduling boundary types.

// Outcome is the per-task completion event: exactly one is produced
// for every submitted task, success or terminal failure. The task
// inside carries its final attempt count.
type Outcome struct {
	Task   archive.FetchTask
	Result fetcher.FetchResult
	Err    failure.ClassifiedError
	Kind   failure.Kind
}

// Succeeded reports whether the task finished with a usable result.
func (o *Outcome) Succeeded() bool {
	return o.Err == nil
}

// Params configures a Scheduler.
type Params struct {
	// PerHostMinInterval is the minimum spacing between two request
	// dispatches to the same host. Robots crawl-delay may raise it
	// per host, never lower it.
	PerHostMinInterval time.Duration
	// ConcurrencyLimit caps simultaneously in-flight requests across
	// all hosts.
	ConcurrencyLimit int
	// UserAgent is applied to every outgoing request.
	UserAgent string
	// RandomSeed controls backoff jitter. Zero seeds from wall time.
	RandomSeed int64
}

// timing state per rate-limit lane; mutated only by the lane itself
// and the scheduler under its lock
type hostTiming struct {
	lastDispatchAt time.Time
	interval       time.Duration
}
