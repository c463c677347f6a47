package schedule

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/Nwokike/museum-harvester/internal/archive"
	"github.com/Nwokike/museum-harvester/internal/clock"
	"github.com/Nwokike/museum-harvester/internal/fetcher"
	"github.com/Nwokike/museum-harvester/internal/metadata"
	"github.com/Nwokike/museum-harvester/pkg/backoff"
	"github.com/Nwokike/museum-harvester/pkg/failure"
	"github.com/Nwokike/museum-harvester/pkg/timeutil"
)

/*
Scheduler is the sole authority over when a request leaves the
process.

Guarantees:
- Per host, requests dispatch in FIFO order relative to enqueue time,
  never closer together than the host's minimum interval.
- Globally, at most ConcurrencyLimit fetches are in flight at once,
  independent of the per-host spacing, so one slow host cannot starve
  the others and aggregate throughput never exceeds the ceiling.
- Failures are classified and retried under the backoff policy; every
  submitted task produces exactly one completion outcome.
- The per-host rate-limit clock and the global in-flight counter are
  mutated here and nowhere else.

Suspension points (rate-limit wait, backoff wait, the fetch itself)
all honor the caller's context, so cancellation is observed at every
point the scheduler can block.
*/
type Scheduler struct {
	metadataSink metadata.MetadataSink
	fetch        fetcher.Fetcher
	clk          clock.Clock
	policy       backoff.Policy
	params       Params

	inflight chan struct{}

	mu    sync.Mutex
	lanes map[string]*hostLane

	rngMu sync.Mutex
	rng   *rand.Rand

	wg     sync.WaitGroup
	closed chan struct{}
}

type laneRequest struct {
	ctx   context.Context
	task  archive.FetchTask
	reply chan Outcome
}

type hostLane struct {
	queue  chan laneRequest
	timing hostTiming
}

func NewScheduler(
	metadataSink metadata.MetadataSink,
	fetch fetcher.Fetcher,
	clk clock.Clock,
	policy backoff.Policy,
	params Params,
) *Scheduler {
	if params.ConcurrencyLimit < 1 {
		params.ConcurrencyLimit = 1
	}
	seed := params.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Scheduler{
		metadataSink: metadataSink,
		fetch:        fetch,
		clk:          clk,
		policy:       policy,
		params:       params,
		inflight:     make(chan struct{}, params.ConcurrencyLimit),
		lanes:        make(map[string]*hostLane),
		rng:          rand.New(rand.NewSource(seed)),
		closed:       make(chan struct{}),
	}
}

// SetHostInterval raises the minimum spacing for one host, typically
// from a robots.txt crawl-delay. The configured floor still applies.
func (s *Scheduler) SetHostInterval(host string, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lane := s.laneLocked(host)
	lane.timing.interval = timeutil.MaxDuration([]time.Duration{
		s.params.PerHostMinInterval,
		interval,
	})
}

// Do submits a task and blocks until it finalizes: either a usable
// fetch result or a terminal, classified failure. Tasks for the same
// host finalize in submission order.
func (s *Scheduler) Do(ctx context.Context, task archive.FetchTask) Outcome {
	reply := make(chan Outcome, 1)

	s.mu.Lock()
	lane := s.laneLocked(task.Host())
	s.mu.Unlock()

	req := laneRequest{ctx: ctx, task: task, reply: reply}
	select {
	case lane.queue <- req:
	case <-ctx.Done():
		return s.cancelledOutcome(task)
	case <-s.closed:
		return Outcome{Task: task, Err: &SchedError{Message: "submit after close", Cause: ErrCauseClosed}}
	}

	select {
	case out := <-reply:
		return out
	case <-ctx.Done():
		// The lane still owns the request; it will observe the dead
		// context and discard it. Report cancellation to the caller.
		return s.cancelledOutcome(task)
	}
}

// Close stops accepting work and waits for the lanes to wind down.
func (s *Scheduler) Close() {
	close(s.closed)
	s.wg.Wait()
}

// laneLocked returns the lane for host, starting its goroutine on
// first use. Caller holds s.mu.
func (s *Scheduler) laneLocked(host string) *hostLane {
	lane, exists := s.lanes[host]
	if exists {
		return lane
	}
	lane = &hostLane{
		queue: make(chan laneRequest, 1024),
		timing: hostTiming{
			interval: s.params.PerHostMinInterval,
		},
	}
	s.lanes[host] = lane
	s.wg.Add(1)
	go s.runLane(lane)
	return lane
}

func (s *Scheduler) runLane(lane *hostLane) {
	defer s.wg.Done()
	for {
		select {
		case req := <-lane.queue:
			out := s.process(req.ctx, lane, req.task)
			req.reply <- out
		case <-s.closed:
			return
		}
	}
}

// process runs one task to finalization: spacing, fetch, retry loop.
func (s *Scheduler) process(ctx context.Context, lane *hostLane, task archive.FetchTask) Outcome {
	for {
		if err := s.waitForDispatch(ctx, lane); err != nil {
			return s.cancelledOutcome(task)
		}

		select {
		case s.inflight <- struct{}{}:
		case <-ctx.Done():
			return s.cancelledOutcome(task)
		}

		s.mu.Lock()
		lane.timing.lastDispatchAt = s.clk.Now()
		s.mu.Unlock()

		param := fetcher.NewFetchParam(task.URL, task.Kind, s.params.UserAgent)
		if task.Kind == archive.TaskProbe {
			param = fetcher.NewProbeParam(task.URL, s.params.UserAgent)
		}
		param = param.WithAttemptCount(task.AttemptCount)
		result, fetchErr := s.fetch.Fetch(ctx, param)
		<-s.inflight

		if fetchErr == nil {
			return Outcome{Task: task, Result: result}
		}

		kind := classifyKind(fetchErr)
		if !s.policy.ShouldRetry(kind, task.AttemptCount) {
			return Outcome{Task: task, Err: fetchErr, Kind: kind}
		}

		task.AttemptCount++
		delay := s.nextDelay(task.AttemptCount)
		if err := s.clk.Sleep(ctx, delay); err != nil {
			return s.cancelledOutcome(task)
		}
	}
}

// waitForDispatch enforces the host's minimum inter-request interval.
func (s *Scheduler) waitForDispatch(ctx context.Context, lane *hostLane) error {
	s.mu.Lock()
	last := lane.timing.lastDispatchAt
	interval := lane.timing.interval
	s.mu.Unlock()

	if last.IsZero() || interval <= 0 {
		return ctx.Err()
	}
	elapsed := s.clk.Now().Sub(last)
	if elapsed >= interval {
		return ctx.Err()
	}
	return s.clk.Sleep(ctx, interval-elapsed)
}

func (s *Scheduler) nextDelay(attemptCount int) time.Duration {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.policy.NextDelay(attemptCount, s.rng)
}

func (s *Scheduler) cancelledOutcome(task archive.FetchTask) Outcome {
	return Outcome{
		Task: task,
		Err:  &SchedError{Message: "task abandoned on cancellation", Cause: ErrCauseCancelled},
	}
}

// classifyKind extracts the canonical failure kind from a classified
// error, falling back to unknown.
func classifyKind(err failure.ClassifiedError) failure.Kind {
	type kinded interface {
		Kind() failure.Kind
	}
	if k, ok := err.(kinded); ok {
		return k.Kind()
	}
	return failure.KindUnknown
}
