package backoff

import (
	"math"
	"math/rand"
	"time"

	"github.com/Nwokike/museum-harvester/pkg/failure"
)

// Exponential backoff parameters
// example:
//
//	initialDuration := 1 * time.Second // Start with 1s
//	multiplier := 2.0                  // Double each time
//	maxDuration := 30 * time.Second    // Cap at 30s
type Param struct {
	initialDuration time.Duration
	multiplier      float64
	maxDuration     time.Duration
}

func NewParam(
	initialDuration time.Duration,
	multiplier float64,
	maxDuration time.Duration,
) Param {
	return Param{
		initialDuration: initialDuration,
		multiplier:      multiplier,
		maxDuration:     maxDuration,
	}
}

func (p *Param) InitialDuration() time.Duration {
	return p.initialDuration
}

func (p *Param) Multiplier() float64 {
	return p.multiplier
}

func (p *Param) MaxDuration() time.Duration {
	return p.maxDuration
}

/*
Policy decides retry delay and retry eligibility for failed tasks.

Properties:
- Pure function of its inputs; holds no mutable state of its own.
  The RNG used for jitter is owned and passed in by the caller.
- Jitter is proportional to the computed delay, so concurrent tasks
  failing together do not retry in lockstep.
- Non-transient kinds are never retried, regardless of attempt count.
*/
type Policy struct {
	param          Param
	jitterFraction float64
	maxAttempts    int
}

// NewPolicy builds a Policy. jitterFraction is the upper bound of the
// random jitter as a fraction of the computed delay (0 disables it).
// maxAttempts is the retry ceiling: a task whose failed attempt count
// has reached it is finalized, never retried.
func NewPolicy(param Param, jitterFraction float64, maxAttempts int) Policy {
	if jitterFraction < 0 {
		jitterFraction = 0
	}
	return Policy{
		param:          param,
		jitterFraction: jitterFraction,
		maxAttempts:    maxAttempts,
	}
}

func (p *Policy) MaxAttempts() int {
	return p.maxAttempts
}

// NextDelay computes the delay before retry number attemptCount.
// attemptCount is the number of failed attempts so far, starting at 1.
// The base delay grows exponentially from InitialDuration and is
// capped at MaxDuration before jitter is applied.
func (p *Policy) NextDelay(attemptCount int, rng *rand.Rand) time.Duration {
	if attemptCount < 1 {
		attemptCount = 1
	}

	exponent := float64(attemptCount - 1)
	delay := float64(p.param.initialDuration) * math.Pow(p.param.multiplier, exponent)
	if delay > float64(p.param.maxDuration) {
		delay = float64(p.param.maxDuration)
	}

	if p.jitterFraction > 0 && rng != nil {
		maxJitter := int64(delay * p.jitterFraction)
		if maxJitter > 0 {
			delay += float64(rng.Int63n(maxJitter))
		}
	}

	return time.Duration(delay)
}

// ShouldRetry reports whether a task that failed with the given kind
// may be retried. attemptCount is the number of retries already
// performed (0 for a task that just failed its first try), so a task
// never exceeds MaxAttempts retries and its final attempt count never
// exceeds the ceiling. Permanent kinds are terminal on the first
// failure.
func (p *Policy) ShouldRetry(kind failure.Kind, attemptCount int) bool {
	if !kind.Transient() {
		return false
	}
	return attemptCount < p.maxAttempts
}
