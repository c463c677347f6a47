package backoff_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/Nwokike/museum-harvester/pkg/backoff"
	"github.com/Nwokike/museum-harvester/pkg/failure"
)

func TestNextDelayGrowsExponentially(t *testing.T) {
	param := backoff.NewParam(100*time.Millisecond, 2.0, 10*time.Second)
	policy := backoff.NewPolicy(param, 0, 5)

	tests := []struct {
		name         string
		attemptCount int
		want         time.Duration
	}{
		{"first retry", 1, 100 * time.Millisecond},
		{"second retry", 2, 200 * time.Millisecond},
		{"third retry", 3, 400 * time.Millisecond},
		{"fourth retry", 4, 800 * time.Millisecond},
		{"zero clamps to one", 0, 100 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.NextDelay(tt.attemptCount, nil)
			if got != tt.want {
				t.Errorf("NextDelay(%d) = %v, want %v", tt.attemptCount, got, tt.want)
			}
		})
	}
}

func TestNextDelayCapped(t *testing.T) {
	param := backoff.NewParam(time.Second, 10.0, 3*time.Second)
	policy := backoff.NewPolicy(param, 0, 10)

	if got := policy.NextDelay(5, nil); got != 3*time.Second {
		t.Errorf("NextDelay(5) = %v, want cap %v", got, 3*time.Second)
	}
}

func TestNextDelayJitterBounded(t *testing.T) {
	param := backoff.NewParam(time.Second, 2.0, 30*time.Second)
	policy := backoff.NewPolicy(param, 0.5, 5)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 100; i++ {
		got := policy.NextDelay(1, rng)
		if got < time.Second || got >= 1500*time.Millisecond {
			t.Fatalf("jittered delay %v outside [1s, 1.5s)", got)
		}
	}
}

func TestShouldRetryCeiling(t *testing.T) {
	param := backoff.NewParam(time.Millisecond, 2.0, time.Second)
	policy := backoff.NewPolicy(param, 0, 3)

	// Retries counted so far: 0, 1, 2 are allowed; 3 hits the ceiling.
	for attempts := 0; attempts < 3; attempts++ {
		if !policy.ShouldRetry(failure.KindTransientNetwork, attempts) {
			t.Errorf("ShouldRetry(transient, %d) = false, want true", attempts)
		}
	}
	if policy.ShouldRetry(failure.KindTransientNetwork, 3) {
		t.Error("ShouldRetry(transient, 3) = true, want false at ceiling")
	}
}

func TestShouldRetryPermanentKindsNever(t *testing.T) {
	param := backoff.NewParam(time.Millisecond, 2.0, time.Second)
	policy := backoff.NewPolicy(param, 0, 10)

	kinds := []failure.Kind{
		failure.KindPermanentDenied,
		failure.KindParseMismatch,
		failure.KindResolutionUnavailable,
		failure.KindPersistenceIO,
		failure.KindUnknown,
	}
	for _, kind := range kinds {
		if policy.ShouldRetry(kind, 0) {
			t.Errorf("ShouldRetry(%s, 0) = true, want false", kind)
		}
	}
}
