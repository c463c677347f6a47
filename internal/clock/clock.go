// Package clock abstracts wall time so rate-limit spacing and backoff
// delays are testable without real waits.
package clock

import (
	"context"
	"time"
)

// Clock is the time source injected into the scheduler.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, whichever comes
	// first, returning ctx.Err() in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// System is the real clock.
type System struct{}

func NewSystem() *System {
	return &System{}
}

func (*System) Now() time.Time {
	return time.Now().UTC()
}

func (*System) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
