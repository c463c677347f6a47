package clock_test

import (
	"context"
	"testing"
	"time"

	"github.com/Nwokike/museum-harvester/internal/clock"
)

func TestSystemSleepHonorsCancellation(t *testing.T) {
	clk := clock.NewSystem()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := clk.Sleep(ctx, time.Hour); err != context.Canceled {
		t.Errorf("Sleep on cancelled ctx = %v, want context.Canceled", err)
	}
}

func TestSystemSleepZeroReturnsImmediately(t *testing.T) {
	clk := clock.NewSystem()
	start := time.Now()
	if err := clk.Sleep(context.Background(), 0); err != nil {
		t.Fatalf("Sleep(0): %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("Sleep(0) took %v", elapsed)
	}
}

func TestSystemSleepWaits(t *testing.T) {
	clk := clock.NewSystem()
	start := time.Now()
	if err := clk.Sleep(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatalf("Sleep: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Sleep returned after %v, want at least 20ms", elapsed)
	}
}

func TestSystemNowIsUTC(t *testing.T) {
	clk := clock.NewSystem()
	if loc := clk.Now().Location(); loc != time.UTC {
		t.Errorf("Now location = %v, want UTC", loc)
	}
}
