package timeutil

import "time"

// MaxDuration returns the largest duration in the slice.
// An empty slice returns zero.
func MaxDuration(durations []time.Duration) time.Duration {
	var max time.Duration
	for i, d := range durations {
		if i == 0 || d > max {
			max = d
		}
	}
	return max
}
