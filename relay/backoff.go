package relay

import (
	"math"
	"time"
)

// BackoffCalculator returns how long to wait before the given reconnection
// attempt. Attempts start at 1.
type BackoffCalculator func(attempts int) time.Duration

func ExponentialBackoff(attempts int) float64 {
	return (math.Pow(2.0, float64(attempts)) - 1) / 2
}

// ExponentialBackoffSeconds waits 0.5s, 1.5s, 3.5s, 7.5s... between attempts.
func ExponentialBackoffSeconds(attempts int) time.Duration {
	if attempts <= 0 {
		return 0
	}
	return time.Duration(ExponentialBackoff(attempts) * float64(time.Second))
}

// CappedBackoff limits the wait computed by calc to limit. A non-positive limit
// disables the cap.
func CappedBackoff(calc BackoffCalculator, limit time.Duration) BackoffCalculator {
	return func(attempts int) time.Duration {
		wait := calc(attempts)
		if limit > 0 && (wait > limit || wait < 0) {
			return limit
		}
		return wait
	}
}
