package helpers

import (
	"time"

	"golang.org/x/time/rate"
)

// OnceAMinute returns a throttle for periodic diagnostics such as rate limit snapshots.
// Each call site needs its own, otherwise they suppress each other.
func OnceAMinute() *rate.Sometimes {
	return &rate.Sometimes{
		Interval: time.Minute,
	}
}
