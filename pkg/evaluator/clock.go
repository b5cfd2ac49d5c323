package evaluator

import "time"

var clockEpoch = time.Now()

// clockNow returns a monotonic timestamp in nanoseconds.
func clockNow() int64 {
	return time.Since(clockEpoch).Nanoseconds()
}

// clockSinceUs returns the elapsed microseconds since startNano.
func clockSinceUs(startNano int64) int64 {
	return (clockNow() - startNano) / 1_000
}
