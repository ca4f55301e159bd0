// Package window holds the window arithmetic shared by the fixed-window,
// sliding-counter and distributed limiters.
package window

import "time"

// ID returns floor(t / size) using wall-clock nanoseconds since the Unix
// epoch. Every instant inside the same block of size maps to the same ID.
func ID(t time.Time, size time.Duration) int64 {
	n := t.UnixNano()
	id := n / int64(size)
	if n%int64(size) < 0 {
		id--
	}
	return id
}

// elapsed returns how far t is into its window, in [0, size).
func elapsed(t time.Time, size time.Duration) time.Duration {
	rem := t.UnixNano() % int64(size)
	if rem < 0 {
		rem += int64(size)
	}
	return time.Duration(rem)
}

// Overlap returns the fraction of the current window already elapsed at t,
// in [0, 1).
func Overlap(t time.Time, size time.Duration) float64 {
	return float64(elapsed(t, size)) / float64(size)
}

// PreviousWeight returns 1 - Overlap(t, size): the share of the previous
// window still covered by a sliding window of length size ending at t.
func PreviousWeight(t time.Time, size time.Duration) float64 {
	return 1 - Overlap(t, size)
}

// UntilNext returns the time remaining before the window containing t ends.
func UntilNext(t time.Time, size time.Duration) time.Duration {
	return size - elapsed(t, size)
}

// Start returns the instant at which window id begins.
func Start(id int64, size time.Duration) time.Time {
	return time.Unix(0, id*int64(size))
}
