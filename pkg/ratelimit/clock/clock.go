// Package clock provides the time source used by every limiter.
//
// Values returned by SystemClock carry Go's monotonic clock reading, so
// durations computed with time.Time.Sub (token refill, leak progress) are
// immune to wall-clock steps. Window identifiers are derived from
// time.Time.UnixNano, which is wall-clock time and therefore agrees across
// processes sharing an NTP-disciplined time base.
package clock

import "time"

// Clock provides the current time. It can be mocked for testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// OrSystem returns c, or SystemClock when c is nil.
func OrSystem(c Clock) Clock {
	if c == nil {
		return SystemClock{}
	}
	return c
}
