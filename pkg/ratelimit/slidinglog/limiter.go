package slidinglog

import (
	"context"
	"sync"
	"time"

	"github.com/vnykmshr/gatekeep/pkg/common/validation"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit/clock"
)

const module = "slidinglog"

// Config holds configuration options for creating a new Limiter.
type Config struct {
	// Limit is the maximum number of requests admitted in any window.
	Limit int

	// WindowSize is the length of the sliding window.
	WindowSize time.Duration

	// Clock provides the current time. If nil, clock.SystemClock is used.
	Clock clock.Clock
}

// Limiter is a sliding window log. It is safe for concurrent use.
type Limiter struct {
	mu    sync.Mutex
	limit int
	size  time.Duration
	log   []time.Time // ascending
	clock clock.Clock
}

var _ ratelimit.Limiter = (*Limiter)(nil)

// New creates a sliding log limiter admitting limit requests per windowSize.
func New(limit int, windowSize time.Duration) (*Limiter, error) {
	return NewWithConfig(Config{Limit: limit, WindowSize: windowSize})
}

// NewWithConfig creates a sliding log limiter from config.
func NewWithConfig(config Config) (*Limiter, error) {
	if err := validation.ValidatePositive(module, "limit", config.Limit); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositiveDuration(module, "window", config.WindowSize); err != nil {
		return nil, err
	}

	return &Limiter{
		limit: config.Limit,
		size:  config.WindowSize,
		log:   make([]time.Time, 0, config.Limit),
		clock: clock.OrSystem(config.Clock),
	}, nil
}

// Allow reports whether a request may proceed, recording it if so.
func (sl *Limiter) Allow() bool {
	ok, _ := sl.allow()
	return ok
}

// Admit implements ratelimit.Limiter. A rejection carries the time until
// the oldest retained timestamp leaves the window.
func (sl *Limiter) Admit(_ context.Context, _ ratelimit.Request) ratelimit.Decision {
	ok, wait := sl.allow()
	if ok {
		return ratelimit.Allow
	}
	return ratelimit.Deny(wait)
}

// Len returns the number of timestamps inside the current window.
func (sl *Limiter) Len() int {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	sl.trim(sl.clock.Now())
	return len(sl.log)
}

// Limit returns the per-window limit.
func (sl *Limiter) Limit() int {
	return sl.limit
}

// WindowSize returns the window length.
func (sl *Limiter) WindowSize() time.Duration {
	return sl.size
}

func (sl *Limiter) allow() (bool, time.Duration) {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	now := sl.clock.Now()
	sl.trim(now)

	if len(sl.log) < sl.limit {
		sl.log = append(sl.log, now)
		return true, 0
	}
	return false, sl.log[0].Add(sl.size).Sub(now)
}

// trim drops timestamps at or before now-size.
func (sl *Limiter) trim(now time.Time) {
	start := now.Add(-sl.size)

	keep := 0
	for keep < len(sl.log) && !sl.log[keep].After(start) {
		keep++
	}
	if keep == 0 {
		return
	}
	n := copy(sl.log, sl.log[keep:])
	sl.log = sl.log[:n]
}
