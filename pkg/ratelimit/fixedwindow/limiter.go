package fixedwindow

import (
	"context"
	"sync"
	"time"

	"github.com/vnykmshr/gatekeep/pkg/common/validation"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit/clock"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit/window"
)

const module = "fixedwindow"

// Config holds configuration options for creating a new Limiter.
type Config struct {
	// Limit is the maximum number of requests admitted per window.
	Limit int

	// WindowSize is the length of each window.
	WindowSize time.Duration

	// Clock provides the current time. If nil, clock.SystemClock is used.
	Clock clock.Clock
}

// Limiter is a fixed window counter. It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	limit   int
	size    time.Duration
	windows map[int64]int
	clock   clock.Clock
}

var _ ratelimit.Limiter = (*Limiter)(nil)

// New creates a fixed window limiter admitting limit requests per window.
func New(limit int, windowSize time.Duration) (*Limiter, error) {
	return NewWithConfig(Config{Limit: limit, WindowSize: windowSize})
}

// NewWithConfig creates a fixed window limiter from config.
func NewWithConfig(config Config) (*Limiter, error) {
	if err := validation.ValidatePositive(module, "limit", config.Limit); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositiveDuration(module, "window", config.WindowSize); err != nil {
		return nil, err
	}

	return &Limiter{
		limit:   config.Limit,
		size:    config.WindowSize,
		windows: make(map[int64]int, 2),
		clock:   clock.OrSystem(config.Clock),
	}, nil
}

// Allow reports whether a request may proceed in the current window.
func (fw *Limiter) Allow() bool {
	ok, _ := fw.allow()
	return ok
}

// Admit implements ratelimit.Limiter. A rejection carries the time until the
// current window ends.
func (fw *Limiter) Admit(_ context.Context, _ ratelimit.Request) ratelimit.Decision {
	ok, wait := fw.allow()
	if ok {
		return ratelimit.Allow
	}
	return ratelimit.Deny(wait)
}

// Count returns the number of requests admitted in the current window.
func (fw *Limiter) Count() int {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	return fw.windows[window.ID(fw.clock.Now(), fw.size)]
}

// Windows returns the number of window IDs currently retained.
func (fw *Limiter) Windows() int {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	return len(fw.windows)
}

// Limit returns the per-window limit.
func (fw *Limiter) Limit() int {
	return fw.limit
}

// WindowSize returns the window length.
func (fw *Limiter) WindowSize() time.Duration {
	return fw.size
}

func (fw *Limiter) allow() (bool, time.Duration) {
	now := fw.clock.Now()
	id := window.ID(now, fw.size)

	fw.mu.Lock()
	defer fw.mu.Unlock()

	count, seen := fw.windows[id]
	if !seen {
		fw.windows[id] = 0
		fw.purgeExcept(id)
	}

	if count < fw.limit {
		fw.windows[id] = count + 1
		return true, 0
	}
	return false, window.UntilNext(now, fw.size)
}

// purgeExcept drops every window other than id.
func (fw *Limiter) purgeExcept(id int64) {
	for w := range fw.windows {
		if w != id {
			delete(fw.windows, w)
		}
	}
}
