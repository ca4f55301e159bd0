package slidingcounter

import (
	"context"
	"sync"
	"time"

	"github.com/vnykmshr/gatekeep/pkg/common/validation"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit/clock"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit/window"
)

const module = "slidingcounter"

// Config holds configuration options for creating a new Limiter.
type Config struct {
	// Limit is the maximum estimated number of requests per window.
	Limit int

	// WindowSize is the length of the sliding window.
	WindowSize time.Duration

	// Clock provides the current time. If nil, clock.SystemClock is used.
	Clock clock.Clock
}

// Limiter is a sliding window counter. It is safe for concurrent use.
type Limiter struct {
	mu     sync.Mutex
	limit  int
	size   time.Duration
	counts map[int64]int
	clock  clock.Clock
}

var _ ratelimit.Limiter = (*Limiter)(nil)

// New creates a sliding counter limiter admitting about limit requests per
// windowSize.
func New(limit int, windowSize time.Duration) (*Limiter, error) {
	return NewWithConfig(Config{Limit: limit, WindowSize: windowSize})
}

// NewWithConfig creates a sliding counter limiter from config.
func NewWithConfig(config Config) (*Limiter, error) {
	if err := validation.ValidatePositive(module, "limit", config.Limit); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositiveDuration(module, "window", config.WindowSize); err != nil {
		return nil, err
	}

	return &Limiter{
		limit:  config.Limit,
		size:   config.WindowSize,
		counts: make(map[int64]int, 3),
		clock:  clock.OrSystem(config.Clock),
	}, nil
}

// Allow reports whether a request may proceed, counting it if so.
func (sc *Limiter) Allow() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	now := sc.clock.Now()
	id := window.ID(now, sc.size)

	if sc.estimate(now, id) >= float64(sc.limit) {
		return false
	}

	sc.counts[id]++
	for w := range sc.counts {
		if w < id-1 {
			delete(sc.counts, w)
		}
	}
	return true
}

// Admit implements ratelimit.Limiter. A rejection carries a hint of half the
// window.
func (sc *Limiter) Admit(_ context.Context, _ ratelimit.Request) ratelimit.Decision {
	if sc.Allow() {
		return ratelimit.Allow
	}
	return ratelimit.Deny(sc.size / 2)
}

// Estimate returns the weighted request count for the sliding window ending
// now.
func (sc *Limiter) Estimate() float64 {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	now := sc.clock.Now()
	return sc.estimate(now, window.ID(now, sc.size))
}

// Windows returns the number of window counters currently retained.
func (sc *Limiter) Windows() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return len(sc.counts)
}

// Limit returns the per-window limit.
func (sc *Limiter) Limit() int {
	return sc.limit
}

// WindowSize returns the window length.
func (sc *Limiter) WindowSize() time.Duration {
	return sc.size
}

func (sc *Limiter) estimate(now time.Time, id int64) float64 {
	weight := window.PreviousWeight(now, sc.size)
	return float64(sc.counts[id]) + float64(sc.counts[id-1])*weight
}
