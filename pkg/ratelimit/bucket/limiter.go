package bucket

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/vnykmshr/gatekeep/pkg/common/validation"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit/clock"
)

const module = "bucket"

// Config holds configuration options for creating a new Limiter.
type Config struct {
	// Capacity is the maximum number of tokens the bucket can hold.
	Capacity int

	// RefillRate is the number of tokens added per second.
	RefillRate float64

	// Clock provides the current time. If nil, clock.SystemClock is used.
	Clock clock.Clock
}

// Limiter is a token bucket. It is safe for concurrent use.
type Limiter struct {
	mu         sync.Mutex
	capacity   int
	rate       float64
	tokens     float64
	lastRefill time.Time
	clock      clock.Clock
}

var _ ratelimit.Limiter = (*Limiter)(nil)

// New creates a full token bucket with the given capacity and refill rate.
func New(capacity int, refillRate float64) (*Limiter, error) {
	return NewWithConfig(Config{
		Capacity:   capacity,
		RefillRate: refillRate,
	})
}

// NewWithConfig creates a full token bucket from config.
func NewWithConfig(config Config) (*Limiter, error) {
	if err := validation.ValidatePositive(module, "capacity", config.Capacity); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositiveFloat(module, "refill_rate", config.RefillRate); err != nil {
		return nil, err
	}
	c := clock.OrSystem(config.Clock)

	return &Limiter{
		capacity:   config.Capacity,
		rate:       config.RefillRate,
		tokens:     float64(config.Capacity),
		lastRefill: c.Now(),
		clock:      c,
	}, nil
}

// Allow reports whether one token may be spent now.
func (tb *Limiter) Allow() bool {
	return tb.AllowN(1)
}

// AllowN reports whether cost tokens may be spent now, spending them if so.
// A non-positive cost is always allowed and spends nothing.
func (tb *Limiter) AllowN(cost int) bool {
	if cost <= 0 {
		return true
	}
	ok, _ := tb.take(cost)
	return ok
}

// Admit spends req.Units() tokens. A rejection carries the time until
// enough tokens will have accrued.
func (tb *Limiter) Admit(_ context.Context, req ratelimit.Request) ratelimit.Decision {
	ok, wait := tb.take(req.Units())
	if ok {
		return ratelimit.Allow
	}
	return ratelimit.Deny(wait)
}

// Tokens returns the number of tokens currently available.
func (tb *Limiter) Tokens() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill(tb.clock.Now())
	return tb.tokens
}

// Capacity returns the bucket capacity.
func (tb *Limiter) Capacity() int {
	return tb.capacity
}

// RefillRate returns the refill rate in tokens per second.
func (tb *Limiter) RefillRate() float64 {
	return tb.rate
}

// take refills, then spends cost tokens if available. On rejection it
// returns how long until cost tokens will be available, or zero when cost
// exceeds capacity and can never be satisfied.
func (tb *Limiter) take(cost int) (bool, time.Duration) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill(tb.clock.Now())

	need := float64(cost)
	if tb.tokens >= need {
		tb.tokens -= need
		return true, 0
	}

	if cost > tb.capacity {
		return false, 0
	}
	missing := need - tb.tokens
	return false, time.Duration(math.Ceil(missing / tb.rate * float64(time.Second)))
}

// refill adds tokens for the time elapsed since the last refill. lastRefill
// only moves when tokens were actually added.
func (tb *Limiter) refill(now time.Time) {
	elapsed := now.Sub(tb.lastRefill)
	if elapsed <= 0 {
		return
	}

	added := elapsed.Seconds() * tb.rate
	if added <= 0 {
		return
	}
	tb.tokens = math.Min(tb.tokens+added, float64(tb.capacity))
	tb.lastRefill = now
}
