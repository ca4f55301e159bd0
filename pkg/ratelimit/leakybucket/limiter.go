package leakybucket

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vnykmshr/gatekeep/pkg/common/validation"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit/clock"
)

const module = "leakybucket"

// Config holds configuration options for creating a new Limiter.
type Config struct {
	// Capacity is the maximum number of requests the queue can hold.
	Capacity int

	// LeakRate is the number of requests drained per second.
	LeakRate float64

	// Clock provides the current time. If nil, clock.SystemClock is used.
	Clock clock.Clock
}

// Limiter is a leaky bucket. It is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	capacity int
	leakRate float64
	queue    *queue
	lastLeak time.Time
	clock    clock.Clock
}

var _ ratelimit.Limiter = (*Limiter)(nil)

// New creates an empty leaky bucket with the given capacity and leak rate.
func New(capacity int, leakRate float64) (*Limiter, error) {
	return NewWithConfig(Config{
		Capacity: capacity,
		LeakRate: leakRate,
	})
}

// NewWithConfig creates an empty leaky bucket from config.
func NewWithConfig(config Config) (*Limiter, error) {
	if err := validation.ValidatePositive(module, "capacity", config.Capacity); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositiveFloat(module, "leak_rate", config.LeakRate); err != nil {
		return nil, err
	}
	c := clock.OrSystem(config.Clock)

	return &Limiter{
		capacity: config.Capacity,
		leakRate: config.LeakRate,
		queue:    newQueue(config.Capacity),
		lastLeak: c.Now(),
		clock:    c,
	}, nil
}

// Add queues requestID if there is room. A rejected identifier is dropped,
// never queued.
func (lb *Limiter) Add(requestID string) bool {
	ok, _ := lb.add(requestID)
	return ok
}

// Allow queues a request under a generated identifier.
func (lb *Limiter) Allow() bool {
	return lb.Add(uuid.NewString())
}

// Admit queues req.ID, or a generated identifier when it is empty. A
// rejection carries the time until the next slot frees.
func (lb *Limiter) Admit(_ context.Context, req ratelimit.Request) ratelimit.Decision {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	ok, wait := lb.add(id)
	if ok {
		return ratelimit.Allow
	}
	return ratelimit.Deny(wait)
}

// Len returns the number of queued requests after applying any due leak.
func (lb *Limiter) Len() int {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.leak(lb.clock.Now())
	return lb.queue.len()
}

// Pending returns the queued request identifiers, oldest first.
func (lb *Limiter) Pending() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.leak(lb.clock.Now())
	return lb.queue.snapshot()
}

// Capacity returns the queue capacity.
func (lb *Limiter) Capacity() int {
	return lb.capacity
}

// LeakRate returns the drain rate in requests per second.
func (lb *Limiter) LeakRate() float64 {
	return lb.leakRate
}

func (lb *Limiter) add(id string) (bool, time.Duration) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	now := lb.clock.Now()
	lb.leak(now)

	if !lb.queue.full() {
		lb.queue.push(id)
		return true, 0
	}

	next := lb.lastLeak.Add(lb.perRequest())
	return false, next.Sub(now)
}

// leak drains whole requests for the time elapsed since the last leak and
// advances lastLeak by exactly the time those requests account for.
func (lb *Limiter) leak(now time.Time) {
	elapsed := now.Sub(lb.lastLeak)
	if elapsed <= 0 {
		return
	}

	leaked := math.Floor(elapsed.Seconds() * lb.leakRate)
	if leaked < 1 {
		return
	}

	if leaked >= float64(lb.queue.len()) {
		lb.queue.drop(lb.queue.len())
	} else {
		lb.queue.drop(int(leaked))
	}
	lb.lastLeak = lb.lastLeak.Add(time.Duration(leaked / lb.leakRate * float64(time.Second)))
}

func (lb *Limiter) perRequest() time.Duration {
	return time.Duration(float64(time.Second) / lb.leakRate)
}
