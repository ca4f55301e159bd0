// Package store defines the atomic counter primitive the distributed limiter
// is built on.
//
// Implementations live in subpackages: memory for a single process and tests,
// redisstore for coordination across processes through a Redis Lua script.
package store

import (
	"context"
	"time"
)

// Store performs the sliding window check-and-increment as one indivisible
// step.
//
// CheckAndIncrement reads the counters at currentKey and previousKey (missing
// or expired keys read as 0) and computes
//
//	estimate = previous × weight + current
//
// If estimate < limit it increments currentKey, sets its time to live to ttl
// and returns true. Otherwise it changes nothing and returns false. No other
// caller may observe a state between the read and the increment.
//
// A non-nil error means the outcome is unknown.
type Store interface {
	CheckAndIncrement(ctx context.Context, currentKey, previousKey string, limit int, weight float64, ttl time.Duration) (bool, error)
}

// Func adapts an ordinary function to the Store interface.
type Func func(ctx context.Context, currentKey, previousKey string, limit int, weight float64, ttl time.Duration) (bool, error)

// CheckAndIncrement calls f.
func (f Func) CheckAndIncrement(ctx context.Context, currentKey, previousKey string, limit int, weight float64, ttl time.Duration) (bool, error) {
	return f(ctx, currentKey, previousKey, limit, weight, ttl)
}
