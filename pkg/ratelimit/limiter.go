package ratelimit

import (
	"context"
	"math"
	"strconv"
	"time"
)

// Request carries the arguments any strategy may need to make a decision.
// Each strategy reads only the fields it understands.
type Request struct {
	// Cost is the number of tokens to spend (token bucket). Values <= 0
	// count as 1.
	Cost int

	// ID identifies the request queued by the leaky bucket. A random ID is
	// generated when empty.
	ID string

	// Service scopes distributed counters per API domain.
	Service string

	// Subject identifies the caller (user ID, API key, client IP).
	Subject string
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed bool

	// RetryAfter is an advisory wait before retrying a rejected request.
	// It is zero for admitted requests and when no useful hint exists.
	RetryAfter time.Duration
}

// Limiter is implemented by every admission strategy.
type Limiter interface {
	// Admit reports whether the request may proceed now. It never blocks
	// on local state; distributed implementations bound store calls by a
	// timeout and admit on failure.
	Admit(ctx context.Context, req Request) Decision
}

// LimiterFunc adapts an ordinary function to the Limiter interface.
type LimiterFunc func(ctx context.Context, req Request) Decision

// Admit calls f(ctx, req).
func (f LimiterFunc) Admit(ctx context.Context, req Request) Decision {
	return f(ctx, req)
}

// Allow is the admitted Decision.
var Allow = Decision{Allowed: true}

// Deny returns a rejected Decision carrying a retry hint.
func Deny(retryAfter time.Duration) Decision {
	if retryAfter < 0 {
		retryAfter = 0
	}
	return Decision{RetryAfter: retryAfter}
}

// Units normalizes r.Cost for strategies that spend tokens.
func (r Request) Units() int {
	if r.Cost <= 0 {
		return 1
	}
	return r.Cost
}

// RetryAfterSeconds renders d.RetryAfter as a Retry-After header value:
// whole seconds, rounded up, never below 1. A half-window hint for an
// odd-second window such as 5s therefore renders as "3", not "2".
func RetryAfterSeconds(d Decision) string {
	secs := int64(math.Ceil(d.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}

// MinRetryInterval is the shortest pause Wait takes between attempts.
const MinRetryInterval = 10 * time.Millisecond

// Wait blocks until l admits req or ctx is done, sleeping for each
// rejection's RetryAfter hint (at least MinRetryInterval) between attempts.
func Wait(ctx context.Context, l Limiter, req Request) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		d := l.Admit(ctx, req)
		if d.Allowed {
			return nil
		}

		delay := d.RetryAfter
		if delay < MinRetryInterval {
			delay = MinRetryInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
