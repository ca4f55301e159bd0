/*
Package ratelimit provides admission-control primitives for Go applications.

Six strategies share one contract, Limiter.Admit, and can be selected per
route or per customer tier by the caller:

  - bucket: token bucket, allows bursts up to capacity
  - leakybucket: bounded FIFO queue drained at a constant rate, no bursts
  - fixedwindow: hard-reset counter per time block
  - slidinglog: exact accounting with a timestamp log
  - slidingcounter: weighted blend of the current and previous window
  - distributed: the sliding counter evaluated atomically in a shared store

Token bucket vs sliding counter:

	tb, _ := bucket.New(20, 10) // capacity 20, 10 tokens/sec
	if tb.AllowN(3) {
		// expensive request costing 3 tokens
	}

	sc, _ := slidingcounter.New(100, time.Minute) // ~100 per rolling minute
	if sc.Allow() {
		// Process request
	}

Every strategy also implements Limiter, so a request layer can hold them
behind one interface:

	var l ratelimit.Limiter = sc
	d := l.Admit(ctx, ratelimit.Request{Subject: clientIP})
	if !d.Allowed {
		w.Header().Set("Retry-After", ratelimit.RetryAfterSeconds(d))
	}

Local limiters guard their state with one mutex per instance and never
block. The distributed limiter talks to a store and fails open when the
store is unreachable.
*/
package ratelimit
