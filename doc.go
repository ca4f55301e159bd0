/*
Package gatekeep provides admission control: deciding for each request
whether it may proceed now or must be rejected.

Strategies (pkg/ratelimit):
  - bucket: Token bucket, bursts up to capacity
  - leakybucket: Fixed-size FIFO queue drained at a constant rate
  - fixedwindow: Counter per epoch-aligned window
  - slidinglog: Exact count over a sliding window
  - slidingcounter: Weighted two-window estimate
  - distributed: Sliding counter over a shared atomic store
  - tiered: Per-service, per-tier rules over the distributed limiter

Every strategy implements ratelimit.Limiter:

	import (
		"github.com/vnykmshr/gatekeep/pkg/ratelimit"
		"github.com/vnykmshr/gatekeep/pkg/ratelimit/bucket"
	)

	limiter, _ := bucket.New(20, 10) // burst 20, 10 tokens/sec

	if d := limiter.Admit(ctx, ratelimit.Request{}); !d.Allowed {
		w.Header().Set("Retry-After", ratelimit.RetryAfterSeconds(d))
	}

The gatekeep command (cmd/gatekeep) serves the limiters over HTTP.
*/
package gatekeep
