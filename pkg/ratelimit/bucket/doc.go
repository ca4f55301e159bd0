/*
Package bucket provides a token bucket limiter.

The bucket holds up to Capacity tokens and starts full, so a client may burst
up to Capacity requests at once. Tokens accrue continuously at RefillRate per
second, computed lazily on each call from the monotonic time elapsed since the
last refill.

	limiter, err := bucket.New(5, 1) // burst of 5, 1 token/sec sustained
	if err != nil {
		return err
	}
	if limiter.AllowN(2) {
		// request costing 2 tokens
	}

A rejected call leaves the token count untouched apart from the refill that
was due anyway.
*/
package bucket
