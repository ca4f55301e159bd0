/*
Package leakybucket provides a leaky bucket limiter backed by a bounded FIFO
queue of request identifiers.

Accepted requests join the queue; the queue drains at a constant LeakRate
(whole requests per second, oldest first). When the queue is full new requests
are dropped, so the bucket smooths bursts instead of allowing them.

	limiter, err := leakybucket.New(3, 1) // queue of 3, drains 1 req/sec
	if err != nil {
		return err
	}
	if limiter.Add(requestID) {
		// request accepted into the queue
	}

The leak clock advances by exactly leaked/LeakRate rather than to the current
time, so the fractional progress toward the next leak is kept between calls
and the effective rate does not drift.

Comparison with Token Bucket:

	// Token Bucket: starts full, allows an immediate burst of capacity
	tb, _ := bucket.New(10, 5)

	// Leaky Bucket: starts empty, admits up to capacity then one per leak
	lb, _ := leakybucket.New(10, 5)
*/
package leakybucket
