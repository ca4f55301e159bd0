// Package slidingcounter provides a sliding window counter limiter.
//
// Counts are kept per fixed window, and the rate over a sliding window is
// estimated by weighting the previous window's count by the share of it
// still covered:
//
//	estimate = current + previous × (1 - elapsed/WindowSize)
//
// A request is admitted while the estimate is below Limit. Memory is two
// counters regardless of traffic. The estimate assumes requests in the
// previous window were evenly spread, so it can err in either direction
// when they were not.
//
// The distributed package applies the same arithmetic against a shared
// store.
package slidingcounter
