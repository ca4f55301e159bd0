// Package slidinglog provides a sliding window log limiter.
//
// The limiter stores the timestamp of every admitted request and admits a new
// one only while fewer than Limit timestamps fall inside (now-WindowSize, now].
// It is exact at any instant, at the cost of memory proportional to Limit.
package slidinglog
