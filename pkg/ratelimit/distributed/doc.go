// Package distributed provides a sliding window counter whose counters live
// in a shared store, so every process using the same store enforces one
// limit per (service, subject).
//
// # Overview
//
// Each decision computes the current and previous window IDs from wall-clock
// time and hands both keys to store.Store.CheckAndIncrement, which reads,
// estimates and increments as one atomic step:
//
//	estimate = previous × (1 - elapsed/Window) + current
//
// Keys follow the convention
//
//	<namespace>:<service>:<subject>:<window-id>
//
// and expire after two windows.
//
// # Quick Start
//
//	rdb := redis.NewClient(&redis.Options{
//		Addr:                  "localhost:6379",
//		ContextTimeoutEnabled: true,
//	})
//	st, _ := redisstore.New(redisstore.Config{Client: rdb})
//
//	limiter, err := distributed.New(distributed.Config{
//		Store:  st,
//		Limit:  5,
//		Window: time.Minute,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if limiter.Allow(ctx, "api", clientIP) {
//		// Process request
//	}
//
// # Failure Handling
//
// Store calls are bounded by Config.Timeout. When the store fails or times
// out the request is admitted: the failure is logged at warn level, counted
// in ratelimit_fail_open_total and passed to Config.OnStoreError. Callers
// never see the error.
//
// # Per-call Limits
//
// AllowLimit takes the limit and window per call, which lets one Limiter
// serve rules chosen at request time (see the tiered package). Counters for
// different windows of the same service and subject share keys, so a service
// should use one window length.
package distributed
