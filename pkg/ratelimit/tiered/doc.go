// Package tiered applies different distributed limits per service and per
// customer tier.
//
// Rules map service -> tier -> Rule{Limit, Window} with a default rule for
// unknown services and tiers:
//
//	default: {limit: 100, window: 1h}
//	services:
//	  payments:
//	    free:       {limit: 10, window: 1m}
//	    pro:        {limit: 100, window: 1m}
//	    enterprise: {limit: 1000, window: 1m}
//
// A TierResolver maps each subject to its tier; RedisResolver reads the tier
// cached at user:tier:<subject> and falls back to "free". The Limiter resolves
// tier and rule for every request and delegates the count to a
// distributed.Limiter. Rules can be replaced at runtime with SetRules, and a
// Watcher does so whenever the rules file changes.
package tiered
