package ratelimit

import (
	"context"

	"github.com/vnykmshr/gatekeep/pkg/metrics"
)

// metricsLimiter wraps a Limiter with Prometheus metrics collection.
type metricsLimiter struct {
	limiter  Limiter
	kind     string
	name     string
	registry *metrics.Registry
}

// WithMetrics wraps l so every decision is counted under the given limiter
// type and name. A nil registry uses metrics.DefaultRegistry.
func WithMetrics(l Limiter, kind, name string, registry *metrics.Registry) Limiter {
	return &metricsLimiter{
		limiter:  l,
		kind:     kind,
		name:     name,
		registry: metrics.OrDefault(registry),
	}
}

// Admit records the request and its outcome.
func (ml *metricsLimiter) Admit(ctx context.Context, req Request) Decision {
	d := ml.limiter.Admit(ctx, req)
	ml.registry.ObserveDecision(ml.kind, ml.name, d.Allowed)
	return d
}
