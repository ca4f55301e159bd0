package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric registered by this package.
const Namespace = "gatekeep"

// Registry holds all metric instances for gatekeep components.
type Registry struct {
	// Admission metrics
	RateLimitRequests *prometheus.CounterVec
	RateLimitAllowed  *prometheus.CounterVec
	RateLimitDenied   *prometheus.CounterVec
	RateLimitFailOpen *prometheus.CounterVec

	// Counter store metrics
	StoreErrors  *prometheus.CounterVec
	StoreLatency *prometheus.HistogramVec
}

// DefaultRegistry is the registry used when a component is given none.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		RateLimitRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "ratelimit",
				Name:      "requests_total",
				Help:      "Total number of admission decisions requested",
			},
			[]string{"limiter_type", "limiter_name"},
		),

		RateLimitAllowed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "ratelimit",
				Name:      "allowed_total",
				Help:      "Total number of admitted requests",
			},
			[]string{"limiter_type", "limiter_name"},
		),

		RateLimitDenied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "ratelimit",
				Name:      "denied_total",
				Help:      "Total number of rejected requests",
			},
			[]string{"limiter_type", "limiter_name"},
		),

		RateLimitFailOpen: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "ratelimit",
				Name:      "fail_open_total",
				Help:      "Requests admitted because the counter store was unavailable",
			},
			[]string{"limiter_name"},
		),

		StoreErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "store",
				Name:      "errors_total",
				Help:      "Total number of failed counter store operations",
			},
			[]string{"store"},
		),

		StoreLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "store",
				Name:      "latency_seconds",
				Help:      "Latency of atomic check-and-increment calls",
				Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
			},
			[]string{"store"},
		),
	}
}

// OrDefault returns r, or DefaultRegistry when r is nil.
func OrDefault(r *Registry) *Registry {
	if r == nil {
		return DefaultRegistry
	}
	return r
}

// ObserveDecision counts one admission decision for the limiter identified
// by kind and name.
func (r *Registry) ObserveDecision(kind, name string, allowed bool) {
	r.RateLimitRequests.WithLabelValues(kind, name).Inc()
	if allowed {
		r.RateLimitAllowed.WithLabelValues(kind, name).Inc()
	} else {
		r.RateLimitDenied.WithLabelValues(kind, name).Inc()
	}
}
