package server

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/vnykmshr/gatekeep/pkg/metrics"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit/tiered"
)

// errorResponse is the body of every rejection.
type errorResponse struct {
	Detail string `json:"detail"`
}

// Subject identifies the caller: the first X-Forwarded-For entry, or the
// host part of the remote address.
func Subject(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Limit admits requests through l, keyed by service and Subject. Rejected
// requests get 429 with a Retry-After header.
func Limit(l ratelimit.Limiter, service string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := l.Admit(r.Context(), ratelimit.Request{Service: service, Subject: Subject(r)})
			if !d.Allowed {
				tooManyRequests(w, d, "Too Many Requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TieredLimit admits requests through the tier rule for service. The
// rejection names the service and the caller's tier.
func TieredLimit(l *tiered.Limiter, service string, registry *metrics.Registry) func(http.Handler) http.Handler {
	registry = metrics.OrDefault(registry)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := l.Check(r.Context(), service, Subject(r))
			registry.ObserveDecision("tiered", service, res.Allowed)
			if !res.Allowed {
				tooManyRequests(w, res.Decision, fmt.Sprintf("Quota exceeded for %s. Tier: %s", service, res.Tier))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func tooManyRequests(w http.ResponseWriter, d ratelimit.Decision, detail string) {
	w.Header().Set("Retry-After", ratelimit.RetryAfterSeconds(d))
	writeJSON(w, http.StatusTooManyRequests, errorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
