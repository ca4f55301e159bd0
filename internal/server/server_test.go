package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/gatekeep/internal/testutil"
	"github.com/vnykmshr/gatekeep/pkg/metrics"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit/store/memory"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit/tiered"
)

func newTestServer(t *testing.T, resolver tiered.TierResolver) *Server {
	t.Helper()

	clock := testutil.NewMockClock(time.Unix(1699999200, 0))
	st, err := memory.New(memory.Config{Clock: clock})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	srv, err := New(Config{
		Host:     "127.0.0.1",
		Store:    st,
		Resolver: resolver,
		Clock:    clock,
		Metrics:  metrics.NewRegistry(reg),
		Gatherer: reg,
	})
	require.NoError(t, err)
	return srv
}

func do(srv *Server, method, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if ip != "" {
		req.Header.Set("X-Forwarded-For", ip)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNewRequiresStore(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestPublicRoute(t *testing.T) {
	srv := newTestServer(t, nil)

	for i := 0; i < 20; i++ {
		assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/", "10.0.0.1").Code)
	}
}

func TestSecureRouteLimit(t *testing.T) {
	srv := newTestServer(t, nil)

	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/api/secure", "10.0.0.1").Code)
	}

	rec := do(srv, http.MethodGet, "/api/secure", "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Too Many Requests", body.Detail)

	// A different client is unaffected
	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/api/secure", "10.0.0.2").Code)
}

func TestHeavyRouteLimit(t *testing.T) {
	srv := newTestServer(t, nil)

	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/api/heavy", "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/api/heavy", "10.0.0.1").Code)

	rec := do(srv, http.MethodGet, "/api/heavy", "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("Retry-After"))
}

func TestTieredRoutes(t *testing.T) {
	srv := newTestServer(t, tiered.StaticResolver{Tiers: map[string]string{"10.0.0.9": "pro"}})

	for i := 0; i < 10; i++ {
		require.Equal(t, http.StatusOK, do(srv, http.MethodPost, "/payments/charge", "10.0.0.1").Code)
	}
	rec := do(srv, http.MethodPost, "/payments/charge", "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))

	var body errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Quota exceeded for payments. Tier: free", body.Detail)

	for i := 0; i < 11; i++ {
		require.Equal(t, http.StatusOK, do(srv, http.MethodPost, "/payments/charge", "10.0.0.9").Code)
	}

	// Marketing has its own counters
	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/marketing/stats", "10.0.0.1").Code)
}

func TestSubject(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		remoteAddr string
		want       string
	}{
		{"forwarded", "203.0.113.7", "10.0.0.1:5000", "203.0.113.7"},
		{"forwarded chain", "203.0.113.7, 10.0.0.2", "10.0.0.1:5000", "203.0.113.7"},
		{"remote host", "", "10.0.0.1:5000", "10.0.0.1"},
		{"remote without port", "", "10.0.0.1", "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, Subject(req))
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	do(srv, http.MethodGet, "/api/secure", "10.0.0.1")

	rec := do(srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `gatekeep_ratelimit_requests_total{limiter_name="secure",limiter_type="distributed"} 1`))
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, nil)
	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/healthz", "").Code)
}
