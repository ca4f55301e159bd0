package tiered

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/gatekeep/internal/testutil"
	"github.com/vnykmshr/gatekeep/pkg/metrics"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit/distributed"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit/store/memory"
)

func newTestLimiter(t *testing.T, resolver TierResolver) *Limiter {
	t.Helper()
	clock := testutil.NewMockClock(time.Unix(1699999200, 0)) // hour aligned

	st, err := memory.New(memory.Config{Clock: clock})
	require.NoError(t, err)

	dist, err := distributed.New(distributed.Config{
		Store:   st,
		Limit:   1,
		Window:  time.Minute,
		Clock:   clock,
		Metrics: metrics.NewRegistry(prometheus.NewRegistry()),
	})
	require.NoError(t, err)

	l, err := New(Config{Distributed: dist, Resolver: resolver})
	require.NoError(t, err)
	return l
}

func admitted(l *Limiter, service, subject string, n int) int {
	count := 0
	for i := 0; i < n; i++ {
		if l.Check(context.Background(), service, subject).Allowed {
			count++
		}
	}
	return count
}

func TestNewRequiresDistributed(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestTierLimits(t *testing.T) {
	l := newTestLimiter(t, StaticResolver{Tiers: map[string]string{"acme": "pro"}})

	assert.Equal(t, 10, admitted(l, "payments", "hobbyist", 50))
	assert.Equal(t, 100, admitted(l, "payments", "acme", 150))
	assert.Equal(t, 50, admitted(l, "marketing", "hobbyist", 80))
}

func TestUnknownServiceUsesDefault(t *testing.T) {
	l := newTestLimiter(t, nil)
	assert.Equal(t, 100, admitted(l, "search", "someone", 120))
}

func TestServicesDoNotShareCounters(t *testing.T) {
	l := newTestLimiter(t, nil)

	assert.Equal(t, 10, admitted(l, "payments", "user", 20))
	assert.Equal(t, 50, admitted(l, "marketing", "user", 60))
}

func TestCheckResult(t *testing.T) {
	l := newTestLimiter(t, StaticResolver{Tiers: map[string]string{"acme": "enterprise"}})

	res := l.Check(context.Background(), "payments", "acme")
	assert.True(t, res.Allowed)
	assert.Equal(t, "enterprise", res.Tier)
	assert.Equal(t, 1000, res.Rule.Limit)
}

func TestAdmitRetryAfter(t *testing.T) {
	l := newTestLimiter(t, nil)
	req := ratelimit.Request{Service: "payments", Subject: "user"}

	for i := 0; i < 10; i++ {
		require.True(t, l.Admit(context.Background(), req).Allowed)
	}
	d := l.Admit(context.Background(), req)
	assert.False(t, d.Allowed)
	assert.Equal(t, 30*time.Second, d.RetryAfter)
}

func TestSetRules(t *testing.T) {
	l := newTestLimiter(t, nil)

	rules := DefaultRules()
	rules.Services["payments"]["free"] = Rule{Limit: 2, Window: time.Minute}
	require.NoError(t, l.SetRules(rules))
	assert.Equal(t, 2, admitted(l, "payments", "user", 5))

	bad := &Rules{Default: Rule{Limit: 0, Window: time.Second}}
	assert.Error(t, l.SetRules(bad))
	assert.Error(t, l.SetRules(nil))
	assert.Same(t, rules, l.Rules())
}

// silentAddr returns the address of a listener that accepts connections
// and never writes to them.
func silentAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()

	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return ln.Addr().String()
}

func TestCheckBoundsTierLookup(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:                  silentAddr(t),
		MaxRetries:            -1,
		ContextTimeoutEnabled: true,
	})
	t.Cleanup(func() { _ = client.Close() })

	l := newTestLimiter(t, NewRedisResolver(client, nil))

	start := time.Now()
	res := l.Check(context.Background(), "payments", "acme")
	elapsed := time.Since(start)

	assert.True(t, res.Allowed)
	assert.Equal(t, DefaultTier, res.Tier)
	assert.Less(t, elapsed, time.Second)
}
