// Package redisstore implements store.Store on Redis.
//
// The check-and-increment runs as a single Lua script, so every process
// sharing the Redis instance sees one consistent counter per key. go-redis
// sends the script by SHA and falls back to the full body when the server
// reports NOSCRIPT.
package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	gkerrors "github.com/vnykmshr/gatekeep/pkg/common/errors"
	"github.com/vnykmshr/gatekeep/pkg/common/validation"
	"github.com/vnykmshr/gatekeep/pkg/metrics"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit/store"
)

const module = "redisstore"

// Config holds configuration options for a Store.
type Config struct {
	// Client is the Redis connection. Required. Build it with
	// ContextTimeoutEnabled so the limiter's per-call timeout applies.
	Client redis.UniversalClient

	// Name labels this store in metrics. Defaults to "redis".
	Name string

	// Metrics receives latency and error observations. If nil,
	// metrics.DefaultRegistry is used.
	Metrics *metrics.Registry
}

// Store is a Redis-backed store.Store.
type Store struct {
	client  redis.UniversalClient
	script  *redis.Script
	name    string
	metrics *metrics.Registry
}

var _ store.Store = (*Store)(nil)

// New creates a Store over config.Client.
func New(config Config) (*Store, error) {
	if config.Client == nil {
		return nil, validation.ValidateNotNil(module, "client", nil)
	}
	if config.Name == "" {
		config.Name = "redis"
	}

	return &Store{
		client:  config.Client,
		script:  redis.NewScript(luaCheckAndIncrement),
		name:    config.Name,
		metrics: metrics.OrDefault(config.Metrics),
	}, nil
}

// Load registers the script with the server ahead of the first call.
func (s *Store) Load(ctx context.Context) error {
	if err := s.script.Load(ctx, s.client).Err(); err != nil {
		return s.fail("Load", err, "")
	}
	return nil
}

// CheckAndIncrement implements store.Store with one script round-trip.
func (s *Store) CheckAndIncrement(ctx context.Context, currentKey, previousKey string, limit int, weight float64, ttl time.Duration) (bool, error) {
	start := time.Now()
	defer func() {
		s.metrics.StoreLatency.WithLabelValues(s.name).Observe(time.Since(start).Seconds())
	}()

	ttlMillis := ttl.Milliseconds()
	if ttlMillis < 1 {
		ttlMillis = 1
	}

	result, err := s.script.Run(ctx, s.client,
		[]string{currentKey, previousKey},
		limit,
		strconv.FormatFloat(weight, 'f', -1, 64),
		ttlMillis,
	).Int64()
	if err != nil {
		return false, s.fail("CheckAndIncrement", err, "key="+currentKey)
	}

	return result == 1, nil
}

func (s *Store) fail(op string, err error, detail string) error {
	s.metrics.StoreErrors.WithLabelValues(s.name).Inc()

	opErr := gkerrors.NewOperationError(module, op, fmt.Errorf("%w: %w", gkerrors.ErrStoreUnavailable, err))
	if detail != "" {
		opErr = opErr.WithContext(detail)
	}
	return opErr
}

// KEYS[1] current window counter
// KEYS[2] previous window counter
// ARGV[1] limit, ARGV[2] previous window weight, ARGV[3] ttl in milliseconds
const luaCheckAndIncrement = `
local current = tonumber(redis.call('GET', KEYS[1]) or "0")
local previous = tonumber(redis.call('GET', KEYS[2]) or "0")
local limit = tonumber(ARGV[1])
local weight = tonumber(ARGV[2])

if previous * weight + current < limit then
    redis.call('INCR', KEYS[1])
    redis.call('PEXPIRE', KEYS[1], ARGV[3])
    return 1
end
return 0
`
