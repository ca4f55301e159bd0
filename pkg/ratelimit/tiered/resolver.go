package tiered

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultTier is assigned to subjects with no known tier.
const DefaultTier = "free"

// TierResolver maps a subject to its customer tier.
type TierResolver interface {
	Tier(ctx context.Context, subject string) (string, error)
}

// StaticResolver resolves tiers from a fixed map.
type StaticResolver struct {
	Tiers map[string]string

	// Fallback is returned for unknown subjects. Defaults to DefaultTier.
	Fallback string
}

// Tier implements TierResolver.
func (r StaticResolver) Tier(_ context.Context, subject string) (string, error) {
	if tier, ok := r.Tiers[subject]; ok {
		return tier, nil
	}
	if r.Fallback != "" {
		return r.Fallback, nil
	}
	return DefaultTier, nil
}

// RedisResolver reads tiers cached in Redis under user:tier:<subject>.
// Lookups honor the caller's deadline only when the client is built with
// ContextTimeoutEnabled.
type RedisResolver struct {
	client redis.UniversalClient
	logger *zap.Logger
}

// NewRedisResolver creates a RedisResolver. A nil logger discards output.
func NewRedisResolver(client redis.UniversalClient, logger *zap.Logger) *RedisResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisResolver{client: client, logger: logger.Named("resolver")}
}

// TierKey returns the Redis key holding subject's tier.
func TierKey(subject string) string {
	return "user:tier:" + subject
}

// Tier implements TierResolver. A missing key resolves to DefaultTier. A
// Redis failure also resolves to DefaultTier and is returned alongside it.
func (r *RedisResolver) Tier(ctx context.Context, subject string) (string, error) {
	tier, err := r.client.Get(ctx, TierKey(subject)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return DefaultTier, nil
	case err != nil:
		r.logger.Warn("tier lookup failed", zap.String("subject", subject), zap.Error(err))
		return DefaultTier, err
	case tier == "":
		return DefaultTier, nil
	}
	return tier, nil
}
