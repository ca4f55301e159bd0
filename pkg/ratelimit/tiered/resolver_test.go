package tiered

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticResolver(t *testing.T) {
	ctx := context.Background()
	r := StaticResolver{Tiers: map[string]string{"alice": "pro"}}

	tier, err := r.Tier(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "pro", tier)

	tier, _ = r.Tier(ctx, "bob")
	assert.Equal(t, DefaultTier, tier)

	tier, _ = StaticResolver{Fallback: "trial"}.Tier(ctx, "bob")
	assert.Equal(t, "trial", tier)
}

func TestRedisResolver(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	require.NoError(t, mr.Set(TierKey("alice"), "enterprise"))
	r := NewRedisResolver(client, nil)
	ctx := context.Background()

	tier, err := r.Tier(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "enterprise", tier)

	tier, err = r.Tier(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, DefaultTier, tier)

	mr.Close()
	tier, err = r.Tier(ctx, "alice")
	assert.Error(t, err)
	assert.Equal(t, DefaultTier, tier)
}

func TestTierKey(t *testing.T) {
	assert.Equal(t, "user:tier:10.0.0.1", TierKey("10.0.0.1"))
}
