package services

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/pimhub/backend-go/internal/errors"
	"github.com/pimhub/backend-go/internal/vector"
)

func TestCachedEmbedderPassthroughWithoutRedis(t *testing.T) {
	backend := vector.NewHashEmbedder(8)
	cached := NewCachedEmbedder(backend, nil, time.Minute)
	ctx := context.Background()

	direct, err := backend.Embed(ctx, "hydrating toner")
	require.NoError(t, err)

	vec, err := cached.Embed(ctx, "hydrating toner")
	require.NoError(t, err)
	assert.Equal(t, direct, vec)

	assert.Equal(t, backend.Dimensions(), cached.Dimensions())
	assert.True(t, cached.Ready())
}

func TestCachedEmbedderBatchPassthrough(t *testing.T) {
	backend := vector.NewHashEmbedder(8)
	cached := NewCachedEmbedder(backend, nil, time.Minute)

	vecs, err := cached.EmbedBatch(context.Background(), []string{"toner", "sunscreen"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.NotEqual(t, vecs[0], vecs[1])
}

func TestCachedEmbedderEmptyBatch(t *testing.T) {
	// 配置了Redis时空批量同样在进缓存前被拒绝
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	t.Cleanup(func() { rdb.Close() })

	for _, cached := range []*CachedEmbedder{
		NewCachedEmbedder(vector.NewHashEmbedder(8), nil, time.Minute),
		NewCachedEmbedder(vector.NewHashEmbedder(8), rdb, time.Minute),
	} {
		_, err := cached.EmbedBatch(context.Background(), nil)
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidationFailed))
	}
}

func TestCachedEmbedderInvalidateWithoutRedis(t *testing.T) {
	cached := NewCachedEmbedder(vector.NewHashEmbedder(8), nil, time.Minute)
	assert.NoError(t, cached.InvalidateEmbedding(context.Background(), "toner"))
}

func TestCachedEmbedderKeyStable(t *testing.T) {
	cached := NewCachedEmbedder(vector.NewHashEmbedder(8), nil, time.Minute)
	assert.Equal(t, cached.cacheKey("toner"), cached.cacheKey("toner"))
	assert.NotEqual(t, cached.cacheKey("toner"), cached.cacheKey("sunscreen"))
}
