package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apperrors "github.com/pimhub/backend-go/internal/errors"
	"github.com/pimhub/backend-go/internal/logger"
	"github.com/pimhub/backend-go/internal/metrics"
	"github.com/pimhub/backend-go/internal/vector"
)

// CachedEmbedder 在真实嵌入后端前加一层Redis缓存。
// 键为规范化文本的SHA-256，相同文本的嵌入是确定的，可以安全复用；
// Redis不可用时直接穿透到后端，缓存故障绝不阻断嵌入
type CachedEmbedder struct {
	backend vector.Embedder
	rdb     *redis.Client
	ttl     time.Duration
	prefix  string
}

// NewCachedEmbedder 创建带缓存的嵌入生成器
func NewCachedEmbedder(backend vector.Embedder, rdb *redis.Client, ttl time.Duration) *CachedEmbedder {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedEmbedder{
		backend: backend,
		rdb:     rdb,
		ttl:     ttl,
		prefix:  "pimhub:embedding:",
	}
}

func (c *CachedEmbedder) cacheKey(text string) string {
	digest := sha256.Sum256([]byte(text))
	return c.prefix + hex.EncodeToString(digest[:])
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch 先查缓存，只把未命中的文本发给后端，结果顺序与输入一致
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, apperrors.NewValidationError("embedding batch cannot be empty")
	}
	if c.rdb == nil {
		return c.backend.EmbedBatch(ctx, texts)
	}

	results := make([][]float32, len(texts))
	missing := make([]int, 0, len(texts))

	for i, text := range texts {
		raw, err := c.rdb.Get(ctx, c.cacheKey(text)).Result()
		if err != nil {
			if err != redis.Nil {
				logger.Debug("embedding cache read failed", zap.Error(err))
			}
			metrics.EmbeddingCacheHits.WithLabelValues("miss").Inc()
			missing = append(missing, i)
			continue
		}
		var vec []float32
		if err := json.Unmarshal([]byte(raw), &vec); err != nil {
			metrics.EmbeddingCacheHits.WithLabelValues("miss").Inc()
			missing = append(missing, i)
			continue
		}
		metrics.EmbeddingCacheHits.WithLabelValues("hit").Inc()
		results[i] = vec
	}

	if len(missing) == 0 {
		return results, nil
	}

	batch := make([]string, len(missing))
	for j, idx := range missing {
		batch[j] = texts[idx]
	}
	fresh, err := c.backend.EmbedBatch(ctx, batch)
	if err != nil {
		return nil, err
	}

	for j, idx := range missing {
		results[idx] = fresh[j]
		raw, err := json.Marshal(fresh[j])
		if err != nil {
			continue
		}
		if err := c.rdb.Set(ctx, c.cacheKey(texts[idx]), raw, c.ttl).Err(); err != nil {
			logger.Debug("embedding cache write failed", zap.Error(err))
		}
	}
	return results, nil
}

func (c *CachedEmbedder) Dimensions() int {
	return c.backend.Dimensions()
}

func (c *CachedEmbedder) Ready() bool {
	return c.backend.Ready()
}

var _ vector.Embedder = (*CachedEmbedder)(nil)

// InvalidateEmbedding 在嵌入模型切换后清掉指定文本的缓存
func (c *CachedEmbedder) InvalidateEmbedding(ctx context.Context, text string) error {
	if c.rdb == nil {
		return nil
	}
	if err := c.rdb.Del(ctx, c.cacheKey(text)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate embedding cache: %w", err)
	}
	return nil
}
