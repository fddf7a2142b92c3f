package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetConfig(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(func() {
		viper.Reset()
		AppConfig = nil
	})
}

func TestLoadConfigDefaults(t *testing.T) {
	resetConfig(t)

	require.NoError(t, LoadConfig())
	cfg := GetAppConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "hash", cfg.Embedding.Provider)
	assert.Equal(t, 64, cfg.Embedding.Dimensions)
	assert.Equal(t, "memory", cfg.VectorStore.Provider)
	assert.Equal(t, 10*time.Second, cfg.VectorStore.CallTimeout)
	assert.Equal(t, 3, cfg.VectorStore.RetryAttempts)
	assert.Equal(t, []string{"products", "ingredients"}, cfg.Search.Collections)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Zero(t, cfg.Search.MinScore)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	resetConfig(t)

	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgresql://user:pass@db:5432/pim")
	t.Setenv("REDIS_HOST", "cache.internal")

	require.NoError(t, LoadConfig())
	cfg := GetAppConfig()

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "postgresql://user:pass@db:5432/pim", cfg.Database.URL)
	assert.Equal(t, "cache.internal", cfg.Redis.Host)
	// 设置了REDIS_HOST即启用缓存
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoadConfigQdrantEnv(t *testing.T) {
	resetConfig(t)

	t.Setenv("QDRANT_ENDPOINT", "http://qdrant.internal:6333")

	require.NoError(t, LoadConfig())
	cfg := GetAppConfig()

	assert.Equal(t, "qdrant", cfg.VectorStore.Provider)
	assert.Equal(t, "http://qdrant.internal:6333", cfg.VectorStore.Qdrant.Endpoint)
}

func TestLoadConfigMilvusEnv(t *testing.T) {
	resetConfig(t)

	t.Setenv("MILVUS_ADDRESS", "milvus.internal:19530")
	t.Setenv("PIMHUB_VECTOR_STORE_MILVUS_USE_TLS", "true")

	require.NoError(t, LoadConfig())
	cfg := GetAppConfig()

	assert.Equal(t, "milvus", cfg.VectorStore.Provider)
	assert.Equal(t, "milvus.internal:19530", cfg.VectorStore.Milvus.Address)
	// TLS键与qdrant对齐为use_tls
	assert.True(t, cfg.VectorStore.Milvus.UseTLS)
}

func TestLoadConfigOpenAIEnv(t *testing.T) {
	resetConfig(t)

	t.Setenv("OPENAI_API_KEY", "sk-test")

	require.NoError(t, LoadConfig())
	cfg := GetAppConfig()

	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
}
