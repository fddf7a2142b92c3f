package di

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pimhub/backend-go/internal/config"
	"github.com/pimhub/backend-go/internal/database"
	"github.com/pimhub/backend-go/internal/logger"
	"github.com/pimhub/backend-go/internal/services"
	"github.com/pimhub/backend-go/internal/vector"
)

// provideRedis 返回可选的Redis客户端。
// 未启用时为nil；启用但连接失败时记录警告并降级为nil，嵌入缓存穿透
func provideRedis(cfg *config.Config, connect func() (*redis.Client, error)) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	rdb, err := connect()
	if err != nil {
		logger.Warn("redis unavailable, embedding cache disabled", zap.Error(err))
		return nil
	}
	return rdb
}

// RegisterProviders 注册所有依赖提供者
func RegisterProviders(container *dig.Container) error {
	// 配置
	if err := container.Provide(func() (*config.Config, error) {
		cfg := config.GetAppConfig()
		if cfg == nil {
			return nil, fmt.Errorf("config not loaded")
		}
		return cfg, nil
	}); err != nil {
		return err
	}

	// 数据库
	if err := container.Provide(func(cfg *config.Config) (*gorm.DB, error) {
		return database.InitDB()
	}); err != nil {
		return err
	}

	// Redis（可选，未启用时为nil，嵌入缓存自动穿透）
	if err := container.Provide(func(cfg *config.Config) *redis.Client {
		return provideRedis(cfg, database.InitRedis)
	}); err != nil {
		return err
	}

	// 嵌入生成器：进程级单例，构造后只读
	if err := container.Provide(func(cfg *config.Config, rdb *redis.Client) vector.Embedder {
		var embedder vector.Embedder
		switch cfg.Embedding.Provider {
		case "openai":
			embedder = vector.NewOpenAIEmbedder(cfg.Embedding.APIKey, cfg.Embedding.Model)
		case "hash":
			embedder = vector.NewHashEmbedder(cfg.Embedding.Dimensions)
		default:
			embedder = &vector.NoopEmbedder{}
		}
		if rdb != nil {
			return services.NewCachedEmbedder(embedder, rdb, time.Duration(cfg.Redis.TTLSeconds)*time.Second)
		}
		return embedder
	}); err != nil {
		return err
	}

	// 向量存储：启动时按配置选型一次
	if err := container.Provide(func(cfg *config.Config, db *gorm.DB) (vector.Store, error) {
		retry := vector.RetryPolicy{
			MaxAttempts: cfg.VectorStore.RetryAttempts,
			BaseDelay:   100 * time.Millisecond,
		}
		return vector.NewStore(vector.FactoryOptions{
			Provider: cfg.VectorStore.Provider,
			Qdrant: vector.QdrantOptions{
				Endpoint: cfg.VectorStore.Qdrant.Endpoint,
				APIKey:   cfg.VectorStore.Qdrant.APIKey,
				UseTLS:   cfg.VectorStore.Qdrant.UseTLS,
				Timeout:  cfg.VectorStore.CallTimeout,
				Retry:    retry,
			},
			Milvus: vector.MilvusOptions{
				Address:  cfg.VectorStore.Milvus.Address,
				Username: cfg.VectorStore.Milvus.Username,
				Password: cfg.VectorStore.Milvus.Password,
				Database: cfg.VectorStore.Milvus.Database,
				UseTLS:   cfg.VectorStore.Milvus.UseTLS,
				Timeout:  cfg.VectorStore.CallTimeout,
				Retry:    retry,
			},
			DB: db,
		})
	}); err != nil {
		return err
	}

	// 检索编排器
	if err := container.Provide(func(cfg *config.Config, store vector.Store, embedder vector.Embedder) *vector.Orchestrator {
		collections := make([]vector.Collection, 0, len(cfg.Search.Collections))
		for _, name := range cfg.Search.Collections {
			collections = append(collections, vector.Collection{
				Name:      name,
				Dimension: embedder.Dimensions(),
			})
		}
		return vector.NewOrchestrator(store, embedder, collections, cfg.VectorStore.CallTimeout)
	}); err != nil {
		return err
	}

	// 服务层
	if err := container.Provide(func(cfg *config.Config, orchestrator *vector.Orchestrator) *services.SearchService {
		return services.NewSearchService(orchestrator, cfg.Search.DefaultLimit, cfg.Search.MinScore)
	}); err != nil {
		return err
	}
	if err := container.Provide(func(db *gorm.DB, store vector.Store) *services.RecommendationService {
		return services.NewRecommendationService(db, store)
	}); err != nil {
		return err
	}
	if err := container.Provide(func(db *gorm.DB, embedder vector.Embedder, store vector.Store) *services.IndexingService {
		return services.NewIndexingService(db, embedder, store)
	}); err != nil {
		return err
	}

	return nil
}
