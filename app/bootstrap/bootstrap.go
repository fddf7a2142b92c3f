package bootstrap

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pimhub/backend-go/internal/config"
	"github.com/pimhub/backend-go/internal/database"
	"github.com/pimhub/backend-go/internal/di"
	"github.com/pimhub/backend-go/internal/logger"
	"github.com/pimhub/backend-go/internal/services"
	"github.com/pimhub/backend-go/internal/vector"
)

// App encapsulates lifecycle resources that need to be cleaned up on shutdown.
type App struct {
	cleanupTasks []func() error
}

// Init bootstraps configuration, logger, database connections and the
// vector search core required by the Beego application.
func Init() (*App, error) {
	// Load environment variables from .env if present (non-fatal if missing).
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	if err := logger.InitLogger(); err != nil {
		return nil, err
	}

	if err := config.LoadConfig(); err != nil {
		return nil, err
	}

	container, err := di.BuildContainer()
	if err != nil {
		return nil, err
	}

	app := &App{}
	app.cleanupTasks = append(app.cleanupTasks, database.CloseDB, database.CloseRedis, func() error {
		logger.Sync()
		return nil
	})

	// 装配服务并在启动期建齐全部向量集合（幂等）
	err = container.Invoke(func(
		orchestrator *vector.Orchestrator,
		search *services.SearchService,
		recommendation *services.RecommendationService,
		indexing *services.IndexingService,
	) error {
		services.SetServices(search, recommendation, indexing)

		if err := orchestrator.EnsureCollections(context.Background()); err != nil {
			// 向量索引暂不可用不阻塞启动，检索路径会按Ready()降级
			logger.Warn("failed to ensure vector collections at startup", zap.Error(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("application bootstrapped",
		zap.String("vector_store", config.AppConfig.VectorStore.Provider),
		zap.String("embedding_provider", config.AppConfig.Embedding.Provider))
	return app, nil
}

// Shutdown runs all registered cleanup tasks in reverse order.
func (a *App) Shutdown() {
	for i := len(a.cleanupTasks) - 1; i >= 0; i-- {
		if err := a.cleanupTasks[i](); err != nil {
			log.Printf("cleanup task failed: %v", err)
		}
	}
}
