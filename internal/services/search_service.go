package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/pimhub/backend-go/internal/errors"
	"github.com/pimhub/backend-go/internal/logger"
	"github.com/pimhub/backend-go/internal/metrics"
	"github.com/pimhub/backend-go/internal/vector"
)

// SearchService 检索服务，对外暴露REST形态的search契约
type SearchService struct {
	orchestrator *vector.Orchestrator
	defaultLimit int
	minScore     float64
}

// SearchResponse 检索响应。PartialFailures标出失败的集合，
// 部分失败时仍返回成功集合的命中
type SearchResponse struct {
	Results         []vector.RankedHit `json:"results"`
	PartialFailures map[string]string  `json:"partialFailures,omitempty"`
}

// NewSearchService 创建检索服务
func NewSearchService(orchestrator *vector.Orchestrator, defaultLimit int, minScore float64) *SearchService {
	if defaultLimit <= 0 {
		defaultLimit = vector.DefaultSearchLimit
	}
	return &SearchService{
		orchestrator: orchestrator,
		defaultLimit: defaultLimit,
		minScore:     minScore,
	}
}

// Search 自由文本检索，扇出到全部注册集合
func (s *SearchService) Search(ctx context.Context, query string, limit int) (*SearchResponse, error) {
	if query == "" {
		return nil, apperrors.NewValidationError("query cannot be empty")
	}
	if limit < 0 {
		return nil, apperrors.NewValidationError("limit must be positive")
	}
	if limit == 0 {
		limit = s.defaultLimit
	}

	return s.run(ctx, vector.Query{
		Text:        query,
		Limit:       limit,
		MinScore:    s.minScore,
		WithPayload: true,
	})
}

// SearchByVector 直接用现成向量检索，跳过重新嵌入
func (s *SearchService) SearchByVector(ctx context.Context, queryVector []float32, limit int) (*SearchResponse, error) {
	if len(queryVector) == 0 {
		return nil, apperrors.NewValidationError("query vector cannot be empty")
	}
	if limit < 0 {
		return nil, apperrors.NewValidationError("limit must be positive")
	}
	if limit == 0 {
		limit = s.defaultLimit
	}

	return s.run(ctx, vector.Query{
		Vector:      queryVector,
		Limit:       limit,
		MinScore:    s.minScore,
		WithPayload: true,
	})
}

func (s *SearchService) run(ctx context.Context, query vector.Query) (*SearchResponse, error) {
	start := time.Now()
	result, err := s.orchestrator.Search(ctx, query)
	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SearchTotal.WithLabelValues("error").Inc()
		logger.Error("search failed", zap.Error(err))
		return nil, err
	}

	for collection := range result.Failed {
		metrics.CollectionFailures.WithLabelValues(collection).Inc()
	}
	if len(result.Failed) > 0 {
		metrics.SearchTotal.WithLabelValues("partial").Inc()
	} else {
		metrics.SearchTotal.WithLabelValues("ok").Inc()
	}

	return &SearchResponse{
		Results:         result.Hits,
		PartialFailures: result.Failed,
	}, nil
}
