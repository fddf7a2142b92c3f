package services

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/pimhub/backend-go/internal/errors"
	"github.com/pimhub/backend-go/internal/logger"
	"github.com/pimhub/backend-go/internal/models"
	"github.com/pimhub/backend-go/internal/vector"
)

// RecommendationService 相似商品推荐。
// 候选集优先走向量索引召回，索引不可用时回退为关系库中
// 已存嵌入的精确对比，两条路径共用同一套聚合与排序逻辑
type RecommendationService struct {
	db    *gorm.DB
	store vector.Store
}

// NewRecommendationService 创建推荐服务
func NewRecommendationService(db *gorm.DB, store vector.Store) *RecommendationService {
	return &RecommendationService{
		db:    db,
		store: store,
	}
}

// SimilarProducts 返回与指定商品最相似的商品列表，
// 带相似度分数、分层和命中的配料证据。
// threshold > 0 时丢弃低于该相似度的结果
func (s *RecommendationService) SimilarProducts(ctx context.Context, entityID string, limit int, threshold float64) ([]vector.RecommendationItem, error) {
	if limit < 0 {
		return nil, apperrors.NewValidationError("limit must be positive")
	}
	if limit == 0 {
		limit = vector.DefaultSearchLimit
	}

	var source models.Product
	err := s.db.WithContext(ctx).Preload("Ingredients").
		Where("entity_id = ?", entityID).First(&source).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("product " + entityID)
		}
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to load product").WithCause(err)
	}

	sourceVector := source.EmbeddingVector()
	if len(sourceVector) == 0 {
		return nil, apperrors.NewEmbeddingMissingError(entityID)
	}

	candidates, err := s.loadCandidates(ctx, &source, sourceVector, limit)
	if err != nil {
		return nil, err
	}

	items, err := vector.Aggregate(vector.Entity{
		ID:          source.EntityID,
		Name:        source.Name,
		Embedding:   sourceVector,
		Ingredients: source.IngredientNames(),
	}, candidates)
	if err != nil {
		return nil, err
	}

	if threshold > 0 {
		filtered := items[:0]
		for _, item := range items {
			if item.SimilarityScore >= threshold {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// loadCandidates 取推荐候选。向量索引可用时先做ANN召回，
// 再按命中ID回查实体；否则扫描已存嵌入的商品做精确对比
func (s *RecommendationService) loadCandidates(ctx context.Context, source *models.Product, sourceVector []float32, limit int) ([]vector.Entity, error) {
	if s.store != nil && s.store.Ready() {
		hits, err := s.store.Search(ctx, vector.SearchRequest{
			Collection: CollectionProducts,
			Vector:     sourceVector,
			// 多取一些候选，聚合阶段还会过滤掉源实体自身
			Limit: limit*3 + 1,
		})
		if err == nil {
			return s.candidatesByIDs(ctx, source.EntityID, hits)
		}
		logger.Warn("vector search unavailable, falling back to exact scan",
			zap.String("entityID", source.EntityID), zap.Error(err))
	}

	return s.candidatesByScan(ctx, source.EntityID)
}

func (s *RecommendationService) candidatesByIDs(ctx context.Context, sourceID string, hits []vector.Hit) ([]vector.Entity, error) {
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		if h.ID != sourceID {
			ids = append(ids, h.ID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var products []models.Product
	err := s.db.WithContext(ctx).Preload("Ingredients").
		Where("entity_id IN ?", ids).Find(&products).Error
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to load candidates").WithCause(err)
	}
	return toEntities(products), nil
}

func (s *RecommendationService) candidatesByScan(ctx context.Context, sourceID string) ([]vector.Entity, error) {
	var products []models.Product
	err := s.db.WithContext(ctx).Preload("Ingredients").
		Where("entity_id <> ?", sourceID).
		Where("embedding IS NOT NULL AND embedding <> ''").
		Limit(vector.DefaultCandidateLimit).
		Find(&products).Error
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to load candidates").WithCause(err)
	}
	return toEntities(products), nil
}

func toEntities(products []models.Product) []vector.Entity {
	entities := make([]vector.Entity, 0, len(products))
	for i := range products {
		entities = append(entities, vector.Entity{
			ID:          products[i].EntityID,
			Name:        products[i].Name,
			Embedding:   products[i].EmbeddingVector(),
			Ingredients: products[i].IngredientNames(),
		})
	}
	return entities
}
