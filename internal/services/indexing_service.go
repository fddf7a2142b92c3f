package services

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/pimhub/backend-go/internal/errors"
	"github.com/pimhub/backend-go/internal/logger"
	"github.com/pimhub/backend-go/internal/metrics"
	"github.com/pimhub/backend-go/internal/models"
	"github.com/pimhub/backend-go/internal/vector"
)

// 集合名集中定义，索引与检索路径共用
const (
	CollectionProducts    = "products"
	CollectionIngredients = "ingredients"
)

// IndexingService 负责实体内容变更后的嵌入重建与索引维护。
// 嵌入从不原地修改：内容变化产生全新向量，通过upsert整体替换旧向量
type IndexingService struct {
	db       *gorm.DB
	embedder vector.Embedder
	store    vector.Store
}

// NewIndexingService 创建索引服务
func NewIndexingService(db *gorm.DB, embedder vector.Embedder, store vector.Store) *IndexingService {
	return &IndexingService{
		db:       db,
		embedder: embedder,
		store:    store,
	}
}

// productCanonicalText 商品的规范化文本
func productCanonicalText(p *models.Product) string {
	return vector.BuildCanonicalText(vector.CanonicalFields{
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Ingredients: p.IngredientNames(),
		Claims:      p.ClaimList(),
		Notes:       []string{p.Notes},
	})
}

// ingredientCanonicalText 配料的规范化文本
func ingredientCanonicalText(i *models.Ingredient) string {
	return vector.BuildCanonicalText(vector.CanonicalFields{
		Name:     i.Name,
		Category: i.Function,
		Notes:    []string{i.Notes},
	})
}

// ReindexProduct 重建单个商品的嵌入：生成新向量，upsert进向量索引，
// 并把嵌入写回关系库的embedding列供精确回退查询使用
func (s *IndexingService) ReindexProduct(ctx context.Context, entityID string) error {
	var product models.Product
	err := s.db.WithContext(ctx).Preload("Ingredients").
		Where("entity_id = ?", entityID).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewNotFoundError("product " + entityID)
		}
		return apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to load product").WithCause(err)
	}

	embedding, err := s.embedder.Embed(ctx, productCanonicalText(&product))
	if err != nil {
		metrics.UpsertTotal.WithLabelValues("error").Inc()
		return err
	}

	if err := s.upsertEntity(ctx, CollectionProducts, product.EntityID, product.Name, embedding); err != nil {
		return err
	}

	product.SetEmbeddingVector(embedding)
	err = s.db.WithContext(ctx).Model(&models.Product{}).
		Where("entity_id = ?", entityID).
		Update("embedding", product.Embedding).Error
	if err != nil {
		return apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to persist embedding").WithCause(err)
	}

	logger.Info("product reindexed", zap.String("entityID", entityID))
	return nil
}

// ReindexAllProducts 批量重建全部商品嵌入。
// 整批文本一次提交给嵌入后端，返回顺序与商品顺序一致
func (s *IndexingService) ReindexAllProducts(ctx context.Context) (int, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).Preload("Ingredients").Find(&products).Error; err != nil {
		return 0, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to load products").WithCause(err)
	}
	if len(products) == 0 {
		return 0, nil
	}

	texts := make([]string, len(products))
	for i := range products {
		texts[i] = productCanonicalText(&products[i])
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, err
	}

	if err := s.store.EnsureCollection(ctx, CollectionProducts, s.embedder.Dimensions()); err != nil {
		return 0, err
	}

	points := make([]vector.Point, len(products))
	for i := range products {
		points[i] = vector.Point{
			ID:     products[i].EntityID,
			Vector: embeddings[i],
			Payload: map[string]interface{}{
				"name":     products[i].Name,
				"category": products[i].Category,
			},
		}
	}
	if err := s.store.Upsert(ctx, CollectionProducts, points); err != nil {
		metrics.UpsertTotal.WithLabelValues("error").Inc()
		return 0, err
	}
	metrics.UpsertTotal.WithLabelValues("ok").Add(float64(len(points)))

	for i := range products {
		products[i].SetEmbeddingVector(embeddings[i])
		err := s.db.WithContext(ctx).Model(&models.Product{}).
			Where("entity_id = ?", products[i].EntityID).
			Update("embedding", products[i].Embedding).Error
		if err != nil {
			return 0, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to persist embedding").WithCause(err)
		}
	}

	logger.Info("all products reindexed", zap.Int("count", len(products)))
	return len(products), nil
}

// ReindexIngredient 重建单个配料的嵌入
func (s *IndexingService) ReindexIngredient(ctx context.Context, entityID string) error {
	var ingredient models.Ingredient
	err := s.db.WithContext(ctx).Where("entity_id = ?", entityID).First(&ingredient).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewNotFoundError("ingredient " + entityID)
		}
		return apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to load ingredient").WithCause(err)
	}

	embedding, err := s.embedder.Embed(ctx, ingredientCanonicalText(&ingredient))
	if err != nil {
		metrics.UpsertTotal.WithLabelValues("error").Inc()
		return err
	}

	if err := s.upsertEntity(ctx, CollectionIngredients, ingredient.EntityID, ingredient.Name, embedding); err != nil {
		return err
	}

	ingredient.SetEmbeddingVector(embedding)
	err = s.db.WithContext(ctx).Model(&models.Ingredient{}).
		Where("entity_id = ?", entityID).
		Update("embedding", ingredient.Embedding).Error
	if err != nil {
		return apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to persist embedding").WithCause(err)
	}
	return nil
}

// RemoveEntity 实体删除后清理对应的向量点
func (s *IndexingService) RemoveEntity(ctx context.Context, collection, entityID string) error {
	return s.store.Delete(ctx, collection, entityID)
}

func (s *IndexingService) upsertEntity(ctx context.Context, collection, entityID, name string, embedding []float32) error {
	if err := s.store.EnsureCollection(ctx, collection, s.embedder.Dimensions()); err != nil {
		return err
	}
	err := s.store.Upsert(ctx, collection, []vector.Point{{
		ID:     entityID,
		Vector: embedding,
		Payload: map[string]interface{}{
			"name": name,
		},
	}})
	if err != nil {
		metrics.UpsertTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.UpsertTotal.WithLabelValues("ok").Inc()
	return nil
}
