package vector

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	apperrors "github.com/pimhub/backend-go/internal/errors"
)

// databaseStore 基于关系库embedding列的退化向量存储。
// 没有可用的ANN索引时走精确相似度扫描：按集合取出候选行，
// 在进程内计算余弦相似度后排序。候选量有上限，只适合中小数据集
type databaseStore struct {
	db *gorm.DB
	// 集合名到表名的映射，表需要有 entity_id/name/embedding 列
	tables         map[string]string
	candidateLimit int
	guard          *dimensionGuard
}

// NewDatabaseStore 创建数据库退化向量存储
func NewDatabaseStore(db *gorm.DB, tables map[string]string) Store {
	if tables == nil {
		tables = map[string]string{
			"products":    "products",
			"ingredients": "ingredients",
		}
	}
	return &databaseStore{
		db:             db,
		tables:         tables,
		candidateLimit: DefaultCandidateLimit,
		guard:          newDimensionGuard(),
	}
}

func (s *databaseStore) tableFor(collection string) (string, error) {
	table, ok := s.tables[collection]
	if !ok {
		return "", apperrors.NewNotFoundError("collection " + collection)
	}
	return table, nil
}

// EnsureCollection 集合即关系表，这里只登记维度做客户端校验
func (s *databaseStore) EnsureCollection(ctx context.Context, name string, dimension int) error {
	if _, err := s.tableFor(name); err != nil {
		return err
	}
	ready, err := s.guard.beginEnsure(name, dimension)
	if err != nil {
		return err
	}
	if !ready {
		s.guard.markReady(name)
	}
	return nil
}

// Upsert 把嵌入写回实体行的embedding列
func (s *databaseStore) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return apperrors.NewValidationError("points cannot be empty")
	}
	table, err := s.tableFor(collection)
	if err != nil {
		return err
	}

	for _, p := range points {
		if err := s.guard.check(collection, len(p.Vector)); err != nil {
			return err
		}
		raw, err := json.Marshal(p.Vector)
		if err != nil {
			return apperrors.NewVectorStoreError("upsert", err)
		}
		err = s.db.WithContext(ctx).Table(table).
			Where("entity_id = ?", p.ID).
			Update("embedding", string(raw)).Error
		if err != nil {
			return apperrors.NewVectorStoreError("upsert", err)
		}
	}
	return nil
}

// Delete 清空实体行的embedding列，不存在的ID不算错误
func (s *databaseStore) Delete(ctx context.Context, collection string, id string) error {
	table, err := s.tableFor(collection)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Table(table).
		Where("entity_id = ?", id).
		Update("embedding", "").Error
	if err != nil {
		return apperrors.NewVectorStoreError("delete", err)
	}
	return nil
}

type embeddingRow struct {
	EntityID      string `gorm:"column:entity_id"`
	Name          string `gorm:"column:name"`
	EmbeddingJSON string `gorm:"column:embedding"`
}

// Search 精确相似度扫描
func (s *databaseStore) Search(ctx context.Context, req SearchRequest) ([]Hit, error) {
	if len(req.Vector) == 0 {
		return nil, apperrors.NewValidationError("query vector cannot be empty")
	}
	if err := s.guard.check(req.Collection, len(req.Vector)); err != nil {
		return nil, err
	}
	if req.Limit <= 0 {
		req.Limit = DefaultSearchLimit
	}
	table, err := s.tableFor(req.Collection)
	if err != nil {
		return nil, err
	}

	var rows []embeddingRow
	err = s.db.WithContext(ctx).Table(table).
		Select("entity_id, name, embedding").
		Where("embedding IS NOT NULL AND embedding <> ''").
		Limit(s.candidateLimit).
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.NewVectorStoreError("search", err)
	}

	hits := make([]Hit, 0, len(rows))
	for _, row := range rows {
		var embedding []float32
		if err := json.Unmarshal([]byte(row.EmbeddingJSON), &embedding); err != nil {
			continue
		}
		if len(embedding) != len(req.Vector) {
			// 模型切换后遗留的旧维度嵌入，跳过并等待重建索引
			continue
		}
		score, err := Cosine(req.Vector, embedding)
		if err != nil {
			continue
		}
		hit := Hit{ID: row.EntityID, Score: score}
		if req.WithPayload {
			hit.Payload = map[string]interface{}{"name": row.Name}
		}
		hits = append(hits, hit)
	}

	return TopK(hits, req.Limit, 0), nil
}

func (s *databaseStore) Ready() bool {
	return s.db != nil
}
