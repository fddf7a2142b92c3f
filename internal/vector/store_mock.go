package vector

import (
	"context"
	"fmt"
	"sync"

	apperrors "github.com/pimhub/backend-go/internal/errors"
)

// mockStore 无IO的占位实现，满足与真实存储相同的契约。
// 未配置向量索引的环境（如自动化测试）使用它跑通完整链路：
// Search返回稳定的非空默认结果集，调用方可以对结果形状断言
type mockStore struct {
	mu          sync.Mutex
	collections map[string]int
	upserts     int
	deletes     int
}

// NewMockStore 创建mock向量存储
func NewMockStore() Store {
	return &mockStore{
		collections: make(map[string]int),
	}
}

func (s *mockStore) EnsureCollection(ctx context.Context, name string, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.collections[name]; ok {
		if existing != dimension {
			return apperrors.NewDimensionMismatchError(existing, dimension)
		}
		return nil
	}
	s.collections[name] = dimension
	return nil
}

func (s *mockStore) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return apperrors.NewValidationError("points cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if dim, ok := s.collections[collection]; ok {
		for _, p := range points {
			if len(p.Vector) != dim {
				return apperrors.NewDimensionMismatchError(dim, len(p.Vector))
			}
		}
	}
	s.upserts += len(points)
	return nil
}

func (s *mockStore) Delete(ctx context.Context, collection string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	return nil
}

// Search 返回固定的默认结果集，分数降序
func (s *mockStore) Search(ctx context.Context, req SearchRequest) ([]Hit, error) {
	if len(req.Vector) == 0 {
		return nil, apperrors.NewValidationError("query vector cannot be empty")
	}
	if req.Limit <= 0 {
		req.Limit = DefaultSearchLimit
	}

	hits := []Hit{
		{ID: fmt.Sprintf("%s-mock-1", req.Collection), Score: 0.95},
		{ID: fmt.Sprintf("%s-mock-2", req.Collection), Score: 0.80},
		{ID: fmt.Sprintf("%s-mock-3", req.Collection), Score: 0.60},
	}
	if req.WithPayload {
		for i := range hits {
			hits[i].Payload = map[string]interface{}{"collection": req.Collection}
		}
	}
	if len(hits) > req.Limit {
		hits = hits[:req.Limit]
	}
	return hits, nil
}

func (s *mockStore) Ready() bool {
	return true
}
