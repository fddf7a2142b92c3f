package vector

import (
	"context"
	"sync"

	apperrors "github.com/pimhub/backend-go/internal/errors"
)

// memoryStore 进程内精确向量存储。
// 不做近似索引，检索时对集合内全部点计算余弦相似度，
// 用于本地开发与自动化测试
type memoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
	guard       *dimensionGuard
}

type memoryCollection struct {
	dimension int
	points    map[string]Point
}

// NewMemoryStore 创建内存向量存储
func NewMemoryStore() Store {
	return &memoryStore{
		collections: make(map[string]*memoryCollection),
		guard:       newDimensionGuard(),
	}
}

func (s *memoryStore) EnsureCollection(ctx context.Context, name string, dimension int) error {
	ready, err := s.guard.beginEnsure(name, dimension)
	if err != nil {
		return err
	}
	if ready {
		return nil
	}

	s.mu.Lock()
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = &memoryCollection{
			dimension: dimension,
			points:    make(map[string]Point),
		}
	}
	s.mu.Unlock()

	s.guard.markReady(name)
	return nil
}

func (s *memoryStore) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return apperrors.NewValidationError("points cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[collection]
	if !ok {
		return apperrors.NewNotFoundError("collection " + collection)
	}
	for _, p := range points {
		if len(p.Vector) != coll.dimension {
			return apperrors.NewDimensionMismatchError(coll.dimension, len(p.Vector))
		}
	}
	for _, p := range points {
		vec := make([]float32, len(p.Vector))
		copy(vec, p.Vector)
		p.Vector = vec
		coll.points[p.ID] = p
	}
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, collection string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if coll, ok := s.collections[collection]; ok {
		delete(coll.points, id)
	}
	return nil
}

func (s *memoryStore) Search(ctx context.Context, req SearchRequest) ([]Hit, error) {
	if len(req.Vector) == 0 {
		return nil, apperrors.NewValidationError("query vector cannot be empty")
	}
	if req.Limit <= 0 {
		req.Limit = DefaultSearchLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[req.Collection]
	if !ok {
		return []Hit{}, nil
	}
	if len(req.Vector) != coll.dimension {
		return nil, apperrors.NewDimensionMismatchError(coll.dimension, len(req.Vector))
	}

	hits := make([]Hit, 0, len(coll.points))
	for _, p := range coll.points {
		score, err := Cosine(req.Vector, p.Vector)
		if err != nil {
			return nil, err
		}
		hit := Hit{ID: p.ID, Score: score}
		if req.WithPayload {
			hit.Payload = p.Payload
		}
		hits = append(hits, hit)
	}

	return TopK(hits, req.Limit, 0), nil
}

func (s *memoryStore) Ready() bool {
	return true
}
