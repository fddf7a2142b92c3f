package vector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/pimhub/backend-go/internal/errors"
)

// flakyStore 对指定集合的检索强制失败，其余委托给内层存储
type flakyStore struct {
	Store
	failCollections map[string]bool
}

func (s *flakyStore) Search(ctx context.Context, req SearchRequest) ([]Hit, error) {
	if s.failCollections[req.Collection] {
		return nil, apperrors.NewVectorStoreError("search", nil)
	}
	return s.Store.Search(ctx, req)
}

func newTestOrchestrator(t *testing.T, store Store) *Orchestrator {
	t.Helper()
	collections := []Collection{
		{Name: "products", Dimension: 3},
		{Name: "ingredients", Dimension: 3},
	}
	orch := NewOrchestrator(store, NewHashEmbedder(3), collections, time.Second)
	require.NoError(t, orch.EnsureCollections(context.Background()))
	return orch
}

func seedTestPoints(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, "products", []Point{
		{ID: "p1", Vector: []float32{1, 0, 0}},
		{ID: "p2", Vector: []float32{0.6, 0.8, 0}},
	}))
	require.NoError(t, store.Upsert(ctx, "ingredients", []Point{
		{ID: "i1", Vector: []float32{0.8, 0.6, 0}},
	}))
}

func TestOrchestratorSearchMergesCollections(t *testing.T) {
	store := NewMemoryStore()
	orch := newTestOrchestrator(t, store)
	seedTestPoints(t, store)

	result, err := orch.Search(context.Background(), Query{
		Vector: []float32{1, 0, 0},
		Limit:  10,
	})
	require.NoError(t, err)
	require.Len(t, result.Hits, 3)
	assert.Empty(t, result.Failed)

	// 全局按分数降序，跨集合合并
	assert.Equal(t, "p1", result.Hits[0].ID)
	assert.Equal(t, "products", result.Hits[0].Collection)
	for i := 1; i < len(result.Hits); i++ {
		assert.GreaterOrEqual(t, result.Hits[i-1].Score, result.Hits[i].Score)
	}
}

func TestOrchestratorSearchPartialFailure(t *testing.T) {
	inner := NewMemoryStore()
	store := &flakyStore{Store: inner, failCollections: map[string]bool{"ingredients": true}}
	orch := newTestOrchestrator(t, store)
	seedTestPoints(t, inner)

	result, err := orch.Search(context.Background(), Query{Vector: []float32{1, 0, 0}})
	require.NoError(t, err)

	// 失败集合被标记，命中仅来自成功的集合
	require.Contains(t, result.Failed, "ingredients")
	require.Len(t, result.Hits, 2)
	for _, h := range result.Hits {
		assert.Equal(t, "products", h.Collection)
	}
}

func TestOrchestratorSearchAllCollectionsFailed(t *testing.T) {
	inner := NewMemoryStore()
	store := &flakyStore{Store: inner, failCollections: map[string]bool{
		"products":    true,
		"ingredients": true,
	}}
	orch := newTestOrchestrator(t, store)

	_, err := orch.Search(context.Background(), Query{Vector: []float32{1, 0, 0}})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeVectorStore))
}

func TestOrchestratorSearchRequiresTextOrVector(t *testing.T) {
	orch := newTestOrchestrator(t, NewMemoryStore())

	_, err := orch.Search(context.Background(), Query{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidationFailed))
}

func TestOrchestratorSearchEmbedsText(t *testing.T) {
	store := NewMemoryStore()
	orch := newTestOrchestrator(t, store)

	embedder := NewHashEmbedder(3)
	vec, err := embedder.Embed(context.Background(), "hydrating toner")
	require.NoError(t, err)
	require.NoError(t, store.Upsert(context.Background(), "products", []Point{
		{ID: "p1", Vector: vec},
	}))

	result, err := orch.Search(context.Background(), Query{Text: "hydrating toner", Limit: 1})
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "p1", result.Hits[0].ID)
	assert.InDelta(t, 1.0, result.Hits[0].Score, 1e-6)
}

func TestOrchestratorSearchMinScore(t *testing.T) {
	store := NewMemoryStore()
	orch := newTestOrchestrator(t, store)
	seedTestPoints(t, store)

	result, err := orch.Search(context.Background(), Query{
		Vector:   []float32{1, 0, 0},
		MinScore: 0.95,
	})
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "p1", result.Hits[0].ID)
}

func TestOrchestratorSearchHonorsLimit(t *testing.T) {
	store := NewMemoryStore()
	orch := newTestOrchestrator(t, store)
	seedTestPoints(t, store)

	result, err := orch.Search(context.Background(), Query{Vector: []float32{1, 0, 0}, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, result.Hits, 2)
}
