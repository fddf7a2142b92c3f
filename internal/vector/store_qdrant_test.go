package vector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/pimhub/backend-go/internal/errors"
)

// qdrantFake 记录请求的极简Qdrant接口桩
type qdrantFake struct {
	mu          sync.Mutex
	collections map[string]bool
	upserts     []map[string]interface{}
	deleted     []string
	searchHits  []map[string]interface{}
	searchFails int
}

func newQdrantFake() *qdrantFake {
	return &qdrantFake{collections: make(map[string]bool)}
}

func (f *qdrantFake) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/collections/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		path := r.URL.Path
		switch {
		case r.Method == http.MethodGet:
			name := path[len("/collections/"):]
			if f.collections[name] {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(`{"result":{"status":"green"}}`))
				return
			}
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPut && !strings.HasSuffix(path, "/points"):
			name := path[len("/collections/"):]
			var body map[string]interface{}
			json.NewDecoder(r.Body).Decode(&body)
			vectors, _ := body["vectors"].(map[string]interface{})
			if vectors["distance"] != "Cosine" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			f.collections[name] = true
			w.Write([]byte(`{"result":true}`))
		case r.Method == http.MethodPut && strings.HasSuffix(path, "/points"):
			var body struct {
				Points []map[string]interface{} `json:"points"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			f.upserts = append(f.upserts, body.Points...)
			w.Write([]byte(`{"result":{"status":"acknowledged"}}`))
		case r.Method == http.MethodPost && strings.HasSuffix(path, "/points/delete"):
			var body struct {
				Points []string `json:"points"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			f.deleted = append(f.deleted, body.Points...)
			w.Write([]byte(`{"result":{"status":"acknowledged"}}`))
		case r.Method == http.MethodPost && strings.HasSuffix(path, "/points/search"):
			if f.searchFails > 0 {
				f.searchFails--
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			resp := map[string]interface{}{"result": f.searchHits}
			json.NewEncoder(w).Encode(resp)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	return mux
}

func newFakeQdrantStore(t *testing.T, fake *qdrantFake) Store {
	t.Helper()
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	store, err := NewQdrantStore(QdrantOptions{
		Endpoint: server.URL,
		Timeout:  time.Second,
		Retry:    RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond},
	})
	require.NoError(t, err)
	return store
}

func TestQdrantEnsureCollectionCreatesOnce(t *testing.T) {
	fake := newQdrantFake()
	store := newFakeQdrantStore(t, fake)
	ctx := context.Background()

	require.NoError(t, store.EnsureCollection(ctx, "products", 3))
	require.NoError(t, store.EnsureCollection(ctx, "products", 3))
	assert.True(t, fake.collections["products"])

	err := store.EnsureCollection(ctx, "products", 8)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDimensionMismatch))
}

func TestQdrantUpsertWireFormat(t *testing.T) {
	fake := newQdrantFake()
	store := newFakeQdrantStore(t, fake)
	ctx := context.Background()

	require.NoError(t, store.EnsureCollection(ctx, "products", 2))
	require.NoError(t, store.Upsert(ctx, "products", []Point{
		{ID: "p1", Vector: []float32{1, 0}, Payload: map[string]interface{}{"name": "toner"}},
	}))

	require.Len(t, fake.upserts, 1)
	assert.Equal(t, "p1", fake.upserts[0]["id"])
	payload, _ := fake.upserts[0]["payload"].(map[string]interface{})
	assert.Equal(t, "toner", payload["name"])
}

func TestQdrantUpsertDimensionGuard(t *testing.T) {
	fake := newQdrantFake()
	store := newFakeQdrantStore(t, fake)
	ctx := context.Background()

	require.NoError(t, store.EnsureCollection(ctx, "products", 3))
	err := store.Upsert(ctx, "products", []Point{{ID: "p1", Vector: []float32{1, 0}}})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDimensionMismatch))
	// 维度校验在发请求前完成
	assert.Empty(t, fake.upserts)
}

func TestQdrantSearchParsesHits(t *testing.T) {
	fake := newQdrantFake()
	fake.searchHits = []map[string]interface{}{
		{"id": "p1", "score": 0.97, "payload": map[string]interface{}{"name": "toner"}},
		{"id": float64(42), "score": 0.55},
	}
	store := newFakeQdrantStore(t, fake)
	ctx := context.Background()

	require.NoError(t, store.EnsureCollection(ctx, "products", 2))
	hits, err := store.Search(ctx, SearchRequest{
		Collection:  "products",
		Vector:      []float32{1, 0},
		Limit:       10,
		WithPayload: true,
	})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "p1", hits[0].ID)
	assert.InDelta(t, 0.97, hits[0].Score, 1e-9)
	assert.Equal(t, "toner", hits[0].Payload["name"])
	// 数字ID转为字符串
	assert.Equal(t, "42", hits[1].ID)
}

func TestQdrantSearchRetriesTransientFailure(t *testing.T) {
	fake := newQdrantFake()
	fake.searchFails = 2
	fake.searchHits = []map[string]interface{}{{"id": "p1", "score": 1.0}}
	store := newFakeQdrantStore(t, fake)
	ctx := context.Background()

	require.NoError(t, store.EnsureCollection(ctx, "products", 2))
	hits, err := store.Search(ctx, SearchRequest{Collection: "products", Vector: []float32{1, 0}})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "p1", hits[0].ID)
}

func TestQdrantDelete(t *testing.T) {
	fake := newQdrantFake()
	store := newFakeQdrantStore(t, fake)

	require.NoError(t, store.Delete(context.Background(), "products", "p1"))
	assert.Equal(t, []string{"p1"}, fake.deleted)
}
