package vector

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/pimhub/backend-go/internal/errors"
	"github.com/pimhub/backend-go/internal/logger"
)

// Query 检索请求：自由文本或现成向量二选一。
// 直接给向量时跳过重新嵌入，节省一次后端调用
type Query struct {
	Text        string
	Vector      []float32
	Limit       int
	MinScore    float64
	WithPayload bool
}

// RankedHit 跨集合合并后的命中结果
type RankedHit struct {
	ID         string                 `json:"id"`
	Collection string                 `json:"collection"`
	Score      float64                `json:"score"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}

// Result 检索结果。部分集合失败不会让整个请求失败，
// Failed记录失败集合及原因，命中来自成功的集合
type Result struct {
	Hits   []RankedHit       `json:"hits"`
	Failed map[string]string `json:"failed,omitempty"`
}

// Orchestrator 检索编排器：生成/接收查询向量，并发扇出到全部
// 注册集合，合并为全局有序结果后截断
type Orchestrator struct {
	store       Store
	embedder    Embedder
	collections []Collection
	callTimeout time.Duration
}

// NewOrchestrator 创建检索编排器
func NewOrchestrator(store Store, embedder Embedder, collections []Collection, callTimeout time.Duration) *Orchestrator {
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	return &Orchestrator{
		store:       store,
		embedder:    embedder,
		collections: collections,
		callTimeout: callTimeout,
	}
}

// Collections 返回注册的集合
func (o *Orchestrator) Collections() []Collection {
	return o.collections
}

// EnsureCollections 服务启动时建齐全部集合（幂等）
func (o *Orchestrator) EnsureCollections(ctx context.Context) error {
	for _, c := range o.collections {
		callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
		err := o.store.EnsureCollection(callCtx, c.Name, c.Dimension)
		cancel()
		if err != nil {
			return err
		}
	}
	return nil
}

// Search 执行检索。自由文本先嵌入成查询向量；
// 扇出采用结构化并发：每个集合一个goroutine，全部join后收集
// (collection, result) 对，单个集合失败只降级不中断
func (o *Orchestrator) Search(ctx context.Context, query Query) (*Result, error) {
	if query.Limit <= 0 {
		query.Limit = DefaultSearchLimit
	}

	queryVector := query.Vector
	if len(queryVector) == 0 {
		if query.Text == "" {
			return nil, apperrors.NewValidationError("query text or vector is required")
		}
		embedCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
		vec, err := o.embedder.Embed(embedCtx, query.Text)
		cancel()
		if err != nil {
			return nil, err
		}
		queryVector = vec
	}

	type fanoutResult struct {
		collection string
		hits       []Hit
		err        error
	}

	results := make([]fanoutResult, len(o.collections))
	var wg sync.WaitGroup
	for i, c := range o.collections {
		wg.Add(1)
		go func(idx int, coll Collection) {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
			defer cancel()
			hits, err := o.store.Search(callCtx, SearchRequest{
				Collection:  coll.Name,
				Vector:      queryVector,
				Limit:       query.Limit,
				WithPayload: query.WithPayload,
			})
			results[idx] = fanoutResult{collection: coll.Name, hits: hits, err: err}
		}(i, c)
	}
	wg.Wait()

	merged := make([]RankedHit, 0, query.Limit*len(o.collections))
	failed := make(map[string]string)
	for _, r := range results {
		if r.err != nil {
			logger.Warn("collection search failed",
				zap.String("collection", r.collection), zap.Error(r.err))
			failed[r.collection] = r.err.Error()
			continue
		}
		for _, h := range r.hits {
			if query.MinScore > 0 && h.Score < query.MinScore {
				continue
			}
			merged = append(merged, RankedHit{
				ID:         h.ID,
				Collection: r.collection,
				Score:      h.Score,
				Payload:    h.Payload,
			})
		}
	}

	if len(failed) == len(o.collections) && len(o.collections) > 0 {
		// 全部集合失败才算整体失败
		return nil, apperrors.NewVectorStoreError("search", nil).
			WithDetails(failed)
	}

	sortRankedHits(merged)
	if len(merged) > query.Limit {
		merged = merged[:query.Limit]
	}

	result := &Result{Hits: merged}
	if len(failed) > 0 {
		result.Failed = failed
	}
	return result, nil
}

// sortRankedHits 全局排序：分数降序，平分时按ID、集合名升序保证确定性
func sortRankedHits(hits []RankedHit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].ID != hits[j].ID {
			return hits[i].ID < hits[j].ID
		}
		return hits[i].Collection < hits[j].Collection
	})
}
