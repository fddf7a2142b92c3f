package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	apperrors "github.com/pimhub/backend-go/internal/errors"
	"github.com/pimhub/backend-go/internal/logger"
)

// MilvusOptions Milvus客户端配置
type MilvusOptions struct {
	Address  string
	Username string
	Password string
	Database string
	UseTLS   bool
	Timeout  time.Duration
	Retry    RetryPolicy
}

// readyCheckInterval 就绪探测的缓存时长，探测结果在该窗口内复用
const readyCheckInterval = 30 * time.Second

type milvusStore struct {
	milvusClient client.Client
	guard        *dimensionGuard
	retry        RetryPolicy

	healthCheck func(ctx context.Context) error

	readyMu   sync.Mutex
	ready     bool
	lastCheck time.Time
}

// NewMilvusStore 创建Milvus向量存储
func NewMilvusStore(opts MilvusOptions) (Store, error) {
	if opts.Address == "" {
		opts.Address = "localhost:19530"
	}
	if opts.Database == "" {
		opts.Database = "default"
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = DefaultRetryPolicy()
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	milvusClient, err := client.NewClient(ctx, client.Config{
		Address:       opts.Address,
		DBName:        opts.Database,
		Username:      opts.Username,
		Password:      opts.Password,
		EnableTLSAuth: opts.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	store := &milvusStore{
		milvusClient: milvusClient,
		guard:        newDimensionGuard(),
		retry:        opts.Retry,
	}
	store.healthCheck = func(ctx context.Context) error {
		_, err := milvusClient.ListCollections(ctx)
		return err
	}
	return store, nil
}

// EnsureCollection 创建集合（幂等），距离度量固定为COSINE
func (s *milvusStore) EnsureCollection(ctx context.Context, name string, dimension int) error {
	ready, err := s.guard.beginEnsure(name, dimension)
	if err != nil {
		return err
	}
	if ready {
		return nil
	}

	err = s.retry.Do(ctx, func() error {
		hasCollection, err := s.milvusClient.HasCollection(ctx, name)
		if err != nil {
			return apperrors.NewVectorStoreError("ensure collection", err)
		}
		if hasCollection {
			return s.loadCollection(ctx, name)
		}

		schema := &entity.Schema{
			CollectionName: name,
			Fields: []*entity.Field{
				{
					Name:       "id",
					DataType:   entity.FieldTypeVarChar,
					PrimaryKey: true,
					AutoID:     false,
					TypeParams: map[string]string{
						"max_length": "128",
					},
				},
				{
					Name:     "payload",
					DataType: entity.FieldTypeVarChar,
					TypeParams: map[string]string{
						"max_length": "65535",
					},
				},
				{
					Name:     "vector",
					DataType: entity.FieldTypeFloatVector,
					TypeParams: map[string]string{
						"dim": fmt.Sprintf("%d", dimension),
					},
				},
			},
		}

		if err := s.milvusClient.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return apperrors.NewVectorStoreError("ensure collection", err)
		}

		index, indexErr := newVectorIndex()
		if indexErr != nil {
			return apperrors.NewVectorStoreError("ensure collection", indexErr)
		}
		if err := s.milvusClient.CreateIndex(ctx, name, "vector", index, false); err != nil {
			// 索引创建失败不影响使用，只记录警告
			logger.Warn(fmt.Sprintf("failed to create index for collection %s: %v", name, err))
		}

		return s.loadCollection(ctx, name)
	})
	if err != nil {
		s.guard.markFailed(name)
		return err
	}

	s.guard.markReady(name)
	return nil
}

// newVectorIndex 构建向量索引，优先HNSW，不可用时回退IvfFlat
func newVectorIndex() (entity.Index, error) {
	var index entity.Index
	var indexErr error
	index, indexErr = entity.NewIndexHNSW(entity.COSINE, 8, 64)
	if indexErr != nil {
		index, indexErr = entity.NewIndexIvfFlat(entity.COSINE, 128)
	}
	return index, indexErr
}

func (s *milvusStore) loadCollection(ctx context.Context, name string) error {
	if err := s.milvusClient.LoadCollection(ctx, name, false); err != nil {
		return apperrors.NewVectorStoreError("load collection", err)
	}
	return nil
}

// Upsert 按ID插入或替换，不重试（at-most-once）
func (s *milvusStore) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return apperrors.NewValidationError("points cannot be empty")
	}

	dim := s.guard.dimension(collection)
	ids := make([]string, 0, len(points))
	payloads := make([]string, 0, len(points))
	vectors := make([][]float32, 0, len(points))
	for _, p := range points {
		if err := s.guard.check(collection, len(p.Vector)); err != nil {
			return err
		}
		raw, err := json.Marshal(p.Payload)
		if err != nil {
			return apperrors.NewVectorStoreError("upsert", err)
		}
		ids = append(ids, p.ID)
		payloads = append(payloads, string(raw))
		vectors = append(vectors, p.Vector)
	}
	if dim == 0 && len(points) > 0 {
		dim = len(points[0].Vector)
	}

	idColumn := entity.NewColumnVarChar("id", ids)
	payloadColumn := entity.NewColumnVarChar("payload", payloads)
	vectorColumn := entity.NewColumnFloatVector("vector", dim, vectors)

	if _, err := s.milvusClient.Upsert(ctx, collection, "", idColumn, payloadColumn, vectorColumn); err != nil {
		return apperrors.NewVectorStoreError("upsert", err)
	}

	if err := s.milvusClient.Flush(ctx, collection, false); err != nil {
		// 刷新失败不影响写入，只记录警告
		logger.Warn(fmt.Sprintf("failed to flush collection %s: %v", collection, err))
	}
	return nil
}

// Delete 删除指定ID的点，ID不存在不算错误
func (s *milvusStore) Delete(ctx context.Context, collection string, id string) error {
	expr := fmt.Sprintf(`id == "%s"`, id)
	if err := s.milvusClient.Delete(ctx, collection, "", expr); err != nil {
		return apperrors.NewVectorStoreError("delete", err)
	}
	return nil
}

// Search 最近邻检索
func (s *milvusStore) Search(ctx context.Context, req SearchRequest) ([]Hit, error) {
	if len(req.Vector) == 0 {
		return nil, apperrors.NewValidationError("query vector cannot be empty")
	}
	if err := s.guard.check(req.Collection, len(req.Vector)); err != nil {
		return nil, err
	}
	if req.Limit <= 0 {
		req.Limit = DefaultSearchLimit
	}

	outputFields := []string{}
	if req.WithPayload {
		outputFields = append(outputFields, "payload")
	}

	var hits []Hit
	err := s.retry.Do(ctx, func() error {
		sp, _ := entity.NewIndexHNSWSearchParam(64)
		searchResults, err := s.milvusClient.Search(
			ctx,
			req.Collection,
			[]string{},
			"",
			outputFields,
			[]entity.Vector{entity.FloatVector(req.Vector)},
			"vector",
			entity.COSINE,
			req.Limit,
			sp,
		)
		if err != nil {
			return apperrors.NewVectorStoreError("search", err)
		}
		if len(searchResults) == 0 {
			hits = []Hit{}
			return nil
		}
		result := searchResults[0]
		if result.Err != nil {
			return apperrors.NewVectorStoreError("search", result.Err)
		}

		var ids []string
		if idCol, ok := result.IDs.(*entity.ColumnVarChar); ok {
			ids = idCol.Data()
		}
		var payloads []string
		for _, field := range result.Fields {
			if field.Name() == "payload" {
				if col, ok := field.(*entity.ColumnVarChar); ok {
					payloads = col.Data()
				}
			}
		}

		hits = make([]Hit, 0, result.ResultCount)
		for i := 0; i < result.ResultCount; i++ {
			hit := Hit{}
			if i < len(ids) {
				hit.ID = ids[i]
			}
			if i < len(result.Scores) {
				hit.Score = float64(result.Scores[i])
			}
			if req.WithPayload && i < len(payloads) && payloads[i] != "" {
				var payload map[string]interface{}
				if err := json.Unmarshal([]byte(payloads[i]), &payload); err == nil {
					hit.Payload = payload
				}
			}
			hits = append(hits, hit)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hits, nil
}

// Ready 就绪探测。结果在readyCheckInterval内缓存，
// 避免每个请求都打一次后端
func (s *milvusStore) Ready() bool {
	if s.healthCheck == nil {
		return false
	}

	s.readyMu.Lock()
	defer s.readyMu.Unlock()

	if !s.lastCheck.IsZero() && time.Since(s.lastCheck) < readyCheckInterval {
		return s.ready
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.ready = s.healthCheck(ctx) == nil
	s.lastCheck = time.Now()
	return s.ready
}
