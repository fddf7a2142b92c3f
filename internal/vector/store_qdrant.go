package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/pimhub/backend-go/internal/errors"
)

// QdrantOptions Qdrant客户端配置
type QdrantOptions struct {
	Endpoint string
	APIKey   string
	UseTLS   bool
	Timeout  time.Duration
	Retry    RetryPolicy
}

type qdrantStore struct {
	client   *http.Client
	endpoint string
	apiKey   string
	guard    *dimensionGuard
	retry    RetryPolicy
}

// NewQdrantStore 创建Qdrant向量存储
func NewQdrantStore(opts QdrantOptions) (Store, error) {
	if opts.Endpoint == "" {
		scheme := "http"
		if opts.UseTLS {
			scheme = "https"
		}
		opts.Endpoint = fmt.Sprintf("%s://localhost:6333", scheme)
	}

	if !strings.HasPrefix(opts.Endpoint, "http") {
		scheme := "http"
		if opts.UseTLS {
			scheme = "https"
		}
		opts.Endpoint = fmt.Sprintf("%s://%s", scheme, opts.Endpoint)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = DefaultRetryPolicy()
	}

	return &qdrantStore{
		client: &http.Client{
			Timeout: timeout,
		},
		endpoint: strings.TrimSuffix(opts.Endpoint, "/"),
		apiKey:   opts.APIKey,
		guard:    newDimensionGuard(),
		retry:    opts.Retry,
	}, nil
}

// EnsureCollection 创建集合（幂等）。
// 已存在时为no-op，"already exists"不向调用方传播；
// 同名集合维度不一致时报DimensionMismatchError
func (s *qdrantStore) EnsureCollection(ctx context.Context, name string, dimension int) error {
	ready, err := s.guard.beginEnsure(name, dimension)
	if err != nil {
		return err
	}
	if ready {
		return nil
	}

	err = s.retry.Do(ctx, func() error {
		resp, err := s.doRequest(ctx, http.MethodGet, fmt.Sprintf("/collections/%s", name), nil)
		if err == nil && resp.StatusCode == http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil
		}
		if resp != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		body := map[string]interface{}{
			"vectors": map[string]interface{}{
				"size":     dimension,
				"distance": "Cosine",
			},
		}
		resp, err = s.doRequest(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", name), body)
		if err != nil {
			return apperrors.NewVectorStoreError("ensure collection", err)
		}
		defer resp.Body.Close()

		// 并发创建时另一方可能先赢，冲突视为已存在
		if resp.StatusCode == http.StatusConflict {
			return nil
		}
		if resp.StatusCode >= 300 {
			raw, _ := io.ReadAll(resp.Body)
			return apperrors.NewVectorStoreError("ensure collection",
				fmt.Errorf("create collection %s: %s %s", name, resp.Status, string(raw)))
		}
		return nil
	})
	if err != nil {
		s.guard.markFailed(name)
		return err
	}

	s.guard.markReady(name)
	return nil
}

// Upsert 按ID插入或替换，不重试（at-most-once）
func (s *qdrantStore) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return apperrors.NewValidationError("points cannot be empty")
	}

	payloadPoints := make([]map[string]interface{}, 0, len(points))
	for _, p := range points {
		if err := s.guard.check(collection, len(p.Vector)); err != nil {
			return err
		}
		payloadPoints = append(payloadPoints, map[string]interface{}{
			"id":      p.ID,
			"vector":  p.Vector,
			"payload": p.Payload,
		})
	}

	body := map[string]interface{}{"points": payloadPoints}
	resp, err := s.doRequest(ctx, http.MethodPut, fmt.Sprintf("/collections/%s/points?wait=true", collection), body)
	if err != nil {
		return apperrors.NewVectorStoreError("upsert", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return apperrors.NewVectorStoreError("upsert",
			fmt.Errorf("%s %s", resp.Status, string(raw)))
	}
	return nil
}

// Delete 删除指定ID的点，ID不存在不算错误
func (s *qdrantStore) Delete(ctx context.Context, collection string, id string) error {
	body := map[string]interface{}{
		"points": []string{id},
	}

	resp, err := s.doRequest(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/delete?wait=true", collection), body)
	if err != nil {
		return apperrors.NewVectorStoreError("delete", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return apperrors.NewVectorStoreError("delete",
			fmt.Errorf("%s %s", resp.Status, string(raw)))
	}
	return nil
}

// Search 最近邻检索，后端已按相关度降序返回
func (s *qdrantStore) Search(ctx context.Context, req SearchRequest) ([]Hit, error) {
	if len(req.Vector) == 0 {
		return nil, apperrors.NewValidationError("query vector cannot be empty")
	}
	if err := s.guard.check(req.Collection, len(req.Vector)); err != nil {
		return nil, err
	}
	if req.Limit <= 0 {
		req.Limit = DefaultSearchLimit
	}

	body := map[string]interface{}{
		"vector":       req.Vector,
		"limit":        req.Limit,
		"with_payload": req.WithPayload,
	}

	var hits []Hit
	err := s.retry.Do(ctx, func() error {
		resp, err := s.doRequest(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/search", req.Collection), body)
		if err != nil {
			return apperrors.NewVectorStoreError("search", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			raw, _ := io.ReadAll(resp.Body)
			return apperrors.NewVectorStoreError("search",
				fmt.Errorf("%s %s", resp.Status, string(raw)))
		}

		var searchResp struct {
			Result []struct {
				ID      interface{}            `json:"id"`
				Score   float64                `json:"score"`
				Payload map[string]interface{} `json:"payload"`
			} `json:"result"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
			return apperrors.NewVectorStoreError("search", err)
		}

		hits = make([]Hit, 0, len(searchResp.Result))
		for _, item := range searchResp.Result {
			hits = append(hits, Hit{
				ID:      formatPointID(item.ID),
				Score:   item.Score,
				Payload: item.Payload,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hits, nil
}

// formatPointID Qdrant的点ID可能以数字或字符串返回
func formatPointID(val interface{}) string {
	switch v := val.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%d", int64(v))
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (s *qdrantStore) Ready() bool {
	return s.client != nil
}

func (s *qdrantStore) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.endpoint+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	return s.client.Do(req)
}
