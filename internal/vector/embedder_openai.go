package vector

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	apperrors "github.com/pimhub/backend-go/internal/errors"
)

var embeddingDimensions = map[string]int{
	"text-embedding-3-large": 3072,
	"text-embedding-3-small": 1536,
	"text-embedding-ada-002": 1536,
}

// OpenAIEmbedder 使用OpenAI Embedding API。
// 客户端在构造时创建一次，之后只读，并发调用安全
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAIEmbedder 创建OpenAI嵌入向量生成器；
// API key为空时返回NoopEmbedder
func NewOpenAIEmbedder(apiKey, model string) Embedder {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return &NoopEmbedder{}
	}
	if model == "" {
		model = "text-embedding-3-small"
	}

	client := openai.NewClient(apiKey)
	dims, ok := embeddingDimensions[model]
	if !ok {
		dims = 1536
	}

	return &OpenAIEmbedder{
		client:     client,
		model:      model,
		dimensions: dims,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch 一次请求提交整批文本。
// 结果按响应中的Index写回，保证与输入顺序一致，即使后端乱序返回
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, apperrors.NewValidationError("embedding batch cannot be empty")
	}
	if e.client == nil {
		return nil, apperrors.NewEmbeddingBackendError(nil)
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err != nil {
		return nil, apperrors.NewEmbeddingBackendError(err)
	}
	if len(resp.Data) != len(texts) {
		return nil, apperrors.NewEmbeddingBackendError(nil).
			WithDetails(map[string]int{"expected": len(texts), "got": len(resp.Data)})
	}

	results := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(results) {
			return nil, apperrors.NewEmbeddingBackendError(nil).
				WithDetails(map[string]int{"index": item.Index})
		}
		embedding := make([]float32, len(item.Embedding))
		copy(embedding, item.Embedding)
		results[item.Index] = embedding
	}
	for i := range results {
		if results[i] == nil {
			return nil, apperrors.NewEmbeddingBackendError(nil).
				WithDetails(map[string]int{"missing_index": i})
		}
	}
	return results, nil
}

func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *OpenAIEmbedder) Ready() bool {
	return e.client != nil
}
