package vector

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"

	apperrors "github.com/pimhub/backend-go/internal/errors"
)

// Embedder 定义文本向量化接口。
// EmbedBatch 的返回顺序必须与输入顺序一致，任何实现都不允许重排
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Ready() bool
}

// NoopEmbedder 默认占位实现，未配置嵌入后端时使用
type NoopEmbedder struct{}

func (n *NoopEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, apperrors.NewEmbeddingBackendError(nil)
}

func (n *NoopEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, apperrors.NewEmbeddingBackendError(nil)
}

func (n *NoopEmbedder) Dimensions() int {
	return 0
}

func (n *NoopEmbedder) Ready() bool {
	return false
}

// HashEmbedder 基于SHA-256的确定性嵌入实现，不做网络调用，
// 用于测试环境和未配置真实后端的本地开发。
// 相同文本永远产生相同向量
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder 创建确定性嵌入生成器
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = 64
	}
	return &HashEmbedder{dimensions: dimensions}
}

func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, apperrors.NewValidationError("embedding batch cannot be empty")
	}

	results := make([][]float32, len(texts))
	for i, text := range texts {
		results[i] = e.hashVector(text)
	}
	return results, nil
}

// hashVector 用滚动SHA-256摘要填充向量并做L2归一化
func (e *HashEmbedder) hashVector(text string) []float32 {
	vec := make([]float32, e.dimensions)
	digest := sha256.Sum256([]byte(text))

	for i := 0; i < e.dimensions; i++ {
		if i > 0 && i%8 == 0 {
			digest = sha256.Sum256(digest[:])
		}
		bits := binary.BigEndian.Uint32(digest[(i%8)*4 : (i%8)*4+4])
		// 映射到[-1,1]
		vec[i] = float32(bits)/float32(math.MaxUint32)*2 - 1
	}

	norm := Norm(vec)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

func (e *HashEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *HashEmbedder) Ready() bool {
	return true
}
