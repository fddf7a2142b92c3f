package vector

import (
	"math"
	"sort"

	apperrors "github.com/pimhub/backend-go/internal/errors"
)

// Cosine 计算两个向量的余弦相似度：dot(a,b) / (‖a‖·‖b‖)。
// 两个向量长度必须一致，否则返回DimensionMismatchError。
// 任一向量模长为0时结果定义为0而不是NaN
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, apperrors.NewDimensionMismatchError(len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// TopK 对候选命中做确定性的top-k选择：
// 按Score降序排序，分数相同时按ID升序保证稳定；
// minScore > 0 时先过滤低于阈值的命中再截断
func TopK(hits []Hit, k int, minScore float64) []Hit {
	if k <= 0 {
		return []Hit{}
	}

	filtered := make([]Hit, 0, len(hits))
	for _, h := range hits {
		if minScore > 0 && h.Score < minScore {
			continue
		}
		filtered = append(filtered, h)
	}

	sortHitsByScore(filtered)

	if len(filtered) > k {
		filtered = filtered[:k]
	}
	return filtered
}

func sortHitsByScore(hits []Hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score == hits[j].Score {
			return hits[i].ID < hits[j].ID
		}
		return hits[i].Score > hits[j].Score
	})
}

// Norm 计算向量模长
func Norm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}
