package vector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/pimhub/backend-go/internal/errors"
)

func TestCosineIdentical(t *testing.T) {
	v := []float32{0.3, -0.5, 0.8, 0.1}
	score, err := Cosine(v, v)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestCosineSymmetry(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{-2, 0.5, 4}

	ab, err := Cosine(a, b)
	require.NoError(t, err)
	ba, err := Cosine(b, a)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
}

func TestCosineOrthogonal(t *testing.T) {
	score, err := Cosine([]float32{1, 0, 0}, []float32{0, 1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, score, 1e-9)
}

func TestCosineZeroMagnitude(t *testing.T) {
	// 模长为0的向量结果定义为0，不允许NaN
	score, err := Cosine([]float32{0, 0, 0}, []float32{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
	assert.False(t, math.IsNaN(score))

	score, err = Cosine([]float32{0, 0}, []float32{0, 0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestCosineDimensionMismatch(t *testing.T) {
	_, err := Cosine([]float32{1, 2}, []float32{1, 2, 3})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDimensionMismatch))
}

func TestTopKSortsAndTruncates(t *testing.T) {
	hits := []Hit{
		{ID: "c", Score: 0.5},
		{ID: "a", Score: 0.9},
		{ID: "b", Score: 0.7},
		{ID: "d", Score: 0.3},
	}

	result := TopK(hits, 2, 0)
	require.Len(t, result, 2)
	assert.Equal(t, "a", result[0].ID)
	assert.Equal(t, "b", result[1].ID)
}

func TestTopKTieBreakByID(t *testing.T) {
	hits := []Hit{
		{ID: "z", Score: 0.8},
		{ID: "a", Score: 0.8},
		{ID: "m", Score: 0.8},
	}

	result := TopK(hits, 3, 0)
	require.Len(t, result, 3)
	assert.Equal(t, "a", result[0].ID)
	assert.Equal(t, "m", result[1].ID)
	assert.Equal(t, "z", result[2].ID)
}

func TestTopKMinScoreFilter(t *testing.T) {
	hits := []Hit{
		{ID: "a", Score: 0.9},
		{ID: "b", Score: 0.4},
		{ID: "c", Score: 0.6},
	}

	result := TopK(hits, 10, 0.5)
	require.Len(t, result, 2)
	assert.Equal(t, "a", result[0].ID)
	assert.Equal(t, "c", result[1].ID)
}

func TestTopKOutputLength(t *testing.T) {
	hits := []Hit{
		{ID: "a", Score: 0.9},
		{ID: "b", Score: 0.8},
	}

	// k大于候选数时返回全部
	assert.Len(t, TopK(hits, 5, 0), 2)
	assert.Len(t, TopK(hits, 0, 0), 0)
	assert.Len(t, TopK(nil, 3, 0), 0)
}

func TestTopKNonIncreasing(t *testing.T) {
	hits := []Hit{
		{ID: "a", Score: 0.2},
		{ID: "b", Score: 0.95},
		{ID: "c", Score: 0.6},
		{ID: "d", Score: 0.6},
		{ID: "e", Score: 0.8},
	}

	result := TopK(hits, 5, 0)
	for i := 1; i < len(result); i++ {
		assert.GreaterOrEqual(t, result[i-1].Score, result[i].Score)
	}
}
