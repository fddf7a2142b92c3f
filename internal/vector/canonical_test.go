package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildCanonicalTextFieldOrder(t *testing.T) {
	text := BuildCanonicalText(CanonicalFields{
		Name:        "Hydrating Toner",
		Description: "Lightweight daily toner",
		Category:    "skincare",
		Ingredients: []string{"water", "glycerin"},
		Claims:      []string{"hydrating", "fragrance-free"},
		Notes:       []string{"suitable for sensitive skin"},
	})

	assert.Equal(t,
		"Hydrating Toner | Lightweight daily toner | skincare | water, glycerin | hydrating, fragrance-free | suitable for sensitive skin",
		text)
}

func TestBuildCanonicalTextSkipsEmptyFields(t *testing.T) {
	text := BuildCanonicalText(CanonicalFields{
		Name:        "Vitamin C Serum",
		Ingredients: []string{"ascorbic acid"},
	})

	assert.Equal(t, "Vitamin C Serum | ascorbic acid", text)
}

func TestBuildCanonicalTextDeterministic(t *testing.T) {
	fields := CanonicalFields{
		Name:        "Cleanser",
		Description: "Gentle foam",
		Ingredients: []string{"water", "cocamidopropyl betaine"},
	}

	// 相同输入必须产生完全相同的文本，这是嵌入不漂移的前提
	assert.Equal(t, BuildCanonicalText(fields), BuildCanonicalText(fields))
}

func TestBuildCanonicalTextTrimsWhitespace(t *testing.T) {
	text := BuildCanonicalText(CanonicalFields{
		Name:        "  Toner  ",
		Ingredients: []string{" water ", "", "glycerin"},
	})

	assert.Equal(t, "Toner | water, glycerin", text)
}

func TestBuildCanonicalTextAllEmpty(t *testing.T) {
	assert.Equal(t, "", BuildCanonicalText(CanonicalFields{}))
}
