package vector

import (
	"sort"
	"strings"

	apperrors "github.com/pimhub/backend-go/internal/errors"
)

// Tier 推荐分层，由连续相似度分数映射成展示用的粗分档
type Tier string

const (
	TierVerySimilar Tier = "VERY_SIMILAR"
	TierSimilar     Tier = "SIMILAR"
)

// Entity 参与推荐聚合的实体视图：存储的嵌入加离散属性集合
type Entity struct {
	ID          string
	Name        string
	Embedding   []float32
	Ingredients []string
}

// RecommendationItem 排名后的推荐项。
// MatchingAttributes给出命中的具体属性名，每条结果都携带
// 可解释的匹配证据，而不只是裸分数
type RecommendationItem struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	SimilarityScore    float64  `json:"similarity"`
	OverlapScore       float64  `json:"overlap"`
	MatchingAttributes []string `json:"matchingAttributes"`
	Tier               Tier     `json:"tier"`
}

// Aggregate 把向量相似度与关系重合度合并为单个推荐列表：
//  1. 对每个候选用余弦相似度对比源实体的存储嵌入
//  2. 计算属性重合度 |A∩B| / max(|A|,|B|)，两集合都为空时定义为0
//  3. 相似度高于VerySimilarThreshold归为VERY_SIMILAR，否则SIMILAR
//
// 结果按相似度降序，平分时以重合度为次级排序键
func Aggregate(source Entity, candidates []Entity) ([]RecommendationItem, error) {
	if len(source.Embedding) == 0 {
		return nil, apperrors.NewEmbeddingMissingError(source.ID)
	}

	items := make([]RecommendationItem, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.ID == source.ID {
			continue
		}
		if len(candidate.Embedding) == 0 {
			// 候选尚未生成嵌入，无法参与排名
			continue
		}

		similarity, err := Cosine(source.Embedding, candidate.Embedding)
		if err != nil {
			return nil, err
		}

		matching := intersectAttributes(source.Ingredients, candidate.Ingredients)
		overlap := overlapScore(source.Ingredients, candidate.Ingredients, len(matching))

		tier := TierSimilar
		if similarity > VerySimilarThreshold {
			tier = TierVerySimilar
		}

		items = append(items, RecommendationItem{
			ID:                 candidate.ID,
			Name:               candidate.Name,
			SimilarityScore:    similarity,
			OverlapScore:       overlap,
			MatchingAttributes: matching,
			Tier:               tier,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].SimilarityScore != items[j].SimilarityScore {
			return items[i].SimilarityScore > items[j].SimilarityScore
		}
		if items[i].OverlapScore != items[j].OverlapScore {
			return items[i].OverlapScore > items[j].OverlapScore
		}
		return items[i].ID < items[j].ID
	})

	return items, nil
}

// intersectAttributes 返回两个属性集合的交集，忽略大小写与空白，
// 结果排序保证确定性输出
func intersectAttributes(a, b []string) []string {
	set := make(map[string]string, len(a))
	for _, attr := range a {
		key := normalizeAttribute(attr)
		if key != "" {
			set[key] = strings.TrimSpace(attr)
		}
	}

	seen := make(map[string]bool)
	matching := make([]string, 0)
	for _, attr := range b {
		key := normalizeAttribute(attr)
		if key == "" || seen[key] {
			continue
		}
		if original, ok := set[key]; ok {
			matching = append(matching, original)
			seen[key] = true
		}
	}

	sort.Strings(matching)
	return matching
}

// overlapScore 重合度 = 交集大小 / 两集合中较大的那个，
// 两集合都为空时为0
func overlapScore(a, b []string, intersection int) float64 {
	sizeA := countDistinct(a)
	sizeB := countDistinct(b)
	maxSize := sizeA
	if sizeB > maxSize {
		maxSize = sizeB
	}
	if maxSize == 0 {
		return 0
	}
	return float64(intersection) / float64(maxSize)
}

func countDistinct(values []string) int {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		key := normalizeAttribute(v)
		if key != "" {
			set[key] = true
		}
	}
	return len(set)
}

func normalizeAttribute(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
