package vector

import "context"

// 默认检索参数与分层阈值，集中定义避免各调用点漂移
const (
	// DefaultSearchLimit 检索默认返回数量
	DefaultSearchLimit = 10
	// DefaultCandidateLimit 精确检索的候选上限
	DefaultCandidateLimit = 200
	// VerySimilarThreshold 推荐分层阈值：高于该相似度归为 VERY_SIMILAR
	VerySimilarThreshold = 0.9
)

// Collection 命名的向量集合，维度在生命周期内固定，距离度量为余弦
type Collection struct {
	Name      string
	Dimension int
}

// Point 向量集合中的存储单元，ID由调用方指定（通常为实体主键），
// upsert 按ID替换而不是追加
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]interface{}
}

// Hit 最近邻检索命中结果，始终按Score降序返回
type Hit struct {
	ID      string
	Score   float64
	Payload map[string]interface{}
}

// SearchRequest 向量检索请求
type SearchRequest struct {
	Collection  string
	Vector      []float32
	Limit       int
	WithPayload bool
}

// Store 向量存储抽象
type Store interface {
	// EnsureCollection 创建集合（幂等）：已存在时为no-op，维度不一致时报错
	EnsureCollection(ctx context.Context, name string, dimension int) error
	// Upsert 按ID插入或替换
	Upsert(ctx context.Context, collection string, points []Point) error
	// Delete 删除指定ID的点，ID不存在不算错误
	Delete(ctx context.Context, collection string, id string) error
	// Search 返回至多Limit条命中，按相关度降序
	Search(ctx context.Context, req SearchRequest) ([]Hit, error)
	Ready() bool
}
