package vector

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// FactoryOptions 向量存储的启动期选型。
// 实现只在构造时选择一次，之后所有调用走同一个Store接口，
// 不允许按调用分支切换后端
type FactoryOptions struct {
	Provider string // qdrant | milvus | database | memory | mock
	Qdrant   QdrantOptions
	Milvus   MilvusOptions
	DB       *gorm.DB
	Tables   map[string]string
}

// NewStore 根据配置创建向量存储实现
func NewStore(opts FactoryOptions) (Store, error) {
	switch strings.ToLower(opts.Provider) {
	case "qdrant":
		return NewQdrantStore(opts.Qdrant)
	case "milvus":
		return NewMilvusStore(opts.Milvus)
	case "database", "db":
		if opts.DB == nil {
			return nil, fmt.Errorf("database vector store requires a db connection")
		}
		return NewDatabaseStore(opts.DB, opts.Tables), nil
	case "memory", "":
		return NewMemoryStore(), nil
	case "mock":
		return NewMockStore(), nil
	default:
		return nil, fmt.Errorf("unknown vector store provider: %s", opts.Provider)
	}
}
