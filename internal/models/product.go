package models

import (
	"encoding/json"
	"time"
)

// Product 商品主数据。Embedding列保存最近一次生成的嵌入（JSON数组），
// 供无ANN索引时的精确相似度回退查询使用；内容变更后由索引服务重建
type Product struct {
	EntityID    string       `gorm:"column:entity_id;primaryKey;size:128" json:"id"`
	Name        string       `gorm:"column:name;size:255;not null" json:"name"`
	Description string       `gorm:"column:description;type:text" json:"description"`
	Category    string       `gorm:"column:category;size:128" json:"category"`
	Claims      string       `gorm:"column:claims;type:text" json:"-"`
	Notes       string       `gorm:"column:notes;type:text" json:"notes,omitempty"`
	Embedding   string       `gorm:"column:embedding;type:text" json:"-"`
	Ingredients []Ingredient `gorm:"many2many:product_ingredients;foreignKey:EntityID;joinForeignKey:ProductID;References:EntityID;joinReferences:IngredientID" json:"ingredients,omitempty"`
	CreatedAt   time.Time    `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt   time.Time    `gorm:"column:updated_at" json:"updatedAt"`
}

func (Product) TableName() string {
	return "products"
}

// ClaimList 解码claims列的JSON数组
func (p *Product) ClaimList() []string {
	return decodeStringList(p.Claims)
}

// IngredientNames 返回配料名称列表
func (p *Product) IngredientNames() []string {
	names := make([]string, 0, len(p.Ingredients))
	for _, ing := range p.Ingredients {
		names = append(names, ing.Name)
	}
	return names
}

// EmbeddingVector 解码存储的嵌入，未生成时返回nil
func (p *Product) EmbeddingVector() []float32 {
	return decodeEmbedding(p.Embedding)
}

// SetEmbeddingVector 编码并写入嵌入列
func (p *Product) SetEmbeddingVector(vec []float32) {
	p.Embedding = encodeEmbedding(vec)
}

// Ingredient 配料主数据，同样可被嵌入并参与向量检索
type Ingredient struct {
	EntityID  string    `gorm:"column:entity_id;primaryKey;size:128" json:"id"`
	Name      string    `gorm:"column:name;size:255;not null;uniqueIndex" json:"name"`
	Function  string    `gorm:"column:function;size:255" json:"function,omitempty"`
	Notes     string    `gorm:"column:notes;type:text" json:"notes,omitempty"`
	Embedding string    `gorm:"column:embedding;type:text" json:"-"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (Ingredient) TableName() string {
	return "ingredients"
}

// EmbeddingVector 解码存储的嵌入，未生成时返回nil
func (i *Ingredient) EmbeddingVector() []float32 {
	return decodeEmbedding(i.Embedding)
}

// SetEmbeddingVector 编码并写入嵌入列
func (i *Ingredient) SetEmbeddingVector(vec []float32) {
	i.Embedding = encodeEmbedding(vec)
}

func decodeStringList(raw string) []string {
	if raw == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil
	}
	return values
}

func decodeEmbedding(raw string) []float32 {
	if raw == "" {
		return nil
	}
	var vec []float32
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		return nil
	}
	return vec
}

func encodeEmbedding(vec []float32) string {
	if len(vec) == 0 {
		return ""
	}
	raw, err := json.Marshal(vec)
	if err != nil {
		return ""
	}
	return string(raw)
}
