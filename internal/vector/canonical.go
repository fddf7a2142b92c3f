package vector

import "strings"

// CanonicalFields 规范化文本的输入字段。
// 嵌入文本的构造必须是确定性的：字段顺序固定（名称、描述、分类、
// 列表字段、自由文本字段），空字段跳过。这是重建索引时控制
// 嵌入漂移的唯一手段，规则只在这里定义
type CanonicalFields struct {
	Name        string
	Description string
	Category    string
	Ingredients []string
	Claims      []string
	Notes       []string
}

// BuildCanonicalText 按固定顺序把实体字段拼接成一条规范化文本：
// 列表字段内部用", "连接，段落之间用" | "连接，空字段不产生分隔符
func BuildCanonicalText(f CanonicalFields) string {
	segments := make([]string, 0, 6)

	appendText := func(value string) {
		value = strings.TrimSpace(value)
		if value != "" {
			segments = append(segments, value)
		}
	}
	appendList := func(values []string) {
		cleaned := make([]string, 0, len(values))
		for _, v := range values {
			v = strings.TrimSpace(v)
			if v != "" {
				cleaned = append(cleaned, v)
			}
		}
		if len(cleaned) > 0 {
			segments = append(segments, strings.Join(cleaned, ", "))
		}
	}

	appendText(f.Name)
	appendText(f.Description)
	appendText(f.Category)
	appendList(f.Ingredients)
	appendList(f.Claims)
	for _, note := range f.Notes {
		appendText(note)
	}

	return strings.Join(segments, " | ")
}
