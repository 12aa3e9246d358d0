package entity

// Item 单个实体记录
// 字段对同步层不透明，只有 id 字段和被乐观补丁触达的字段
// （status、risk_level、priority 等）有约定含义
type Item = map[string]any

// Page 列表查询结果
type Page struct {
	Items   []Item `json:"items"`
	Total   int    `json:"total"`
	Limit   int    `json:"limit"`
	Offset  int    `json:"offset"`
	HasMore bool   `json:"has_more"`
}

// ItemID 读取记录的 id 字段（按实体类型取对应字段名）
func ItemID(kind Kind, item Item) (string, bool) {
	v, ok := item[kind.IDField()]
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// Clone 深拷贝一条记录（一层字段拷贝，嵌套值为服务端 JSON，视为不可变）
func CloneItem(item Item) Item {
	if item == nil {
		return nil
	}
	clone := make(Item, len(item))
	for k, v := range item {
		clone[k] = v
	}
	return clone
}

// ClonePage 深拷贝列表结果（Items 切片与每条记录都复制）
func ClonePage(p Page) Page {
	clone := p
	clone.Items = make([]Item, len(p.Items))
	for i, item := range p.Items {
		clone.Items[i] = CloneItem(item)
	}
	return clone
}
