package mutation

import (
	"github.com/KOMKZ/go-dashsync/cache"
	"github.com/KOMKZ/go-dashsync/entity"
)

// ReplaceItem 构造"替换单条记录"补丁
// 列表记录：对 id 匹配的行应用 mutateFn；详情记录：id 匹配时直接应用
func ReplaceItem(kind entity.Kind, id string, mutateFn func(entity.Item)) PatchFunc {
	return func(e cache.Entry) cache.Entry {
		switch data := e.Data.(type) {
		case entity.Page:
			for _, item := range data.Items {
				if itemID, ok := entity.ItemID(kind, item); ok && itemID == id {
					mutateFn(item)
				}
			}
			e.Data = data
		case entity.Item:
			if itemID, ok := entity.ItemID(kind, data); ok && itemID == id {
				mutateFn(data)
				e.Data = data
			}
		}
		return e
	}
}

// MergeDetail 构造"合并字段"补丁（详情记录）
func MergeDetail(fields map[string]any) PatchFunc {
	return func(e cache.Entry) cache.Entry {
		item, ok := e.Data.(entity.Item)
		if !ok {
			return e
		}
		for k, v := range fields {
			item[k] = v
		}
		e.Data = item
		return e
	}
}

// RemoveItem 构造"删除记录"补丁
// 列表记录：移除 id 匹配的行并递减 Total
func RemoveItem(kind entity.Kind, id string) PatchFunc {
	return func(e cache.Entry) cache.Entry {
		data, ok := e.Data.(entity.Page)
		if !ok {
			return e
		}

		filtered := data.Items[:0]
		removed := 0
		for _, item := range data.Items {
			if itemID, ok := entity.ItemID(kind, item); ok && itemID == id {
				removed++
				continue
			}
			filtered = append(filtered, item)
		}

		if removed > 0 {
			data.Items = filtered
			data.Total -= removed
			e.Data = data
		}
		return e
	}
}
