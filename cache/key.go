// Package cache 实现查询缓存：Key 寻址的缓存表 + 查询引擎
// （按需拉取、并发去重、前缀失效、订阅通知）
package cache

import (
	"sort"
	"strings"

	"github.com/KOMKZ/go-dashsync/entity"
)

// Scope 查询范围
type Scope string

const (
	ScopeList   Scope = "list"
	ScopeDetail Scope = "detail"
	ScopeStats  Scope = "stats"
)

// Key 查询键，寻址一条缓存记录
// Param 对 detail 是实体 id，对 list/stats 是过滤参数的规范编码
type Key struct {
	Kind  entity.Kind
	Scope Scope
	Param string
}

// ListKey 构造列表查询键
func ListKey(kind entity.Kind, params map[string]string) Key {
	return Key{Kind: kind, Scope: ScopeList, Param: EncodeParams(params)}
}

// DetailKey 构造详情查询键
func DetailKey(kind entity.Kind, id string) Key {
	return Key{Kind: kind, Scope: ScopeDetail, Param: id}
}

// StatsKey 构造统计查询键
func StatsKey(kind entity.Kind, params map[string]string) Key {
	return Key{Kind: kind, Scope: ScopeStats, Param: EncodeParams(params)}
}

// Prefix 构造前缀键（Param 为空，匹配该 kind+scope 下的所有键）
func Prefix(kind entity.Kind, scope Scope) Key {
	return Key{Kind: kind, Scope: scope}
}

// KindPrefix 构造实体级前缀键（匹配该 kind 下的所有键）
func KindPrefix(kind entity.Kind) Key {
	return Key{Kind: kind}
}

// EncodeParams 参数规范编码：按 key 排序的 k=v 对以 & 连接
// 与参数传入顺序无关；空值参数被省略
func EncodeParams(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}

	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	return strings.Join(pairs, "&")
}

// String 渲染为 "kind:scope:param"
func (k Key) String() string {
	return string(k.Kind) + ":" + string(k.Scope) + ":" + k.Param
}

// HasPrefix 判断 prefix 的已填充分量是否是 k 的前导子序列
// 例如 (task, list) 是所有任务列表键的前缀，(task) 是所有任务键的前缀
func (k Key) HasPrefix(prefix Key) bool {
	if prefix.Kind != "" && prefix.Kind != k.Kind {
		return false
	}
	if prefix.Scope != "" && prefix.Scope != k.Scope {
		return false
	}
	if prefix.Param != "" && prefix.Param != k.Param {
		return false
	}
	return true
}
