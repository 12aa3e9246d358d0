package cache

import (
	"time"

	"github.com/KOMKZ/go-dashsync/entity"
)

// Status 缓存记录状态
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Entry 缓存记录
// 不变量：success ⇒ Data 非空且 FetchedAt 已设置；
// error ⇒ Data 保留最后一次成功值（stale-while-error）
type Entry struct {
	Key       Key
	Data      any
	Status    Status
	FetchedAt time.Time
	Err       error
}

// Stale 判断记录是否已过期（FetchedAt 为零值视为立即过期）
func (e Entry) Stale(staleAfter time.Duration, now time.Time) bool {
	if e.FetchedAt.IsZero() {
		return true
	}
	return now.Sub(e.FetchedAt) > staleAfter
}

// clone 复制记录，列表数据做深拷贝
// 读取方拿到的永远是副本，不与存储内部共享可变结构
func (e Entry) clone() Entry {
	c := e
	if page, ok := e.Data.(entity.Page); ok {
		c.Data = entity.ClonePage(page)
	} else if item, ok := e.Data.(entity.Item); ok {
		c.Data = entity.CloneItem(item)
	}
	return c
}
