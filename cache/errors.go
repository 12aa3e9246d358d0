package cache

import "github.com/KOMKZ/go-dashsync/errcode"

// 缓存模块错误码（模块码 20）
var (
	// ErrStoreClosed 存储已关闭（同步层已停用）
	ErrStoreClosed = errcode.Register(errcode.New(20, 1, "cache", "缓存存储已关闭"))

	// ErrFetchFailed 拉取失败
	ErrFetchFailed = errcode.Register(errcode.New(20, 2, "cache", "数据拉取失败"))

	// ErrNoFetcher 未记录拉取函数（无法后台刷新）
	ErrNoFetcher = errcode.Register(errcode.New(20, 3, "cache", "查询键未注册拉取函数"))
)
