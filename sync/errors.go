package sync

import "github.com/KOMKZ/go-dashsync/errcode"

// 同步层门面错误码（模块码 26）
var (
	// ErrNotInitialized 组件未初始化（需先走 Init）
	ErrNotInitialized = errcode.Register(errcode.New(26, 1, "sync", "同步层未初始化"))

	// ErrAlreadyActive 同步层已激活
	ErrAlreadyActive = errcode.Register(errcode.New(26, 2, "sync", "同步层已激活"))

	// ErrClosed 同步层已停用（停用是终态，需重建实例）
	ErrClosed = errcode.Register(errcode.New(26, 3, "sync", "同步层已停用"))

	// ErrInitFailed 初始化失败
	ErrInitFailed = errcode.Register(errcode.New(26, 4, "sync", "同步层初始化失败"))

	// ErrPartNotReady 部件尚不可用（容器注入时机早于 Init）
	ErrPartNotReady = errcode.Register(errcode.New(26, 5, "sync", "同步层部件尚不可用"))
)
