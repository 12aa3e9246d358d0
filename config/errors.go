package config

import "github.com/KOMKZ/go-dashsync/errcode"

// 配置模块错误码（模块码 10）
var (
	// ErrSourceLoad 数据源加载失败
	ErrSourceLoad = errcode.Register(errcode.New(10, 1, "config", "加载配置数据源失败"))

	// ErrValidation 配置校验失败
	ErrValidation = errcode.Register(errcode.New(10, 2, "config", "配置校验失败"))

	// ErrUnmarshal 配置反序列化失败
	ErrUnmarshal = errcode.Register(errcode.New(10, 3, "config", "配置反序列化失败"))
)
