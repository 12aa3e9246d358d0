package api

import (
	"errors"

	"github.com/KOMKZ/go-dashsync/errcode"
)

// API 模块错误码（模块码 22）
var (
	// ErrUnauthenticated 未认证（HTTP 401/403）：不重试，直接上抛触发重新登录
	ErrUnauthenticated = errcode.Register(errcode.New(22, 1, "api", "会话未认证"))

	// ErrServerUnavailable 服务端不可用（5xx 或传输层失败）：瞬时，可重试
	ErrServerUnavailable = errcode.Register(errcode.New(22, 2, "api", "服务端暂时不可用"))

	// ErrRequestFailed 请求被拒绝（其他非 2xx）
	ErrRequestFailed = errcode.Register(errcode.New(22, 3, "api", "请求失败"))

	// ErrDecode 响应解析失败
	ErrDecode = errcode.Register(errcode.New(22, 4, "api", "响应解析失败"))

	// ErrInvalidToken 会话令牌不可解析
	ErrInvalidToken = errcode.Register(errcode.New(22, 5, "api", "会话令牌无效"))
)

// IsUnauthenticated 判断错误是否为认证失败
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}
