package retry

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// RetryCondition 重试条件接口
type RetryCondition interface {
	// ShouldRetry 判断是否应该重试
	// err: 当前错误；attempt: 当前尝试次数（从 1 开始）
	ShouldRetry(err error, attempt int) bool
}

// ============================================================
// 基础条件
// ============================================================

type alwaysRetry struct{}

// AlwaysRetry 创建总是重试的条件
func AlwaysRetry() RetryCondition {
	return &alwaysRetry{}
}

func (c *alwaysRetry) ShouldRetry(err error, attempt int) bool {
	return err != nil
}

type neverRetry struct{}

// NeverRetry 创建从不重试的条件
func NeverRetry() RetryCondition {
	return &neverRetry{}
}

func (c *neverRetry) ShouldRetry(err error, attempt int) bool {
	return false
}

// ============================================================
// 错误匹配条件
// ============================================================

type retryOnErrors struct {
	targets []error
}

// RetryOnErrors 创建指定错误才重试的条件（errors.Is 匹配）
func RetryOnErrors(targets ...error) RetryCondition {
	return &retryOnErrors{targets: targets}
}

func (c *retryOnErrors) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	for _, target := range c.targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// UnlessErrors 创建排除指定错误的条件（匹配到则不重试）
// 例如认证失败不应触发重试
func UnlessErrors(targets ...error) RetryCondition {
	return Not(RetryOnErrors(targets...))
}

// ============================================================
// 自定义条件
// ============================================================

type retryOnCondition struct {
	fn func(error) bool
}

// RetryOnCondition 创建自定义重试条件
func RetryOnCondition(fn func(error) bool) RetryCondition {
	return &retryOnCondition{fn: fn}
}

func (c *retryOnCondition) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	return c.fn(err)
}

// ============================================================
// HTTP 条件
// ============================================================

// HTTPError HTTP 错误接口（由调用方的错误类型实现）
type HTTPError interface {
	error
	StatusCode() int
}

type retryOnHTTPStatus struct {
	statuses map[int]struct{}
}

// RetryOnHTTPStatus 创建 HTTP 状态码重试条件
func RetryOnHTTPStatus(statuses ...int) RetryCondition {
	statusMap := make(map[int]struct{}, len(statuses))
	for _, s := range statuses {
		statusMap[s] = struct{}{}
	}
	return &retryOnHTTPStatus{statuses: statusMap}
}

func (c *retryOnHTTPStatus) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}

	var httpErr HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}

	_, shouldRetry := c.statuses[httpErr.StatusCode()]
	return shouldRetry
}

// ============================================================
// 瞬时错误条件
// ============================================================

type temporaryError interface {
	Temporary() bool
}

type retryOnTemporaryError struct{}

// RetryOnTemporaryError 创建瞬时错误重试条件
// 覆盖：net.Error 瞬时/超时错误、连接被拒/重置等系统调用错误
func RetryOnTemporaryError() RetryCondition {
	return &retryOnTemporaryError{}
}

func (c *retryOnTemporaryError) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}

	if te, ok := err.(temporaryError); ok && te.Temporary() {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	return false
}

// ============================================================
// 组合条件
// ============================================================

type andCondition struct {
	conditions []RetryCondition
}

// And 创建 AND 组合条件（全部满足才重试）
func And(conditions ...RetryCondition) RetryCondition {
	return &andCondition{conditions: conditions}
}

func (c *andCondition) ShouldRetry(err error, attempt int) bool {
	for _, cond := range c.conditions {
		if !cond.ShouldRetry(err, attempt) {
			return false
		}
	}
	return true
}

type orCondition struct {
	conditions []RetryCondition
}

// Or 创建 OR 组合条件（任一满足即重试）
func Or(conditions ...RetryCondition) RetryCondition {
	return &orCondition{conditions: conditions}
}

func (c *orCondition) ShouldRetry(err error, attempt int) bool {
	for _, cond := range c.conditions {
		if cond.ShouldRetry(err, attempt) {
			return true
		}
	}
	return false
}

type notCondition struct {
	condition RetryCondition
}

// Not 创建 NOT 条件（取反）
func Not(condition RetryCondition) RetryCondition {
	return &notCondition{condition: condition}
}

func (c *notCondition) ShouldRetry(err error, attempt int) bool {
	return !c.condition.ShouldRetry(err, attempt)
}
