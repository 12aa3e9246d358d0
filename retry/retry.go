package retry

import (
	"context"
	"errors"
	"time"
)

// Do 执行操作，失败时按策略重试
// 所有尝试都失败时返回 *MultiError
func Do(ctx context.Context, operation func() error, opts ...Option) error {
	_, err := DoWithData(ctx, func() (struct{}, error) {
		return struct{}{}, operation()
	}, opts...)
	return err
}

// DoWithData 执行带返回值的操作，失败时按策略重试
func DoWithData[T any](ctx context.Context, operation func() (T, error), opts ...Option) (T, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	var result T
	var errs []error

	for attempt := 1; attempt <= cfg.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		var err error
		if cfg.timeout > 0 {
			opCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
			result, err = executeWithContext(opCtx, operation)
			cancel()
		} else {
			result, err = operation()
		}

		if err == nil {
			return result, nil
		}

		errs = append(errs, err)

		// 不满足重试条件或已是最后一次尝试：直接返回聚合错误
		if !cfg.condition.ShouldRetry(err, attempt) || attempt == cfg.maxAttempts {
			return result, &MultiError{Errors: errs, Attempts: attempt}
		}

		if cfg.onRetry != nil {
			cfg.onRetry(attempt, err)
		}

		backoff := cfg.backoff.Next(attempt)

		// 剩余时间不足以等完退避：提前结束
		if deadline, ok := ctx.Deadline(); ok {
			if time.Until(deadline) < backoff {
				errs = append(errs, context.DeadlineExceeded)
				return result, &MultiError{Errors: errs, Attempts: attempt}
			}
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return result, ctx.Err()
		}
	}

	return result, &MultiError{Errors: errs, Attempts: cfg.maxAttempts}
}

// executeWithContext 在带超时的 Context 中执行操作
func executeWithContext[T any](ctx context.Context, operation func() (T, error)) (T, error) {
	type result struct {
		data T
		err  error
	}

	ch := make(chan result, 1)
	go func() {
		data, err := operation()
		ch <- result{data: data, err: err}
	}()

	select {
	case res := <-ch:
		return res.data, res.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// GetAttempts 获取重试次数
func GetAttempts(err error) int {
	var multiErr *MultiError
	if errors.As(err, &multiErr) {
		return multiErr.Attempts
	}
	return 0
}

// GetAllErrors 获取所有尝试的错误
func GetAllErrors(err error) []error {
	var multiErr *MultiError
	if errors.As(err, &multiErr) {
		return multiErr.Errors
	}
	return nil
}
