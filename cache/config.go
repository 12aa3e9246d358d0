package cache

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config 缓存存储配置
type Config struct {
	// StaleAfter 新鲜度窗口，超过后 Ensure 触发后台刷新
	StaleAfter time.Duration `mapstructure:"stale_after"`

	// FetchAttempts 单键拉取的最大尝试次数（指数退避）
	FetchAttempts int `mapstructure:"fetch_attempts"`

	// FetchBackoffBase 拉取重试的退避基数
	FetchBackoffBase time.Duration `mapstructure:"fetch_backoff_base"`

	// NotifyPoolSize 订阅者通知协程池大小
	NotifyPoolSize int `mapstructure:"notify_pool_size"`

	// MetricsEnabled 是否上报 OTel 指标
	MetricsEnabled bool `mapstructure:"metrics_enabled"`
}

// ApplyDefaults 填充默认值
func (c *Config) ApplyDefaults() {
	if c.StaleAfter <= 0 {
		c.StaleAfter = 30 * time.Second
	}
	if c.FetchAttempts <= 0 {
		c.FetchAttempts = 3
	}
	if c.FetchBackoffBase <= 0 {
		c.FetchBackoffBase = time.Second
	}
	if c.NotifyPoolSize <= 0 {
		c.NotifyPoolSize = 64
	}
}

// Validate 校验配置
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.StaleAfter, validation.Min(time.Duration(0))),
		validation.Field(&c.FetchAttempts, validation.Min(0), validation.Max(10)),
		validation.Field(&c.NotifyPoolSize, validation.Min(0), validation.Max(4096)),
	)
}
