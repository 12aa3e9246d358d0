package push

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config 推送客户端配置
type Config struct {
	// StreamURL 事件流地址，如 http://localhost:8000/events/stream
	StreamURL string `mapstructure:"stream_url"`

	// BackoffBase 重连退避基数
	BackoffBase time.Duration `mapstructure:"backoff_base"`

	// BackoffCap 重连退避上限
	BackoffCap time.Duration `mapstructure:"backoff_cap"`

	// MaxAttempts 自动重连的最大失败次数，超过后进入终态等待手动 Reconnect
	MaxAttempts int `mapstructure:"max_attempts"`

	// MetricsEnabled 是否上报 OTel 指标
	MetricsEnabled bool `mapstructure:"metrics_enabled"`
}

// ApplyDefaults 填充默认值
func (c *Config) ApplyDefaults() {
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = 30 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
}

// Validate 校验配置
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.MaxAttempts, validation.Min(0), validation.Max(100)),
		validation.Field(&c.BackoffCap, validation.Min(time.Duration(0))),
	)
}
