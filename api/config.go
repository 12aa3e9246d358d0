package api

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Config API 客户端配置
type Config struct {
	// BaseURL 服务端基地址，如 http://localhost:8000
	BaseURL string `mapstructure:"base_url"`

	// Timeout 单请求超时
	Timeout time.Duration `mapstructure:"timeout"`

	// CookieName 会话 Cookie 名
	CookieName string `mapstructure:"cookie_name"`
}

// ApplyDefaults 填充默认值
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.CookieName == "" {
		c.CookieName = "access_token"
	}
}

// Validate 校验配置
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
	)
}
