package sync

import (
	"strings"
	"time"

	"github.com/KOMKZ/go-dashsync/api"
	"github.com/KOMKZ/go-dashsync/cache"
	"github.com/KOMKZ/go-dashsync/poller"
	"github.com/KOMKZ/go-dashsync/push"
)

// Config 同步层配置（配置文件里的 sync 段）
type Config struct {
	API   api.Config   `mapstructure:"api"`
	Cache cache.Config `mapstructure:"cache"`
	Push  push.Config  `mapstructure:"push"`

	// PollInterval 条件轮询默认间隔
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// MetricsEnabled 是否上报 OTel 指标（统一开关，传导到各部件）
	MetricsEnabled bool `mapstructure:"metrics_enabled"`
}

// ApplyDefaults 填充默认值
// 推送流地址缺省从 API 基地址推导：<base>/events/stream
func (c *Config) ApplyDefaults() {
	c.API.ApplyDefaults()
	c.Cache.ApplyDefaults()
	c.Push.ApplyDefaults()

	if c.PollInterval <= 0 {
		c.PollInterval = poller.DefaultInterval
	}
	if c.Push.StreamURL == "" && c.API.BaseURL != "" {
		c.Push.StreamURL = strings.TrimSuffix(c.API.BaseURL, "/") + "/events/stream"
	}
	if c.MetricsEnabled {
		c.Cache.MetricsEnabled = true
		c.Push.MetricsEnabled = true
	}
}

// Validate 校验配置（各段分别校验）
func (c Config) Validate() error {
	if err := c.API.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	return c.Push.Validate()
}
