package config

import (
	"context"
	"path/filepath"

	"github.com/KOMKZ/go-dashsync/component"
)

// Component 配置组件
// 作为注册中心内的第一个组件，同时实现 component.Component 和
// component.ConfigLoader，其余组件在 Init 阶段通过它读取配置
type Component struct {
	configPath string
	envPrefix  string
	extra      []ConfigSource
	loader     *Loader
}

// Option 配置组件选项
type Option func(*Component)

// WithConfigPath 设置配置目录
// 目录下的 config.yaml（优先级 10）与 <env>.yaml（优先级 20）会被加载
func WithConfigPath(path string) Option {
	return func(c *Component) {
		c.configPath = path
	}
}

// WithEnvPrefix 设置环境变量前缀（优先级 50）
func WithEnvPrefix(prefix string) Option {
	return func(c *Component) {
		c.envPrefix = prefix
	}
}

// WithSource 追加自定义数据源
func WithSource(source ConfigSource) Option {
	return func(c *Component) {
		c.extra = append(c.extra, source)
	}
}

// NewComponent 创建配置组件
func NewComponent(opts ...Option) *Component {
	c := &Component{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name 组件名称
func (c *Component) Name() string {
	return component.ComponentConfig
}

// DependsOn 配置组件无依赖
func (c *Component) DependsOn() []string {
	return nil
}

// Init 构建并加载所有数据源
func (c *Component) Init(ctx context.Context, _ component.ConfigLoader) error {
	loader := NewLoader()

	if c.configPath != "" {
		loader.AddSource(NewFileSource(filepath.Join(c.configPath, "config.yaml"), 10))

		if env := GetEnv(); env != "" {
			loader.AddSource(NewFileSource(filepath.Join(c.configPath, env+".yaml"), 20))
		}
	}

	if c.envPrefix != "" {
		loader.AddSource(NewEnvSource(c.envPrefix, 50))
	}

	for _, source := range c.extra {
		loader.AddSource(source)
	}

	if err := loader.Load(); err != nil {
		return err
	}

	c.loader = loader
	return nil
}

// Start 配置组件无启动逻辑
func (c *Component) Start(ctx context.Context) error {
	return nil
}

// Stop 配置组件无停止逻辑
func (c *Component) Stop(ctx context.Context) error {
	return nil
}

// Loader 获取底层加载器
func (c *Component) Loader() *Loader {
	return c.loader
}

// ---- component.ConfigLoader 实现 ----

// Get 获取配置项
func (c *Component) Get(key string) any {
	return c.loader.Get(key)
}

// Unmarshal 将配置段反序列化到结构体
func (c *Component) Unmarshal(key string, v any) error {
	if err := c.loader.UnmarshalKey(key, v); err != nil {
		return ErrUnmarshal.WithData("key", key).Wrap(err)
	}
	return nil
}

// GetString 获取字符串配置
func (c *Component) GetString(key string) string {
	return c.loader.GetString(key)
}

// GetInt 获取整型配置
func (c *Component) GetInt(key string) int {
	return c.loader.GetInt(key)
}

// GetBool 获取布尔配置
func (c *Component) GetBool(key string) bool {
	return c.loader.GetBool(key)
}

// IsSet 检查配置项是否存在
func (c *Component) IsSet(key string) bool {
	return c.loader.IsSet(key)
}
