package logger

import (
	"context"

	"github.com/KOMKZ/go-dashsync/component"
	"github.com/KOMKZ/go-dashsync/errcode"
)

// ErrLoggerConfig Logger 配置非法
var ErrLoggerConfig = errcode.Register(errcode.New(11, 1, "component", "Logger 配置非法"))

// Component 日志组件（核心组件）
//
// 从配置的 logger 段读取 ManagerConfig 并初始化全局日志管理器；
// 未配置时回退为仅控制台输出的默认管理器
type Component struct {
	coreLogger *CtxZapLogger
}

// NewComponent 创建日志组件
func NewComponent() *Component {
	return &Component{}
}

// Name 组件名称
func (c *Component) Name() string {
	return component.ComponentLogger
}

// DependsOn 日志组件依赖配置组件
func (c *Component) DependsOn() []string {
	return []string{component.ComponentConfig}
}

// Init 初始化全局日志管理器
func (c *Component) Init(ctx context.Context, loader component.ConfigLoader) error {
	cfg := ManagerConfig{EnableConsole: true}

	if loader != nil && loader.IsSet("logger") {
		if err := loader.Unmarshal("logger", &cfg); err != nil {
			return ErrLoggerConfig.Wrap(err)
		}
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return ErrLoggerConfig.Wrap(err)
	}

	InitManager(cfg)
	c.coreLogger = GetLogger("dashsync")

	return nil
}

// Start 启动日志组件（日志无需启动）
func (c *Component) Start(ctx context.Context) error {
	return nil
}

// Stop 停止日志组件（刷新并关闭所有日志实例）
func (c *Component) Stop(ctx context.Context) error {
	if c.coreLogger != nil {
		c.coreLogger.DebugCtx(ctx, "日志组件已关闭")
		CloseAll()
	}
	return nil
}

// GetLogger 获取核心日志实例
func (c *Component) GetLogger() *CtxZapLogger {
	return c.coreLogger
}
