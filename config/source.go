// Package config 提供多数据源的配置加载能力
// 同步层的各组件（cache、push、poller 等）通过 ConfigLoader 读取自己的配置段
package config

// ConfigSource 配置数据源接口
// 所有配置来源（文件、环境变量等）都实现此接口
type ConfigSource interface {
	// Name 数据源名称（用于日志和调试）
	Name() string

	// Priority 优先级（数值越大优先级越高）
	// 建议值：
	// - 默认值: 1
	// - 基础配置文件 (config.yaml): 10
	// - 环境配置文件 (dev.yaml): 20
	// - 环境变量: 50
	Priority() int

	// Load 加载配置数据
	// 返回的 map 使用点号分隔的 key，如 "cache.stale_after"
	Load() (map[string]any, error)
}
