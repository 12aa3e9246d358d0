package logger

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap/zapcore"
)

// ManagerConfig Logger 管理器配置
type ManagerConfig struct {
	AppName       string `mapstructure:"app_name"`       // 应用名（注入到每条日志）
	Level         string `mapstructure:"level"`          // 日志级别：debug/info/warn/error
	Encoding      string `mapstructure:"encoding"`       // 编码：json/console
	EnableConsole bool   `mapstructure:"enable_console"` // 是否输出到控制台
	EnableFile    bool   `mapstructure:"enable_file"`    // 是否输出到文件
	BaseLogDir    string `mapstructure:"base_log_dir"`   // 日志目录（按模块分文件）
	EnableCaller  bool   `mapstructure:"enable_caller"`  // 是否记录调用位置
	EnableTraceID bool   `mapstructure:"enable_trace_id"` // 是否从 ctx 提取 TraceID
	TraceIDKey    string `mapstructure:"trace_id_key"`   // 自定义 TraceID 的 context key

	// lumberjack 文件滚动参数
	MaxSize    int  `mapstructure:"max_size"`    // 单文件最大 MB
	MaxBackups int  `mapstructure:"max_backups"` // 保留的旧文件数量
	MaxAge     int  `mapstructure:"max_age"`     // 保留天数
	Compress   bool `mapstructure:"compress"`    // 是否压缩旧文件
}

// ApplyDefaults 填充零值字段的默认值
func (c *ManagerConfig) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Encoding == "" {
		c.Encoding = "json"
	}
	if c.BaseLogDir == "" {
		c.BaseLogDir = "logs"
	}
	if c.MaxSize <= 0 {
		c.MaxSize = 100
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = 5
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 7
	}
}

// Validate 校验配置
func (c *ManagerConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("无效的日志级别: %s", c.Level)
	}

	switch c.Encoding {
	case "", "json", "console":
	default:
		return fmt.Errorf("无效的日志编码: %s", c.Encoding)
	}

	return nil
}

// ParseLevel 解析日志级别字符串
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// moduleFilePath 模块日志文件路径
func (c *ManagerConfig) moduleFilePath(moduleName string) string {
	return filepath.Join(c.BaseLogDir, moduleName+".log")
}
