package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Manager Logger 管理器（管理多个模块的 Logger 实例）
type Manager struct {
	baseConfig ManagerConfig
	loggers    map[string]*CtxZapLogger
	writers    map[string]*lumberjack.Logger // 模块名 -> 文件写入器（用于关闭）
	mu         sync.RWMutex
}

var (
	globalManager *Manager
	globalMu      sync.RWMutex
)

// NewManager 创建独立的 Manager 实例
// cfg 中的零值字段自动填充默认值
func NewManager(cfg ManagerConfig) *Manager {
	cfg.ApplyDefaults()
	return &Manager{
		baseConfig: cfg,
		loggers:    make(map[string]*CtxZapLogger),
		writers:    make(map[string]*lumberjack.Logger),
	}
}

// InitManager 初始化全局 Logger 管理器
// 重复调用时替换全局实例（测试场景需要重建）
func InitManager(cfg ManagerConfig) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalManager = NewManager(cfg)
}

// GetLogger 从全局管理器获取指定模块的 Logger
// 全局管理器未初始化时自动创建一个仅控制台输出的默认管理器
func GetLogger(moduleName string) *CtxZapLogger {
	globalMu.RLock()
	m := globalManager
	globalMu.RUnlock()

	if m == nil {
		globalMu.Lock()
		if globalManager == nil {
			globalManager = NewManager(ManagerConfig{EnableConsole: true})
		}
		m = globalManager
		globalMu.Unlock()
	}

	return m.GetLogger(moduleName)
}

// CloseAll 关闭全局管理器下的所有 Logger
func CloseAll() {
	globalMu.RLock()
	m := globalManager
	globalMu.RUnlock()

	if m != nil {
		m.CloseAll()
	}
}

// GetLogger 获取指定模块的 CtxZapLogger（线程安全，按需创建）
// 返回的 Logger 已自动包含 module 字段
func (m *Manager) GetLogger(moduleName string) *CtxZapLogger {
	// 快速路径：读锁
	m.mu.RLock()
	if l, ok := m.loggers[moduleName]; ok {
		m.mu.RUnlock()
		return l
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// 双重检查，避免并发创建
	if l, ok := m.loggers[moduleName]; ok {
		return l
	}

	zapLogger := m.createLogger(moduleName)

	ctxLogger := &CtxZapLogger{
		base:   zapLogger.With(zap.String("module", moduleName)).WithOptions(zap.AddCallerSkip(1)),
		module: moduleName,
		config: &m.baseConfig,
	}

	m.loggers[moduleName] = ctxLogger
	return ctxLogger
}

// createLogger 创建底层 zap.Logger
func (m *Manager) createLogger(moduleName string) *zap.Logger {
	cfg := m.baseConfig
	level := ParseLevel(cfg.Level)

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Encoding == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	var cores []zapcore.Core

	if cfg.EnableConsole {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level))
	}

	if cfg.EnableFile {
		writer := &lumberjack.Logger{
			Filename:   cfg.moduleFilePath(moduleName),
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		m.writers[moduleName] = writer
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(writer), level))
	}

	if len(cores) == 0 {
		// 既不输出控制台也不输出文件：使用 Nop，调用方无需判空
		return zap.NewNop()
	}

	opts := []zap.Option{}
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}

	return zap.New(zapcore.NewTee(cores...), opts...)
}

// CloseAll 关闭所有 Logger（应用退出时调用）
// 刷新缓冲区并关闭所有文件句柄
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, l := range m.loggers {
		_ = l.base.Sync()
	}
	for _, w := range m.writers {
		_ = w.Close()
	}

	m.loggers = make(map[string]*CtxZapLogger)
	m.writers = make(map[string]*lumberjack.Logger)
}
