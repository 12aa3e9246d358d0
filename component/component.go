// Package component 提供组件接口定义
// 这是最底层的包，不依赖任何业务包，避免循环依赖
package component

import "context"

// Component 组件接口（统一生命周期管理）
//
// 同步层的所有组件（缓存、推送、轮询等）都实现此接口
// 组件生命周期：Init → Start → Stop
type Component interface {
	// Name 组件名称（唯一标识）
	Name() string

	// DependsOn 声明依赖的组件名称
	// 注册中心根据依赖关系进行拓扑排序，确定初始化顺序
	//
	// 支持可选依赖：
	//   - 强制依赖：直接返回组件名，如 "config", "logger"
	//   - 可选依赖：使用 "optional:" 前缀，如 "optional:poller"
	//
	// 可选依赖未注册时组件需自行处理（如关闭对应功能）
	DependsOn() []string

	// Init 初始化组件（读取配置、创建资源，不连接外部服务）
	// loader: 配置加载器，组件直接读取自己的配置段
	Init(ctx context.Context, loader ConfigLoader) error

	// Start 启动组件（建立推送连接、启动调度器等）
	Start(ctx context.Context) error

	// Stop 停止组件（释放资源，允许重复调用）
	Stop(ctx context.Context) error
}

// Registry 组件注册中心接口
//
// 职责：
// - 注册和管理组件
// - 解析组件依赖关系
// - 按依赖顺序执行组件生命周期方法
type Registry interface {
	// Register 注册组件（名称为空或重复时返回错误）
	Register(comp Component) error

	// Get 获取组件
	Get(name string) (Component, bool)

	// Has 检查组件是否已注册
	Has(name string) bool

	// Resolve 返回拓扑排序后的组件列表
	// 检测到循环依赖或强制依赖未注册时返回错误
	Resolve() ([]Component, error)

	// Init 按依赖顺序初始化所有组件
	Init(ctx context.Context) error

	// Start 按依赖顺序启动所有组件
	Start(ctx context.Context) error

	// Stop 反向顺序停止所有组件（忽略单个组件的 Stop 错误）
	Stop(ctx context.Context) error
}
