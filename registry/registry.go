// Package registry 提供组件注册中心实现
// 作为独立内核包，不依赖任何业务组件
package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/KOMKZ/go-dashsync/component"
	"github.com/KOMKZ/go-dashsync/logger"
	"go.uber.org/zap"
)

// optionalPrefix 可选依赖前缀
const optionalPrefix = "optional:"

// Registry 组件注册中心实现
// 实现 component.Registry 接口
type Registry struct {
	mu         sync.RWMutex
	components map[string]component.Component
	logger     *logger.CtxZapLogger // 可选的日志组件（后注入）
}

// NewRegistry 创建组件注册中心
func NewRegistry() *Registry {
	return &Registry{
		components: make(map[string]component.Component),
	}
}

// Register 注册组件
func (r *Registry) Register(comp component.Component) error {
	if comp == nil {
		return fmt.Errorf("组件不能为空")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := comp.Name()
	if name == "" {
		return fmt.Errorf("组件名称不能为空")
	}

	if _, exists := r.components[name]; exists {
		return fmt.Errorf("组件 '%s' 已存在", name)
	}

	r.components[name] = comp
	return nil
}

// MustRegister 注册组件（失败则 panic）
// 适用于核心组件注册，失败时采用 Fail Fast 策略
func (r *Registry) MustRegister(comp component.Component) {
	if err := r.Register(comp); err != nil {
		panic(fmt.Sprintf("注册核心组件 '%s' 失败: %v", comp.Name(), err))
	}
}

// SetLogger 设置日志组件（只允许设置一次）
func (r *Registry) SetLogger(l *logger.CtxZapLogger) {
	if r.logger != nil {
		panic("Registry logger 已设置，禁止重复设置")
	}
	if l == nil {
		panic("Registry logger 不能为 nil")
	}
	r.logger = l
}

// Get 获取组件
func (r *Registry) Get(name string) (component.Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	comp, ok := r.components[name]
	return comp, ok
}

// Has 检查组件是否存在
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// GetTyped 泛型函数获取组件并自动类型转换（包级别函数）
func GetTyped[T component.Component](r *Registry, name string) (T, bool) {
	var zero T
	comp, ok := r.Get(name)
	if !ok {
		return zero, false
	}

	typed, ok := comp.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// Resolve 拓扑排序，返回按依赖顺序排列的组件
func (r *Registry) Resolve() ([]component.Component, error) {
	layers, err := r.resolveLayers()
	if err != nil {
		return nil, err
	}

	var result []component.Component
	for _, layer := range layers {
		result = append(result, layer...)
	}
	return result, nil
}

// Init 按依赖顺序初始化所有组件
// 配置组件必须已注册（它实现 component.ConfigLoader 接口）
func (r *Registry) Init(ctx context.Context) error {
	r.logDebug(ctx, "开始初始化组件", zap.Int("total", len(r.components)))

	configComp, ok := r.Get(component.ComponentConfig)
	if !ok {
		return fmt.Errorf("配置组件未注册")
	}

	loader, ok := configComp.(component.ConfigLoader)
	if !ok {
		return fmt.Errorf("配置组件未实现 ConfigLoader 接口")
	}

	layers, err := r.resolveLayers()
	if err != nil {
		return fmt.Errorf("解析组件依赖失败: %w", err)
	}

	for _, layer := range layers {
		if err := r.runLayer(layer, func(c component.Component) error {
			r.logDebug(ctx, "初始化组件", zap.String("component", c.Name()))
			return c.Init(ctx, loader)
		}); err != nil {
			return err
		}
	}

	r.logDebug(ctx, "所有组件初始化完成")
	return nil
}

// Start 按依赖顺序启动所有组件
func (r *Registry) Start(ctx context.Context) error {
	layers, err := r.resolveLayers()
	if err != nil {
		return fmt.Errorf("解析组件依赖失败: %w", err)
	}

	for _, layer := range layers {
		if err := r.runLayer(layer, func(c component.Component) error {
			r.logDebug(ctx, "启动组件", zap.String("component", c.Name()))
			return c.Start(ctx)
		}); err != nil {
			return err
		}
	}

	r.logDebug(ctx, "所有组件启动完成")
	return nil
}

// Stop 反向顺序停止所有组件（忽略 Stop 错误，确保所有组件都尝试停止）
func (r *Registry) Stop(ctx context.Context) error {
	layers, err := r.resolveLayers()
	if err != nil {
		return fmt.Errorf("解析组件依赖失败: %w", err)
	}

	for i := len(layers) - 1; i >= 0; i-- {
		r.stopLayer(ctx, layers[i])
	}

	r.logDebug(ctx, "所有组件已停止")
	return nil
}

// runLayer 并发执行单层组件的某个生命周期函数
func (r *Registry) runLayer(layer []component.Component, fn func(component.Component) error) error {
	if len(layer) == 0 {
		return nil
	}

	if len(layer) == 1 {
		comp := layer[0]
		if err := fn(comp); err != nil {
			return fmt.Errorf("组件 '%s' 执行失败: %w", comp.Name(), err)
		}
		return nil
	}

	type result struct {
		comp component.Component
		err  error
	}

	results := make(chan result, len(layer))
	for _, comp := range layer {
		go func(c component.Component) {
			results <- result{comp: c, err: fn(c)}
		}(comp)
	}

	for range layer {
		res := <-results
		if res.err != nil {
			return fmt.Errorf("组件 '%s' 执行失败: %w", res.comp.Name(), res.err)
		}
	}

	return nil
}

// stopLayer 并发停止单层组件（忽略错误）
func (r *Registry) stopLayer(ctx context.Context, layer []component.Component) {
	var wg sync.WaitGroup
	for _, comp := range layer {
		wg.Add(1)
		go func(c component.Component) {
			defer wg.Done()
			_ = c.Stop(ctx)
		}(comp)
	}
	wg.Wait()
}

// resolveLayers 将拓扑排序结果按层分组，方便并发执行
func (r *Registry) resolveLayers() ([][]component.Component, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inDegree := make(map[string]int)
	graph := make(map[string][]string)

	for name := range r.components {
		inDegree[name] = 0
		graph[name] = []string{}
	}

	for name, comp := range r.components {
		for _, dep := range comp.DependsOn() {
			depName := strings.TrimPrefix(dep, optionalPrefix)
			isOptional := depName != dep

			if _, ok := r.components[depName]; !ok {
				if !isOptional {
					return nil, fmt.Errorf("组件 '%s' 依赖 '%s' 未注册", name, depName)
				}
				// 可选依赖未注册：跳过
				continue
			}

			graph[depName] = append(graph[depName], name)
			inDegree[name]++
		}
	}

	var layers [][]component.Component
	processed := make(map[string]bool)

	for len(processed) < len(r.components) {
		var currentLayer []string
		for name, degree := range inDegree {
			if processed[name] {
				continue
			}
			if degree == 0 {
				currentLayer = append(currentLayer, name)
				processed[name] = true
			}
		}

		if len(currentLayer) == 0 {
			return nil, fmt.Errorf("检测到循环依赖")
		}

		layer := make([]component.Component, 0, len(currentLayer))
		for _, name := range currentLayer {
			layer = append(layer, r.components[name])
			for _, next := range graph[name] {
				inDegree[next]--
			}
		}

		layers = append(layers, layer)
	}

	return layers, nil
}

// logDebug 安全的 Debug 日志（Logger 未注入时静默忽略）
func (r *Registry) logDebug(ctx context.Context, msg string, fields ...zap.Field) {
	if r.logger != nil {
		r.logger.DebugCtx(ctx, msg, fields...)
	}
}
