package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/KOMKZ/go-dashsync/component"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeComponent 测试用组件
type fakeComponent struct {
	name    string
	deps    []string
	mu      sync.Mutex
	inits   int
	starts  int
	stops   int
	initErr error
	order   *[]string
}

func (f *fakeComponent) Name() string       { return f.name }
func (f *fakeComponent) DependsOn() []string { return f.deps }

func (f *fakeComponent) Init(ctx context.Context, loader component.ConfigLoader) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inits++
	if f.order != nil {
		*f.order = append(*f.order, f.name)
	}
	return f.initErr
}

func (f *fakeComponent) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	return nil
}

func (f *fakeComponent) Stop(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	if f.order != nil {
		*f.order = append(*f.order, "stop:"+f.name)
	}
	return nil
}

// fakeConfigComponent 同时实现 Component 和 ConfigLoader
type fakeConfigComponent struct {
	fakeComponent
}

func (f *fakeConfigComponent) Get(key string) any              { return nil }
func (f *fakeConfigComponent) Unmarshal(key string, v any) error { return nil }
func (f *fakeConfigComponent) GetString(key string) string     { return "" }
func (f *fakeConfigComponent) GetInt(key string) int           { return 0 }
func (f *fakeConfigComponent) GetBool(key string) bool         { return false }
func (f *fakeConfigComponent) IsSet(key string) bool           { return false }

func newConfigComp() *fakeConfigComponent {
	return &fakeConfigComponent{fakeComponent{name: component.ComponentConfig}}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(&fakeComponent{name: "a"}))
	assert.True(t, r.Has("a"))

	// 重复注册报错
	assert.Error(t, r.Register(&fakeComponent{name: "a"}))

	// 空名称报错
	assert.Error(t, r.Register(&fakeComponent{name: ""}))
	assert.Error(t, r.Register(nil))
}

func TestRegistry_ResolveOrder(t *testing.T) {
	r := NewRegistry()

	cfg := newConfigComp()
	cacheComp := &fakeComponent{name: "cache", deps: []string{"config"}}
	pushComp := &fakeComponent{name: "push", deps: []string{"config", "cache"}}

	require.NoError(t, r.Register(pushComp))
	require.NoError(t, r.Register(cacheComp))
	require.NoError(t, r.Register(cfg))

	order, err := r.Resolve()
	require.NoError(t, err)
	require.Len(t, order, 3)

	pos := make(map[string]int)
	for i, c := range order {
		pos[c.Name()] = i
	}
	assert.Less(t, pos["config"], pos["cache"])
	assert.Less(t, pos["cache"], pos["push"])
}

func TestRegistry_MissingDependency(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeComponent{name: "push", deps: []string{"cache"}}))

	_, err := r.Resolve()
	assert.Error(t, err)
}

func TestRegistry_OptionalDependency(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeComponent{name: "syncer", deps: []string{"optional:poller"}}))

	order, err := r.Resolve()
	require.NoError(t, err)
	assert.Len(t, order, 1)
}

func TestRegistry_CycleDetection(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeComponent{name: "a", deps: []string{"b"}}))
	require.NoError(t, r.Register(&fakeComponent{name: "b", deps: []string{"a"}}))

	_, err := r.Resolve()
	assert.Error(t, err)
}

func TestRegistry_Lifecycle(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	var order []string
	cfg := newConfigComp()
	cfg.order = &order
	cacheComp := &fakeComponent{name: "cache", deps: []string{"config"}, order: &order}

	require.NoError(t, r.Register(cfg))
	require.NoError(t, r.Register(cacheComp))

	require.NoError(t, r.Init(ctx))
	require.NoError(t, r.Start(ctx))
	require.NoError(t, r.Stop(ctx))

	assert.Equal(t, 1, cfg.inits)
	assert.Equal(t, 1, cacheComp.starts)
	assert.Equal(t, 1, cacheComp.stops)

	// Init 顺序：config 先于 cache；Stop 顺序相反
	assert.Equal(t, []string{"config", "cache", "stop:cache", "stop:config"}, order)
}

func TestRegistry_InitWithoutConfig(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeComponent{name: "cache"}))

	assert.Error(t, r.Init(context.Background()))
}

func TestGetTyped(t *testing.T) {
	r := NewRegistry()
	cfg := newConfigComp()
	require.NoError(t, r.Register(cfg))

	got, ok := GetTyped[*fakeConfigComponent](r, component.ComponentConfig)
	require.True(t, ok)
	assert.Same(t, cfg, got)

	_, ok = GetTyped[*fakeConfigComponent](r, "missing")
	assert.False(t, ok)
}
