package config

import (
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// Loader 配置加载器（支持多数据源按优先级合并）
type Loader struct {
	sources      []ConfigSource // 数据源列表
	mergedConfig map[string]any // 合并后的扁平配置
	v            *viper.Viper   // Viper 实例（提供类型化读取和 Unmarshal）
	loadedFiles  []string       // 已加载的文件列表（用于日志）
}

// NewLoader 创建配置加载器
func NewLoader() *Loader {
	return &Loader{
		sources:      make([]ConfigSource, 0),
		mergedConfig: make(map[string]any),
		v:            viper.New(),
		loadedFiles:  make([]string, 0),
	}
}

// AddSource 添加配置数据源
func (l *Loader) AddSource(source ConfigSource) {
	l.sources = append(l.sources, source)
}

// Load 加载并合并所有数据源
func (l *Loader) Load() error {
	// 按优先级从低到高排序，高优先级后合并覆盖低优先级
	sort.SliceStable(l.sources, func(i, j int) bool {
		return l.sources[i].Priority() < l.sources[j].Priority()
	})

	l.mergedConfig = make(map[string]any)
	l.loadedFiles = l.loadedFiles[:0]

	for _, source := range l.sources {
		data, err := source.Load()
		if err != nil {
			return ErrSourceLoad.WithData("source", source.Name()).Wrap(err)
		}

		if fileSource, ok := source.(*FileSource); ok {
			l.loadedFiles = append(l.loadedFiles, fileSource.path)
		}

		for key, value := range data {
			l.mergedConfig[key] = value
		}
	}

	l.syncToViper()
	return nil
}

// syncToViper 将合并后的配置同步到 Viper
func (l *Loader) syncToViper() {
	nested := unflattenMap(l.mergedConfig)

	l.v = viper.New()
	for key, value := range nested {
		l.v.Set(key, value)
	}
}

// unflattenMap 将扁平 map 还原为嵌套 map
// 例如：{"cache.stale_after": 30} -> {"cache": {"stale_after": 30}}
func unflattenMap(flat map[string]any) map[string]any {
	result := make(map[string]any)
	for key, value := range flat {
		setNestedValue(result, key, value)
	}
	return result
}

// setNestedValue 按点号路径写入嵌套 map
func setNestedValue(m map[string]any, key string, value any) {
	keys := strings.Split(key, ".")

	current := m
	for i := 0; i < len(keys)-1; i++ {
		k := keys[i]
		if _, ok := current[k]; !ok {
			current[k] = make(map[string]any)
		}

		if nested, ok := current[k].(map[string]any); ok {
			current = nested
		} else {
			// 中间节点不是 map 时覆盖为 map
			newMap := make(map[string]any)
			current[k] = newMap
			current = newMap
		}
	}

	current[keys[len(keys)-1]] = value
}

// Unmarshal 将整个配置反序列化到结构体
func (l *Loader) Unmarshal(v any) error {
	return l.v.Unmarshal(v)
}

// UnmarshalKey 将指定配置段反序列化到结构体
func (l *Loader) UnmarshalKey(key string, v any) error {
	return l.v.UnmarshalKey(key, v)
}

// Get 获取配置值
func (l *Loader) Get(key string) any {
	return l.v.Get(key)
}

// GetString 获取字符串配置
func (l *Loader) GetString(key string) string {
	return l.v.GetString(key)
}

// GetInt 获取整型配置
func (l *Loader) GetInt(key string) int {
	return l.v.GetInt(key)
}

// GetBool 获取布尔配置
func (l *Loader) GetBool(key string) bool {
	return l.v.GetBool(key)
}

// IsSet 检查配置项是否存在
func (l *Loader) IsSet(key string) bool {
	return l.v.IsSet(key)
}

// AllSettings 获取所有配置
func (l *Loader) AllSettings() map[string]any {
	return l.v.AllSettings()
}

// GetLoadedFiles 获取已加载的配置文件列表
func (l *Loader) GetLoadedFiles() []string {
	return l.loadedFiles
}

// Reload 重新加载所有数据源
func (l *Loader) Reload() error {
	return l.Load()
}
