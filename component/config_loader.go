package component

// ConfigLoader 配置加载器接口
//
// 提供统一的配置读取能力，组件通过此接口读取自己的配置段，
// 避免组件依赖具体的配置结构
type ConfigLoader interface {
	// Get 获取配置项（如 "cache.stale_after"）
	Get(key string) any

	// Unmarshal 将配置段反序列化到结构体
	//
	// 示例：
	//   var cfg push.Config
	//   if err := loader.Unmarshal("push", &cfg); err != nil {
	//       return err
	//   }
	Unmarshal(key string, v any) error

	// GetString 获取字符串配置
	GetString(key string) string

	// GetInt 获取整型配置
	GetInt(key string) int

	// GetBool 获取布尔配置
	GetBool(key string) bool

	// IsSet 检查配置项是否存在
	IsSet(key string) bool
}
