package component

// 组件名称常量
const (
	ComponentConfig = "config"
	ComponentLogger = "logger"
	ComponentAPI    = "api"    // 实体 REST 客户端
	ComponentCache  = "cache"  // 查询缓存
	ComponentPush   = "push"   // SSE 推送客户端
	ComponentPoller = "poller" // 条件轮询调度
	ComponentSyncer = "syncer" // 同步层门面
)
