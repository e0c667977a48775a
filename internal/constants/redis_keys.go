package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// MatchModulePrefix 匹配模块
	MatchModulePrefix = "match"

	// EntityResult 匹配结果实体
	EntityResult = "result"

	// KeyMatchResult 匹配结果缓存 (STRING)
	// 格式: app:match:result:{offerMD5}:{cvMD5}
	KeyMatchResult = AppPrefix + ":" + MatchModulePrefix + ":" + EntityResult + ":%s:%s"
)
