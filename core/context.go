package core

// ActivityTier 是用户近期活跃度分层，驱动配额分配与合并优先级。
type ActivityTier int

const (
	TierCold ActivityTier = iota // 新用户 / 无历史
	TierModerate
	TierHigh
)

func (t ActivityTier) String() string {
	switch t {
	case TierHigh:
		return "high"
	case TierModerate:
		return "moderate"
	default:
		return "cold"
	}
}

// RecommendContext 承载一次推荐请求的用户/场景信息，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	UserID string // 空表示匿名
	Scene  string // mixed / content / collaborative / trending / new
	Limit  int

	// Tier 是规划阶段算出的活跃度分层
	Tier ActivityTier

	// Profile 是画像构建器的输出；无可用历史时为 nil
	Profile *PreferenceProfile

	// Params 请求级上下文参数
	Params map[string]any
}

// Anonymous 检查是否匿名请求。
func (rctx *RecommendContext) Anonymous() bool {
	return rctx == nil || rctx.UserID == ""
}
