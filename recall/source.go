// Package recall 实现各召回策略（内容/协同/热门/新品/兜底）。
// 策略在给定输入下无副作用；缓存读写由 Cached 包装器统一承担。
package recall

import (
	"context"

	"github.com/rushteam/shoprec/core"
)

// Source 表示一个可复用的召回策略（内容/协同/热门/新品/兜底）。
// 你可以把它理解为"可并发 fan-out 的策略单元"。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}

// 策略名常量，同时充当缓存 Key 的 Strategy 段。
const (
	SourceContent       = "content"
	SourceCollaborative = "collab"
	SourceTrending      = "trending"
	SourceNewArrivals   = "new"
	SourceFallback      = "fallback"
)
