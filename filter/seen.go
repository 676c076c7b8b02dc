package filter

import (
	"context"

	"github.com/rushteam/shoprec/core"
)

// Seen 剔除画像排除集中的商品。
// 内容召回已在查询层排除，这里兜住协同/热门路径漏进来的已看商品。
type Seen struct{}

func (f *Seen) Name() string { return "filter.seen" }

func (f *Seen) ShouldFilter(_ context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	if item == nil || rctx == nil || rctx.Profile == nil {
		return false, nil
	}
	for _, id := range rctx.Profile.RecentlySeen {
		if id == item.ID {
			return true, nil
		}
	}
	return false, nil
}
