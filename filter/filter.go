// Package filter 实现候选过滤：剔除缺货、近期已看等不该出现的商品。
package filter

import (
	"context"

	"github.com/rushteam/shoprec/core"
)

// Filter 是单个过滤器：返回 true 表示该商品应被剔除。
type Filter interface {
	Name() string
	ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error)
}
