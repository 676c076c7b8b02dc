package recall

import (
	"context"
	"strconv"

	"github.com/rushteam/shoprec/cache"
	"github.com/rushteam/shoprec/core"
)

// Cached 是 Source 的缓存包装器：先查缓存，未命中时计算并回填。
//
// 约束：
//   - 无部分写：只有策略完整返回后才写缓存；出错/取消不会留下半成品条目
//   - 命中与回填都做深拷贝，下游节点改分数不会污染缓存
type Cached struct {
	Source       Source
	Cache        *cache.Cache
	Personalized bool
}

func (c *Cached) Name() string { return c.Source.Name() }

func (c *Cached) key(rctx *core.RecommendContext) cache.Key {
	user := ""
	if c.Personalized {
		user = rctx.UserID
	}
	return cache.Key{
		Strategy: c.Source.Name(),
		User:     user,
		Extra:    strconv.Itoa(rctx.Limit),
	}
}

func (c *Cached) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if c.Cache == nil {
		return c.Source.Recall(ctx, rctx)
	}

	k := c.key(rctx)
	if payload, ok := c.Cache.Get(k); ok {
		if items, ok := payload.([]*core.Item); ok {
			return core.CloneItems(items), nil
		}
	}

	items, err := c.Source.Recall(ctx, rctx)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		c.Cache.Set(k, core.CloneItems(items), c.Personalized)
	}
	return items, nil
}
