package recall

import (
	"context"
	"math/rand"
	"sync"

	"github.com/rushteam/shoprec/core"
)

// Fallback 是兜底策略：按人气加权的随机采样。
// 用于匿名用户、无历史用户，以及所有策略都为空/失败的情况。
type Fallback struct {
	Products core.ProductStore

	// PoolSize 采样池大小，默认 200
	PoolSize int

	// 随机源可注入，为空时使用全局 rand
	mu   sync.Mutex
	Rand *rand.Rand
}

func (r *Fallback) Name() string { return SourceFallback }

func (r *Fallback) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if r.Products == nil {
		return nil, nil
	}
	poolSize := r.PoolSize
	if poolSize <= 0 {
		poolSize = 200
	}

	q := core.ProductQuery{InStockOnly: true, Limit: poolSize}
	if p := rctx.Profile; p != nil {
		q.ExcludeIDs = p.RecentlySeen
	}
	pool, err := r.Products.QueryProducts(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, nil
	}

	// 人气权重：浏览 + 2·销量 + 10·评分
	weights := make([]float64, len(pool))
	var total float64
	for i, prod := range pool {
		w := float64(prod.ViewCount) + 2*float64(prod.TotalOrders) + 10*prod.Rating
		if w <= 0 {
			w = 1
		}
		weights[i] = w
		total += w
	}

	limit := rctx.Limit
	if limit <= 0 || limit > len(pool) {
		limit = len(pool)
	}

	out := make([]*core.Item, 0, limit)
	r.mu.Lock()
	defer r.mu.Unlock()
	for len(out) < limit && total > 0 {
		// 按剩余权重轮盘采样，不放回
		target := r.randFloat() * total
		idx := -1
		var acc float64
		for i, w := range weights {
			if w <= 0 {
				continue
			}
			acc += w
			if target <= acc {
				idx = i
				break
			}
		}
		if idx < 0 {
			break
		}
		prod := pool[idx]
		it := core.NewItem(prod.ID)
		it.Score = weights[idx]
		it.Meta["product"] = prod
		it.PutLabel("recall_source", core.Label{Value: SourceFallback, Source: "recall"})
		out = append(out, it)

		total -= weights[idx]
		weights[idx] = 0
	}
	return out, nil
}

func (r *Fallback) randFloat() float64 {
	if r.Rand != nil {
		return r.Rand.Float64()
	}
	return rand.Float64()
}
