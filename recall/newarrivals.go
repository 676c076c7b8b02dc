package recall

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rushteam/shoprec/core"
)

// NewArrivals 是新品召回：最近 30 天上架的商品，
// 有画像时按 Top 类目/品牌/标签和价格带收窄。
//
//	score = 新近项（7 天内最高，30 天线性）+ 2·评分 + log10(浏览+1)
type NewArrivals struct {
	Products core.ProductStore

	// Window 算作新品的窗口，默认 30 天
	Window time.Duration

	Now func() time.Time
}

func (r *NewArrivals) Name() string { return SourceNewArrivals }

func (r *NewArrivals) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *NewArrivals) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if r.Products == nil {
		return nil, nil
	}
	now := r.now()
	window := r.Window
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}

	q := core.ProductQuery{
		CreatedAfter: now.Add(-window),
		InStockOnly:  true,
		Limit:        rctx.Limit * 5,
	}
	if p := rctx.Profile; p.HasSignal() {
		q.Categories = p.TopCategories(3)
		q.Brands = p.TopBrands(3)
		q.Tags = p.TopTags(5)
		q.ExcludeIDs = p.RecentlySeen
		if p.PriceBand != nil {
			q.PriceMin = p.PriceBand.Min * 0.7
			q.PriceMax = p.PriceBand.Max * 1.3
		}
	}

	candidates, err := r.Products.QueryProducts(ctx, q)
	if err != nil {
		return nil, err
	}

	type scoredItem struct {
		prod  *core.Product
		score float64
	}
	scores := make([]scoredItem, 0, len(candidates))
	windowDays := window.Hours() / 24
	for _, prod := range candidates {
		days := now.Sub(prod.CreatedAt).Hours() / 24
		recency := 2 * (windowDays - days) / windowDays
		if days < 7 {
			recency += 1
		}
		score := recency + 2*prod.Rating + math.Log10(float64(prod.ViewCount)+1)
		scores = append(scores, scoredItem{prod: prod, score: score})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].prod.ID < scores[j].prod.ID
	})
	if rctx.Limit > 0 && len(scores) > rctx.Limit {
		scores = scores[:rctx.Limit]
	}

	out := make([]*core.Item, 0, len(scores))
	for _, s := range scores {
		it := core.NewItem(s.prod.ID)
		it.Score = s.score
		it.Meta["product"] = s.prod
		it.PutLabel("recall_source", core.Label{Value: SourceNewArrivals, Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}
