package recall

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rushteam/shoprec/core"
)

// Content 是基于内容的召回策略（Content-Based Recommendation）。
//
// 核心思想："用户喜欢具有某些特征的商品，推荐具有相似特征的其他商品"
//
// 候选来自画像 Top-K 维度的并集查询（排除近期已看，价格放宽到
// [0.7·min, 1.3·max]），打分是画像亲和度 + 商品质量信号的加权和。
type Content struct {
	Products core.ProductStore

	// TopK 每个维度取画像前 K 个值构建查询，默认 3（tag 取 5）
	TopK int

	// CandidateFactor 候选池相对 limit 的放大倍数，默认 5
	CandidateFactor int

	Now func() time.Time
}

func (r *Content) Name() string { return SourceContent }

func (r *Content) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Content) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	p := rctx.Profile
	if r.Products == nil || rctx.Anonymous() || !p.HasSignal() {
		return nil, nil
	}

	topK := r.TopK
	if topK <= 0 {
		topK = 3
	}
	factor := r.CandidateFactor
	if factor <= 0 {
		factor = 5
	}

	q := core.ProductQuery{
		Categories:  p.TopCategories(topK),
		Brands:      p.TopBrands(topK),
		Tags:        p.TopTags(topK + 2),
		Colors:      p.TopColors(topK),
		ExcludeIDs:  p.RecentlySeen,
		InStockOnly: true,
		Limit:       rctx.Limit * factor,
	}
	if p.PriceBand != nil {
		q.PriceMin = p.PriceBand.Min * 0.7
		q.PriceMax = p.PriceBand.Max * 1.3
	}

	candidates, err := r.Products.QueryProducts(ctx, q)
	if err != nil {
		return nil, err
	}

	now := r.now()
	type scored struct {
		prod  *core.Product
		score float64
	}
	scores := make([]scored, 0, len(candidates))
	for _, prod := range candidates {
		scores = append(scores, scored{prod: prod, score: r.score(p, prod, now)})
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
		it.PutLabel("recall_source", core.Label{Value: SourceContent, Source: "recall"})
		if cat := s.prod.Category; cat != "" && p.Categories[cat] > 0 {
			it.PutLabel("matched_category", core.Label{Value: cat, Source: "recall"})
		}
		out = append(out, it)
	}
	return out, nil
}

// score 计算画像匹配分：
//
//	3·类目 + 2·品牌 + 1.5·Σtag + Σ颜色 + 0.5·Σ尺码
//	+ 3·评分 + 0.5·ln(评论+1) + 0.3·ln(销量+1)
//	+ 上新加成（30 天内线性，最高 2）+ 2（价格落在画像价格带内）
func (r *Content) score(p *core.PreferenceProfile, prod *core.Product, now time.Time) float64 {
	score := 3*p.Categories[prod.Category] + 2*p.Brands[prod.Brand]

	var tagAff float64
	for _, tag := range prod.Tags {
		tagAff += p.Tags[tag]
	}
	score += 1.5 * tagAff

	for _, color := range prod.Colors {
		score += p.Colors[color]
	}
	for _, size := range prod.Sizes {
		score += 0.5 * p.Sizes[size]
	}

	score += 3 * prod.Rating
	score += 0.5 * math.Log(float64(prod.ReviewCount)+1)
	score += 0.3 * math.Log(float64(prod.TotalOrders)+1)

	if age := now.Sub(prod.CreatedAt); age >= 0 && age < 30*24*time.Hour {
		days := age.Hours() / 24
		score += 2 * (1 - days/30)
	}
	if p.PriceBand.Contains(prod.Price) {
		score += 2
	}
	return score
}
