// Package engine 是推荐引擎的编排层：画像 → 配额规划 → Pipeline →
// 富化。对外保证"宁可降级、绝不报错"：任何内部失败都以兜底或空列表
// 收场，坏掉的推荐位比报错的推荐位更糟。
package engine

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/rushteam/shoprec/cache"
	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/filter"
	"github.com/rushteam/shoprec/fusion"
	"github.com/rushteam/shoprec/pipeline"
	"github.com/rushteam/shoprec/profile"
	"github.com/rushteam/shoprec/recall"
	"github.com/rushteam/shoprec/rerank"
)

// 请求 limit 的默认值与上限。
const (
	DefaultLimit = 10
	MaxLimit     = 50
)

// 推荐类型（HTTP type 参数）。
const (
	SceneMixed         = "mixed"
	SceneContent       = "content"
	SceneCollaborative = "collaborative"
	SceneTrending      = "trending"
	SceneNew           = "new"
)

// Deps 是引擎的全部协作方。缓存与存储构造一次、显式注入。
// Now 注入后透传给画像、规划与各召回策略，保证整条链路同一时钟。
type Deps struct {
	Products core.ProductStore
	Orders   core.OrderStore
	History  core.HistoryStore
	Views    core.ViewVelocityStore
	Cache    *cache.Cache
	Boost    *rerank.Boost // 可为 nil
	Logger   *zap.Logger
	Now      func() time.Time // 可为 nil，取 time.Now
}

// Engine 组装并执行推荐链路。
type Engine struct {
	deps     Deps
	profiles *profile.Builder
	planner  *fusion.Planner
	merger   *fusion.Merger
	fallback recall.Source
	logger   *zap.Logger

	Now func() time.Time
}

func New(deps Deps) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	fallback := &recall.Fallback{Products: deps.Products}
	e := &Engine{
		deps: deps,
		profiles: &profile.Builder{
			Products: deps.Products,
			Orders:   deps.Orders,
			History:  deps.History,
			Now:      deps.Now,
		},
		planner: &fusion.Planner{
			History: deps.History,
			Orders:  deps.Orders,
			Now:     deps.Now,
		},
		fallback: fallback,
		logger:   logger,
		Now:      deps.Now,
	}
	e.merger = &fusion.Merger{
		Content: &recall.Cached{
			Source:       &recall.Content{Products: deps.Products, Now: deps.Now},
			Cache:        deps.Cache,
			Personalized: true,
		},
		Collaborative: &recall.Cached{
			Source:       &recall.Collaborative{Orders: deps.Orders, History: deps.History, Now: deps.Now},
			Cache:        deps.Cache,
			Personalized: true,
		},
		Trending: &recall.Cached{
			Source: &recall.Trending{Orders: deps.Orders, Views: deps.Views, Now: deps.Now},
			Cache:  deps.Cache,
		},
		NewArrivals: &recall.Cached{
			Source:       &recall.NewArrivals{Products: deps.Products, Now: deps.Now},
			Cache:        deps.Cache,
			Personalized: true,
		},
		// 兜底是廉价的随机采样，不缓存（缓存会把一次采样钉住几分钟）
		Fallback: fallback,
		Logger:   logger,
	}
	return e
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// ClampLimit 把请求 limit 收敛到 [1, MaxLimit]，0 取默认。
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Recommend 执行一次推荐请求。永远返回合法（可能为空）的列表。
func (e *Engine) Recommend(ctx context.Context, userID, scene string, limit int) []core.Recommendation {
	limit = ClampLimit(limit)
	rctx := &core.RecommendContext{
		UserID: userID,
		Scene:  scene,
		Limit:  limit,
	}

	if userID != "" {
		if p, err := e.profiles.Build(ctx, userID); err == nil {
			rctx.Profile = p
		} else {
			e.logger.Warn("profile build failed", zap.String("user", userID), zap.Error(err))
		}
		rctx.Tier = e.planner.Classify(ctx, userID)
	}

	quotas := e.plan(rctx)
	items, err := e.run(ctx, rctx, quotas)
	if err != nil {
		e.logger.Warn("pipeline failed, falling back",
			zap.String("user", userID),
			zap.String("scene", scene),
			zap.Error(err))
		items, err = e.fallback.Recall(ctx, rctx)
		if err != nil {
			e.logger.Warn("fallback failed", zap.Error(err))
			return []core.Recommendation{}
		}
		if len(items) > limit {
			items = items[:limit]
		}
	}
	items = e.fillShortfall(ctx, rctx, items)
	return e.enrich(ctx, rctx, items)
}

// fillShortfall 在过滤阶段之后再补一次兜底：合并阶段补齐的条目可能被
// 库存/已看过滤掉，导致最终列表欠配。兜底本身只取在售商品并排除画像
// 里的已看集合，补进来的条目不需要重走过滤。
func (e *Engine) fillShortfall(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) []*core.Item {
	if rctx.Limit <= 0 || len(items) >= rctx.Limit {
		return items
	}
	// 放宽采样上限，给去重留余量
	frctx := *rctx
	frctx.Limit = rctx.Limit + len(items)
	extra, err := e.fallback.Recall(ctx, &frctx)
	if err != nil {
		e.logger.Warn("shortfall refill failed", zap.String("user", rctx.UserID), zap.Error(err))
		return items
	}
	have := make(map[string]struct{}, len(items))
	for _, it := range items {
		have[it.ID] = struct{}{}
	}
	for _, it := range extra {
		if it == nil {
			continue
		}
		if _, dup := have[it.ID]; dup {
			continue
		}
		have[it.ID] = struct{}{}
		items = append(items, it)
		if len(items) >= rctx.Limit {
			break
		}
	}
	return items
}

func (e *Engine) plan(rctx *core.RecommendContext) fusion.Quotas {
	switch rctx.Scene {
	case SceneContent:
		return fusion.Quotas{Content: rctx.Limit}
	case SceneCollaborative:
		return fusion.Quotas{Collaborative: rctx.Limit}
	case SceneTrending:
		return fusion.Quotas{Trending: rctx.Limit}
	case SceneNew:
		return fusion.Quotas{NewArrivals: rctx.Limit}
	}
	// mixed：匿名用户跳过规划，直接热门 + 兜底
	if rctx.Anonymous() {
		return fusion.Quotas{Trending: rctx.Limit}
	}
	return fusion.Plan(rctx.Limit, rctx.Tier)
}

func (e *Engine) run(ctx context.Context, rctx *core.RecommendContext, quotas fusion.Quotas) ([]*core.Item, error) {
	nodes := []pipeline.Node{
		&fusion.Node{Merger: e.merger, Quotas: quotas},
		&filter.Node{Filters: []filter.Filter{
			&filter.Stock{Products: e.deps.Products},
			&filter.Seen{},
		}},
	}
	if e.deps.Boost != nil {
		nodes = append(nodes, e.deps.Boost)
	}
	nodes = append(nodes, &rerank.TopN{N: rctx.Limit})

	pl := &pipeline.Pipeline{Nodes: nodes, Logger: e.logger}
	return pl.Run(ctx, rctx, nil)
}

// enrich 把候选 Item 富化成面向调用方的 Recommendation。
// 查不到商品的候选静默丢弃。
func (e *Engine) enrich(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) []core.Recommendation {
	out := make([]core.Recommendation, 0, len(items))
	for rank, it := range items {
		prod, ok := it.Meta["product"].(*core.Product)
		if !ok {
			loaded, err := e.deps.Products.GetProduct(ctx, it.ID)
			if err != nil {
				continue
			}
			prod = loaded
		}
		source := recall.SourceFallback
		if lbl, ok := it.GetLabel("recall_source"); ok {
			source = lbl.Value
		}
		out = append(out, core.Recommendation{
			Product:    prod,
			Source:     source,
			Score:      it.Score,
			Reason:     reason(source, it),
			Confidence: confidence(source, rank, len(items)),
		})
	}
	return out
}

func reason(source string, it *core.Item) string {
	switch source {
	case recall.SourceContent:
		if lbl, ok := it.GetLabel("matched_category"); ok {
			return "因为你喜欢「" + lbl.Value + "」"
		}
		return "根据你的浏览和购买偏好推荐"
	case recall.SourceCollaborative:
		return "和你品味相近的用户都买了"
	case recall.SourceTrending:
		return "最近全站热卖"
	case recall.SourceNewArrivals:
		return "新品上架"
	default:
		return "热门精选"
	}
}

// confidence 按来源基准 × 位置衰减给出 [0,1] 置信度。
func confidence(source string, rank, total int) float64 {
	var base float64
	switch source {
	case recall.SourceContent:
		base = 0.9
	case recall.SourceCollaborative:
		base = 0.85
	case recall.SourceTrending:
		base = 0.7
	case recall.SourceNewArrivals:
		base = 0.6
	default:
		base = 0.4
	}
	if total > 1 {
		base *= 1 - 0.5*float64(rank)/float64(total)
	}
	if base < 0.05 {
		base = 0.05
	}
	return base
}

// Realtime 先失效调用方的缓存条目再重算，用延迟换新鲜度。
func (e *Engine) Realtime(ctx context.Context, userID string, limit int) []core.Recommendation {
	if userID != "" && e.deps.Cache != nil {
		e.deps.Cache.InvalidateUser(userID)
	}
	return e.Recommend(ctx, userID, SceneMixed, limit)
}

// ProductPageRecs 是商品详情页的三路推荐。内部任何失败都表现为空数组。
type ProductPageRecs struct {
	Similar         []core.Recommendation `json:"similar"`
	Complementary   []core.Recommendation `json:"complementary"`
	UserRecommended []core.Recommendation `json:"userRecommended"`
}

// ForProduct 计算商品详情页推荐：相似商品、搭配购买、个性化补充。
func (e *Engine) ForProduct(ctx context.Context, productID, userID string) ProductPageRecs {
	recs := ProductPageRecs{
		Similar:         []core.Recommendation{},
		Complementary:   []core.Recommendation{},
		UserRecommended: []core.Recommendation{},
	}
	seed, err := e.deps.Products.GetProduct(ctx, productID)
	if err != nil {
		return recs
	}

	recs.Similar = e.similar(ctx, seed)
	recs.Complementary = e.complementary(ctx, seed)

	if userID != "" {
		for _, r := range e.Recommend(ctx, userID, SceneContent, 7) {
			if r.Product != nil && r.Product.ID == productID {
				continue
			}
			recs.UserRecommended = append(recs.UserRecommended, r)
			if len(recs.UserRecommended) >= 6 {
				break
			}
		}
	}
	return recs
}

// similar 按属性重叠找相似商品：同类目 2 分、同品牌 1.5 分、每个共同
// 标签 1 分，再加评分项。
func (e *Engine) similar(ctx context.Context, seed *core.Product) []core.Recommendation {
	candidates, err := e.deps.Products.QueryProducts(ctx, core.ProductQuery{
		Categories:  []string{seed.Category},
		Brands:      []string{seed.Brand},
		Tags:        seed.Tags,
		ExcludeIDs:  []string{seed.ID},
		InStockOnly: true,
		Limit:       30,
	})
	if err != nil {
		return []core.Recommendation{}
	}

	seedTags := make(map[string]struct{}, len(seed.Tags))
	for _, t := range seed.Tags {
		seedTags[t] = struct{}{}
	}

	type scored struct {
		prod  *core.Product
		score float64
	}
	scores := make([]scored, 0, len(candidates))
	for _, prod := range candidates {
		var s float64
		if prod.Category == seed.Category {
			s += 2
		}
		if prod.Brand == seed.Brand {
			s += 1.5
		}
		for _, t := range prod.Tags {
			if _, ok := seedTags[t]; ok {
				s++
			}
		}
		s += prod.Rating * 0.5
		scores = append(scores, scored{prod: prod, score: s})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].prod.ID < scores[j].prod.ID
	})
	if len(scores) > 6 {
		scores = scores[:6]
	}

	out := make([]core.Recommendation, 0, len(scores))
	for rank, s := range scores {
		out = append(out, core.Recommendation{
			Product:    s.prod,
			Source:     "similar",
			Score:      s.score,
			Reason:     "相似商品",
			Confidence: confidence(recall.SourceContent, rank, len(scores)),
		})
	}
	return out
}

// complementary 按共同购买聚合搭配商品。
func (e *Engine) complementary(ctx context.Context, seed *core.Product) []core.Recommendation {
	orders, err := e.deps.Orders.ListOrdersSince(ctx, e.now().Add(-90*24*time.Hour))
	if err != nil {
		return []core.Recommendation{}
	}

	counts := make(map[string]int)
	for _, order := range orders {
		has := false
		for _, item := range order.Items {
			if item.ProductID == seed.ID {
				has = true
				break
			}
		}
		if !has {
			continue
		}
		for _, item := range order.Items {
			if item.ProductID != seed.ID {
				counts[item.ProductID]++
			}
		}
	}

	type scored struct {
		id    string
		count int
	}
	ranked := make([]scored, 0, len(counts))
	for id, c := range counts {
		ranked = append(ranked, scored{id: id, count: c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].id < ranked[j].id
	})
	if len(ranked) > 6 {
		ranked = ranked[:6]
	}

	out := make([]core.Recommendation, 0, len(ranked))
	for rank, s := range ranked {
		prod, err := e.deps.Products.GetProduct(ctx, s.id)
		if err != nil || !prod.InStock {
			continue
		}
		out = append(out, core.Recommendation{
			Product:    prod,
			Source:     "complementary",
			Score:      float64(s.count),
			Reason:     "买过该商品的用户也买了",
			Confidence: confidence(recall.SourceCollaborative, rank, len(ranked)),
		})
	}
	return out
}

// UserStats 是用户侧的互动概览。
type UserStats struct {
	Views              int      `json:"views"`
	Searches           int      `json:"searches"`
	Purchases          int      `json:"purchases"`
	WishlistSize       int      `json:"wishlistSize"`
	FavoriteCategories []string `json:"favoriteCategories"`
	Tier               string   `json:"tier"`
}

// Stats 汇总调用方自己的互动情况与数据丰富度分层。
func (e *Engine) Stats(ctx context.Context, userID string) UserStats {
	s := UserStats{FavoriteCategories: []string{}}
	if views, err := e.deps.History.RecentViews(ctx, userID, core.MaxViewHistory); err == nil {
		s.Views = len(views)
	}
	if searches, err := e.deps.History.RecentSearches(ctx, userID, core.MaxSearchHistory); err == nil {
		s.Searches = len(searches)
	}
	if orders, err := e.deps.Orders.ListUserOrders(ctx, userID); err == nil {
		s.Purchases = len(orders)
	}
	if wishes, err := e.deps.History.WishlistEvents(ctx, userID); err == nil {
		s.WishlistSize = len(wishes)
	}
	if p, err := e.profiles.Build(ctx, userID); err == nil && p != nil {
		s.FavoriteCategories = p.TopCategories(3)
	}
	s.Tier = e.planner.Classify(ctx, userID).String()
	return s
}

// ProductEngagement 是单个商品的近期互动与转化。
type ProductEngagement struct {
	ProductID   string  `json:"productId"`
	Orders      int     `json:"orders"`
	RecentViews float64 `json:"recentViews"`
	Conversion  float64 `json:"conversion"`
}

// Analytics 是管理端的聚合视图。
type Analytics struct {
	Cache        cache.Stats         `json:"cache"`
	OrdersLast7d int                 `json:"ordersLast7d"`
	BuyersLast7d int                 `json:"buyersLast7d"`
	ViewsLast3d  float64             `json:"viewsLast3d"`
	TopProducts  []ProductEngagement `json:"topProducts"`
}

// AdminAnalytics 汇总互动、转化与缓存健康度。
func (e *Engine) AdminAnalytics(ctx context.Context) Analytics {
	a := Analytics{TopProducts: []ProductEngagement{}}
	if e.deps.Cache != nil {
		a.Cache = e.deps.Cache.Stats()
	}

	orderCounts := make(map[string]int)
	buyers := make(map[string]struct{})
	if orders, err := e.deps.Orders.ListOrdersSince(ctx, e.now().Add(-7*24*time.Hour)); err == nil {
		a.OrdersLast7d = len(orders)
		for _, order := range orders {
			buyers[order.UserID] = struct{}{}
			for _, item := range order.Items {
				orderCounts[item.ProductID]++
			}
		}
	}
	a.BuyersLast7d = len(buyers)

	views := make(map[string]float64)
	if e.deps.Views != nil {
		if v, err := e.deps.Views.RecentProductViews(ctx, 3); err == nil {
			views = v
			for _, c := range v {
				a.ViewsLast3d += c
			}
		}
	}

	for id, c := range orderCounts {
		pe := ProductEngagement{ProductID: id, Orders: c, RecentViews: views[id]}
		if pe.RecentViews > 0 {
			pe.Conversion = float64(pe.Orders) / pe.RecentViews
		}
		a.TopProducts = append(a.TopProducts, pe)
	}
	sort.Slice(a.TopProducts, func(i, j int) bool {
		if a.TopProducts[i].Orders != a.TopProducts[j].Orders {
			return a.TopProducts[i].Orders > a.TopProducts[j].Orders
		}
		return a.TopProducts[i].ProductID < a.TopProducts[j].ProductID
	})
	if len(a.TopProducts) > 10 {
		a.TopProducts = a.TopProducts[:10]
	}
	return a
}
