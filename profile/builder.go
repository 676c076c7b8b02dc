// Package profile 实现偏好画像构建：从原始交互历史现算加权画像。
package profile

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rushteam/shoprec/core"
)

// 各来源的基础权重：购买 > 收藏 > 加购 > 浏览 = 搜索。
const (
	weightPurchase = 3.0
	weightWishlist = 2.0
	weightCart     = 1.5
	weightView     = 1.0
	weightSearch   = 1.0
)

// 各来源的衰减窗口（天）：购买兴趣持久，浏览兴趣速朽。
const (
	decayDaysPurchase = 90.0
	decayDaysWishlist = 30.0
	decayDaysCart     = 14.0
	decayDaysSearch   = 14.0
	decayDaysView     = 3.0
)

// Builder 从浏览/搜索/订单/收藏/加购历史构建 PreferenceProfile。
// 画像按请求现算，不持久化，不原地修改。
type Builder struct {
	Products core.ProductStore
	Orders   core.OrderStore
	History  core.HistoryStore

	// SeenLimit 排除集大小，默认 20
	SeenLimit int

	Now func() time.Time
}

func (b *Builder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

// timeDecay 按经过天数做指数衰减；最近 1 小时 2 倍、24 小时 1.5 倍平坦加成。
func timeDecay(age time.Duration, decayDays float64) float64 {
	d := math.Exp(-age.Hours() / 24 / decayDays)
	switch {
	case age <= time.Hour:
		return d * 2.0
	case age <= 24*time.Hour:
		return d * 1.5
	default:
		return d
	}
}

// recencyMultiplier 给"最近列表"中靠前的事件加成：1 + 1/(index+1)。
func recencyMultiplier(index int) float64 {
	return 1 + 1/float64(index+1)
}

// Build 构建用户画像。无任何可用历史时返回 (nil, nil)。
// 单个协作方失败只丢失该来源的信号，不使整个画像失败。
func (b *Builder) Build(ctx context.Context, userID string) (*core.PreferenceProfile, error) {
	if userID == "" {
		return nil, nil
	}
	now := b.now()
	p := core.NewPreferenceProfile(userID)

	var prices []float64
	hasHistory := false

	// 浏览
	if views, err := b.History.RecentViews(ctx, userID, core.MaxViewHistory); err == nil && len(views) > 0 {
		hasHistory = true
		seenLimit := b.SeenLimit
		if seenLimit <= 0 {
			seenLimit = 20
		}
		for i, ev := range views {
			w := weightView * recencyMultiplier(i) * timeDecay(now.Sub(ev.At), decayDaysView)
			if prod := b.resolve(ctx, ev.ProductID); prod != nil {
				b.accumulate(p, prod, w)
				prices = append(prices, prod.Price)
			}
			if i < seenLimit {
				p.RecentlySeen = append(p.RecentlySeen, ev.ProductID)
			}
		}
	}

	// 搜索：查询词进 tag 亲和度
	if searches, err := b.History.RecentSearches(ctx, userID, core.MaxSearchHistory); err == nil && len(searches) > 0 {
		hasHistory = true
		for i, ev := range searches {
			if ev.Query == "" {
				continue
			}
			w := weightSearch * recencyMultiplier(i) * timeDecay(now.Sub(ev.At), decayDaysSearch)
			for _, term := range strings.Fields(strings.ToLower(ev.Query)) {
				p.Tags[term] += w
			}
		}
	}

	// 订单（购买权重最高）
	if orders, err := b.Orders.ListUserOrders(ctx, userID); err == nil && len(orders) > 0 {
		hasHistory = true
		for i, order := range orders {
			w := weightPurchase * recencyMultiplier(i) * timeDecay(now.Sub(order.CreatedAt), decayDaysPurchase)
			for _, item := range order.Items {
				if prod := b.resolve(ctx, item.ProductID); prod != nil {
					b.accumulate(p, prod, w)
					prices = append(prices, item.Price)
				}
			}
		}
	}

	// 收藏
	if wishes, err := b.History.WishlistEvents(ctx, userID); err == nil && len(wishes) > 0 {
		hasHistory = true
		for i, ev := range wishes {
			w := weightWishlist * recencyMultiplier(i) * timeDecay(now.Sub(ev.At), decayDaysWishlist)
			if prod := b.resolve(ctx, ev.ProductID); prod != nil {
				b.accumulate(p, prod, w)
				prices = append(prices, prod.Price)
			}
		}
	}

	// 加购：带用户实际选择的尺码/颜色
	if carts, err := b.History.CartAdditions(ctx, userID, core.MaxCartHistory); err == nil && len(carts) > 0 {
		hasHistory = true
		for i, ev := range carts {
			w := weightCart * recencyMultiplier(i) * timeDecay(now.Sub(ev.At), decayDaysCart)
			if prod := b.resolve(ctx, ev.ProductID); prod != nil {
				b.accumulate(p, prod, w)
				prices = append(prices, prod.Price)
			}
			if ev.Size != "" {
				p.Sizes[ev.Size] += w
			}
			if ev.Color != "" {
				p.Colors[ev.Color] += w
			}
		}
	}

	if !hasHistory {
		return nil, nil
	}

	p.PriceBand = priceBand(prices)
	if p.PriceBand == nil {
		if band, err := b.History.PricePreference(ctx, userID); err == nil {
			p.PriceBand = band
		}
	}
	return p, nil
}

func (b *Builder) resolve(ctx context.Context, productID string) *core.Product {
	if productID == "" {
		return nil
	}
	prod, err := b.Products.GetProduct(ctx, productID)
	if err != nil {
		return nil
	}
	return prod
}

// accumulate 把一次加权事件记入画像的各个维度。
// 多标签/多颜色按折减权重累加，避免标签多的商品淹没类目信号。
func (b *Builder) accumulate(p *core.PreferenceProfile, prod *core.Product, w float64) {
	if prod.Category != "" {
		p.Categories[prod.Category] += w
	}
	if prod.Brand != "" {
		p.Brands[prod.Brand] += w
	}
	for _, tag := range prod.Tags {
		p.Tags[tag] += w * 0.5
	}
	for _, color := range prod.Colors {
		p.Colors[color] += w * 0.3
	}
}

// priceBand 用 IQR 推断价格带：[Q1−0.5·IQR, Q3+0.5·IQR]，下界不为负。
func priceBand(prices []float64) *core.PriceBand {
	if len(prices) == 0 {
		return nil
	}
	sorted := append([]float64(nil), prices...)
	sort.Float64s(sorted)

	q1 := quantile(sorted, 0.25)
	q3 := quantile(sorted, 0.75)
	iqr := q3 - q1

	band := &core.PriceBand{
		Min: q1 - 0.5*iqr,
		Max: q3 + 0.5*iqr,
	}
	if band.Min < 0 {
		band.Min = 0
	}
	return band
}

// quantile 对已排序切片做线性插值分位数。
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
