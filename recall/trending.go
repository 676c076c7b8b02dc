package recall

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rushteam/shoprec/core"
)

// Trending 是全站热门召回，与单个用户无关。
//
// 订单侧：最近 7 天订单按新近度加权（24h 内 3 倍、3 天内 2 倍、7 天内 1 倍），
// 叠加去重买家数、总件数、流水的对数项；浏览侧：最近 3 天的浏览速率。
//
//	trend = 5·加权订单 + 3·去重买家 + 总件数 + 2·log10(流水+1) + 0.5·近期浏览
type Trending struct {
	Orders core.OrderStore
	Views  core.ViewVelocityStore

	// ViewDays 浏览速率回看天数，默认 3
	ViewDays int

	Now func() time.Time
}

func (r *Trending) Name() string { return SourceTrending }

func (r *Trending) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Trending) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if r.Orders == nil {
		return nil, nil
	}
	now := r.now()

	orders, err := r.Orders.ListOrdersSince(ctx, now.Add(-7*24*time.Hour))
	if err != nil {
		return nil, err
	}

	type stat struct {
		weightedOrders float64
		buyers         map[string]struct{}
		quantity       int
		revenue        float64
	}
	stats := make(map[string]*stat)
	for _, order := range orders {
		age := now.Sub(order.CreatedAt)
		var w float64
		switch {
		case age < 24*time.Hour:
			w = 3
		case age < 3*24*time.Hour:
			w = 2
		default:
			w = 1
		}
		for _, item := range order.Items {
			s := stats[item.ProductID]
			if s == nil {
				s = &stat{buyers: make(map[string]struct{})}
				stats[item.ProductID] = s
			}
			s.weightedOrders += w
			s.buyers[order.UserID] = struct{}{}
			s.quantity += item.Quantity
			s.revenue += item.Price * float64(item.Quantity)
		}
	}

	scores := make(map[string]float64, len(stats))
	for id, s := range stats {
		scores[id] = 5*s.weightedOrders +
			3*float64(len(s.buyers)) +
			float64(s.quantity) +
			2*math.Log10(s.revenue+1)
	}

	// 浏览侧信号单独聚合后叠加
	if r.Views != nil {
		days := r.ViewDays
		if days <= 0 {
			days = 3
		}
		if views, err := r.Views.RecentProductViews(ctx, days); err == nil {
			for id, count := range views {
				scores[id] += 0.5 * count
			}
		}
	}

	type scoredItem struct {
		id    string
		score float64
	}
	ranked := make([]scoredItem, 0, len(scores))
	for id, score := range scores {
		ranked = append(ranked, scoredItem{id: id, score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})
	if rctx.Limit > 0 && len(ranked) > rctx.Limit {
		ranked = ranked[:rctx.Limit]
	}

	out := make([]*core.Item, 0, len(ranked))
	for _, s := range ranked {
		it := core.NewItem(s.id)
		it.Score = s.score
		it.PutLabel("recall_source", core.Label{Value: SourceTrending, Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}
