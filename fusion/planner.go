// Package fusion 实现配额规划与多策略融合合并。
package fusion

import (
	"context"
	"time"

	"github.com/rushteam/shoprec/core"
)

// Quotas 是各策略在本次请求中贡献的名额。
type Quotas struct {
	Content       int
	Collaborative int
	Trending      int
	NewArrivals   int
}

// Total 返回配额总和（不变式：≤ 请求 limit）。
func (q Quotas) Total() int {
	return q.Content + q.Collaborative + q.Trending + q.NewArrivals
}

// Planner 按用户近期活跃度决定各策略的配额分配。
type Planner struct {
	History core.HistoryStore
	Orders  core.OrderStore

	// HighActivityThreshold 最近一小时的浏览+搜索次数达到该值视为高活跃，默认 5
	HighActivityThreshold int

	Now func() time.Time
}

func (p *Planner) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Classify 划分活跃度分层：
//   - high：最近一小时浏览+搜索达到阈值
//   - moderate：有任意历史（浏览/搜索/订单）
//   - cold：全无
//
// 协作方失败按无信号处理（宁可降档，不失败请求）。
func (p *Planner) Classify(ctx context.Context, userID string) core.ActivityTier {
	if userID == "" {
		return core.TierCold
	}
	now := p.now()
	threshold := p.HighActivityThreshold
	if threshold <= 0 {
		threshold = 5
	}

	recent := 0
	total := 0
	if p.History != nil {
		if views, err := p.History.RecentViews(ctx, userID, core.MaxViewHistory); err == nil {
			total += len(views)
			for _, ev := range views {
				if now.Sub(ev.At) <= time.Hour {
					recent++
				}
			}
		}
		if searches, err := p.History.RecentSearches(ctx, userID, core.MaxSearchHistory); err == nil {
			total += len(searches)
			for _, ev := range searches {
				if now.Sub(ev.At) <= time.Hour {
					recent++
				}
			}
		}
	}
	if recent >= threshold {
		return core.TierHigh
	}

	if p.Orders != nil {
		if orders, err := p.Orders.ListUserOrders(ctx, userID); err == nil {
			total += len(orders)
		}
	}
	if total > 0 {
		return core.TierModerate
	}
	return core.TierCold
}

// Plan 按分层把 limit 拆成各策略配额（向下取整，最多欠配 3 个名额，
// 缺口由合并阶段的兜底补齐）：
//   - high：     60 / 20 / 10 / 10（内容为主）
//   - moderate： 50 / 25 / 15 / 10
//   - cold：     30 / 20 / 30 / 20（探索为主）
func Plan(limit int, tier core.ActivityTier) Quotas {
	if limit <= 0 {
		return Quotas{}
	}
	var c, co, t, n float64
	switch tier {
	case core.TierHigh:
		c, co, t, n = 0.6, 0.2, 0.1, 0.1
	case core.TierModerate:
		c, co, t, n = 0.5, 0.25, 0.15, 0.1
	default:
		c, co, t, n = 0.3, 0.2, 0.3, 0.2
	}
	q := Quotas{
		Content:       int(float64(limit) * c),
		Collaborative: int(float64(limit) * co),
		Trending:      int(float64(limit) * t),
		NewArrivals:   int(float64(limit) * n),
	}
	// limit 很小时保证至少主策略有名额
	if q.Total() == 0 {
		if tier == core.TierCold {
			q.Trending = limit
		} else {
			q.Content = limit
		}
	}
	return q
}
