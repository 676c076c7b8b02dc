package recall

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rushteam/shoprec/core"
)

// Collaborative 是基于用户的协同召回（u2i 工程拆分）。
//
// 算法流程：
//  1. 目标用户 → 加权商品交互集（购买按数量×衰减，近期浏览，收藏）
//  2. 找订单历史与交互集有交集的同好用户，按 2·|共同商品| + 0.1·共同数量 打分
//  3. 取 Top 同好，聚合他们近期买了、而目标用户没有的商品
//
// 无任何购买/浏览/收藏信号时返回空（冷启动落到其他策略）。
type Collaborative struct {
	Orders  core.OrderStore
	History core.HistoryStore

	// MaxPeers 保留的同好用户数，默认 100
	MaxPeers int

	// PeerWindow 同好订单的回看窗口，默认 90 天
	PeerWindow time.Duration

	Now func() time.Time
}

func (r *Collaborative) Name() string { return SourceCollaborative }

func (r *Collaborative) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Collaborative) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if r.Orders == nil || r.History == nil || rctx.Anonymous() {
		return nil, nil
	}
	now := r.now()

	owned, err := r.interactionSet(ctx, rctx.UserID, now)
	if err != nil {
		return nil, err
	}
	if len(owned) == 0 {
		return nil, nil
	}

	window := r.PeerWindow
	if window <= 0 {
		window = 90 * 24 * time.Hour
	}
	recentOrders, err := r.Orders.ListOrdersSince(ctx, now.Add(-window))
	if err != nil {
		return nil, err
	}

	// 同好打分：2·|共同商品| + 0.1·共同数量
	type peerStat struct {
		shared   map[string]struct{}
		quantity int
		orders   []*core.Order
	}
	peers := make(map[string]*peerStat)
	for _, order := range recentOrders {
		if order.UserID == rctx.UserID {
			continue
		}
		ps := peers[order.UserID]
		if ps == nil {
			ps = &peerStat{shared: make(map[string]struct{})}
			peers[order.UserID] = ps
		}
		ps.orders = append(ps.orders, order)
		for _, item := range order.Items {
			if _, ok := owned[item.ProductID]; ok {
				ps.shared[item.ProductID] = struct{}{}
				ps.quantity += item.Quantity
			}
		}
	}

	type scoredPeer struct {
		userID string
		score  float64
	}
	scoredPeers := make([]scoredPeer, 0, len(peers))
	for userID, ps := range peers {
		if len(ps.shared) == 0 {
			continue
		}
		scoredPeers = append(scoredPeers, scoredPeer{
			userID: userID,
			score:  2*float64(len(ps.shared)) + 0.1*float64(ps.quantity),
		})
	}
	sort.Slice(scoredPeers, func(i, j int) bool {
		if scoredPeers[i].score != scoredPeers[j].score {
			return scoredPeers[i].score > scoredPeers[j].score
		}
		return scoredPeers[i].userID < scoredPeers[j].userID
	})
	maxPeers := r.MaxPeers
	if maxPeers <= 0 {
		maxPeers = 100
	}
	if len(scoredPeers) > maxPeers {
		scoredPeers = scoredPeers[:maxPeers]
	}

	// 聚合同好买过、目标用户未交互的商品：
	// 数量×(30 天内订单 2 倍) + 2·去重买家数
	candQty := make(map[string]float64)
	candBuyers := make(map[string]map[string]struct{})
	for _, sp := range scoredPeers {
		for _, order := range peers[sp.userID].orders {
			orderWeight := 1.0
			if now.Sub(order.CreatedAt) < 30*24*time.Hour {
				orderWeight = 2.0
			}
			for _, item := range order.Items {
				if _, ok := owned[item.ProductID]; ok {
					continue
				}
				candQty[item.ProductID] += float64(item.Quantity) * orderWeight
				if candBuyers[item.ProductID] == nil {
					candBuyers[item.ProductID] = make(map[string]struct{})
				}
				candBuyers[item.ProductID][sp.userID] = struct{}{}
			}
		}
	}

	type scoredItem struct {
		id    string
		score float64
	}
	scores := make([]scoredItem, 0, len(candQty))
	for id, qty := range candQty {
		scores = append(scores, scoredItem{
			id:    id,
			score: qty + 2*float64(len(candBuyers[id])),
		})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].id < scores[j].id
	})
	if rctx.Limit > 0 && len(scores) > rctx.Limit {
		scores = scores[:rctx.Limit]
	}

	out := make([]*core.Item, 0, len(scores))
	for _, s := range scores {
		it := core.NewItem(s.id)
		it.Score = s.score
		it.PutLabel("recall_source", core.Label{Value: SourceCollaborative, Source: "recall"})
		it.PutLabel("peer_buyers", core.Label{Value: "shared", Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}

// interactionSet 构建目标用户的加权交互集：
// 购买 = 数量 × 90 天指数衰减，浏览 0.5，收藏 1.0。
func (r *Collaborative) interactionSet(ctx context.Context, userID string, now time.Time) (map[string]float64, error) {
	owned := make(map[string]float64)

	orders, err := r.Orders.ListUserOrders(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, order := range orders {
		decay := math.Exp(-now.Sub(order.CreatedAt).Hours() / 24 / 90)
		for _, item := range order.Items {
			owned[item.ProductID] += float64(item.Quantity) * decay
		}
	}

	// 协作方部分失败只丢信号，不中断
	if views, err := r.History.RecentViews(ctx, userID, core.MaxViewHistory); err == nil {
		for _, ev := range views {
			if ev.ProductID != "" {
				owned[ev.ProductID] += 0.5
			}
		}
	}
	if wishes, err := r.History.WishlistEvents(ctx, userID); err == nil {
		for _, ev := range wishes {
			if ev.ProductID != "" {
				owned[ev.ProductID] += 1.0
			}
		}
	}
	return owned, nil
}
