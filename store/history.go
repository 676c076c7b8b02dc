package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rushteam/shoprec/core"
)

// History 是构建在 KeyValueStore 之上的行为历史存储。
// 每类历史是一个 JSON 列表（最近的在前，超上限截断）；浏览事件额外
// 按天累积到速率 zset，供热门召回聚合全站浏览信号。
//
// key 约定：
//   history:{kind}:{userID}   各类事件列表
//   pref:price:{userID}      显式价格偏好
//   velocity:views:{yyyymmdd} 当日各商品浏览次数（zset）
type History struct {
	KV  core.KeyValueStore
	Now func() time.Time // 为空时取 time.Now
}

func NewHistory(kv core.KeyValueStore) *History {
	return &History{KV: kv}
}

func (h *History) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func historyKey(kind core.EventKind, userID string) string {
	return fmt.Sprintf("history:%s:%s", kind, userID)
}

func velocityKey(day time.Time) string {
	return "velocity:views:" + day.Format("20060102")
}

// historyCap 返回各类历史的保留上限。
func historyCap(kind core.EventKind) int {
	switch kind {
	case core.EventView:
		return core.MaxViewHistory
	case core.EventSearch:
		return core.MaxSearchHistory
	case core.EventAddToCart:
		return core.MaxCartHistory
	case core.EventWishlist:
		return core.MaxWishlistHistory
	default:
		return core.MaxViewHistory
	}
}

func (h *History) readList(ctx context.Context, kind core.EventKind, userID string, limit int) ([]*core.InteractionEvent, error) {
	data, err := h.KV.Get(ctx, historyKey(kind, userID))
	if err != nil {
		if core.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var events []*core.InteractionEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, err
	}
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func (h *History) RecentViews(ctx context.Context, userID string, limit int) ([]*core.InteractionEvent, error) {
	return h.readList(ctx, core.EventView, userID, limit)
}

func (h *History) RecentSearches(ctx context.Context, userID string, limit int) ([]*core.InteractionEvent, error) {
	return h.readList(ctx, core.EventSearch, userID, limit)
}

func (h *History) CartAdditions(ctx context.Context, userID string, limit int) ([]*core.InteractionEvent, error) {
	return h.readList(ctx, core.EventAddToCart, userID, limit)
}

func (h *History) WishlistEvents(ctx context.Context, userID string) ([]*core.InteractionEvent, error) {
	return h.readList(ctx, core.EventWishlist, userID, 0)
}

// AppendEvent 把事件插到对应历史的头部并截断到上限。
// purchase/click 不落历史列表（订单由订单协作方记账，click 只驱动缓存失效），
// view 额外累积当天的速率 zset。
func (h *History) AppendEvent(ctx context.Context, ev *core.InteractionEvent) error {
	if ev == nil || !ev.Kind.Valid() {
		return core.NewDomainError(core.ModuleHistory, core.ErrorCodeInvalidInput, "history: invalid event")
	}

	switch ev.Kind {
	case core.EventView, core.EventSearch, core.EventAddToCart, core.EventWishlist:
		events, err := h.readList(ctx, ev.Kind, ev.UserID, 0)
		if err != nil {
			return err
		}
		events = append([]*core.InteractionEvent{ev}, events...)
		if max := historyCap(ev.Kind); len(events) > max {
			events = events[:max]
		}
		data, err := json.Marshal(events)
		if err != nil {
			return err
		}
		if err := h.KV.Set(ctx, historyKey(ev.Kind, ev.UserID), data); err != nil {
			return err
		}
	}

	if ev.Kind == core.EventView && ev.ProductID != "" {
		// 速率 zset 保留 7 天，过期靠 key 按天滚动自然淘汰
		if err := h.KV.ZIncrBy(ctx, velocityKey(h.now()), 1, ev.ProductID); err != nil {
			return err
		}
	}
	return nil
}

func (h *History) PricePreference(ctx context.Context, userID string) (*core.PriceBand, error) {
	data, err := h.KV.Get(ctx, "pref:price:"+userID)
	if err != nil {
		return nil, err
	}
	var band core.PriceBand
	if err := json.Unmarshal(data, &band); err != nil {
		return nil, err
	}
	return &band, nil
}

// SetPricePreference 写入显式价格偏好（用户侧设置页的入口）。
func (h *History) SetPricePreference(ctx context.Context, userID string, band core.PriceBand) error {
	data, err := json.Marshal(band)
	if err != nil {
		return err
	}
	return h.KV.Set(ctx, "pref:price:"+userID, data)
}

// RecentProductViews 聚合最近 days 天（含今天）的各商品浏览次数。
func (h *History) RecentProductViews(ctx context.Context, days int) (map[string]float64, error) {
	if days <= 0 {
		days = 3
	}
	out := make(map[string]float64)
	day := h.now()
	for i := 0; i < days; i++ {
		members, err := h.KV.ZRangeWithScores(ctx, velocityKey(day.AddDate(0, 0, -i)), 0, -1)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			out[m.Member] += m.Score
		}
	}
	return out, nil
}

var _ core.HistoryStore = (*History)(nil)
var _ core.ViewVelocityStore = (*History)(nil)
