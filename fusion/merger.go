package fusion

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pipeline"
	"github.com/rushteam/shoprec/recall"
)

// Merger 并发执行有配额的策略并按优先级合并结果。
//
// 合并语义：
//   - 每个策略的结果截断到自己的配额
//   - 按分层决定优先级顺序：活跃用户内容优先，冷用户热门优先
//   - 按商品 ID 去重，填满 limit 即止
//   - 全空时落到兜底策略
//
// 策略失败是软失败：该策略贡献空列表，其余照常。
type Merger struct {
	Content       recall.Source
	Collaborative recall.Source
	Trending      recall.Source
	NewArrivals   recall.Source
	Fallback      recall.Source

	// Timeout 每个策略的超时时间，默认 2s
	Timeout time.Duration

	Logger *zap.Logger
}

// Merge 执行一次融合召回。
func (m *Merger) Merge(
	ctx context.Context,
	rctx *core.RecommendContext,
	quotas Quotas,
) ([]*core.Item, error) {
	type slot struct {
		source recall.Source
		quota  int
		items  []*core.Item
	}
	slots := []*slot{
		{source: m.Content, quota: quotas.Content},
		{source: m.Collaborative, quota: quotas.Collaborative},
		{source: m.Trending, quota: quotas.Trending},
		{source: m.NewArrivals, quota: quotas.NewArrivals},
	}

	timeout := m.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	for _, s := range slots {
		if s.source == nil || s.quota <= 0 {
			continue
		}
		s := s
		eg.Go(func() error {
			recallCtx, cancel := context.WithTimeout(egCtx, timeout)
			defer cancel()

			items, err := s.source.Recall(recallCtx, rctx)
			if err != nil {
				// 超时或错误时该策略贡献空结果，不中断其他策略
				if m.Logger != nil {
					m.Logger.Warn("recall source failed",
						zap.String("source", s.source.Name()),
						zap.Error(err))
				}
				return nil
			}
			if len(items) > s.quota {
				items = items[:s.quota]
			}
			mu.Lock()
			s.items = items
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	// 优先级顺序：活跃用户内容在前，冷用户热门/新品在前
	var order []*slot
	if rctx.Tier == core.TierCold {
		order = []*slot{slots[2], slots[3], slots[0], slots[1]}
	} else {
		order = []*slot{slots[0], slots[1], slots[2], slots[3]}
	}

	merged := make([]*core.Item, 0, rctx.Limit)
	seen := make(map[string]struct{}, rctx.Limit)
	appendItems := func(items []*core.Item) bool {
		for _, it := range items {
			if it == nil {
				continue
			}
			if _, dup := seen[it.ID]; dup {
				continue
			}
			seen[it.ID] = struct{}{}
			merged = append(merged, it)
			if rctx.Limit > 0 && len(merged) >= rctx.Limit {
				return true
			}
		}
		return false
	}

	full := false
	for _, s := range order {
		if full = appendItems(s.items); full {
			break
		}
	}

	// 策略欠配（取整损耗或策略为空）时由兜底补齐
	if !full && m.Fallback != nil {
		items, err := m.Fallback.Recall(ctx, rctx)
		if err != nil {
			if len(merged) > 0 {
				return merged, nil
			}
			return nil, err
		}
		appendItems(items)
	}
	return merged, nil
}

// Node 是一次请求的融合召回节点，带上规划好的配额后挂进 Pipeline。
type Node struct {
	Merger *Merger
	Quotas Quotas
}

func (n *Node) Name() string        { return "fusion.merge" }
func (n *Node) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *Node) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return n.Merger.Merge(ctx, rctx, n.Quotas)
}
