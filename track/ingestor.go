// Package track 实现交互事件采集写路径。
//
// 约束：采集失败绝不影响调用方的主请求。校验错误在任何状态变更之前
// 返回（调用方转 400）；存储/缓存侧的失败一律吞掉，只通过 Result
// 的布尔值向上反映。
package track

import (
	"context"

	"go.uber.org/zap"

	"github.com/rushteam/shoprec/cache"
	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/recall"
)

// Result 区分"已记录"与"软失败忽略"，调用方只见布尔值。
type Result struct {
	Recorded bool   `json:"success"`
	Message  string `json:"message"`
}

// Ingestor 把交互事件写入有界历史，并立即失效受影响的缓存条目。
type Ingestor struct {
	History core.HistoryStore
	Cache   *cache.Cache
	Logger  *zap.Logger
}

// Record 记录一条事件。
// 返回 error 仅表示请求本身非法（未知类型、缺商品 ID）；
// 协作方失败返回 Result{Recorded: false} 和 nil error。
func (i *Ingestor) Record(ctx context.Context, ev *core.InteractionEvent) (Result, error) {
	if ev == nil || ev.UserID == "" {
		return Result{}, core.NewDomainError(core.ModuleTrack, core.ErrorCodeInvalidInput, "track: missing user")
	}
	if !ev.Kind.Valid() {
		return Result{}, core.NewDomainError(core.ModuleTrack, core.ErrorCodeInvalidInput, "track: unknown action "+string(ev.Kind))
	}
	if ev.Kind.RequiresProduct() && ev.ProductID == "" {
		return Result{}, core.NewDomainError(core.ModuleTrack, core.ErrorCodeInvalidInput, "track: action "+string(ev.Kind)+" requires productId")
	}

	if err := i.History.AppendEvent(ctx, ev); err != nil {
		if i.Logger != nil {
			i.Logger.Warn("track append failed",
				zap.String("user", ev.UserID),
				zap.String("kind", string(ev.Kind)),
				zap.Error(err))
		}
		return Result{Recorded: false, Message: "history unavailable"}, nil
	}

	i.invalidate(ev)
	return Result{Recorded: true, Message: "recorded"}, nil
}

// invalidate 失效受该事件影响的缓存条目。
// 浏览会改变热门分（浏览速率是热门信号），购买会改变协同结果。
func (i *Ingestor) invalidate(ev *core.InteractionEvent) {
	if i.Cache == nil {
		return
	}
	i.Cache.TrackActivity(ev.UserID)
	i.Cache.InvalidateUser(ev.UserID)

	switch ev.Kind {
	case core.EventView:
		i.Cache.InvalidateStrategy(recall.SourceTrending)
	case core.EventPurchase:
		i.Cache.InvalidateStrategy(recall.SourceCollaborative)
	}
}
