package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventKind 是交互事件类型。
type EventKind string

const (
	EventView      EventKind = "view"
	EventSearch    EventKind = "search"
	EventAddToCart EventKind = "add_to_cart"
	EventWishlist  EventKind = "wishlist"
	EventPurchase  EventKind = "purchase"
	EventClick     EventKind = "click"
)

// 各类历史的保留上限，最近的在前，超出截断。
const (
	MaxViewHistory     = 100
	MaxSearchHistory   = 50
	MaxCartHistory     = 50
	MaxWishlistHistory = 100
)

// Valid 检查事件类型是否在固定集合内。
func (k EventKind) Valid() bool {
	switch k {
	case EventView, EventSearch, EventAddToCart, EventWishlist, EventPurchase, EventClick:
		return true
	}
	return false
}

// RequiresProduct 检查该事件类型是否必须携带商品 ID。
// search 可以没有商品；purchase 经由订单协作方落库，这里只做缓存失效。
func (k EventKind) RequiresProduct() bool {
	switch k {
	case EventView, EventAddToCart, EventWishlist, EventClick:
		return true
	}
	return false
}

// InteractionEvent 是一条用户交互事件。写入后不可变。
// 按 Kind 取用对应的元数据字段，未用到的字段保持零值。
type InteractionEvent struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Kind      EventKind `json:"kind"`
	ProductID string    `json:"productId,omitempty"`
	At        time.Time `json:"at"`

	// 元数据（按 Kind 取用）
	Query       string `json:"query,omitempty"`       // search
	Duration    int    `json:"duration,omitempty"`    // view，秒
	Quantity    int    `json:"quantity,omitempty"`    // add_to_cart / purchase
	Size        string `json:"size,omitempty"`        // add_to_cart
	Color       string `json:"color,omitempty"`       // add_to_cart
	ResultCount int    `json:"resultCount,omitempty"` // search
}

// NewEvent 创建一条交互事件，自动分配 ID 与时间戳。
func NewEvent(userID string, kind EventKind) *InteractionEvent {
	return &InteractionEvent{
		ID:     uuid.NewString(),
		UserID: userID,
		Kind:   kind,
		At:     time.Now(),
	}
}

// HistoryStore 是用户行为历史协作方的读写接口。
// 读路径服务画像构建与策略召回；写路径只有 AppendEvent 一个入口。
type HistoryStore interface {
	// RecentViews 获取最近浏览事件，最近的在前
	RecentViews(ctx context.Context, userID string, limit int) ([]*InteractionEvent, error)

	// RecentSearches 获取最近搜索事件，最近的在前
	RecentSearches(ctx context.Context, userID string, limit int) ([]*InteractionEvent, error)

	// CartAdditions 获取最近加购事件，最近的在前
	CartAdditions(ctx context.Context, userID string, limit int) ([]*InteractionEvent, error)

	// WishlistEvents 获取收藏事件，最近的在前
	WishlistEvents(ctx context.Context, userID string) ([]*InteractionEvent, error)

	// AppendEvent 追加一条事件到对应的有界历史（最近的在前，超上限截断）
	AppendEvent(ctx context.Context, ev *InteractionEvent) error

	// PricePreference 获取用户显式存储的价格偏好，没有则返回 NOT_FOUND
	PricePreference(ctx context.Context, userID string) (*PriceBand, error)
}

// ViewVelocityStore 提供全站近期浏览速率（热门召回的视图信号）。
type ViewVelocityStore interface {
	// RecentProductViews 聚合最近 days 天内各商品的浏览次数
	RecentProductViews(ctx context.Context, days int) (map[string]float64, error)
}
