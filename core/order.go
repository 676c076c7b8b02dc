package core

import (
	"context"
	"time"
)

// OrderItem 是订单中的单个条目。
type OrderItem struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// Order 是订单协作方暴露的只读订单视图。
type Order struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	Status    string      `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	Items     []OrderItem `json:"items"`
}

// Total 返回订单金额。
func (o *Order) Total() float64 {
	var sum float64
	for _, it := range o.Items {
		sum += it.Price * float64(it.Quantity)
	}
	return sum
}

// ProductIDs 返回订单内的商品 ID 列表。
func (o *Order) ProductIDs() []string {
	out := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		out = append(out, it.ProductID)
	}
	return out
}

// OrderStore 是订单历史的只读协作接口。
type OrderStore interface {
	// ListUserOrders 获取用户全部订单，最近的在前
	ListUserOrders(ctx context.Context, userID string) ([]*Order, error)

	// ListOrdersSince 获取 since 之后创建的全部订单（热门/协同聚合用）
	ListOrdersSince(ctx context.Context, since time.Time) ([]*Order, error)
}
