package core

import (
	"context"
	"time"
)

// Product 是商品目录协作方暴露的只读商品视图。
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Brand       string    `json:"brand"`
	Price       float64   `json:"price"`
	Tags        []string  `json:"tags,omitempty"`
	Colors      []string  `json:"colors,omitempty"`
	Sizes       []string  `json:"sizes,omitempty"`
	Images      []string  `json:"images,omitempty"`
	Rating      float64   `json:"rating"`
	ReviewCount int       `json:"reviewCount"`
	ViewCount   int       `json:"viewCount"`
	TotalOrders int       `json:"totalOrders"`
	InStock     bool      `json:"inStock"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ProductQuery 是内容召回使用的候选查询。
// Categories/Brands/Tags/Colors 之间取并集（命中任一维度即候选）；
// 价格区间、排除列表、上架时间、库存为附加约束。
type ProductQuery struct {
	Categories   []string
	Brands       []string
	Tags         []string
	Colors       []string
	PriceMin     float64 // 0 表示不限
	PriceMax     float64 // 0 表示不限
	ExcludeIDs   []string
	CreatedAfter time.Time
	InStockOnly  bool
	Limit        int
}

// ProductStore 是商品目录的只读协作接口。
type ProductStore interface {
	// GetProduct 按 ID 获取商品，不存在时返回 NOT_FOUND
	GetProduct(ctx context.Context, id string) (*Product, error)

	// QueryProducts 按 ProductQuery 获取候选商品
	QueryProducts(ctx context.Context, q ProductQuery) ([]*Product, error)
}
