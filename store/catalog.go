package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rushteam/shoprec/core"
)

// Catalog 是内存实现的 ProductStore，用于测试/开发。
// 生产环境由商品服务实现 core.ProductStore。
type Catalog struct {
	mu       sync.RWMutex
	products map[string]*core.Product
}

func NewCatalog() *Catalog {
	return &Catalog{products: make(map[string]*core.Product)}
}

func (c *Catalog) Add(products ...*core.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range products {
		c.products[p.ID] = p
	}
}

func (c *Catalog) GetProduct(ctx context.Context, id string) (*core.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[id]
	if !ok {
		return nil, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeNotFound, "catalog: product not found")
	}
	return p, nil
}

func (c *Catalog) QueryProducts(ctx context.Context, q core.ProductQuery) ([]*core.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	exclude := make(map[string]struct{}, len(q.ExcludeIDs))
	for _, id := range q.ExcludeIDs {
		exclude[id] = struct{}{}
	}

	out := make([]*core.Product, 0)
	for _, p := range c.products {
		if _, skip := exclude[p.ID]; skip {
			continue
		}
		if q.InStockOnly && !p.InStock {
			continue
		}
		if !q.CreatedAfter.IsZero() && p.CreatedAt.Before(q.CreatedAfter) {
			continue
		}
		if q.PriceMin > 0 && p.Price < q.PriceMin {
			continue
		}
		if q.PriceMax > 0 && p.Price > q.PriceMax {
			continue
		}
		if !matchDimensions(p, q) {
			continue
		}
		out = append(out, p)
	}

	// 稳定顺序：按创建时间倒序，再按 ID
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// matchDimensions 检查维度并集：四个维度都为空表示不限；
// 否则命中任一维度即候选。
func matchDimensions(p *core.Product, q core.ProductQuery) bool {
	if len(q.Categories) == 0 && len(q.Brands) == 0 && len(q.Tags) == 0 && len(q.Colors) == 0 {
		return true
	}
	for _, c := range q.Categories {
		if p.Category == c {
			return true
		}
	}
	for _, b := range q.Brands {
		if p.Brand == b {
			return true
		}
	}
	for _, t := range q.Tags {
		for _, pt := range p.Tags {
			if pt == t {
				return true
			}
		}
	}
	for _, col := range q.Colors {
		for _, pc := range p.Colors {
			if pc == col {
				return true
			}
		}
	}
	return false
}

var _ core.ProductStore = (*Catalog)(nil)

// Orders 是内存实现的 OrderStore，用于测试/开发。
type Orders struct {
	mu     sync.RWMutex
	orders []*core.Order
}

func NewOrders() *Orders {
	return &Orders{}
}

func (o *Orders) Add(orders ...*core.Order) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.orders = append(o.orders, orders...)
}

func (o *Orders) ListUserOrders(ctx context.Context, userID string) ([]*core.Order, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]*core.Order, 0)
	for _, ord := range o.orders {
		if ord.UserID == userID {
			out = append(out, ord)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (o *Orders) ListOrdersSince(ctx context.Context, since time.Time) ([]*core.Order, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]*core.Order, 0)
	for _, ord := range o.orders {
		if !ord.CreatedAt.Before(since) {
			out = append(out, ord)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

var _ core.OrderStore = (*Orders)(nil)
