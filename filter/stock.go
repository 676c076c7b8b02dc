package filter

import (
	"context"

	"github.com/rushteam/shoprec/core"
)

// Stock 剔除缺货或已下架的商品。
// 协同/热门路径只带商品 ID，这里顺手把加载到的商品挂进 Meta，
// 后续富化阶段不用再查一次。
type Stock struct {
	Products core.ProductStore
}

func (f *Stock) Name() string { return "filter.stock" }

func (f *Stock) ShouldFilter(ctx context.Context, _ *core.RecommendContext, item *core.Item) (bool, error) {
	if item == nil || f.Products == nil {
		return false, nil
	}
	if prod, ok := item.Meta["product"].(*core.Product); ok {
		return !prod.InStock, nil
	}

	prod, err := f.Products.GetProduct(ctx, item.ID)
	if err != nil {
		// 目录里不存在的商品直接剔除
		if core.IsNotFound(err) {
			return true, nil
		}
		return false, err
	}
	item.Meta["product"] = prod
	return !prod.InStock, nil
}
