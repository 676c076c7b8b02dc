package rerank

import (
	"context"
	"testing"

	"github.com/rushteam/shoprec/core"
)

func boostedItem(id string, score float64, source string) *core.Item {
	it := core.NewItem(id)
	it.Score = score
	it.PutLabel("recall_source", core.Label{Value: source, Source: "recall"})
	return it
}

func TestNewBoostRejectsBadExpression(t *testing.T) {
	_, err := NewBoost([]Rule{{Name: "bad", When: "item.score >>> 1", Factor: 2}})
	if err == nil {
		t.Fatal("want compile error")
	}
}

func TestNewBoostSkipsInertRules(t *testing.T) {
	b, err := NewBoost([]Rule{
		{Name: "no-expr", When: "", Factor: 2},
		{Name: "no-factor", When: "item.score > 0", Factor: 0},
	})
	if err != nil {
		t.Fatalf("NewBoost: %v", err)
	}
	if len(b.rules) != 0 {
		t.Fatalf("rules = %d, want inert rules skipped", len(b.rules))
	}
}

func TestBoostAppliesFactorAndResorts(t *testing.T) {
	b, err := NewBoost([]Rule{
		{Name: "trending", When: `label.recall_source == "trending"`, Factor: 3},
	})
	if err != nil {
		t.Fatalf("NewBoost: %v", err)
	}

	items := []*core.Item{
		boostedItem("a", 10, "content"),
		boostedItem("b", 5, "trending"),
	}
	out, err := b.Process(context.Background(), &core.RecommendContext{}, items)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	// b: 5×3 = 15 > 10，必须重排到首位
	if out[0].ID != "b" || out[0].Score != 15 {
		t.Fatalf("top = %s score %f, want boosted b at 15", out[0].ID, out[0].Score)
	}
	if _, ok := out[0].GetLabel("boost_trending"); !ok {
		t.Fatal("boost label missing")
	}
	if out[1].Score != 10 {
		t.Fatalf("unmatched item score = %f, want untouched", out[1].Score)
	}
}

func TestBoostProductExpression(t *testing.T) {
	b, err := NewBoost([]Rule{
		{Name: "cheap", When: `product.price < 50.0`, Factor: 2},
	})
	if err != nil {
		t.Fatalf("NewBoost: %v", err)
	}

	cheap := boostedItem("a", 1, "content")
	cheap.Meta["product"] = &core.Product{ID: "a", Price: 20}
	pricey := boostedItem("b", 1, "content")
	pricey.Meta["product"] = &core.Product{ID: "b", Price: 200}
	// 无商品元信息：表达式求值失败按未命中处理
	bare := boostedItem("c", 1, "content")

	out, err := b.Process(context.Background(), &core.RecommendContext{}, []*core.Item{cheap, pricey, bare})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out[0].ID != "a" || out[0].Score != 2 {
		t.Fatalf("top = %s score %f, want cheap product boosted", out[0].ID, out[0].Score)
	}
	for _, it := range out[1:] {
		if it.Score != 1 {
			t.Fatalf("item %s score = %f, want 1", it.ID, it.Score)
		}
	}
}

func TestTopN(t *testing.T) {
	items := []*core.Item{core.NewItem("a"), core.NewItem("b"), core.NewItem("c")}

	out, err := (&TopN{N: 2}).Process(context.Background(), nil, items)
	if err != nil || len(out) != 2 {
		t.Fatalf("TopN = (%d, %v), want 2", len(out), err)
	}
	out, err = (&TopN{}).Process(context.Background(), nil, items)
	if err != nil || len(out) != 3 {
		t.Fatalf("TopN zero = (%d, %v), want passthrough", len(out), err)
	}
}
