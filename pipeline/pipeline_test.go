package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/rushteam/shoprec/core"
)

type stubNode struct {
	name string
	fn   func([]*core.Item) ([]*core.Item, error)
}

func (n *stubNode) Name() string { return n.name }
func (n *stubNode) Kind() Kind   { return KindRecall }
func (n *stubNode) Process(_ context.Context, _ *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	return n.fn(items)
}

func TestRunChainsNodes(t *testing.T) {
	p := &Pipeline{Nodes: []Node{
		&stubNode{name: "produce", fn: func([]*core.Item) ([]*core.Item, error) {
			return []*core.Item{core.NewItem("a"), core.NewItem("b")}, nil
		}},
		&stubNode{name: "truncate", fn: func(items []*core.Item) ([]*core.Item, error) {
			return items[:1], nil
		}},
	}}

	out, err := p.Run(context.Background(), &core.RecommendContext{Limit: 10}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 1 || out[0].ID != "a" {
		t.Fatalf("out = %v, want chained result", out)
	}
}

func TestRunStopsOnError(t *testing.T) {
	called := false
	p := &Pipeline{Nodes: []Node{
		&stubNode{name: "fail", fn: func([]*core.Item) ([]*core.Item, error) {
			return nil, errors.New("boom")
		}},
		&stubNode{name: "after", fn: func(items []*core.Item) ([]*core.Item, error) {
			called = true
			return items, nil
		}},
	}}

	if _, err := p.Run(context.Background(), &core.RecommendContext{}, nil); err == nil {
		t.Fatal("want error")
	}
	if called {
		t.Fatal("nodes after a failure must not run")
	}
}

func TestRunEmptyPipeline(t *testing.T) {
	p := &Pipeline{}
	items := []*core.Item{core.NewItem("a")}
	out, err := p.Run(context.Background(), &core.RecommendContext{}, items)
	if err != nil || len(out) != 1 {
		t.Fatalf("Run = (%v, %v), want passthrough", out, err)
	}
}
