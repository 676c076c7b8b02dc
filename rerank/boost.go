// Package rerank 实现融合后的重排节点：规则加权与 Top-N 截断。
package rerank

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/cel-go/cel"
	"go.uber.org/zap"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pipeline"
)

// Rule 是一条加权规则：When 为 CEL 表达式，命中时分数乘以 Factor。
//
// 表达式可用变量：
//   - item：{id, score}
//   - label：标签名 → 值，例如 label.recall_source == "trending"
//   - product：{price, category, brand, rating}（过滤阶段加载后可用）
type Rule struct {
	Name   string  `yaml:"name"`
	When   string  `yaml:"when"`
	Factor float64 `yaml:"factor"`
}

type compiledRule struct {
	name   string
	factor float64
	prg    cel.Program
}

// Boost 是规则加权节点。规则在构造时编译一次，Program 线程安全可复用。
type Boost struct {
	rules  []compiledRule
	Logger *zap.Logger
}

// NewBoost 编译规则集。任一表达式非法即报错，避免带病上线。
func NewBoost(rules []Rule) (*Boost, error) {
	env, err := cel.NewEnv(
		cel.Variable("item", cel.DynType),
		cel.Variable("label", cel.DynType),
		cel.Variable("product", cel.DynType),
	)
	if err != nil {
		return nil, err
	}

	b := &Boost{}
	for _, r := range rules {
		if r.When == "" || r.Factor <= 0 {
			continue
		}
		ast, issues := env.Compile(r.When)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("boost rule %q: compile error: %w", r.Name, issues.Err())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("boost rule %q: program error: %w", r.Name, err)
		}
		b.rules = append(b.rules, compiledRule{name: r.Name, factor: r.Factor, prg: prg})
	}
	return b, nil
}

func (b *Boost) Name() string        { return "rerank.boost" }
func (b *Boost) Kind() pipeline.Kind { return pipeline.KindReRank }

func (b *Boost) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(b.rules) == 0 || len(items) == 0 {
		return items, nil
	}

	for _, it := range items {
		input := buildInput(it)
		for _, r := range b.rules {
			out, _, err := r.prg.Eval(input)
			if err != nil {
				// 表达式访问了该 item 不存在的字段：按未命中处理
				continue
			}
			if hit, ok := out.Value().(bool); ok && hit {
				it.Score *= r.factor
				it.PutLabel("boost_"+r.name, core.Label{Value: fmt.Sprintf("%.2f", r.factor), Source: "rerank"})
			}
		}
	}

	// 加权可能改变相对顺序，重新按分数排序
	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
	return items, nil
}

func buildInput(it *core.Item) map[string]any {
	label := make(map[string]any, len(it.Labels))
	for k, v := range it.Labels {
		label[k] = v.Value
	}

	product := map[string]any{}
	if prod, ok := it.Meta["product"].(*core.Product); ok {
		product = map[string]any{
			"price":    prod.Price,
			"category": prod.Category,
			"brand":    prod.Brand,
			"rating":   prod.Rating,
		}
	}

	return map[string]any{
		"item":    map[string]any{"id": it.ID, "score": it.Score},
		"label":   label,
		"product": product,
	}
}
