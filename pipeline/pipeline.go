package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/rushteam/shoprec/core"
)

// Pipeline 是推荐链路的核心抽象：把推荐逻辑拆成可组合的 Node 链。
// 每次请求按需组装（Node 本身可复用），Run 失败即整体失败，由上层决定兜底。
type Pipeline struct {
	Nodes  []Node
	Logger *zap.Logger
}

func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			if p.Logger != nil {
				p.Logger.Warn("pipeline node failed",
					zap.String("node", node.Name()),
					zap.String("kind", string(node.Kind())),
					zap.Error(err))
			}
			return nil, err
		}
		if p.Logger != nil {
			p.Logger.Debug("pipeline node done",
				zap.String("node", node.Name()),
				zap.Int("in", len(cur)),
				zap.Int("out", len(next)))
		}
		cur = next
	}
	return cur, nil
}
