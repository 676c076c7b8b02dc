package core

// Label 是推荐链路中的可解释标记：来源、原因片段、策略信息。
// Value 与 Source 的语义由业务自定义。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // recall / filter / rerank / engine ...
}

// Item 是推荐链路中的统一承载结构：候选商品 ID、分数、标签、元信息。
// Labels 用于 explain 与策略驱动；Score 用于排序决策；
// Meta 用于在节点间传递已加载的商品对象，避免重复查询。
type Item struct {
	ID     string
	Score  float64
	Labels map[string]Label
	Meta   map[string]any
}

func NewItem(id string) *Item {
	return &Item{
		ID:     id,
		Labels: make(map[string]Label),
		Meta:   make(map[string]any),
	}
}

// PutLabel 写入 Label；同名 key 覆盖写（后写优先）。
func (it *Item) PutLabel(key string, lbl Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]Label)
	}
	it.Labels[key] = lbl
}

// GetLabel 读取 Label。
func (it *Item) GetLabel(key string) (Label, bool) {
	if it.Labels == nil {
		return Label{}, false
	}
	lbl, ok := it.Labels[key]
	return lbl, ok
}

// Clone 深拷贝 Item。缓存命中时返回拷贝，避免多个请求共享可变状态。
func (it *Item) Clone() *Item {
	cp := &Item{
		ID:     it.ID,
		Score:  it.Score,
		Labels: make(map[string]Label, len(it.Labels)),
		Meta:   make(map[string]any, len(it.Meta)),
	}
	for k, v := range it.Labels {
		cp.Labels[k] = v
	}
	for k, v := range it.Meta {
		cp.Meta[k] = v
	}
	return cp
}

// CloneItems 深拷贝 Item 列表。
func CloneItems(items []*Item) []*Item {
	out := make([]*Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		out = append(out, it.Clone())
	}
	return out
}

// Recommendation 是最终返回给调用方的推荐结果（富化后）。
// 只有各策略的中间列表会进缓存，Recommendation 每次现场组装。
type Recommendation struct {
	Product    *Product `json:"product"`
	Source     string   `json:"source"`
	Score      float64  `json:"score"`
	Reason     string   `json:"reason"`
	Confidence float64  `json:"confidence"` // [0,1]
}
