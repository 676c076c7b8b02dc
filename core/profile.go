package core

import "sort"

// PriceBand 是推断出的价格带。
type PriceBand struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains 检查价格是否落在价格带内。
func (b *PriceBand) Contains(price float64) bool {
	if b == nil {
		return false
	}
	return price >= b.Min && price <= b.Max
}

// PreferenceProfile 是按请求现算的用户偏好画像。
//
// 设计要点：
//   - 派生数据，不持久化：每次从原始历史重新计算，绝不原地修改
//   - 五个维度的加权亲和度 + 价格带 + 近期已看排除集
//   - 驱动内容召回的候选查询与打分
type PreferenceProfile struct {
	UserID string

	// 亲和度，key → 权重
	Categories map[string]float64
	Brands     map[string]float64
	Tags       map[string]float64
	Colors     map[string]float64
	Sizes      map[string]float64

	// 推断价格带，样本不足时为 nil
	PriceBand *PriceBand

	// 近期已看商品，召回时排除
	RecentlySeen []string
}

func NewPreferenceProfile(userID string) *PreferenceProfile {
	return &PreferenceProfile{
		UserID:     userID,
		Categories: make(map[string]float64),
		Brands:     make(map[string]float64),
		Tags:       make(map[string]float64),
		Colors:     make(map[string]float64),
		Sizes:      make(map[string]float64),
	}
}

// HasSignal 检查画像是否有可用信号。
func (p *PreferenceProfile) HasSignal() bool {
	if p == nil {
		return false
	}
	return len(p.Categories) > 0 || len(p.Brands) > 0 || len(p.Tags) > 0
}

// SeenSet 返回排除集的 set 形式。
func (p *PreferenceProfile) SeenSet() map[string]struct{} {
	out := make(map[string]struct{}, len(p.RecentlySeen))
	for _, id := range p.RecentlySeen {
		out[id] = struct{}{}
	}
	return out
}

func (p *PreferenceProfile) TopCategories(k int) []string { return topKeys(p.Categories, k) }
func (p *PreferenceProfile) TopBrands(k int) []string     { return topKeys(p.Brands, k) }
func (p *PreferenceProfile) TopTags(k int) []string       { return topKeys(p.Tags, k) }
func (p *PreferenceProfile) TopColors(k int) []string     { return topKeys(p.Colors, k) }

// topKeys 返回权重最高的 k 个 key。权重相同时按字典序，保证结果稳定。
func topKeys(m map[string]float64, k int) []string {
	if len(m) == 0 || k <= 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > k {
		keys = keys[:k]
	}
	return keys
}
