// Package cache 实现推荐引擎的进程内活动缓存。
//
// 设计要点：
//   - 双 TTL：个性化条目短过期（需跟上新的浏览/购买），全局条目长过期
//   - 容量上限：写满时淘汰 createdAt 最旧的一条
//   - 结构化 Key：按用户 / 按策略精确失效，不做子串匹配
//   - 突发活动：用户在突发窗口内连续行为时立即失效其全部条目
//
// 缓存是单进程 best-effort 加速器，不是正确性边界；丢数据只降新鲜度。
package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// Key 是结构化缓存键：策略 + 用户 + 参数指纹。
// 全局（非个性化）条目的 User 为空。
type Key struct {
	Strategy string
	User     string
	Extra    string
}

func (k Key) String() string {
	user := k.User
	if user == "" {
		user = "-"
	}
	return k.Strategy + ":" + user + ":" + k.Extra
}

// Config 是缓存的可调参数。突发窗口与双 TTL 是经验值，不做硬校验。
type Config struct {
	Capacity        int
	PersonalizedTTL time.Duration
	SharedTTL       time.Duration
	BurstWindow     time.Duration
}

const (
	DefaultCapacity        = 500
	DefaultPersonalizedTTL = 45 * time.Second
	DefaultSharedTTL       = 5 * time.Minute
	DefaultBurstWindow     = 5 * time.Second
)

func (c Config) withDefaults() Config {
	if c.Capacity <= 0 {
		c.Capacity = DefaultCapacity
	}
	if c.PersonalizedTTL <= 0 {
		c.PersonalizedTTL = DefaultPersonalizedTTL
	}
	if c.SharedTTL <= 0 {
		c.SharedTTL = DefaultSharedTTL
	}
	if c.BurstWindow <= 0 {
		c.BurstWindow = DefaultBurstWindow
	}
	return c
}

type entry struct {
	payload      any
	createdAt    time.Time
	personalized bool
}

// Stats 是缓存的累计计数快照。
type Stats struct {
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	Evictions     int64   `json:"evictions"`
	Invalidations int64   `json:"invalidations"`
	Size          int     `json:"size"`
	HitRate       float64 `json:"hitRate"`
}

// Cache 是进程级共享状态：构造一次、显式注入，不走隐藏全局变量。
// 多 goroutine 并发访问，map 由 RWMutex 保护，计数器原子递增。
type Cache struct {
	mu       sync.RWMutex
	entries  map[Key]*entry
	lastSeen map[string]time.Time

	cfg Config
	now func() time.Time

	hits          atomic.Int64
	misses        atomic.Int64
	evictions     atomic.Int64
	invalidations atomic.Int64
}

func New(cfg Config) *Cache {
	return &Cache{
		entries:  make(map[Key]*entry),
		lastSeen: make(map[string]time.Time),
		cfg:      cfg.withDefaults(),
		now:      time.Now,
	}
}

func (c *Cache) ttl(personalized bool) time.Duration {
	if personalized {
		return c.cfg.PersonalizedTTL
	}
	return c.cfg.SharedTTL
}

// Get 读取缓存。已过期的条目当场删除并计为 eviction + miss，绝不返回。
func (c *Cache) Get(k Key) (any, bool) {
	c.mu.Lock()
	e, ok := c.entries[k]
	if !ok {
		c.mu.Unlock()
		c.misses.Add(1)
		return nil, false
	}
	if c.now().Sub(e.createdAt) > c.ttl(e.personalized) {
		delete(c.entries, k)
		c.mu.Unlock()
		c.evictions.Add(1)
		c.misses.Add(1)
		return nil, false
	}
	c.mu.Unlock()
	c.hits.Add(1)
	return e.payload, true
}

// Set 写入缓存。容量已满且 key 不存在时，先淘汰 createdAt 最旧的一条。
// 容量小（默认 500），线性扫描找最旧可接受。
func (c *Cache) Set(k Key, payload any, personalized bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[k]; !exists && len(c.entries) >= c.cfg.Capacity {
		c.evictOldestLocked()
	}
	c.entries[k] = &entry{
		payload:      payload,
		createdAt:    c.now(),
		personalized: personalized,
	}
}

func (c *Cache) evictOldestLocked() {
	var oldestKey Key
	var oldestAt time.Time
	first := true
	for k, e := range c.entries {
		if first || e.createdAt.Before(oldestAt) {
			oldestKey = k
			oldestAt = e.createdAt
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
		c.evictions.Add(1)
	}
}

// InvalidateUser 删除该用户的全部个性化条目，返回删除数量。
func (c *Cache) InvalidateUser(userID string) int {
	if userID == "" {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k := range c.entries {
		if k.User == userID {
			delete(c.entries, k)
			removed++
		}
	}
	c.invalidations.Add(int64(removed))
	return removed
}

// InvalidateStrategy 删除某策略的全部条目（例如购买后失效所有 collab 条目），
// 返回删除数量。
func (c *Cache) InvalidateStrategy(strategy string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k := range c.entries {
		if k.Strategy == strategy {
			delete(c.entries, k)
			removed++
		}
	}
	c.invalidations.Add(int64(removed))
	return removed
}

// TrackActivity 记录用户活动时间戳。上一次活动落在突发窗口内时立即失效
// 该用户的条目，让连续快速操作的用户不会看到过期的个性化结果。
// 返回是否触发了突发失效。
func (c *Cache) TrackActivity(userID string) bool {
	if userID == "" {
		return false
	}
	now := c.now()

	c.mu.Lock()
	prev, seen := c.lastSeen[userID]
	c.lastSeen[userID] = now
	c.mu.Unlock()

	if seen && now.Sub(prev) <= c.cfg.BurstWindow {
		c.InvalidateUser(userID)
		return true
	}
	return false
}

// Sweep 清除超过 TTL+grace 的条目，并遗忘超过 staleAfter 的活动时间戳。
// 返回清除的条目数。由后台 Sweeper 周期调用，单次加锁完成。
func (c *Cache) Sweep(grace, staleAfter time.Duration) int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if now.Sub(e.createdAt) > c.ttl(e.personalized)+grace {
			delete(c.entries, k)
			removed++
		}
	}
	for user, at := range c.lastSeen {
		if now.Sub(at) > staleAfter {
			delete(c.lastSeen, user)
		}
	}
	c.evictions.Add(int64(removed))
	return removed
}

// Len 返回当前条目数。
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats 返回累计计数快照。
func (c *Cache) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	s := Stats{
		Hits:          hits,
		Misses:        misses,
		Evictions:     c.evictions.Load(),
		Invalidations: c.invalidations.Load(),
		Size:          c.Len(),
	}
	if total := hits + misses; total > 0 {
		s.HitRate = float64(hits) / float64(total)
	}
	return s
}

// Reset 清空全部条目、时间戳与计数器。仅用于显式生命周期控制与测试。
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[Key]*entry)
	c.lastSeen = make(map[string]time.Time)
	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)
	c.invalidations.Store(0)
}
