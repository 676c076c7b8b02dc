package core

import "context"

// ErrStoreNotFound 表示 key 不存在。
var ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: key not found")

// ZMember 是有序集合的一个成员。
type ZMember struct {
	Member string
	Score  float64
}

// KeyValueStore 是行为历史与速率统计的底层存储接口。
// 实现见 store 包（memory / redis）。
type KeyValueStore interface {
	Name() string

	Get(ctx context.Context, key string) ([]byte, error)
	// Set 写入 value；可选 ttl（秒），0 或省略表示不过期
	Set(ctx context.Context, key string, value []byte, ttl ...int) error
	Delete(ctx context.Context, key string) error

	// ZAdd 设置有序集合成员分数
	ZAdd(ctx context.Context, key string, score float64, member string) error
	// ZIncrBy 增加有序集合成员分数（成员不存在时从 0 开始）
	ZIncrBy(ctx context.Context, key string, incr float64, member string) error
	// ZRangeWithScores 按分数从高到低返回 [start, stop] 区间的成员
	ZRangeWithScores(ctx context.Context, key string, start, stop int64) ([]ZMember, error)

	Close() error
}
