package cache

import (
	"fmt"
	"testing"
	"time"
)

func newTestCache(cfg Config) (*Cache, *time.Time) {
	c := New(cfg)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestKeyString(t *testing.T) {
	tests := []struct {
		key  Key
		want string
	}{
		{Key{Strategy: "content", User: "u1", Extra: "10"}, "content:u1:10"},
		{Key{Strategy: "trending", Extra: "10"}, "trending:-:10"},
	}
	for _, tt := range tests {
		if got := tt.key.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestGetExpiry(t *testing.T) {
	c, now := newTestCache(Config{})

	personal := Key{Strategy: "content", User: "u1", Extra: "10"}
	shared := Key{Strategy: "trending", Extra: "10"}
	c.Set(personal, "p", true)
	c.Set(shared, "s", false)

	// 个性化 TTL 内两者都可读
	*now = now.Add(30 * time.Second)
	if _, ok := c.Get(personal); !ok {
		t.Fatal("personalized entry should be alive at 30s")
	}
	if _, ok := c.Get(shared); !ok {
		t.Fatal("shared entry should be alive at 30s")
	}

	// 个性化条目 45s 过期，全局条目 5m 仍在
	*now = now.Add(30 * time.Second)
	if _, ok := c.Get(personal); ok {
		t.Fatal("personalized entry should expire after 45s")
	}
	if _, ok := c.Get(shared); !ok {
		t.Fatal("shared entry should survive 1m")
	}

	*now = now.Add(5 * time.Minute)
	if _, ok := c.Get(shared); ok {
		t.Fatal("shared entry should expire after 5m")
	}
}

func TestSetEvictsOldestAtCapacity(t *testing.T) {
	c, now := newTestCache(Config{Capacity: 3})

	for i := 0; i < 3; i++ {
		c.Set(Key{Strategy: "content", User: fmt.Sprintf("u%d", i)}, i, true)
		*now = now.Add(time.Second)
	}
	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}

	c.Set(Key{Strategy: "content", User: "u3"}, 3, true)
	if c.Len() != 3 {
		t.Fatalf("Len() after eviction = %d, want 3", c.Len())
	}
	// u0 最旧，应被淘汰
	if _, ok := c.Get(Key{Strategy: "content", User: "u0"}); ok {
		t.Fatal("oldest entry should have been evicted")
	}
	if _, ok := c.Get(Key{Strategy: "content", User: "u3"}); !ok {
		t.Fatal("new entry should be present")
	}

	// 覆盖已有 key 不触发淘汰
	c.Set(Key{Strategy: "content", User: "u3"}, 33, true)
	if c.Len() != 3 {
		t.Fatalf("Len() after overwrite = %d, want 3", c.Len())
	}
}

func TestInvalidateUser(t *testing.T) {
	c, _ := newTestCache(Config{})

	c.Set(Key{Strategy: "content", User: "u1", Extra: "10"}, 1, true)
	c.Set(Key{Strategy: "collab", User: "u1", Extra: "10"}, 2, true)
	c.Set(Key{Strategy: "content", User: "u2", Extra: "10"}, 3, true)
	c.Set(Key{Strategy: "trending", Extra: "10"}, 4, false)

	if got := c.InvalidateUser("u1"); got != 2 {
		t.Fatalf("InvalidateUser removed %d, want 2", got)
	}
	if _, ok := c.Get(Key{Strategy: "content", User: "u2", Extra: "10"}); !ok {
		t.Fatal("other user's entry must survive")
	}
	if _, ok := c.Get(Key{Strategy: "trending", Extra: "10"}); !ok {
		t.Fatal("shared entry must survive")
	}
	if got := c.InvalidateUser(""); got != 0 {
		t.Fatalf("InvalidateUser(\"\") removed %d, want 0", got)
	}
}

func TestInvalidateStrategy(t *testing.T) {
	c, _ := newTestCache(Config{})

	c.Set(Key{Strategy: "trending", Extra: "10"}, 1, false)
	c.Set(Key{Strategy: "trending", Extra: "20"}, 2, false)
	c.Set(Key{Strategy: "content", User: "u1", Extra: "10"}, 3, true)

	if got := c.InvalidateStrategy("trending"); got != 2 {
		t.Fatalf("InvalidateStrategy removed %d, want 2", got)
	}
	if _, ok := c.Get(Key{Strategy: "content", User: "u1", Extra: "10"}); !ok {
		t.Fatal("other strategy's entry must survive")
	}
}

func TestTrackActivityBurst(t *testing.T) {
	c, now := newTestCache(Config{BurstWindow: 5 * time.Second})

	c.Set(Key{Strategy: "content", User: "u1", Extra: "10"}, 1, true)

	if c.TrackActivity("u1") {
		t.Fatal("first activity must not trigger burst")
	}
	*now = now.Add(2 * time.Second)
	if !c.TrackActivity("u1") {
		t.Fatal("second activity within window must trigger burst")
	}
	if _, ok := c.Get(Key{Strategy: "content", User: "u1", Extra: "10"}); ok {
		t.Fatal("burst must invalidate the user's entries")
	}

	// 窗口之外不触发
	*now = now.Add(10 * time.Second)
	if c.TrackActivity("u1") {
		t.Fatal("activity outside window must not trigger burst")
	}
	if c.TrackActivity("") {
		t.Fatal("anonymous activity must be a no-op")
	}
}

func TestSweep(t *testing.T) {
	c, now := newTestCache(Config{})

	c.Set(Key{Strategy: "content", User: "u1", Extra: "10"}, 1, true)
	c.Set(Key{Strategy: "trending", Extra: "10"}, 2, false)
	c.TrackActivity("u1")

	// 个性化 45s + 宽限 1m 之后才被清
	*now = now.Add(90 * time.Second)
	if got := c.Sweep(time.Minute, time.Hour); got != 0 {
		t.Fatalf("Sweep removed %d, want 0 within grace", got)
	}
	*now = now.Add(30 * time.Second)
	if got := c.Sweep(time.Minute, time.Hour); got != 1 {
		t.Fatalf("Sweep removed %d, want 1", got)
	}

	// 活动时间戳超过 staleAfter 被遗忘，下一次活动不算突发
	*now = now.Add(2 * time.Hour)
	c.Sweep(time.Minute, time.Hour)
	if c.TrackActivity("u1") {
		t.Fatal("forgotten timestamp must not trigger burst")
	}
}

func TestStats(t *testing.T) {
	c, _ := newTestCache(Config{})
	k := Key{Strategy: "content", User: "u1", Extra: "10"}

	c.Get(k) // miss
	c.Set(k, 1, true)
	c.Get(k) // hit
	c.Get(k) // hit

	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 {
		t.Fatalf("Stats = %+v, want 2 hits / 1 miss", s)
	}
	if s.Size != 1 {
		t.Fatalf("Size = %d, want 1", s.Size)
	}
	want := 2.0 / 3.0
	if s.HitRate < want-1e-9 || s.HitRate > want+1e-9 {
		t.Fatalf("HitRate = %f, want %f", s.HitRate, want)
	}

	c.Reset()
	s = c.Stats()
	if s.Hits != 0 || s.Size != 0 {
		t.Fatalf("Stats after Reset = %+v", s)
	}
}
