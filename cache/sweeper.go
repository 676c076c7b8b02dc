package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper 是周期清扫任务：清除 TTL+宽限期之外的条目，遗忘过旧的活动时间戳。
// 显式调度、显式取消，不用匿名 ambient timer。
type Sweeper struct {
	Cache      *Cache
	Interval   time.Duration // 默认 2 分钟
	Grace      time.Duration // TTL 之外的宽限期，默认 1 分钟
	StaleAfter time.Duration // 活动时间戳保留时长，默认 1 小时
	Logger     *zap.Logger
}

// Run 阻塞运行清扫循环，直到 ctx 取消。通常在独立 goroutine 中启动。
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	grace := s.Grace
	if grace <= 0 {
		grace = time.Minute
	}
	staleAfter := s.StaleAfter
	if staleAfter <= 0 {
		staleAfter = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if s.Logger != nil {
				s.Logger.Info("cache sweeper stopped")
			}
			return
		case <-ticker.C:
			removed := s.Cache.Sweep(grace, staleAfter)
			if s.Logger != nil && removed > 0 {
				s.Logger.Debug("cache sweep",
					zap.Int("removed", removed),
					zap.Int("size", s.Cache.Len()))
			}
		}
	}
}
