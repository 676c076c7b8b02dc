package cache

import (
	"context"
	"testing"
	"time"
)

func TestSweeperStopsOnCancel(t *testing.T) {
	s := &Sweeper{Cache: New(Config{}), Interval: 10 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestSweeperRemovesExpired(t *testing.T) {
	c, now := newTestCache(Config{})
	c.Set(Key{Strategy: "content", User: "u1"}, 1, true)

	s := &Sweeper{Cache: c, Interval: time.Millisecond, Grace: time.Minute, StaleAfter: time.Hour}
	*now = now.Add(3 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	defer cancel()

	deadline := time.Now().Add(time.Second)
	for c.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if c.Len() != 0 {
		t.Fatal("expired entry not swept")
	}
}
