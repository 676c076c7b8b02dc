package track

import (
	"context"
	"testing"

	"github.com/rushteam/shoprec/cache"
	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/store"
)

func newTestIngestor() (*Ingestor, *store.History, *cache.Cache) {
	history := store.NewHistory(store.NewMemoryStore())
	c := cache.New(cache.Config{})
	return &Ingestor{History: history, Cache: c}, history, c
}

func event(userID string, kind core.EventKind, productID string) *core.InteractionEvent {
	ev := core.NewEvent(userID, kind)
	ev.ProductID = productID
	return ev
}

func TestRecordValidation(t *testing.T) {
	ing, _, _ := newTestIngestor()
	ctx := context.Background()

	tests := []struct {
		name string
		ev   *core.InteractionEvent
	}{
		{"nil event", nil},
		{"missing user", event("", core.EventView, "p1")},
		{"unknown kind", event("u1", core.EventKind("teleport"), "p1")},
		{"view without product", event("u1", core.EventView, "")},
		{"cart without product", event("u1", core.EventAddToCart, "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ing.Record(ctx, tt.ev)
			if err == nil {
				t.Fatal("want validation error")
			}
			if !core.IsInvalidInput(err) {
				t.Fatalf("error = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestRecordAppendsHistory(t *testing.T) {
	ing, history, _ := newTestIngestor()
	ctx := context.Background()

	res, err := ing.Record(ctx, event("u1", core.EventView, "p1"))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !res.Recorded {
		t.Fatalf("Result = %+v, want recorded", res)
	}

	views, err := history.RecentViews(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("RecentViews: %v", err)
	}
	if len(views) != 1 || views[0].ProductID != "p1" {
		t.Fatalf("views = %+v, want the recorded event", views)
	}
}

func TestRecordSearchWithoutProduct(t *testing.T) {
	ing, _, _ := newTestIngestor()

	ev := core.NewEvent("u1", core.EventSearch)
	ev.Query = "running shoes"
	res, err := ing.Record(context.Background(), ev)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !res.Recorded {
		t.Fatalf("Result = %+v, want recorded", res)
	}
}

func TestRecordInvalidatesUserEntries(t *testing.T) {
	ing, _, c := newTestIngestor()
	k := cache.Key{Strategy: "content", User: "u1", Extra: "10"}
	c.Set(k, 1, true)

	if _, err := ing.Record(context.Background(), event("u1", core.EventView, "p1")); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, ok := c.Get(k); ok {
		t.Fatal("user entry must be invalidated after an event")
	}
}

func TestRecordViewInvalidatesTrending(t *testing.T) {
	ing, _, c := newTestIngestor()
	trending := cache.Key{Strategy: "trending", Extra: "10"}
	collab := cache.Key{Strategy: "collab", User: "other", Extra: "10"}
	c.Set(trending, 1, false)
	c.Set(collab, 2, true)

	if _, err := ing.Record(context.Background(), event("u1", core.EventView, "p1")); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, ok := c.Get(trending); ok {
		t.Fatal("view must invalidate trending entries")
	}
	if _, ok := c.Get(collab); !ok {
		t.Fatal("view must not touch other users' collab entries")
	}
}

func TestRecordPurchaseInvalidatesCollab(t *testing.T) {
	ing, _, c := newTestIngestor()
	collab := cache.Key{Strategy: "collab", User: "other", Extra: "10"}
	trending := cache.Key{Strategy: "trending", Extra: "10"}
	c.Set(collab, 1, true)
	c.Set(trending, 2, false)

	ev := event("u1", core.EventPurchase, "")
	if _, err := ing.Record(context.Background(), ev); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, ok := c.Get(collab); ok {
		t.Fatal("purchase must invalidate collab entries")
	}
	if _, ok := c.Get(trending); !ok {
		t.Fatal("purchase must not invalidate trending entries")
	}
}

type failingHistory struct {
	core.HistoryStore
}

func (f *failingHistory) AppendEvent(context.Context, *core.InteractionEvent) error {
	return core.NewDomainError(core.ModuleHistory, core.ErrorCodeUnavailable, "history: down")
}

func TestRecordStoreFailureIsSoft(t *testing.T) {
	ing, _, _ := newTestIngestor()
	ing.History = &failingHistory{}

	res, err := ing.Record(context.Background(), event("u1", core.EventView, "p1"))
	if err != nil {
		t.Fatalf("store failure must not surface as error, got %v", err)
	}
	if res.Recorded {
		t.Fatalf("Result = %+v, want Recorded=false", res)
	}
}
