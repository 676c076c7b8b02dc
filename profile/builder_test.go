package profile

import (
	"context"
	"testing"
	"time"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/store"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestBuilder(t *testing.T) (*Builder, *store.Catalog, *store.Orders, *store.History) {
	t.Helper()
	catalog := store.NewCatalog()
	orders := store.NewOrders()
	history := store.NewHistory(store.NewMemoryStore())
	history.Now = func() time.Time { return testNow }
	b := &Builder{
		Products: catalog,
		Orders:   orders,
		History:  history,
		Now:      func() time.Time { return testNow },
	}
	return b, catalog, orders, history
}

func appendEvent(t *testing.T, h *store.History, ev *core.InteractionEvent) {
	t.Helper()
	if err := h.AppendEvent(context.Background(), ev); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
}

func viewEvent(userID, productID string, at time.Time) *core.InteractionEvent {
	ev := core.NewEvent(userID, core.EventView)
	ev.ProductID = productID
	ev.At = at
	return ev
}

func TestBuildNoHistory(t *testing.T) {
	b, _, _, _ := newTestBuilder(t)

	p, err := b.Build(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if p != nil {
		t.Fatalf("Build with no history = %+v, want nil", p)
	}

	p, err = b.Build(context.Background(), "")
	if err != nil || p != nil {
		t.Fatalf("Build with empty user = (%+v, %v), want (nil, nil)", p, err)
	}
}

func TestBuildWeightsPurchaseOverView(t *testing.T) {
	b, catalog, orders, history := newTestBuilder(t)
	catalog.Add(
		&core.Product{ID: "p1", Category: "shoes", Brand: "acme", Price: 100, InStock: true},
		&core.Product{ID: "p2", Category: "shirts", Brand: "zest", Price: 50, InStock: true},
	)

	// 浏览 shirts、购买 shoes，时间相同：购买权重必须压过浏览
	at := testNow.Add(-2 * time.Hour)
	appendEvent(t, history, viewEvent("u1", "p2", at))
	orders.Add(&core.Order{
		ID: "o1", UserID: "u1", CreatedAt: at,
		Items: []core.OrderItem{{ProductID: "p1", Quantity: 1, Price: 100}},
	})

	p, err := b.Build(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if p == nil {
		t.Fatal("Build = nil, want profile")
	}
	if p.Categories["shoes"] <= p.Categories["shirts"] {
		t.Fatalf("purchase weight %f must exceed view weight %f",
			p.Categories["shoes"], p.Categories["shirts"])
	}
}

func TestBuildDecayFavorsRecent(t *testing.T) {
	b, catalog, _, history := newTestBuilder(t)
	catalog.Add(
		&core.Product{ID: "p1", Category: "shoes", Price: 100, InStock: true},
		&core.Product{ID: "p2", Category: "shirts", Price: 100, InStock: true},
	)

	// 旧事件先写入（列表最近在前），浏览同一商品各一次
	appendEvent(t, history, viewEvent("u1", "p2", testNow.Add(-10*24*time.Hour)))
	appendEvent(t, history, viewEvent("u1", "p1", testNow.Add(-30*time.Minute)))

	p, err := b.Build(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if p.Categories["shoes"] <= p.Categories["shirts"] {
		t.Fatalf("recent view %f must outweigh old view %f",
			p.Categories["shoes"], p.Categories["shirts"])
	}
}

func TestBuildSearchTermsBecomeTags(t *testing.T) {
	b, _, _, history := newTestBuilder(t)

	ev := core.NewEvent("u1", core.EventSearch)
	ev.Query = "Running Shoes"
	ev.At = testNow.Add(-time.Hour)
	appendEvent(t, history, ev)

	p, err := b.Build(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if p == nil {
		t.Fatal("search history alone must produce a profile")
	}
	if p.Tags["running"] <= 0 || p.Tags["shoes"] <= 0 {
		t.Fatalf("query terms missing from tags: %+v", p.Tags)
	}
}

func TestBuildCartVariants(t *testing.T) {
	b, catalog, _, history := newTestBuilder(t)
	catalog.Add(&core.Product{ID: "p1", Category: "shoes", Price: 80, InStock: true})

	ev := core.NewEvent("u1", core.EventAddToCart)
	ev.ProductID = "p1"
	ev.Size = "42"
	ev.Color = "black"
	ev.At = testNow.Add(-time.Hour)
	appendEvent(t, history, ev)

	p, err := b.Build(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if p.Sizes["42"] <= 0 {
		t.Fatalf("cart size missing: %+v", p.Sizes)
	}
	if p.Colors["black"] <= 0 {
		t.Fatalf("cart color missing: %+v", p.Colors)
	}
}

func TestBuildRecentlySeenBounded(t *testing.T) {
	b, catalog, _, history := newTestBuilder(t)
	b.SeenLimit = 3
	catalog.Add(&core.Product{ID: "p1", Category: "shoes", Price: 80, InStock: true})

	for i := 0; i < 5; i++ {
		appendEvent(t, history, viewEvent("u1", "p1", testNow.Add(-time.Duration(i)*time.Minute)))
	}

	p, err := b.Build(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(p.RecentlySeen) != 3 {
		t.Fatalf("RecentlySeen len = %d, want 3", len(p.RecentlySeen))
	}
}

func TestPriceBand(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   *core.PriceBand
	}{
		{"empty", nil, nil},
		{"single", []float64{100}, &core.PriceBand{Min: 100, Max: 100}},
		{"spread", []float64{40, 60, 80, 100, 120}, &core.PriceBand{Min: 40, Max: 120}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := priceBand(tt.prices)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("priceBand = %+v, want %+v", got, tt.want)
			}
			if got == nil {
				return
			}
			if got.Min != tt.want.Min || got.Max != tt.want.Max {
				t.Fatalf("priceBand = [%f, %f], want [%f, %f]",
					got.Min, got.Max, tt.want.Min, tt.want.Max)
			}
		})
	}
}

func TestPriceBandNeverNegative(t *testing.T) {
	band := priceBand([]float64{1, 100, 200, 300, 400})
	if band.Min < 0 {
		t.Fatalf("band min = %f, must be clamped to 0", band.Min)
	}
}

func TestTimeDecayMonotonic(t *testing.T) {
	recent := timeDecay(30*time.Minute, decayDaysView)
	today := timeDecay(12*time.Hour, decayDaysView)
	lastWeek := timeDecay(7*24*time.Hour, decayDaysView)

	if !(recent > today && today > lastWeek) {
		t.Fatalf("decay not monotonic: %f, %f, %f", recent, today, lastWeek)
	}
	// 最近 1 小时的平坦加成要明显
	if recent < 1.9 {
		t.Fatalf("recent boost = %f, want ~2x", recent)
	}
}
