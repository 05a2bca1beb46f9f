package feed

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestMemoryFeed_DeliversOnlyToMatchingTable(t *testing.T) {
	f := NewMemoryFeed()
	var orders, quotes int
	f.Subscribe(TableOrders, func(Change) { orders++ })
	f.Subscribe(TableQuotes, func(Change) { quotes++ })

	_ = f.Publish(context.Background(), Change{Table: TableOrders, Op: OpUpdate, RowID: uuid.New()})

	if orders != 1 || quotes != 0 {
		t.Fatalf("expected orders=1 quotes=0, got %d %d", orders, quotes)
	}
}

func TestMemoryFeed_UnsubscribeStopsDelivery(t *testing.T) {
	f := NewMemoryFeed()
	calls := 0
	sub := f.Subscribe(TableOrders, func(Change) { calls++ })

	sub.Unsubscribe()
	sub.Unsubscribe()
	_ = f.Publish(context.Background(), Change{Table: TableOrders})

	if calls != 0 {
		t.Fatalf("expected no deliveries after unsubscribe, got %d", calls)
	}
	if f.SubscriberCount(TableOrders) != 0 {
		t.Fatalf("expected subscription to be removed")
	}
}

func TestRedisFeed_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	f := NewRedisFeed(client, nil)
	ctx := context.Background()
	if err := f.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer f.Stop()

	got := make(chan Change, 1)
	f.Subscribe(TableOrders, func(c Change) { got <- c })

	want := Change{Table: TableOrders, Op: OpUpdate, RowID: uuid.New(), At: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	if err := f.Publish(ctx, want); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case c := <-got:
		if c.RowID != want.RowID || c.Op != want.Op || !c.At.Equal(want.At) {
			t.Fatalf("unexpected change %+v", c)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for change")
	}
}

func TestRedisFeed_StopIsIdempotent(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	f := NewRedisFeed(client, nil)
	if err := f.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	_ = f.Stop()
	if err := f.Stop(); err != nil {
		t.Fatalf("second stop should be a no-op, got %v", err)
	}
}
