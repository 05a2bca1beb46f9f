package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type pinged struct{ BaseEvent }

func (pinged) EventName() string { return "test.pinged" }

func TestPublishRunsEveryHandler(t *testing.T) {
	bus := NewInMemoryBus(nil)
	var calls atomic.Int32
	for i := 0; i < 3; i++ {
		bus.Subscribe("test.pinged", HandlerFunc(func(ctx context.Context, e Event) error {
			calls.Add(1)
			return nil
		}))
	}

	bus.Publish(context.Background(), pinged{BaseEvent: BaseEvent{Timestamp: time.Now()}})
	bus.Wait()

	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 handler calls, got %d", got)
	}
}

func TestPublishSurvivesCancelledCaller(t *testing.T) {
	bus := NewInMemoryBus(nil)
	var sawErr atomic.Bool
	bus.Subscribe("test.pinged", HandlerFunc(func(ctx context.Context, e Event) error {
		if ctx.Err() != nil {
			sawErr.Store(true)
		}
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Publish(ctx, pinged{})
	bus.Wait()

	if sawErr.Load() {
		t.Fatalf("handler context should not inherit caller cancellation")
	}
}

func TestPublishSyncJoinsErrors(t *testing.T) {
	bus := NewInMemoryBus(nil)
	boom := errors.New("boom")
	bus.Subscribe("test.pinged", HandlerFunc(func(ctx context.Context, e Event) error { return boom }))
	bus.Subscribe("test.pinged", HandlerFunc(func(ctx context.Context, e Event) error { return nil }))

	err := bus.PublishSync(context.Background(), pinged{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error to wrap boom, got %v", err)
	}
}

func TestPublishWithoutHandlersIsNoop(t *testing.T) {
	bus := NewInMemoryBus(nil)
	if err := bus.PublishSync(context.Background(), pinged{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
