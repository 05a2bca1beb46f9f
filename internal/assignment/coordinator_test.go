package assignment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trade_portal_backend/internal/events"
	"trade_portal_backend/internal/feed"
	"trade_portal_backend/internal/operations/opserr"
	"trade_portal_backend/platform/apperr"
	"trade_portal_backend/platform/clock"

	"github.com/google/uuid"
)

// memoryStore mimics the single UPDATE ... RETURNING statement.
type memoryStore struct {
	mu       sync.Mutex
	assigned map[uuid.UUID]*uuid.UUID
	calls    int
	err      error
}

func newMemoryStore(ids ...uuid.UUID) *memoryStore {
	s := &memoryStore{assigned: make(map[uuid.UUID]*uuid.UUID)}
	for _, id := range ids {
		s.assigned[id] = nil
	}
	return s
}

func (s *memoryStore) AssignMany(_ context.Context, ids []uuid.UUID, assignee uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var out []uuid.UUID
	for _, id := range ids {
		if _, ok := s.assigned[id]; ok {
			a := assignee
			s.assigned[id] = &a
			out = append(out, id)
		}
	}
	return out, nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}
func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}
func (b *recordingBus) Subscribe(string, events.Handler) {}

func newCoordinator(store Store) (*Coordinator, *feed.MemoryFeed, *recordingBus) {
	f := feed.NewMemoryFeed()
	bus := &recordingBus{}
	clk := clock.NewFixed(time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC))
	return New(store, f, bus, clk, nil), f, bus
}

func TestAssign_EmptySelectionFailsBeforeIO(t *testing.T) {
	store := newMemoryStore()
	c, _, _ := newCoordinator(store)

	_, err := c.Assign(context.Background(), nil, uuid.New())
	if !opserr.Is(err, opserr.KindEmptySelection) {
		t.Fatalf("expected EmptySelection, got %v", err)
	}
	if store.calls != 0 {
		t.Fatalf("expected no store calls, got %d", store.calls)
	}
}

func TestAssign_NilAssigneeIsValidationError(t *testing.T) {
	c, _, _ := newCoordinator(newMemoryStore())
	_, err := c.Assign(context.Background(), []uuid.UUID{uuid.New()}, uuid.Nil)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAssignSelection_PartialFailureKeepsFailedSelected(t *testing.T) {
	o1, o2, o3 := uuid.New(), uuid.New(), uuid.New()
	store := newMemoryStore(o1, o3) // o2 was archived concurrently
	c, f, bus := newCoordinator(store)
	sel := NewSelection(o1, o2, o3)
	assignee := uuid.New()

	var changes []feed.Change
	f.Subscribe(feed.TableOrders, func(ch feed.Change) { changes = append(changes, ch) })

	res, err := c.AssignSelection(context.Background(), sel, assignee, uuid.New())

	if !opserr.Is(err, opserr.KindAssignmentFailed) {
		t.Fatalf("expected AssignmentFailed, got %v", err)
	}
	var oe *opserr.Error
	if !errors.As(err, &oe) || !oe.Partial || len(oe.IDs) != 1 || oe.IDs[0] != o2 {
		t.Fatalf("expected partial failure for o2, got %+v", oe)
	}
	if len(res.Assigned) != 2 || len(res.Failed) != 1 || res.Failed[0] != o2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.AssigneeID != assignee {
		t.Fatalf("expected assignee in result")
	}
	if !sel.Contains(o2) || sel.Contains(o1) || sel.Contains(o3) {
		t.Fatalf("expected only o2 to remain selected, got %v", sel.IDs())
	}
	if len(changes) != 2 {
		t.Fatalf("expected 2 order changes, got %d", len(changes))
	}
	for _, ch := range changes {
		if ch.Op != feed.OpUpdate || ch.RowID == o2 {
			t.Fatalf("unexpected change %+v", ch)
		}
	}
	if len(bus.events) != 1 {
		t.Fatalf("expected one orders.assigned event, got %d", len(bus.events))
	}
	if ev, ok := bus.events[0].(events.OrdersAssigned); !ok || len(ev.OrderIDs) != 2 {
		t.Fatalf("unexpected event %+v", bus.events[0])
	}
}

func TestAssign_StoreErrorFailsEveryID(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.New("connection reset")
	c, _, bus := newCoordinator(store)
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	res, err := c.Assign(context.Background(), ids, uuid.New())

	var oe *opserr.Error
	if !errors.As(err, &oe) || oe.Kind != opserr.KindAssignmentFailed || oe.Partial {
		t.Fatalf("expected total AssignmentFailed, got %v", err)
	}
	if len(res.Failed) != 2 || len(res.Assigned) != 0 {
		t.Fatalf("expected every id to fail, got %+v", res)
	}
	if len(bus.events) != 0 {
		t.Fatalf("no event should be published on total failure")
	}
}

func TestAssign_DuplicateIDsAreCollapsed(t *testing.T) {
	o1 := uuid.New()
	c, _, _ := newCoordinator(newMemoryStore(o1))

	res, err := c.Assign(context.Background(), []uuid.UUID{o1, o1, o1}, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Assigned) != 1 {
		t.Fatalf("expected a single assignment, got %d", len(res.Assigned))
	}
}

func TestAssign_LastWriteWins(t *testing.T) {
	o1 := uuid.New()
	store := newMemoryStore(o1)
	c, _, _ := newCoordinator(store)
	first, second := uuid.New(), uuid.New()

	if _, err := c.Assign(context.Background(), []uuid.UUID{o1}, first); err != nil {
		t.Fatalf("first assign: %v", err)
	}
	res, err := c.Assign(context.Background(), []uuid.UUID{o1}, second)
	if err != nil {
		t.Fatalf("second assign: %v", err)
	}

	if res.AssigneeID != second {
		t.Fatalf("expected result to report the assignee written")
	}
	if got := store.assigned[o1]; got == nil || *got != second {
		t.Fatalf("expected o1 assigned to the second operator")
	}
}

func TestSelection_ToggleAndRetain(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	sel := NewSelection()

	if !sel.Toggle(a) || sel.Toggle(a) {
		t.Fatalf("toggle should select then deselect")
	}
	sel.Add(a, b)
	sel.Retain(func(id uuid.UUID) bool { return id == b })
	if sel.Len() != 1 || !sel.Contains(b) {
		t.Fatalf("expected only b to remain, got %v", sel.IDs())
	}
	sel.Clear()
	if sel.Len() != 0 {
		t.Fatalf("expected empty selection after clear")
	}
}
