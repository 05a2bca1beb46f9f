package feed

import (
	"context"
	"sync"
)

// MemoryFeed delivers changes synchronously to subscribers in this process.
type MemoryFeed struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[Table]map[uint64]Handler
}

// NewMemoryFeed creates an empty feed.
func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{subs: make(map[Table]map[uint64]Handler)}
}

// Publish calls every handler subscribed to change.Table.
func (f *MemoryFeed) Publish(_ context.Context, change Change) error {
	f.dispatch(change)
	return nil
}

func (f *MemoryFeed) dispatch(change Change) {
	f.mu.RLock()
	handlers := make([]Handler, 0, len(f.subs[change.Table]))
	for _, h := range f.subs[change.Table] {
		handlers = append(handlers, h)
	}
	f.mu.RUnlock()

	for _, h := range handlers {
		h(change)
	}
}

// Subscribe registers handler for table.
func (f *MemoryFeed) Subscribe(table Table, handler Handler) Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	id := f.nextID
	if f.subs[table] == nil {
		f.subs[table] = make(map[uint64]Handler)
	}
	f.subs[table][id] = handler
	return &memorySubscription{feed: f, table: table, id: id}
}

func (f *MemoryFeed) remove(table Table, id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs[table], id)
}

// SubscriberCount returns the number of live subscriptions on table.
func (f *MemoryFeed) SubscriberCount(table Table) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs[table])
}

type memorySubscription struct {
	feed  *MemoryFeed
	table Table
	id    uint64
	once  sync.Once
}

func (s *memorySubscription) Unsubscribe() {
	s.once.Do(func() { s.feed.remove(s.table, s.id) })
}
