package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"trade_portal_backend/internal/feed"
	"trade_portal_backend/internal/queues"
	"trade_portal_backend/platform/logger"

	"github.com/google/uuid"
)

const defaultPollInterval = 30 * time.Second

// watchedTables are the tables whose changes can move an order between queues.
var watchedTables = []feed.Table{
	feed.TableOrders,
	feed.TableQuotes,
	feed.TableIssues,
	feed.TableInvoices,
	feed.TableActionNotifications,
}

// QueueSource computes one operator's queues.
type QueueSource interface {
	GetQueues(ctx context.Context, actorID uuid.UUID) (queues.Queues, error)
}

// Refresher keeps one operator's queue snapshot current. Change-feed events
// and the poll ticker both trigger a recomputation; a burst of triggers
// collapses into one. Each recomputation replaces the snapshot in full, and a
// generation counter keeps an older computation from replacing a newer one.
type Refresher struct {
	actor    uuid.UUID
	source   QueueSource
	changes  feed.Feed
	interval time.Duration
	publish  func(queues.Queues)
	log      *logger.Logger

	trigger chan struct{}
	gen     atomic.Uint64

	mu      sync.Mutex
	applied uint64
	current queues.Queues
	ready   bool
}

// NewRefresher creates a refresher. changes and publish may be nil.
func NewRefresher(actor uuid.UUID, source QueueSource, changes feed.Feed, interval time.Duration, publish func(queues.Queues), log *logger.Logger) *Refresher {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Refresher{
		actor:    actor,
		source:   source,
		changes:  changes,
		interval: interval,
		publish:  publish,
		log:      log,
		trigger:  make(chan struct{}, 1),
	}
}

// Kick asks for a recomputation without waiting for it.
func (r *Refresher) Kick() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run refreshes once, then on every trigger or tick until ctx is done.
func (r *Refresher) Run(ctx context.Context) error {
	if r.changes != nil {
		for _, table := range watchedTables {
			sub := r.changes.Subscribe(table, func(feed.Change) { r.Kick() })
			defer sub.Unsubscribe()
		}
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.refreshLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.refreshLogged(ctx)
		case <-r.trigger:
			r.refreshLogged(ctx)
		}
	}
}

func (r *Refresher) refreshLogged(ctx context.Context) {
	if _, err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
		r.log.Warn("operations: queue refresh failed", "actorId", r.actor, "error", err)
	}
}

// Refresh recomputes the snapshot. It reports whether the result was
// applied: results of cancelled or superseded computations are discarded.
func (r *Refresher) Refresh(ctx context.Context) (bool, error) {
	gen := r.gen.Add(1)
	q, err := r.source.GetQueues(ctx, r.actor)
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen <= r.applied {
		return false, nil
	}
	r.applied = gen
	r.current = q
	r.ready = true
	if r.publish != nil {
		r.publish(q)
	}
	return true, nil
}

// Snapshot returns the latest applied queues.
func (r *Refresher) Snapshot() (queues.Queues, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, r.ready
}

// Hub runs one refresher per operator while that operator has at least one
// open queue stream.
type Hub struct {
	source   QueueSource
	changes  feed.Feed
	interval time.Duration
	publish  func(uuid.UUID, queues.Queues)
	log      *logger.Logger

	mu      sync.Mutex
	running map[uuid.UUID]*hubEntry
}

type hubEntry struct {
	refresher *Refresher
	cancel    context.CancelFunc
	done      chan struct{}
	refs      int
}

func NewHub(source QueueSource, changes feed.Feed, interval time.Duration, publish func(uuid.UUID, queues.Queues), log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Discard()
	}
	return &Hub{
		source:   source,
		changes:  changes,
		interval: interval,
		publish:  publish,
		log:      log,
		running:  make(map[uuid.UUID]*hubEntry),
	}
}

// Acquire starts or reuses the refresher for actor. A reused refresher is
// kicked so the new stream gets a fresh snapshot. The returned func releases
// the reference; the last release stops the refresher.
func (h *Hub) Acquire(actor uuid.UUID) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry, ok := h.running[actor]
	if ok {
		entry.refs++
		entry.refresher.Kick()
	} else {
		var publish func(queues.Queues)
		if h.publish != nil {
			publish = func(q queues.Queues) { h.publish(actor, q) }
		}
		ctx, cancel := context.WithCancel(context.Background())
		entry = &hubEntry{
			refresher: NewRefresher(actor, h.source, h.changes, h.interval, publish, h.log),
			cancel:    cancel,
			done:      make(chan struct{}),
			refs:      1,
		}
		h.running[actor] = entry
		go func() {
			defer close(entry.done)
			_ = entry.refresher.Run(ctx)
		}()
	}

	var once sync.Once
	return func() { once.Do(func() { h.release(actor, entry) }) }
}

func (h *Hub) release(actor uuid.UUID, entry *hubEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry.refs--
	if entry.refs > 0 {
		return
	}
	entry.cancel()
	if h.running[actor] == entry {
		delete(h.running, actor)
	}
}

// Running reports how many operators have a live refresher.
func (h *Hub) Running() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.running)
}

// Close stops every refresher and waits for them to exit.
func (h *Hub) Close() {
	h.mu.Lock()
	entries := make([]*hubEntry, 0, len(h.running))
	for actor, entry := range h.running {
		entry.cancel()
		entries = append(entries, entry)
		delete(h.running, actor)
	}
	h.mu.Unlock()

	for _, entry := range entries {
		<-entry.done
	}
}
