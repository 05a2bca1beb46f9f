package alerts

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"trade_portal_backend/platform/clock"

	"github.com/redis/go-redis/v9"
)

// DismissalStore is the session-scoped set of dismissed alert ids. Sets
// expire TTL after their last write.
type DismissalStore interface {
	List(ctx context.Context, session string) ([]string, error)
	Add(ctx context.Context, session, id string) error
	Remove(ctx context.Context, session string, ids ...string) error
}

// MemoryDismissals keeps dismissals in process. Used in tests and single-node runs.
type MemoryDismissals struct {
	mu       sync.Mutex
	ttl      time.Duration
	clock    clock.Clock
	sessions map[string]*dismissalSet
}

type dismissalSet struct {
	ids       []string
	expiresAt time.Time
}

func NewMemoryDismissals(ttl time.Duration, clk clock.Clock) *MemoryDismissals {
	if clk == nil {
		clk = clock.System{}
	}
	return &MemoryDismissals{ttl: ttl, clock: clk, sessions: make(map[string]*dismissalSet)}
}

func (m *MemoryDismissals) live(session string) *dismissalSet {
	set, ok := m.sessions[session]
	if !ok {
		return nil
	}
	if m.ttl > 0 && !m.clock.Now().Before(set.expiresAt) {
		delete(m.sessions, session)
		return nil
	}
	return set
}

func (m *MemoryDismissals) List(_ context.Context, session string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.live(session)
	if set == nil {
		return nil, nil
	}
	return slices.Clone(set.ids), nil
}

func (m *MemoryDismissals) Add(_ context.Context, session, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.live(session)
	if set == nil {
		set = &dismissalSet{}
		m.sessions[session] = set
	}
	if !slices.Contains(set.ids, id) {
		set.ids = append(set.ids, id)
	}
	set.expiresAt = m.clock.Now().Add(m.ttl)
	return nil
}

// Remove drops ids from the session's set. Other ids, including ones added
// concurrently, are left alone.
func (m *MemoryDismissals) Remove(_ context.Context, session string, ids ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.live(session)
	if set == nil {
		return nil
	}
	set.ids = slices.DeleteFunc(set.ids, func(id string) bool { return slices.Contains(ids, id) })
	if len(set.ids) == 0 {
		delete(m.sessions, session)
	}
	return nil
}

const (
	dismissalKeyPrefix = "alerts:dismissed:"

	opListDismissals    = "alerts.dismissals.list"
	opAddDismissal      = "alerts.dismissals.add"
	opRemoveDismissals  = "alerts.dismissals.remove"
)

// RedisDismissals stores each session's dismissals as a Redis set.
type RedisDismissals struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDismissals(client *redis.Client, ttl time.Duration) *RedisDismissals {
	return &RedisDismissals{client: client, ttl: ttl}
}

func dismissalKey(session string) string {
	return dismissalKeyPrefix + session
}

func (r *RedisDismissals) List(ctx context.Context, session string) ([]string, error) {
	ids, err := r.client.SMembers(ctx, dismissalKey(session)).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opListDismissals, err)
	}
	slices.Sort(ids)
	return ids, nil
}

func (r *RedisDismissals) Add(ctx context.Context, session, id string) error {
	key := dismissalKey(session)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, key, id)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", opAddDismissal, err)
	}
	return nil
}

func (r *RedisDismissals) Remove(ctx context.Context, session string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	if err := r.client.SRem(ctx, dismissalKey(session), members...).Err(); err != nil {
		return fmt.Errorf("%s: %w", opRemoveDismissals, err)
	}
	return nil
}

var (
	_ DismissalStore = (*MemoryDismissals)(nil)
	_ DismissalStore = (*RedisDismissals)(nil)
)
