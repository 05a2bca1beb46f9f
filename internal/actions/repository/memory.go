package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"trade_portal_backend/internal/actions/domain"
	"trade_portal_backend/platform/apperr"

	"github.com/google/uuid"
)

// MemoryRepository is an in-process Repository with the same deduplication
// and resolution semantics as the PostgreSQL store. Used in tests and local runs.
type MemoryRepository struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*domain.Notification
	open map[domain.Key]uuid.UUID

	// FailWrites makes every write return this error.
	FailWrites error
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *MemoryRepository {
	return &MemoryRepository{
		rows: make(map[uuid.UUID]*domain.Notification),
		open: make(map[domain.Key]uuid.UUID),
	}
}

var _ Repository = (*MemoryRepository)(nil)

func (m *MemoryRepository) Upsert(_ context.Context, n domain.Notification) (UpsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return UpsertResult{}, m.FailWrites
	}

	if id, ok := m.open[n.Key()]; ok {
		existing := m.rows[id]
		existing.Title = n.Title
		existing.Message = n.Message
		existing.DeepLink = n.DeepLink
		existing.Payload = n.Payload
		existing.LastEmittedAt = n.LastEmittedAt
		existing.EmitCount++
		return UpsertResult{Notification: *existing}, nil
	}

	row := n
	row.RequiresAction = true
	row.Resolved = false
	row.ResolvedAt = nil
	row.EmitCount = 1
	if row.CreatedAt.IsZero() {
		row.CreatedAt = n.LastEmittedAt
	}
	m.rows[row.ID] = &row
	m.open[row.Key()] = row.ID
	return UpsertResult{Notification: row, Created: true}, nil
}

func (m *MemoryRepository) resolveLocked(row *domain.Notification, at time.Time) bool {
	if row.Resolved {
		return false
	}
	t := at
	row.Resolved = true
	row.ResolvedAt = &t
	delete(m.open, row.Key())
	return true
}

func (m *MemoryRepository) ResolveByID(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return false, m.FailWrites
	}
	row, ok := m.rows[id]
	if !ok {
		return false, nil
	}
	return m.resolveLocked(row, at), nil
}

func (m *MemoryRepository) ResolveByEntity(_ context.Context, entityType domain.EntityType, entityID uuid.UUID, types []domain.Type, at time.Time) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return nil, m.FailWrites
	}
	var ids []uuid.UUID
	for _, row := range m.sortedLocked() {
		if row.EntityType != entityType || row.EntityID != entityID || !matchesType(row.Type, types) {
			continue
		}
		if m.resolveLocked(row, at) {
			ids = append(ids, row.ID)
		}
	}
	return ids, nil
}

func (m *MemoryRepository) ResolveByTypeForUser(_ context.Context, userID uuid.UUID, types []domain.Type, at time.Time) ([]uuid.UUID, error) {
	if len(types) == 0 {
		return nil, apperr.Validation("at least one action type is required").WithOp(opResolveByType)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return nil, m.FailWrites
	}
	var ids []uuid.UUID
	for _, row := range m.sortedLocked() {
		if row.UserID != userID || !matchesType(row.Type, types) {
			continue
		}
		if m.resolveLocked(row, at) {
			ids = append(ids, row.ID)
		}
	}
	return ids, nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return domain.Notification{}, apperr.NotFound("notification not found")
	}
	return *row, nil
}

func (m *MemoryRepository) ListPending(_ context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]domain.Notification, 0)
	for _, row := range m.sortedLocked() {
		if row.UserID == userID && !row.Resolved {
			items = append(items, *row)
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].LastEmittedAt.After(items[j].LastEmittedAt) })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *MemoryRepository) CountPending(ctx context.Context, userID uuid.UUID) (int, error) {
	items, err := m.ListPending(ctx, userID, 0)
	return len(items), err
}

func (m *MemoryRepository) ListOpenByType(_ context.Context, t domain.Type) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]domain.Notification, 0)
	for _, row := range m.sortedLocked() {
		if row.Type == t && !row.Resolved {
			items = append(items, *row)
		}
	}
	return items, nil
}

// Get returns a copy of a row, for assertions.
func (m *MemoryRepository) Get(id uuid.UUID) (domain.Notification, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return domain.Notification{}, false
	}
	return *row, true
}

// All returns every row, open and resolved, ordered by creation.
func (m *MemoryRepository) All() []domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.sortedLocked()
	out := make([]domain.Notification, len(rows))
	for i, r := range rows {
		out[i] = *r
	}
	return out
}

func (m *MemoryRepository) sortedLocked() []*domain.Notification {
	rows := make([]*domain.Notification, 0, len(m.rows))
	for _, r := range m.rows {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.Before(rows[j].CreatedAt)
		}
		return rows[i].ID.String() < rows[j].ID.String()
	})
	return rows
}

func matchesType(t domain.Type, types []domain.Type) bool {
	if len(types) == 0 {
		return true
	}
	for _, want := range types {
		if t == want {
			return true
		}
	}
	return false
}
