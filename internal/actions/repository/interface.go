// Package repository persists action notifications.
package repository

import (
	"context"
	"time"

	"trade_portal_backend/internal/actions/domain"

	"github.com/google/uuid"
)

// UpsertResult reports whether Upsert inserted a row or refreshed the open one.
type UpsertResult struct {
	Notification domain.Notification
	Created      bool
}

// Repository is the notification store. Implementations guarantee at most
// one unresolved row per deduplication key and set resolved_at once.
type Repository interface {
	// Upsert inserts n, or refreshes the unresolved row with the same key
	// (title, message, deep link, payload, last_emitted_at, emit_count+1).
	Upsert(ctx context.Context, n domain.Notification) (UpsertResult, error)
	// ResolveByID resolves one row. It returns false when the row is missing or already resolved.
	ResolveByID(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	// ResolveByEntity resolves every open row for the entity, narrowed to types when non-empty.
	ResolveByEntity(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID, types []domain.Type, at time.Time) ([]uuid.UUID, error)
	// ResolveByTypeForUser resolves every open row of the given types for userID.
	ResolveByTypeForUser(ctx context.Context, userID uuid.UUID, types []domain.Type, at time.Time) ([]uuid.UUID, error)
	// GetByID returns one row, open or resolved.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Notification, error)
	// ListPending returns the user's unresolved rows, newest first.
	ListPending(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error)
	// CountPending counts the user's unresolved rows.
	CountPending(ctx context.Context, userID uuid.UUID) (int, error)
	// ListOpenByType returns every unresolved row of type t.
	ListOpenByType(ctx context.Context, t domain.Type) ([]domain.Notification, error)
}
