package repository

import (
	"context"
	"testing"
	"time"

	"trade_portal_backend/internal/actions/domain"

	"github.com/google/uuid"
)

var t0 = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

func notification(user, entity uuid.UUID, typ domain.Type, at time.Time) domain.Notification {
	return domain.Notification{
		ID: uuid.New(), UserID: user, Role: domain.RoleCustomer, Type: typ,
		EntityType: domain.EntityOrder, EntityID: entity, Title: "t", Message: "m",
		LastEmittedAt: at, CreatedAt: at,
	}
}

func TestMemoryUpsert_RefreshesOpenRow(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	user, order := uuid.New(), uuid.New()

	first, err := repo.Upsert(ctx, notification(user, order, domain.TypePaymentRequired, t0))
	if err != nil || !first.Created {
		t.Fatalf("expected insert, got %+v %v", first, err)
	}
	n := notification(user, order, domain.TypePaymentRequired, t0.Add(time.Hour))
	n.Title = "updated"
	second, err := repo.Upsert(ctx, n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if second.Created || second.Notification.ID != first.Notification.ID {
		t.Fatalf("expected dedup onto %s, got %+v", first.Notification.ID, second)
	}
	if second.Notification.EmitCount != 2 || second.Notification.Title != "updated" {
		t.Fatalf("expected refreshed row with emit count 2, got %+v", second.Notification)
	}
	if !second.Notification.CreatedAt.Equal(t0) {
		t.Fatalf("created_at must not move on refresh")
	}
}

func TestMemoryUpsert_AfterResolveCreatesNewRow(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	user, order := uuid.New(), uuid.New()

	first, _ := repo.Upsert(ctx, notification(user, order, domain.TypeAddressRequired, t0))
	if ok, _ := repo.ResolveByID(ctx, first.Notification.ID, t0.Add(time.Minute)); !ok {
		t.Fatalf("expected resolve transition")
	}
	second, _ := repo.Upsert(ctx, notification(user, order, domain.TypeAddressRequired, t0.Add(time.Hour)))

	if !second.Created || second.Notification.ID == first.Notification.ID {
		t.Fatalf("expected a fresh row after resolution")
	}
	if len(repo.All()) != 2 {
		t.Fatalf("expected both rows to be kept")
	}
}

func TestMemoryResolveByID_SetsResolvedAtOnce(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	res, _ := repo.Upsert(ctx, notification(uuid.New(), uuid.New(), domain.TypeQuoteReady, t0))
	id := res.Notification.ID

	first, _ := repo.ResolveByID(ctx, id, t0.Add(time.Minute))
	second, _ := repo.ResolveByID(ctx, id, t0.Add(time.Hour))
	missing, _ := repo.ResolveByID(ctx, uuid.New(), t0)

	if !first || second || missing {
		t.Fatalf("expected true,false,false got %v,%v,%v", first, second, missing)
	}
	row, _ := repo.Get(id)
	if row.ResolvedAt == nil || !row.ResolvedAt.Equal(t0.Add(time.Minute)) {
		t.Fatalf("resolved_at should keep the first resolution time, got %v", row.ResolvedAt)
	}
}

func TestMemoryResolveByTypeForUser_RequiresTypes(t *testing.T) {
	repo := NewMemory()
	if _, err := repo.ResolveByTypeForUser(context.Background(), uuid.New(), nil, t0); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestMemoryListPending_NewestFirstAndCounted(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	user := uuid.New()
	older, _ := repo.Upsert(ctx, notification(user, uuid.New(), domain.TypePaymentRequired, t0))
	newer, _ := repo.Upsert(ctx, notification(user, uuid.New(), domain.TypePaymentRequired, t0.Add(time.Hour)))
	_, _ = repo.Upsert(ctx, notification(uuid.New(), uuid.New(), domain.TypePaymentRequired, t0))

	items, _ := repo.ListPending(ctx, user, 10)
	if len(items) != 2 || items[0].ID != newer.Notification.ID || items[1].ID != older.Notification.ID {
		t.Fatalf("unexpected pending list %+v", items)
	}
	if n, _ := repo.CountPending(ctx, user); n != 2 {
		t.Fatalf("expected 2 pending, got %d", n)
	}
}
