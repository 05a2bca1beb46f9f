// Package service implements the action notification lifecycle: emission
// with deduplication, side-channel fan-out, and idempotent resolution.
package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"trade_portal_backend/internal/actions/domain"
	"trade_portal_backend/internal/actions/repository"
	"trade_portal_backend/internal/feed"
	"trade_portal_backend/internal/notification/sse"
	"trade_portal_backend/internal/operations/opserr"
	"trade_portal_backend/platform/apperr"
	"trade_portal_backend/platform/clock"
	"trade_portal_backend/platform/logger"
	"trade_portal_backend/platform/metrics"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	adminFanOut      = 5
)

// AdminDirectory lists the users that receive admin actions.
type AdminDirectory interface {
	ListAdminIDs(ctx context.Context) ([]uuid.UUID, error)
}

// SideChannel hands a newly created notification to push and email.
// Implementations must not block on delivery.
type SideChannel interface {
	Dispatch(ctx context.Context, n domain.Notification) error
}

// Manager is the action event lifecycle manager.
type Manager struct {
	repo   repository.Repository
	admins AdminDirectory
	side   SideChannel
	feed   feed.Publisher
	sse    *sse.Service
	clock  clock.Clock
	log    *logger.Logger
}

// New creates a manager. admins, side and changes may be nil.
func New(repo repository.Repository, admins AdminDirectory, side SideChannel, changes feed.Publisher, clk clock.Clock, log *logger.Logger) *Manager {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Manager{repo: repo, admins: admins, side: side, feed: changes, clock: clk, log: log}
}

// SetSSE injects the SSE service (circular dependency avoidance).
func (m *Manager) SetSSE(s *sse.Service) {
	m.sse = s
}

// Emit raises ev. If the user already has an unresolved notification for the
// same entity and type it is refreshed in place and its id returned; side
// channels only fire for newly created notifications.
func (m *Manager) Emit(ctx context.Context, ev domain.ActionEvent) (uuid.UUID, error) {
	if ev.UserID == uuid.Nil {
		return uuid.Nil, apperr.Validation("userId is required")
	}
	if ev.Variant == nil {
		return uuid.Nil, apperr.Validation("action type is required")
	}
	if err := ev.Variant.Validate(); err != nil {
		return uuid.Nil, apperr.Wrap(apperr.KindValidation, err.Error(), err)
	}

	n, err := domain.NewNotification(ev, m.clock.Now())
	if err != nil {
		return uuid.Nil, opserr.NotificationWriteFailed("encode payload", err)
	}

	res, err := m.repo.Upsert(ctx, n)
	if err != nil {
		metrics.ActionEmissionsTotal.WithLabelValues(string(n.Type), "failed").Inc()
		m.log.WithContext(ctx).Error("action emit failed", "type", n.Type, "userId", n.UserID, "entityId", n.EntityID, "error", err)
		return uuid.Nil, opserr.NotificationWriteFailed("upsert failed", err)
	}

	stored := res.Notification
	op := feed.OpUpdate
	outcome := "deduplicated"
	if res.Created {
		op = feed.OpInsert
		outcome = "created"
	}
	metrics.ActionEmissionsTotal.WithLabelValues(string(stored.Type), outcome).Inc()
	m.log.Debug("action emitted", "notificationId", stored.ID, "type", stored.Type, "outcome", outcome, "emitCount", stored.EmitCount)

	m.publishChange(ctx, op, stored.ID)
	if m.sse != nil {
		m.sse.Publish(stored.UserID, sse.Event{Type: sse.EventActionRequired, Message: stored.Title, Data: stored})
	}
	if res.Created {
		m.dispatch(ctx, stored)
	}
	return stored.ID, nil
}

// EmitToAllAdmins emits v once per admin. It returns true if at least one
// emission succeeded; individual failures are logged.
func (m *Manager) EmitToAllAdmins(ctx context.Context, v domain.Variant) (bool, error) {
	if v == nil {
		return false, apperr.Validation("action type is required")
	}
	if v.Role() != domain.RoleAdmin {
		return false, apperr.Validation("action type " + string(v.Type()) + " is not an admin action")
	}
	if m.admins == nil {
		return false, apperr.Unavailable("admin directory not configured")
	}

	adminIDs, err := m.admins.ListAdminIDs(ctx)
	if err != nil {
		return false, apperr.Wrap(apperr.KindUnavailable, "failed to list admins", err)
	}
	if len(adminIDs) == 0 {
		m.log.Warn("no admins to notify", "type", v.Type())
		return false, nil
	}

	var succeeded atomic.Int32
	var mu sync.Mutex
	var errs []error

	var g errgroup.Group
	g.SetLimit(adminFanOut)
	for _, adminID := range adminIDs {
		g.Go(func() error {
			if _, err := m.Emit(ctx, domain.ActionEvent{UserID: adminID, Variant: v}); err != nil {
				m.log.Warn("admin emit failed", "adminId", adminID, "type", v.Type(), "error", err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			succeeded.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	if succeeded.Load() > 0 {
		return true, nil
	}
	return false, errors.Join(errs...)
}

// ResolveByID resolves one notification. It returns true only on the
// transition; resolving a resolved or unknown notification is a no-op.
func (m *Manager) ResolveByID(ctx context.Context, id uuid.UUID) (bool, error) {
	if id == uuid.Nil {
		return false, apperr.Validation("id is required")
	}
	ok, err := m.repo.ResolveByID(ctx, id, m.clock.Now())
	if err != nil {
		return false, opserr.NotificationWriteFailed("resolve failed", err)
	}
	if ok {
		m.resolved(ctx, "id", []uuid.UUID{id})
	}
	return ok, nil
}

// ResolveByEntity resolves every unresolved notification for the entity,
// narrowed to types when any are given.
func (m *Manager) ResolveByEntity(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID, types ...domain.Type) (bool, error) {
	if !entityType.Valid() {
		return false, apperr.Validation("unknown entity type " + string(entityType))
	}
	if entityID == uuid.Nil {
		return false, apperr.Validation("entityId is required")
	}
	if err := validateTypes(types); err != nil {
		return false, err
	}

	ids, err := m.repo.ResolveByEntity(ctx, entityType, entityID, types, m.clock.Now())
	if err != nil {
		return false, opserr.NotificationWriteFailed("resolve by entity failed", err)
	}
	m.resolved(ctx, "entity", ids)
	return len(ids) > 0, nil
}

// ResolveByTypeForUser resolves every unresolved notification of the given
// types for userID.
func (m *Manager) ResolveByTypeForUser(ctx context.Context, userID uuid.UUID, types []domain.Type) (bool, error) {
	if userID == uuid.Nil {
		return false, apperr.Validation("userId is required")
	}
	if len(types) == 0 {
		return false, apperr.Validation("at least one action type is required")
	}
	if err := validateTypes(types); err != nil {
		return false, err
	}

	ids, err := m.repo.ResolveByTypeForUser(ctx, userID, types, m.clock.Now())
	if err != nil {
		return false, opserr.NotificationWriteFailed("resolve by type failed", err)
	}
	m.resolved(ctx, "user_type", ids)
	return len(ids) > 0, nil
}

// ListPending returns the user's unresolved notifications, newest first.
func (m *Manager) ListPending(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return m.repo.ListPending(ctx, userID, limit)
}

// CountPending counts the user's unresolved notifications.
func (m *Manager) CountPending(ctx context.Context, userID uuid.UUID) (int, error) {
	return m.repo.CountPending(ctx, userID)
}

// OpenByType lists every unresolved notification of type t.
func (m *Manager) OpenByType(ctx context.Context, t domain.Type) ([]domain.Notification, error) {
	return m.repo.ListOpenByType(ctx, t)
}

// IsResolved reports whether the notification is resolved. Unknown ids
// count as resolved.
func (m *Manager) IsResolved(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := m.repo.GetByID(ctx, id)
	if apperr.Is(err, apperr.KindNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return n.Resolved, nil
}

func (m *Manager) resolved(ctx context.Context, path string, ids []uuid.UUID) {
	if len(ids) == 0 {
		return
	}
	metrics.ActionResolutionsTotal.WithLabelValues(path).Add(float64(len(ids)))
	for _, id := range ids {
		m.publishChange(ctx, feed.OpUpdate, id)
	}
}

func (m *Manager) dispatch(ctx context.Context, n domain.Notification) {
	if m.side == nil {
		return
	}
	err := m.side.Dispatch(ctx, n)
	if err == nil {
		return
	}
	for _, failure := range sideChannelFailures(err) {
		m.log.SideChannelFailed(failure.Channel, n.ID.String(), failure)
		metrics.SideChannelFailuresTotal.WithLabelValues(failure.Channel).Inc()
	}
}

func (m *Manager) publishChange(ctx context.Context, op feed.Op, id uuid.UUID) {
	if m.feed == nil {
		return
	}
	change := feed.Change{Table: feed.TableActionNotifications, Op: op, RowID: id, At: m.clock.Now()}
	if err := m.feed.Publish(ctx, change); err != nil {
		m.log.Warn("actions: change feed publish failed", "notificationId", id, "error", err)
	}
}

// sideChannelFailures flattens err into SideChannelFailed errors. Errors of
// other kinds are reported under channel "unknown".
func sideChannelFailures(err error) []*opserr.Error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []*opserr.Error
		for _, e := range joined.Unwrap() {
			out = append(out, sideChannelFailures(e)...)
		}
		return out
	}
	var e *opserr.Error
	if errors.As(err, &e) && e.Kind == opserr.KindSideChannelFailed {
		return []*opserr.Error{e}
	}
	return []*opserr.Error{opserr.SideChannelFailed("unknown", "dispatch failed", err)}
}

func validateTypes(types []domain.Type) error {
	for _, t := range types {
		if !t.Valid() {
			return apperr.Validation("unknown action type " + string(t))
		}
	}
	return nil
}
