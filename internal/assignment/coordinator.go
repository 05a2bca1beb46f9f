// Package assignment applies an assignee to a set of orders. Writes are
// optimistic: no locks are taken and the last write wins.
package assignment

import (
	"context"

	"trade_portal_backend/internal/events"
	"trade_portal_backend/internal/feed"
	"trade_portal_backend/internal/operations/opserr"
	"trade_portal_backend/platform/apperr"
	"trade_portal_backend/platform/clock"
	"trade_portal_backend/platform/logger"
	"trade_portal_backend/platform/metrics"

	"github.com/google/uuid"
)

// Store performs the multi-row assignment write and returns the ids it updated.
type Store interface {
	AssignMany(ctx context.Context, ids []uuid.UUID, assignee uuid.UUID) ([]uuid.UUID, error)
}

// Result reports the outcome per order.
type Result struct {
	Assigned   []uuid.UUID `json:"assigned"`
	Failed     []uuid.UUID `json:"failed"`
	AssigneeID uuid.UUID   `json:"assigneeId"`
}

// Coordinator runs bulk assignments.
type Coordinator struct {
	store Store
	feed  feed.Publisher
	bus   events.Bus
	clock clock.Clock
	log   *logger.Logger
}

// New creates a coordinator. feed and bus may be nil.
func New(store Store, changes feed.Publisher, bus events.Bus, clk clock.Clock, log *logger.Logger) *Coordinator {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Coordinator{store: store, feed: changes, bus: bus, clock: clk, log: log}
}

// Assign writes assigneeID onto orderIDs. On partial failure both the
// result and an AssignmentFailed error are returned.
func (c *Coordinator) Assign(ctx context.Context, orderIDs []uuid.UUID, assigneeID uuid.UUID) (Result, error) {
	return c.assign(ctx, orderIDs, assigneeID, uuid.Nil)
}

// AssignSelection assigns every selected order on behalf of actorID and
// removes the ones that succeeded from sel. Failed ids stay selected.
func (c *Coordinator) AssignSelection(ctx context.Context, sel *Selection, assigneeID, actorID uuid.UUID) (Result, error) {
	res, err := c.assign(ctx, sel.IDs(), assigneeID, actorID)
	if len(res.Assigned) > 0 {
		sel.Remove(res.Assigned...)
	}
	return res, err
}

func (c *Coordinator) assign(ctx context.Context, orderIDs []uuid.UUID, assigneeID, actorID uuid.UUID) (Result, error) {
	ids := dedupe(orderIDs)
	if len(ids) == 0 {
		return Result{}, opserr.EmptySelection()
	}
	if assigneeID == uuid.Nil {
		return Result{}, apperr.Validation("assigneeId is required")
	}

	res := Result{AssigneeID: assigneeID}
	updated, err := c.store.AssignMany(ctx, ids, assigneeID)
	if err != nil {
		res.Failed = ids
		metrics.BulkAssignmentsTotal.WithLabelValues("failed").Add(float64(len(ids)))
		c.log.DatabaseError("assignment.assign_many", err)
		return res, opserr.AssignmentFailed("write failed", ids, false, err)
	}

	written := make(map[uuid.UUID]bool, len(updated))
	for _, id := range updated {
		written[id] = true
	}
	for _, id := range ids {
		if written[id] {
			res.Assigned = append(res.Assigned, id)
		} else {
			res.Failed = append(res.Failed, id)
		}
	}
	metrics.BulkAssignmentsTotal.WithLabelValues("assigned").Add(float64(len(res.Assigned)))
	metrics.BulkAssignmentsTotal.WithLabelValues("failed").Add(float64(len(res.Failed)))

	if len(res.Assigned) > 0 {
		c.announce(ctx, res, actorID)
	}

	if len(res.Failed) > 0 {
		return res, opserr.AssignmentFailed("orders not found or archived", res.Failed, len(res.Assigned) > 0, nil)
	}
	return res, nil
}

func (c *Coordinator) announce(ctx context.Context, res Result, actorID uuid.UUID) {
	now := c.clock.Now()
	if c.feed != nil {
		for _, id := range res.Assigned {
			change := feed.Change{Table: feed.TableOrders, Op: feed.OpUpdate, RowID: id, At: now}
			if err := c.feed.Publish(ctx, change); err != nil {
				c.log.Warn("assignment: change feed publish failed", "orderId", id, "error", err)
			}
		}
	}
	if c.bus != nil {
		c.bus.Publish(ctx, events.OrdersAssigned{
			BaseEvent:  events.BaseEventAt(now),
			OrderIDs:   append([]uuid.UUID(nil), res.Assigned...),
			AssigneeID: res.AssigneeID,
			AssignedBy: actorID,
		})
	}
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
