// Package service is the operator-facing facade over the queue router and the
// bulk assignment coordinator, plus the per-operator queue refresher.
package service

import (
	"context"
	"time"

	"trade_portal_backend/internal/assignment"
	orderdomain "trade_portal_backend/internal/orders/domain"
	"trade_portal_backend/internal/queues"
	"trade_portal_backend/internal/sla"
	"trade_portal_backend/platform/apperr"
	"trade_portal_backend/platform/clock"
	"trade_portal_backend/platform/logger"
	"trade_portal_backend/platform/metrics"

	"github.com/google/uuid"
)

// OrderSource reads the active order snapshot.
type OrderSource interface {
	ListActive(ctx context.Context) ([]orderdomain.Order, error)
}

// Assigner runs bulk assignments.
type Assigner interface {
	AssignSelection(ctx context.Context, sel *assignment.Selection, assigneeID, actorID uuid.UUID) (assignment.Result, error)
}

// AssignOutcome is an assignment result plus the ids left selected for retry.
type AssignOutcome struct {
	assignment.Result
	StillSelected []uuid.UUID `json:"stillSelected"`
}

// Facade serves queues and assignments to operators.
type Facade struct {
	orders     OrderSource
	classifier queues.Classifier
	assigner   Assigner
	clock      clock.Clock
	log        *logger.Logger
}

func NewFacade(orders OrderSource, classifier queues.Classifier, assigner Assigner, clk clock.Clock, log *logger.Logger) *Facade {
	if classifier == nil {
		classifier = sla.NewClassifier(nil)
	}
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Facade{orders: orders, classifier: classifier, assigner: assigner, clock: clk, log: log}
}

// GetQueues loads the active orders and routes them for actorID. Degraded
// classifications are logged and counted once per call.
func (f *Facade) GetQueues(ctx context.Context, actorID uuid.UUID) (queues.Queues, error) {
	start := time.Now()
	defer func() { metrics.QueueRefreshDuration.Observe(time.Since(start).Seconds()) }()

	orders, err := f.orders.ListActive(ctx)
	if err != nil {
		f.log.WithContext(ctx).DatabaseError("operations.get_queues", err)
		return queues.Queues{}, apperr.Wrap(apperr.KindInternal, "failed to load orders", err)
	}

	routed := queues.Route(orders, actorID, f.classifier, f.clock.Now())
	sla.ReportDegraded(f.log, routed.Classifications())
	return routed, nil
}

// AssignBulk assigns orderIDs to assigneeID on behalf of actorID. On partial
// failure the outcome and an AssignmentFailed error are both returned.
func (f *Facade) AssignBulk(ctx context.Context, orderIDs []uuid.UUID, assigneeID, actorID uuid.UUID) (AssignOutcome, error) {
	sel := assignment.NewSelection(orderIDs...)
	res, err := f.assigner.AssignSelection(ctx, sel, assigneeID, actorID)
	return AssignOutcome{Result: res, StillSelected: sel.IDs()}, err
}
