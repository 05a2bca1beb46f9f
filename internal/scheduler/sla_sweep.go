package scheduler

import (
	"context"
	"errors"
	"fmt"

	actiondomain "trade_portal_backend/internal/actions/domain"
	orderdomain "trade_portal_backend/internal/orders/domain"
	"trade_portal_backend/internal/sla"
	"trade_portal_backend/platform/clock"
	"trade_portal_backend/platform/logger"

	"github.com/google/uuid"
)

// ActiveOrders lists the orders the sweep classifies.
type ActiveOrders interface {
	ListActive(ctx context.Context) ([]orderdomain.Order, error)
}

// RiskActions is the part of the actions manager the sweep drives.
type RiskActions interface {
	EmitToAllAdmins(ctx context.Context, v actiondomain.Variant) (bool, error)
	OpenByType(ctx context.Context, t actiondomain.Type) ([]actiondomain.Notification, error)
	ResolveByEntity(ctx context.Context, entityType actiondomain.EntityType, entityID uuid.UUID, types ...actiondomain.Type) (bool, error)
}

// SweepResult counts what one sweep changed.
type SweepResult struct {
	Raised  int
	Cleared int
}

// SLASweeper raises order_at_risk for every at-risk or breached order and
// resolves the ones whose order has recovered or left the active set.
type SLASweeper struct {
	orders     ActiveOrders
	classifier *sla.Classifier
	actions    RiskActions
	clock      clock.Clock
	log        *logger.Logger
}

func NewSLASweeper(orders ActiveOrders, classifier *sla.Classifier, actions RiskActions, clk clock.Clock, log *logger.Logger) *SLASweeper {
	if classifier == nil {
		classifier = sla.NewClassifier(nil)
	}
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = logger.Discard()
	}
	return &SLASweeper{orders: orders, classifier: classifier, actions: actions, clock: clk, log: log}
}

func (s *SLASweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult

	orders, err := s.orders.ListActive(ctx)
	if err != nil {
		return res, fmt.Errorf("sla sweep: list active: %w", err)
	}

	classifications := s.classifier.ClassifyAll(orders, s.clock.Now())
	sla.ReportDegraded(s.log, classifications)

	var errs []error
	risky := make(map[uuid.UUID]bool)
	for i, c := range classifications {
		if c.RiskLevel.Severity() == 0 {
			continue
		}
		risky[c.OrderID] = true
		ok, err := s.actions.EmitToAllAdmins(ctx, actiondomain.OrderAtRisk{
			OrderID:            c.OrderID,
			OrderNumber:        orders[i].OrderNumber,
			Status:             c.Status,
			RiskLevel:          string(c.RiskLevel),
			DaysInCurrentStage: c.DaysInCurrentStage,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			res.Raised++
		}
	}

	open, err := s.actions.OpenByType(ctx, actiondomain.TypeOrderAtRisk)
	if err != nil {
		errs = append(errs, err)
		return res, errors.Join(errs...)
	}

	cleared := make(map[uuid.UUID]bool)
	for _, n := range open {
		if risky[n.EntityID] || cleared[n.EntityID] {
			continue
		}
		cleared[n.EntityID] = true
		ok, err := s.actions.ResolveByEntity(ctx, actiondomain.EntityOrder, n.EntityID, actiondomain.TypeOrderAtRisk)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			res.Cleared++
		}
	}

	if res.Raised > 0 || res.Cleared > 0 {
		s.log.Info("sla sweep finished", "raised", res.Raised, "cleared", res.Cleared)
	}
	return res, errors.Join(errs...)
}
