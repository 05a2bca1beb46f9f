package actions

import (
	"context"
	"fmt"

	"trade_portal_backend/internal/actions/domain"
	"trade_portal_backend/internal/actions/service"
	"trade_portal_backend/internal/events"
	orderdomain "trade_portal_backend/internal/orders/domain"
	"trade_portal_backend/platform/logger"

	"github.com/google/uuid"
)

// subscriber turns domain events into emissions and resolutions.
type subscriber struct {
	mgr *service.Manager
	log *logger.Logger
}

func (s *subscriber) register(bus events.Bus) {
	bus.Subscribe(events.NameActionRequired, events.HandlerFunc(s.onActionRequired))
	bus.Subscribe(events.NameActionCompleted, events.HandlerFunc(s.onActionCompleted))
	bus.Subscribe(events.NameOrderPaymentProofUploaded, events.HandlerFunc(s.onPaymentProofUploaded))
	bus.Subscribe(events.NameOrdersAssigned, events.HandlerFunc(s.onOrdersAssigned))
	bus.Subscribe(events.NameOrderStatusChanged, events.HandlerFunc(s.onOrderStatusChanged))
}

func (s *subscriber) onActionRequired(ctx context.Context, event events.Event) error {
	e, ok := event.(events.ActionRequired)
	if !ok {
		return nil
	}
	variant, err := domain.Decode(domain.Type(e.ActionType), e.Payload)
	if err != nil {
		return err
	}

	if e.UserID == uuid.Nil {
		_, err = s.mgr.EmitToAllAdmins(ctx, variant)
		return err
	}
	_, err = s.mgr.Emit(ctx, domain.ActionEvent{UserID: e.UserID, Variant: variant})
	return err
}

func (s *subscriber) onActionCompleted(ctx context.Context, event events.Event) error {
	e, ok := event.(events.ActionCompleted)
	if !ok {
		return nil
	}
	types := make([]domain.Type, 0, len(e.ActionTypes))
	for _, t := range e.ActionTypes {
		types = append(types, domain.Type(t))
	}
	_, err := s.mgr.ResolveByEntity(ctx, domain.EntityType(e.EntityType), e.EntityID, types...)
	return err
}

func (s *subscriber) onPaymentProofUploaded(ctx context.Context, event events.Event) error {
	e, ok := event.(events.OrderPaymentProofUploaded)
	if !ok {
		return nil
	}
	_, err := s.mgr.ResolveByEntity(ctx, domain.EntityOrder, e.OrderID, domain.TypePaymentRequired, domain.TypeBalanceRequested)
	return err
}

func (s *subscriber) onOrdersAssigned(ctx context.Context, event events.Event) error {
	e, ok := event.(events.OrdersAssigned)
	if !ok {
		return nil
	}
	// Operators do not get told about work they took themselves.
	if e.AssigneeID == e.AssignedBy {
		return nil
	}

	var failed int
	for _, orderID := range e.OrderIDs {
		variant := domain.OrderAssigned{OrderID: orderID, AssignedBy: e.AssignedBy}
		if _, err := s.mgr.Emit(ctx, domain.ActionEvent{UserID: e.AssigneeID, Variant: variant}); err != nil {
			s.log.Warn("order assigned notification failed", "orderId", orderID, "assigneeId", e.AssigneeID, "error", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d order assigned notifications failed", failed, len(e.OrderIDs))
	}
	return nil
}

// onOrderStatusChanged resolves actions the new status makes stale.
func (s *subscriber) onOrderStatusChanged(ctx context.Context, event events.Event) error {
	e, ok := event.(events.OrderStatusChanged)
	if !ok {
		return nil
	}
	types := staleActionTypes(orderdomain.Status(e.NewStatus))
	if types == nil {
		return nil
	}
	_, err := s.mgr.ResolveByEntity(ctx, domain.EntityOrder, e.OrderID, types...)
	return err
}

// staleActionTypes returns the action types an order in status can no longer
// need. An empty non-nil slice means every action on the order; nil means none.
func staleActionTypes(status orderdomain.Status) []domain.Type {
	switch {
	case status.IsTerminal():
		return []domain.Type{}
	case status.IsShipped():
		return []domain.Type{domain.TypePaymentRequired, domain.TypeBalanceRequested, domain.TypeAddressRequired}
	case status == orderdomain.StatusPaymentReceived,
		status == orderdomain.StatusPaymentConfirmed,
		status == orderdomain.StatusProcessing,
		status == orderdomain.StatusReadyToShip:
		return []domain.Type{domain.TypePaymentRequired}
	}
	return nil
}
