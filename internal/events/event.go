// Package events defines the domain events exchanged between the orders,
// operations, actions and notification modules. The bus itself lives in
// platform/events; its types are aliased here so modules import one package.
package events

import (
	"encoding/json"

	"trade_portal_backend/platform/events"
	"trade_portal_backend/platform/logger"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var (
	NewBaseEvent = events.NewBaseEvent
	BaseEventAt  = events.BaseEventAt
)

// NewInMemoryBus creates the process-local bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// Event names
const (
	NameActionRequired            = "actions.required"
	NameActionCompleted           = "actions.completed"
	NameOrdersAssigned            = "orders.assigned"
	NameOrderPaymentProofUploaded = "orders.payment_proof_uploaded"
	NameOrderStatusChanged        = "orders.status_changed"
	NameNotificationOutboxDue     = "notification.outbox.due"
)

// =============================================================================
// Action Domain Events
// =============================================================================

// ActionRequired asks the actions module to raise a notification. Payload is
// the JSON field set of the action type. When UserID is nil the action is
// raised for every admin.
type ActionRequired struct {
	BaseEvent
	UserID     uuid.UUID       `json:"userId"`
	ActionType string          `json:"actionType"`
	Payload    json.RawMessage `json:"payload"`
}

func (e ActionRequired) EventName() string { return NameActionRequired }

// ActionCompleted signals that the underlying work on an entity is done.
// ActionTypes narrows which notification types are resolved; empty means all.
type ActionCompleted struct {
	BaseEvent
	EntityType  string    `json:"entityType"`
	EntityID    uuid.UUID `json:"entityId"`
	ActionTypes []string  `json:"actionTypes,omitempty"`
}

func (e ActionCompleted) EventName() string { return NameActionCompleted }

// =============================================================================
// Order Domain Events
// =============================================================================

// OrdersAssigned is published after a bulk assignment wrote at least one order.
type OrdersAssigned struct {
	BaseEvent
	OrderIDs   []uuid.UUID `json:"orderIds"`
	AssigneeID uuid.UUID   `json:"assigneeId"`
	AssignedBy uuid.UUID   `json:"assignedBy"`
}

func (e OrdersAssigned) EventName() string { return NameOrdersAssigned }

// OrderPaymentProofUploaded is published when a customer uploads proof of payment.
type OrderPaymentProofUploaded struct {
	BaseEvent
	OrderID    uuid.UUID `json:"orderId"`
	CustomerID uuid.UUID `json:"customerId"`
}

func (e OrderPaymentProofUploaded) EventName() string { return NameOrderPaymentProofUploaded }

// OrderStatusChanged is published by fulfillment when an order moves stage.
type OrderStatusChanged struct {
	BaseEvent
	OrderID        uuid.UUID `json:"orderId"`
	CustomerID     uuid.UUID `json:"customerId"`
	PreviousStatus string    `json:"previousStatus"`
	NewStatus      string    `json:"newStatus"`
}

func (e OrderStatusChanged) EventName() string { return NameOrderStatusChanged }

// =============================================================================
// Notification Events
// =============================================================================

// NotificationOutboxDue is published by the scheduler worker when an outbox
// row is ready for delivery.
type NotificationOutboxDue struct {
	BaseEvent
	OutboxID uuid.UUID `json:"outboxId"`
}

func (e NotificationOutboxDue) EventName() string { return NameNotificationOutboxDue }
