// Package domain holds the order model shared by the operations engine.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is an order's fulfillment status.
type Status string

const (
	StatusOrderConfirmed   Status = "order_confirmed"
	StatusPendingPayment   Status = "pending_payment"
	StatusPaymentReceived  Status = "payment_received"
	StatusPaymentConfirmed Status = "payment_confirmed"
	StatusProcessing       Status = "processing"
	StatusReadyToShip      Status = "ready_to_ship"
	StatusShipped          Status = "shipped"
	StatusOutForDelivery   Status = "out_for_delivery"
	StatusDelivered        Status = "delivered"
	StatusCancelled        Status = "cancelled"
	StatusOnHold           Status = "on_hold"
	StatusFailedDelivery   Status = "failed_delivery"
)

var knownStatuses = map[Status]bool{
	StatusOrderConfirmed:   true,
	StatusPendingPayment:   true,
	StatusPaymentReceived:  true,
	StatusPaymentConfirmed: true,
	StatusProcessing:       true,
	StatusReadyToShip:      true,
	StatusShipped:          true,
	StatusOutForDelivery:   true,
	StatusDelivered:        true,
	StatusCancelled:        true,
	StatusOnHold:           true,
	StatusFailedDelivery:   true,
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return knownStatuses[s]
}

// IsTerminal returns true for delivered and cancelled orders.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// IsShipped returns true once the goods have left the warehouse.
func (s Status) IsShipped() bool {
	switch s {
	case StatusShipped, StatusOutForDelivery, StatusDelivered, StatusFailedDelivery:
		return true
	}
	return false
}

// Order is the fulfillment record. Stage timestamps are non-decreasing in
// the order they are declared.
type Order struct {
	ID                    uuid.UUID  `json:"id"`
	CustomerID            uuid.UUID  `json:"customerId"`
	OrderNumber           string     `json:"orderNumber"`
	Status                Status     `json:"status"`
	AssignedTo            *uuid.UUID `json:"assignedTo,omitempty"`
	DeliveryAddress       *string    `json:"deliveryAddress,omitempty"`
	PaymentProofUploaded  bool       `json:"paymentProofUploaded"`
	TotalCents            int64      `json:"totalCents"`
	CreatedAt             time.Time  `json:"createdAt"`
	PaymentConfirmedAt    *time.Time `json:"paymentConfirmedAt,omitempty"`
	ProcessingStartedAt   *time.Time `json:"processingStartedAt,omitempty"`
	ReadyToShipAt         *time.Time `json:"readyToShipAt,omitempty"`
	ShippedAt             *time.Time `json:"shippedAt,omitempty"`
	DeliveredAt           *time.Time `json:"deliveredAt,omitempty"`
	EstimatedDeliveryDate *time.Time `json:"estimatedDeliveryDate,omitempty"`
}

// IsActive returns true while the order is neither delivered nor cancelled.
func (o Order) IsActive() bool {
	return !o.Status.IsTerminal()
}

// HasDeliveryAddress reports whether a non-blank address is on file.
func (o Order) HasDeliveryAddress() bool {
	return o.DeliveryAddress != nil && strings.TrimSpace(*o.DeliveryAddress) != ""
}

// LatestStageAt returns the most recent stage timestamp that is set.
func (o Order) LatestStageAt() time.Time {
	latest := o.CreatedAt
	for _, ts := range []*time.Time{o.PaymentConfirmedAt, o.ProcessingStartedAt, o.ReadyToShipAt, o.ShippedAt} {
		if ts != nil && ts.After(latest) {
			latest = *ts
		}
	}
	return latest
}

// FilterActive returns the orders that are still in flight.
func FilterActive(orders []Order) []Order {
	active := make([]Order, 0, len(orders))
	for _, o := range orders {
		if o.IsActive() {
			active = append(active, o)
		}
	}
	return active
}
