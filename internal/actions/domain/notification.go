// Package domain defines action notifications and the closed set of action types.
package domain

import (
	"encoding/json"
	"time"

	"trade_portal_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Type is the action type. The set is closed; see Variant.
type Type string

const (
	TypePaymentRequired  Type = "payment_required"
	TypeBalanceRequested Type = "balance_requested"
	TypeQuoteReady       Type = "quote_ready"
	TypeQuoteExpiring    Type = "quote_expiring"
	TypeIssueOpened      Type = "issue_opened"
	TypeIssueReply       Type = "issue_reply"
	TypeInvoiceDue       Type = "invoice_due"
	TypeAddressRequired  Type = "address_required"
	TypeOrderAtRisk      Type = "order_at_risk"
	TypeOrderAssigned    Type = "order_assigned"
)

// AllTypes lists every action type.
var AllTypes = []Type{
	TypePaymentRequired, TypeBalanceRequested, TypeQuoteReady, TypeQuoteExpiring,
	TypeIssueOpened, TypeIssueReply, TypeInvoiceDue, TypeAddressRequired,
	TypeOrderAtRisk, TypeOrderAssigned,
}

// Valid reports whether t is a known action type.
func (t Type) Valid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

// EntityType is the kind of record an action is about.
type EntityType string

const (
	EntityOrder   EntityType = "order"
	EntityQuote   EntityType = "quote"
	EntityIssue   EntityType = "issue"
	EntityInvoice EntityType = "invoice"
)

// Valid reports whether e is a known entity type.
func (e EntityType) Valid() bool {
	switch e {
	case EntityOrder, EntityQuote, EntityIssue, EntityInvoice:
		return true
	}
	return false
}

// Role is the audience of a notification.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Notification is the persisted action record. For a given
// (UserID, EntityType, EntityID, Type) at most one unresolved row exists.
// Resolution is terminal.
type Notification struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"userId"`
	Role           Role            `json:"role"`
	Type           Type            `json:"type"`
	EntityType     EntityType      `json:"entityType"`
	EntityID       uuid.UUID       `json:"entityId"`
	Title          string          `json:"title"`
	Message        string          `json:"message"`
	DeepLink       string          `json:"deepLink"`
	Payload        json.RawMessage `json:"payload"`
	RequiresAction bool            `json:"requiresAction"`
	Resolved       bool            `json:"resolved"`
	ResolvedAt     *time.Time      `json:"resolvedAt,omitempty"`
	EmitCount      int             `json:"emitCount"`
	CreatedAt      time.Time       `json:"createdAt"`
	LastEmittedAt  time.Time       `json:"lastEmittedAt"`
}

// Key identifies the deduplication tuple.
type Key struct {
	UserID     uuid.UUID
	EntityType EntityType
	EntityID   uuid.UUID
	Type       Type
}

// Key returns the deduplication tuple of n.
func (n Notification) Key() Key {
	return Key{UserID: n.UserID, EntityType: n.EntityType, EntityID: n.EntityID, Type: n.Type}
}

// ActionEvent is a request to notify one user about one action.
type ActionEvent struct {
	UserID  uuid.UUID
	Variant Variant
}

// NewNotification builds the unresolved notification for ev at now.
func NewNotification(ev ActionEvent, now time.Time) (Notification, error) {
	payload, err := json.Marshal(ev.Variant)
	if err != nil {
		return Notification{}, err
	}
	entityType, entityID := ev.Variant.Entity()
	return Notification{
		ID:             uuid.New(),
		UserID:         ev.UserID,
		Role:           ev.Variant.Role(),
		Type:           ev.Variant.Type(),
		EntityType:     entityType,
		EntityID:       entityID,
		Title:          sanitize.Text(ev.Variant.Title()),
		Message:        sanitize.Text(ev.Variant.Message()),
		DeepLink:       ev.Variant.DeepLink(),
		Payload:        payload,
		RequiresAction: true,
		EmitCount:      1,
		CreatedAt:      now,
		LastEmittedAt:  now,
	}, nil
}
