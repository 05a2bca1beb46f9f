// Package alerts builds the customer dashboard alert list: pending
// obligations from several entity sources, ranked, capped and dismissible
// for the length of a session.
package alerts

import (
	"strings"
	"time"

	orderdomain "trade_portal_backend/internal/orders/domain"

	"github.com/google/uuid"
)

// MaxAlerts is the number of alerts shown on the dashboard.
const MaxAlerts = 4

// Priority ranks alerts. The priority of an alert is fixed by its type.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Type is the alert source.
type Type string

const (
	TypeAddress Type = "address"
	TypePayment Type = "payment"
	TypeIssue   Type = "issue"
	TypeInvoice Type = "invoice"
	TypeQuote   Type = "quote"
	TypeReorder Type = "reorder"
	TypeProfile Type = "profile"
)

var priorities = map[Type]Priority{
	TypeAddress: PriorityHigh,
	TypePayment: PriorityHigh,
	TypeIssue:   PriorityHigh,
	TypeInvoice: PriorityHigh,
	TypeQuote:   PriorityHigh,
	TypeReorder: PriorityMedium,
	TypeProfile: PriorityMedium,
}

// ProfileIncompleteID is the id of the single profile alert.
const ProfileIncompleteID = "profile-incomplete"

// dynamicPrefixes are the id prefixes of per-entity alerts.
var dynamicPrefixes = []string{"address-", "payment-", "issue-", "invoice-", "quote-", "reorder-"}

// IsKnownID reports whether id has the shape of an alert id.
func IsKnownID(id string) bool {
	if id == ProfileIncompleteID {
		return true
	}
	for _, prefix := range dynamicPrefixes {
		if rest, ok := strings.CutPrefix(id, prefix); ok {
			_, err := uuid.Parse(rest)
			return err == nil
		}
	}
	return false
}

// Alert is one dashboard entry. ID is derived from type and entity and is
// stable across refreshes.
type Alert struct {
	ID            string     `json:"id"`
	Type          Type       `json:"type"`
	Priority      Priority   `json:"priority"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	CTARoute      string     `json:"ctaRoute"`
	CTAAction     string     `json:"ctaAction,omitempty"`
	OrderID       *uuid.UUID `json:"orderId,omitempty"`
	QuoteID       *uuid.UUID `json:"quoteId,omitempty"`
	DaysRemaining *int       `json:"daysRemaining,omitempty"`
}

// Quote is the portal view of a quote.
type Quote struct {
	ID          uuid.UUID
	QuoteNumber string
	Status      string
	ExpiresAt   *time.Time
	CreatedAt   time.Time
}

// IsOpen reports whether the quote still awaits a customer decision.
func (q Quote) IsOpen() bool {
	switch q.Status {
	case "accepted", "rejected", "expired", "cancelled":
		return false
	}
	return true
}

// Issue is the portal view of a support issue.
type Issue struct {
	ID              uuid.UUID
	OrderID         *uuid.UUID
	Subject         string
	Status          string
	CustomerVisible bool
	CreatedAt       time.Time
}

// IsOpen reports whether the issue is unresolved.
func (i Issue) IsOpen() bool {
	return i.Status != "resolved" && i.Status != "closed"
}

// Invoice is the portal view of an invoice.
type Invoice struct {
	ID            uuid.UUID
	OrderID       *uuid.UUID
	InvoiceNumber string
	Status        string
	AmountCents   int64
	DueDate       *time.Time
}

// IsUnpaid reports whether the invoice is unpaid or overdue.
func (i Invoice) IsUnpaid() bool {
	return i.Status == "unpaid" || i.Status == "overdue"
}

// Profile is the customer's company profile. A missing row is a nil *Profile.
type Profile struct {
	CompanyName    string
	Phone          string
	DefaultAddress string
}

// Snapshot is everything the prioritizer reads for one customer, as of one load.
// Orders are newest first.
type Snapshot struct {
	CustomerID uuid.UUID
	Orders     []orderdomain.Order
	Quotes     []Quote
	Issues     []Issue
	Invoices   []Invoice
	Profile    *Profile
}
