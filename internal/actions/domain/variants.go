package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PushMeta is the push-gateway metadata of a variant.
type PushMeta struct {
	Category string `json:"category"`
	Urgent   bool   `json:"urgent"`
}

// Variant is one member of the closed action-type union. Each variant
// carries its own field set and derives everything the notification needs.
type Variant interface {
	Type() Type
	Role() Role
	Entity() (EntityType, uuid.UUID)
	Title() string
	Message() string
	DeepLink() string
	EmailTemplate() string
	Push() PushMeta
	Validate() error

	sealed()
}

var errMissingEntity = errors.New("entity id is required")

func requireID(id uuid.UUID) error {
	if id == uuid.Nil {
		return errMissingEntity
	}
	return nil
}

func label(number string, id uuid.UUID) string {
	if number != "" {
		return number
	}
	return id.String()[:8]
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s€%d.%02d", sign, cents/100, cents%100)
}

// ── Customer actions ──────────────────────────────────────────────────────────

// PaymentRequired asks the customer to pay for an order.
type PaymentRequired struct {
	OrderID     uuid.UUID `json:"orderId"`
	OrderNumber string    `json:"orderNumber,omitempty"`
	AmountCents int64     `json:"amountCents"`
}

func (PaymentRequired) Type() Type { return TypePaymentRequired }
func (PaymentRequired) Role() Role { return RoleCustomer }
func (v PaymentRequired) Entity() (EntityType, uuid.UUID) {
	return EntityOrder, v.OrderID
}
func (v PaymentRequired) Title() string {
	return "Payment required for order " + label(v.OrderNumber, v.OrderID)
}
func (v PaymentRequired) Message() string {
	return fmt.Sprintf("Please pay %s or upload your proof of payment so we can start processing.", formatCents(v.AmountCents))
}
func (v PaymentRequired) DeepLink() string    { return "/portal/orders/" + v.OrderID.String() + "/payment" }
func (PaymentRequired) EmailTemplate() string { return "action_payment_required" }
func (PaymentRequired) Push() PushMeta        { return PushMeta{Category: "payment", Urgent: true} }
func (v PaymentRequired) Validate() error     { return requireID(v.OrderID) }
func (PaymentRequired) sealed()               {}

// BalanceRequested asks the customer to settle an outstanding balance.
type BalanceRequested struct {
	OrderID      uuid.UUID `json:"orderId"`
	OrderNumber  string    `json:"orderNumber,omitempty"`
	BalanceCents int64     `json:"balanceCents"`
}

func (BalanceRequested) Type() Type { return TypeBalanceRequested }
func (BalanceRequested) Role() Role { return RoleCustomer }
func (v BalanceRequested) Entity() (EntityType, uuid.UUID) {
	return EntityOrder, v.OrderID
}
func (v BalanceRequested) Title() string {
	return "Balance due on order " + label(v.OrderNumber, v.OrderID)
}
func (v BalanceRequested) Message() string {
	return fmt.Sprintf("An outstanding balance of %s is due before we can ship.", formatCents(v.BalanceCents))
}
func (v BalanceRequested) DeepLink() string    { return "/portal/orders/" + v.OrderID.String() + "/payment" }
func (BalanceRequested) EmailTemplate() string { return "action_balance_requested" }
func (BalanceRequested) Push() PushMeta        { return PushMeta{Category: "payment", Urgent: true} }
func (v BalanceRequested) Validate() error {
	if err := requireID(v.OrderID); err != nil {
		return err
	}
	if v.BalanceCents <= 0 {
		return errors.New("balance must be positive")
	}
	return nil
}
func (BalanceRequested) sealed() {}

// QuoteReady tells the customer a quote is waiting for review.
type QuoteReady struct {
	QuoteID     uuid.UUID `json:"quoteId"`
	QuoteNumber string    `json:"quoteNumber,omitempty"`
}

func (QuoteReady) Type() Type { return TypeQuoteReady }
func (QuoteReady) Role() Role { return RoleCustomer }
func (v QuoteReady) Entity() (EntityType, uuid.UUID) {
	return EntityQuote, v.QuoteID
}
func (v QuoteReady) Title() string {
	return "Quote " + label(v.QuoteNumber, v.QuoteID) + " is ready"
}
func (QuoteReady) Message() string       { return "Your quote is ready. Review and accept it to place the order." }
func (v QuoteReady) DeepLink() string    { return "/portal/quotes/" + v.QuoteID.String() }
func (QuoteReady) EmailTemplate() string { return "action_quote_ready" }
func (QuoteReady) Push() PushMeta        { return PushMeta{Category: "quote"} }
func (v QuoteReady) Validate() error     { return requireID(v.QuoteID) }
func (QuoteReady) sealed()               {}

// QuoteExpiring warns the customer that an open quote is about to lapse.
type QuoteExpiring struct {
	QuoteID     uuid.UUID `json:"quoteId"`
	QuoteNumber string    `json:"quoteNumber,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func (QuoteExpiring) Type() Type { return TypeQuoteExpiring }
func (QuoteExpiring) Role() Role { return RoleCustomer }
func (v QuoteExpiring) Entity() (EntityType, uuid.UUID) {
	return EntityQuote, v.QuoteID
}
func (v QuoteExpiring) Title() string {
	return "Quote " + label(v.QuoteNumber, v.QuoteID) + " expires soon"
}
func (v QuoteExpiring) Message() string {
	return "This quote expires on " + v.ExpiresAt.Format("2 January 2006") + ". Accept it before then to keep the quoted prices."
}
func (v QuoteExpiring) DeepLink() string    { return "/portal/quotes/" + v.QuoteID.String() }
func (QuoteExpiring) EmailTemplate() string { return "action_quote_expiring" }
func (QuoteExpiring) Push() PushMeta        { return PushMeta{Category: "quote", Urgent: true} }
func (v QuoteExpiring) Validate() error {
	if err := requireID(v.QuoteID); err != nil {
		return err
	}
	if v.ExpiresAt.IsZero() {
		return errors.New("expiresAt is required")
	}
	return nil
}
func (QuoteExpiring) sealed() {}

// IssueReply tells the customer support answered their issue.
type IssueReply struct {
	IssueID uuid.UUID `json:"issueId"`
	Subject string    `json:"subject"`
}

func (IssueReply) Type() Type { return TypeIssueReply }
func (IssueReply) Role() Role { return RoleCustomer }
func (v IssueReply) Entity() (EntityType, uuid.UUID) {
	return EntityIssue, v.IssueID
}
func (v IssueReply) Title() string       { return "New reply on: " + v.Subject }
func (IssueReply) Message() string       { return "Our team replied to your issue. Please take a look and respond." }
func (v IssueReply) DeepLink() string    { return "/portal/issues/" + v.IssueID.String() }
func (IssueReply) EmailTemplate() string { return "action_issue_reply" }
func (IssueReply) Push() PushMeta        { return PushMeta{Category: "issue"} }
func (v IssueReply) Validate() error     { return requireID(v.IssueID) }
func (IssueReply) sealed()               {}

// InvoiceDue reminds the customer of an unpaid invoice.
type InvoiceDue struct {
	InvoiceID     uuid.UUID `json:"invoiceId"`
	InvoiceNumber string    `json:"invoiceNumber,omitempty"`
	AmountCents   int64     `json:"amountCents"`
	DueDate       time.Time `json:"dueDate"`
}

func (InvoiceDue) Type() Type { return TypeInvoiceDue }
func (InvoiceDue) Role() Role { return RoleCustomer }
func (v InvoiceDue) Entity() (EntityType, uuid.UUID) {
	return EntityInvoice, v.InvoiceID
}
func (v InvoiceDue) Title() string {
	return "Invoice " + label(v.InvoiceNumber, v.InvoiceID) + " is due"
}
func (v InvoiceDue) Message() string {
	msg := formatCents(v.AmountCents) + " is due"
	if !v.DueDate.IsZero() {
		msg += " on " + v.DueDate.Format("2 January 2006")
	}
	return msg + "."
}
func (v InvoiceDue) DeepLink() string    { return "/portal/invoices/" + v.InvoiceID.String() }
func (InvoiceDue) EmailTemplate() string { return "action_invoice_due" }
func (InvoiceDue) Push() PushMeta        { return PushMeta{Category: "invoice", Urgent: true} }
func (v InvoiceDue) Validate() error     { return requireID(v.InvoiceID) }
func (InvoiceDue) sealed()               {}

// AddressRequired asks the customer for a delivery address.
type AddressRequired struct {
	OrderID     uuid.UUID `json:"orderId"`
	OrderNumber string    `json:"orderNumber,omitempty"`
}

func (AddressRequired) Type() Type { return TypeAddressRequired }
func (AddressRequired) Role() Role { return RoleCustomer }
func (v AddressRequired) Entity() (EntityType, uuid.UUID) {
	return EntityOrder, v.OrderID
}
func (v AddressRequired) Title() string {
	return "Delivery address needed for order " + label(v.OrderNumber, v.OrderID)
}
func (AddressRequired) Message() string       { return "Add a delivery address so we can schedule shipment." }
func (v AddressRequired) DeepLink() string    { return "/portal/orders/" + v.OrderID.String() + "/address" }
func (AddressRequired) EmailTemplate() string { return "action_address_required" }
func (AddressRequired) Push() PushMeta        { return PushMeta{Category: "order", Urgent: true} }
func (v AddressRequired) Validate() error     { return requireID(v.OrderID) }
func (AddressRequired) sealed()               {}

// ── Admin actions ─────────────────────────────────────────────────────────────

// IssueOpened tells operators a customer opened an issue.
type IssueOpened struct {
	IssueID    uuid.UUID  `json:"issueId"`
	Subject    string     `json:"subject"`
	CustomerID uuid.UUID  `json:"customerId"`
	OrderID    *uuid.UUID `json:"orderId,omitempty"`
}

func (IssueOpened) Type() Type { return TypeIssueOpened }
func (IssueOpened) Role() Role { return RoleAdmin }
func (v IssueOpened) Entity() (EntityType, uuid.UUID) {
	return EntityIssue, v.IssueID
}
func (v IssueOpened) Title() string       { return "New issue: " + v.Subject }
func (IssueOpened) Message() string       { return "A customer opened an issue that needs a response." }
func (v IssueOpened) DeepLink() string    { return "/admin/issues/" + v.IssueID.String() }
func (IssueOpened) EmailTemplate() string { return "action_issue_opened" }
func (IssueOpened) Push() PushMeta        { return PushMeta{Category: "issue"} }
func (v IssueOpened) Validate() error     { return requireID(v.IssueID) }
func (IssueOpened) sealed()               {}

// OrderAtRisk tells operators an order has crossed its SLA threshold.
type OrderAtRisk struct {
	OrderID            uuid.UUID `json:"orderId"`
	OrderNumber        string    `json:"orderNumber,omitempty"`
	Status             string    `json:"status"`
	RiskLevel          string    `json:"riskLevel"`
	DaysInCurrentStage int       `json:"daysInCurrentStage"`
}

func (OrderAtRisk) Type() Type { return TypeOrderAtRisk }
func (OrderAtRisk) Role() Role { return RoleAdmin }
func (v OrderAtRisk) Entity() (EntityType, uuid.UUID) {
	return EntityOrder, v.OrderID
}
func (v OrderAtRisk) Title() string {
	return "Order " + label(v.OrderNumber, v.OrderID) + " is " + humanRisk(v.RiskLevel)
}
func (v OrderAtRisk) Message() string {
	return fmt.Sprintf("The order has been %s for %d days.", v.Status, v.DaysInCurrentStage)
}
func (v OrderAtRisk) DeepLink() string    { return "/admin/orders/" + v.OrderID.String() }
func (OrderAtRisk) EmailTemplate() string { return "action_order_at_risk" }
func (v OrderAtRisk) Push() PushMeta {
	return PushMeta{Category: "sla", Urgent: v.RiskLevel == "breached"}
}
func (v OrderAtRisk) Validate() error { return requireID(v.OrderID) }
func (OrderAtRisk) sealed()           {}

func humanRisk(level string) string {
	if level == "breached" {
		return "past its SLA"
	}
	return "at risk"
}

// OrderAssigned tells an operator an order was assigned to them.
type OrderAssigned struct {
	OrderID     uuid.UUID `json:"orderId"`
	OrderNumber string    `json:"orderNumber,omitempty"`
	AssignedBy  uuid.UUID `json:"assignedBy"`
}

func (OrderAssigned) Type() Type { return TypeOrderAssigned }
func (OrderAssigned) Role() Role { return RoleAdmin }
func (v OrderAssigned) Entity() (EntityType, uuid.UUID) {
	return EntityOrder, v.OrderID
}
func (v OrderAssigned) Title() string {
	return "Order " + label(v.OrderNumber, v.OrderID) + " was assigned to you"
}
func (OrderAssigned) Message() string       { return "Pick up the order from your queue." }
func (v OrderAssigned) DeepLink() string    { return "/admin/orders/" + v.OrderID.String() }
func (OrderAssigned) EmailTemplate() string { return "action_order_assigned" }
func (OrderAssigned) Push() PushMeta        { return PushMeta{Category: "assignment"} }
func (v OrderAssigned) Validate() error     { return requireID(v.OrderID) }
func (OrderAssigned) sealed()               {}

// Decode builds the variant of type t from its JSON field set.
func Decode(t Type, payload json.RawMessage) (Variant, error) {
	var v Variant
	switch t {
	case TypePaymentRequired:
		v = &PaymentRequired{}
	case TypeBalanceRequested:
		v = &BalanceRequested{}
	case TypeQuoteReady:
		v = &QuoteReady{}
	case TypeQuoteExpiring:
		v = &QuoteExpiring{}
	case TypeIssueOpened:
		v = &IssueOpened{}
	case TypeIssueReply:
		v = &IssueReply{}
	case TypeInvoiceDue:
		v = &InvoiceDue{}
	case TypeAddressRequired:
		v = &AddressRequired{}
	case TypeOrderAtRisk:
		v = &OrderAtRisk{}
	case TypeOrderAssigned:
		v = &OrderAssigned{}
	default:
		return nil, fmt.Errorf("unknown action type %q", t)
	}
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}
	v = deref(v)
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", t, err)
	}
	return v, nil
}

func deref(v Variant) Variant {
	switch p := v.(type) {
	case *PaymentRequired:
		return *p
	case *BalanceRequested:
		return *p
	case *QuoteReady:
		return *p
	case *QuoteExpiring:
		return *p
	case *IssueOpened:
		return *p
	case *IssueReply:
		return *p
	case *InvoiceDue:
		return *p
	case *AddressRequired:
		return *p
	case *OrderAtRisk:
		return *p
	case *OrderAssigned:
		return *p
	}
	return v
}
