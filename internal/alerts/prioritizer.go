package alerts

import (
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	orderdomain "trade_portal_backend/internal/orders/domain"
	"trade_portal_backend/platform/phone"

	"github.com/google/uuid"
)

const (
	quoteExpiryWindow = 48 * time.Hour
	reorderWindow     = 30 * 24 * time.Hour
)

// BuildAlerts returns at most MaxAlerts alerts for snap, highest priority
// first. Alerts of equal priority keep source order. Dismissed ids are
// dropped before truncation.
func BuildAlerts(snap Snapshot, dismissed []string, now time.Time) []Alert {
	return rank(Candidates(snap, now), dismissed)
}

func rank(candidates []Alert, dismissed []string) []Alert {
	skip := make(map[string]struct{}, len(dismissed))
	for _, id := range dismissed {
		skip[id] = struct{}{}
	}

	visible := make([]Alert, 0)
	for _, a := range candidates {
		if _, ok := skip[a.ID]; ok {
			continue
		}
		visible = append(visible, a)
	}

	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].Priority.rank() < visible[j].Priority.rank()
	})
	if len(visible) > MaxAlerts {
		visible = visible[:MaxAlerts]
	}
	return visible
}

// PruneDismissed returns the dismissed ids that still suppress something: the
// id has a known alert shape and its alert is still a candidate. Order is kept.
func PruneDismissed(dismissed []string, candidates []Alert) []string {
	live := make(map[string]struct{}, len(candidates))
	for _, a := range candidates {
		live[a.ID] = struct{}{}
	}

	kept := make([]string, 0, len(dismissed))
	for _, id := range dismissed {
		if !IsKnownID(id) {
			continue
		}
		if _, ok := live[id]; ok && !slices.Contains(kept, id) {
			kept = append(kept, id)
		}
	}
	return kept
}

// Candidates computes every eligible alert in source order, before
// dismissal and truncation.
func Candidates(snap Snapshot, now time.Time) []Alert {
	var out []Alert
	out = append(out, addressAlerts(snap.Orders)...)
	out = append(out, paymentAlerts(snap.Orders)...)
	out = append(out, issueAlerts(snap.Issues)...)
	out = append(out, invoiceAlerts(snap.Invoices)...)
	out = append(out, quoteAlerts(snap.Quotes, now)...)
	if a, ok := reorderAlert(snap.Orders, now); ok {
		out = append(out, a)
	}
	if a, ok := profileAlert(snap.Profile); ok {
		out = append(out, a)
	}
	return out
}

func newAlert(t Type, id, title, description, route, action string) Alert {
	return Alert{
		ID:          id,
		Type:        t,
		Priority:    priorities[t],
		Title:       title,
		Description: description,
		CTARoute:    route,
		CTAAction:   action,
	}
}

func addressAlerts(orders []orderdomain.Order) []Alert {
	var out []Alert
	for _, o := range orders {
		if !o.IsActive() || o.Status.IsShipped() || o.HasDeliveryAddress() {
			continue
		}
		a := newAlert(TypeAddress, "address-"+o.ID.String(),
			"Delivery address missing",
			"Order "+o.OrderNumber+" has no delivery address yet.",
			"/portal/orders/"+o.ID.String()+"/address", "add_address")
		a.OrderID = ptr(o.ID)
		out = append(out, a)
	}
	return out
}

func paymentAlerts(orders []orderdomain.Order) []Alert {
	var out []Alert
	for _, o := range orders {
		if o.Status != orderdomain.StatusPendingPayment || o.PaymentProofUploaded {
			continue
		}
		a := newAlert(TypePayment, "payment-"+o.ID.String(),
			"Payment pending",
			"Upload your proof of payment for order "+o.OrderNumber+" so we can start processing.",
			"/portal/orders/"+o.ID.String()+"/payment", "upload_payment_proof")
		a.OrderID = ptr(o.ID)
		out = append(out, a)
	}
	return out
}

func issueAlerts(issues []Issue) []Alert {
	var out []Alert
	for _, i := range issues {
		if !i.CustomerVisible || !i.IsOpen() {
			continue
		}
		a := newAlert(TypeIssue, "issue-"+i.ID.String(),
			"Open issue: "+i.Subject,
			"We are working on your issue. Check it for updates or questions from our team.",
			"/portal/issues/"+i.ID.String(), "")
		a.OrderID = i.OrderID
		out = append(out, a)
	}
	return out
}

func invoiceAlerts(invoices []Invoice) []Alert {
	var out []Alert
	for _, inv := range invoices {
		if !inv.IsUnpaid() {
			continue
		}
		title := "Invoice " + inv.InvoiceNumber + " is unpaid"
		if inv.Status == "overdue" {
			title = "Invoice " + inv.InvoiceNumber + " is overdue"
		}
		a := newAlert(TypeInvoice, "invoice-"+inv.ID.String(),
			title,
			"Please settle the outstanding amount to avoid delays.",
			"/portal/invoices/"+inv.ID.String(), "pay_invoice")
		a.OrderID = inv.OrderID
		out = append(out, a)
	}
	return out
}

func quoteAlerts(quotes []Quote, now time.Time) []Alert {
	var out []Alert
	for _, q := range quotes {
		if !q.IsOpen() || q.ExpiresAt == nil {
			continue
		}
		left := q.ExpiresAt.Sub(now)
		if left <= 0 || left > quoteExpiryWindow {
			continue
		}
		days := int(math.Ceil(left.Hours() / 24))
		a := newAlert(TypeQuote, "quote-"+q.ID.String(),
			"Quote "+q.QuoteNumber+" expires soon",
			expiryText(days),
			"/portal/quotes/"+q.ID.String(), "review_quote")
		a.QuoteID = ptr(q.ID)
		a.DaysRemaining = &days
		out = append(out, a)
	}
	return out
}

func expiryText(days int) string {
	if days <= 1 {
		return "This quote expires within a day. Accept it to lock in the quoted prices."
	}
	return "This quote expires in 2 days. Accept it to lock in the quoted prices."
}

// reorderAlert suggests reordering when the customer has no active orders and
// the most recent delivery happened within the reorder window.
func reorderAlert(orders []orderdomain.Order, now time.Time) (Alert, bool) {
	var last *orderdomain.Order
	for i := range orders {
		o := &orders[i]
		if o.IsActive() {
			return Alert{}, false
		}
		if o.Status != orderdomain.StatusDelivered || o.DeliveredAt == nil {
			continue
		}
		if last == nil || o.DeliveredAt.After(*last.DeliveredAt) {
			last = o
		}
	}
	if last == nil || now.Sub(*last.DeliveredAt) > reorderWindow {
		return Alert{}, false
	}

	a := newAlert(TypeReorder, "reorder-"+last.ID.String(),
		"Time to reorder?",
		"Order "+last.OrderNumber+" was delivered recently. Reorder the same items in one click.",
		"/portal/orders/"+last.ID.String(), "reorder")
	a.OrderID = ptr(last.ID)
	return a, true
}

func profileAlert(p *Profile) (Alert, bool) {
	var missing []string
	switch {
	case p == nil:
		missing = []string{"company name", "phone number", "default address"}
	default:
		if strings.TrimSpace(p.CompanyName) == "" {
			missing = append(missing, "company name")
		}
		if !phone.IsValid(p.Phone) {
			missing = append(missing, "phone number")
		}
		if strings.TrimSpace(p.DefaultAddress) == "" {
			missing = append(missing, "default address")
		}
	}
	if len(missing) == 0 {
		return Alert{}, false
	}

	return newAlert(TypeProfile, ProfileIncompleteID,
		"Complete your profile",
		"Add your "+strings.Join(missing, ", ")+" to speed up future orders.",
		"/portal/profile", "edit_profile"), true
}

func ptr(id uuid.UUID) *uuid.UUID {
	return &id
}
