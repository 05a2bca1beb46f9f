package alerts

import (
	"testing"
	"time"

	orderdomain "trade_portal_backend/internal/orders/domain"

	"github.com/google/uuid"
)

var now = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string        { return &s }
func timePtr(t time.Time) *time.Time { return &t }
func completeProfile() *Profile      { return &Profile{CompanyName: "Acme BV", Phone: "+31612345678", DefaultAddress: "Main 1"} }

// sixSources has one eligible alert per source except reorder: five high
// priority alerts and the medium profile alert.
func sixSources() Snapshot {
	return Snapshot{
		CustomerID: uuid.New(),
		Orders: []orderdomain.Order{
			{ID: uuid.New(), OrderNumber: "ORD-1", Status: orderdomain.StatusProcessing, CreatedAt: now.AddDate(0, 0, -3)},
			{ID: uuid.New(), OrderNumber: "ORD-2", Status: orderdomain.StatusPendingPayment, DeliveryAddress: strPtr("Dock 4"), CreatedAt: now.AddDate(0, 0, -1)},
		},
		Issues:   []Issue{{ID: uuid.New(), Subject: "Damaged pallet", Status: "open", CustomerVisible: true}},
		Invoices: []Invoice{{ID: uuid.New(), InvoiceNumber: "INV-9", Status: "overdue", AmountCents: 1200}},
		Quotes:   []Quote{{ID: uuid.New(), QuoteNumber: "Q-7", Status: "sent", ExpiresAt: timePtr(now.Add(30 * time.Hour))}},
		Profile:  nil,
	}
}

func ids(alerts []Alert) []string {
	out := make([]string, len(alerts))
	for i, a := range alerts {
		out[i] = a.ID
	}
	return out
}

func TestBuildAlerts_CapsAtFourHighestPriority(t *testing.T) {
	snap := sixSources()
	if n := len(Candidates(snap, now)); n != 6 {
		t.Fatalf("expected 6 candidates, got %d", n)
	}

	got := BuildAlerts(snap, nil, now)
	if len(got) != MaxAlerts {
		t.Fatalf("expected %d alerts, got %d", MaxAlerts, len(got))
	}
	wantTypes := []Type{TypeAddress, TypePayment, TypeIssue, TypeInvoice}
	for i, a := range got {
		if a.Type != wantTypes[i] || a.Priority != PriorityHigh {
			t.Fatalf("alert %d: expected high %s, got %s %s", i, wantTypes[i], a.Priority, a.Type)
		}
	}
}

func TestBuildAlerts_MediumSortsAfterHigh(t *testing.T) {
	snap := Snapshot{
		Orders: []orderdomain.Order{
			{ID: uuid.New(), OrderNumber: "ORD-1", Status: orderdomain.StatusDelivered, DeliveredAt: timePtr(now.AddDate(0, 0, -5))},
		},
		Invoices: []Invoice{{ID: uuid.New(), InvoiceNumber: "INV-1", Status: "unpaid"}},
		Profile:  &Profile{CompanyName: "Acme BV"},
	}
	got := BuildAlerts(snap, nil, now)
	if len(got) != 3 || got[0].Type != TypeInvoice || got[1].Type != TypeReorder || got[2].Type != TypeProfile {
		t.Fatalf("unexpected order %v", ids(got))
	}
}

func TestBuildAlerts_DismissedFilteredBeforeTruncation(t *testing.T) {
	snap := sixSources()
	first := BuildAlerts(snap, nil, now)

	got := BuildAlerts(snap, []string{first[0].ID}, now)
	if len(got) != MaxAlerts {
		t.Fatalf("expected the next alert to fill the slot, got %d", len(got))
	}
	for _, a := range got {
		if a.ID == first[0].ID {
			t.Fatalf("dismissed alert %s still shown", a.ID)
		}
	}
	if got[3].Type != TypeQuote {
		t.Fatalf("expected quote alert to move up, got %s", got[3].Type)
	}
}

func TestBuildAlerts_DismissalPersistsWhileConditionHolds(t *testing.T) {
	order := uuid.New()
	snap := Snapshot{
		Orders:  []orderdomain.Order{{ID: order, OrderNumber: "ORD-123", Status: orderdomain.StatusPendingPayment, DeliveryAddress: strPtr("Dock 4")}},
		Profile: completeProfile(),
	}
	paymentID := "payment-" + order.String()

	dismissed := []string{paymentID}
	for range 3 {
		dismissed = PruneDismissed(dismissed, Candidates(snap, now))
		if got := BuildAlerts(snap, dismissed, now); len(got) != 0 {
			t.Fatalf("dismissed payment alert came back: %v", ids(got))
		}
	}
	if len(dismissed) != 1 || dismissed[0] != paymentID {
		t.Fatalf("dismissal should survive refreshes, got %v", dismissed)
	}
}

func TestPruneDismissed(t *testing.T) {
	order := uuid.New()
	candidates := []Alert{
		{ID: "payment-" + order.String()},
		{ID: ProfileIncompleteID},
	}
	dismissed := []string{
		"payment-" + order.String(),
		"address-" + uuid.NewString(),
		"bogus",
		"payment-123",
		ProfileIncompleteID,
		"payment-" + order.String(),
	}

	got := PruneDismissed(dismissed, candidates)
	if len(got) != 2 || got[0] != "payment-"+order.String() || got[1] != ProfileIncompleteID {
		t.Fatalf("unexpected pruned set %v", got)
	}
}

func TestIsKnownID(t *testing.T) {
	cases := map[string]bool{
		"quote-" + uuid.NewString():   true,
		"reorder-" + uuid.NewString(): true,
		ProfileIncompleteID:           true,
		"quote-abc":                   false,
		"lead-" + uuid.NewString():    false,
		"":                            false,
	}
	for id, want := range cases {
		if got := IsKnownID(id); got != want {
			t.Errorf("IsKnownID(%q) = %v, want %v", id, got, want)
		}
	}
}

func TestQuoteAlerts_DaysRemaining(t *testing.T) {
	quotes := []Quote{
		{ID: uuid.New(), Status: "sent", ExpiresAt: timePtr(now.Add(5 * time.Hour))},
		{ID: uuid.New(), Status: "sent", ExpiresAt: timePtr(now.Add(30 * time.Hour))},
		{ID: uuid.New(), Status: "sent", ExpiresAt: timePtr(now.Add(72 * time.Hour))},
		{ID: uuid.New(), Status: "sent", ExpiresAt: timePtr(now.Add(-time.Hour))},
		{ID: uuid.New(), Status: "accepted", ExpiresAt: timePtr(now.Add(time.Hour))},
		{ID: uuid.New(), Status: "sent"},
	}
	got := quoteAlerts(quotes, now)
	if len(got) != 2 {
		t.Fatalf("expected 2 expiring quotes, got %d", len(got))
	}
	if *got[0].DaysRemaining != 1 || *got[1].DaysRemaining != 2 {
		t.Fatalf("unexpected days remaining %d, %d", *got[0].DaysRemaining, *got[1].DaysRemaining)
	}
	if got[0].QuoteID == nil || *got[0].QuoteID != quotes[0].ID {
		t.Fatalf("quote alert must carry the quote id")
	}
}

func TestReorderAlert(t *testing.T) {
	recent := orderdomain.Order{ID: uuid.New(), OrderNumber: "ORD-5", Status: orderdomain.StatusDelivered, DeliveredAt: timePtr(now.AddDate(0, 0, -10))}
	older := orderdomain.Order{ID: uuid.New(), OrderNumber: "ORD-4", Status: orderdomain.StatusDelivered, DeliveredAt: timePtr(now.AddDate(0, 0, -20))}
	stale := orderdomain.Order{ID: uuid.New(), Status: orderdomain.StatusDelivered, DeliveredAt: timePtr(now.AddDate(0, 0, -40))}
	active := orderdomain.Order{ID: uuid.New(), Status: orderdomain.StatusShipped}

	a, ok := reorderAlert([]orderdomain.Order{older, recent}, now)
	if !ok || a.ID != "reorder-"+recent.ID.String() {
		t.Fatalf("expected reorder for the most recent delivery, got %v %q", ok, a.ID)
	}
	if _, ok := reorderAlert([]orderdomain.Order{stale}, now); ok {
		t.Fatalf("deliveries older than 30 days do not suggest a reorder")
	}
	if _, ok := reorderAlert([]orderdomain.Order{recent, active}, now); ok {
		t.Fatalf("customers with active orders get no reorder alert")
	}
}

func TestProfileAlert(t *testing.T) {
	if _, ok := profileAlert(completeProfile()); ok {
		t.Fatalf("complete profile should not alert")
	}
	a, ok := profileAlert(&Profile{CompanyName: "Acme BV", Phone: "abc", DefaultAddress: "Main 1"})
	if !ok || a.ID != ProfileIncompleteID || a.Priority != PriorityMedium {
		t.Fatalf("invalid phone should alert, got %v %+v", ok, a)
	}
	if a.Description != "Add your phone number to speed up future orders." {
		t.Fatalf("unexpected description %q", a.Description)
	}
	if _, ok := profileAlert(nil); !ok {
		t.Fatalf("missing profile should alert")
	}
}

func TestAddressAlerts_BlankAddressCountsAsMissing(t *testing.T) {
	order := uuid.New()
	got := addressAlerts([]orderdomain.Order{{ID: order, Status: orderdomain.StatusProcessing, DeliveryAddress: strPtr("   ")}})
	if len(got) != 1 || got[0].ID != "address-"+order.String() {
		t.Fatalf("expected address alert for blank address, got %v", ids(got))
	}
}

func TestAddressAndPaymentAlerts_SkipIneligibleOrders(t *testing.T) {
	orders := []orderdomain.Order{
		{ID: uuid.New(), Status: orderdomain.StatusShipped},
		{ID: uuid.New(), Status: orderdomain.StatusCancelled},
		{ID: uuid.New(), Status: orderdomain.StatusPendingPayment, PaymentProofUploaded: true, DeliveryAddress: strPtr("x")},
	}
	if got := addressAlerts(orders); len(got) != 0 {
		t.Fatalf("unexpected address alerts %v", ids(got))
	}
	if got := paymentAlerts(orders); len(got) != 0 {
		t.Fatalf("unexpected payment alerts %v", ids(got))
	}
}
