package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func sampleVariants() []Variant {
	id := uuid.New()
	return []Variant{
		PaymentRequired{OrderID: id, OrderNumber: "ORD-1", AmountCents: 12345},
		BalanceRequested{OrderID: id, BalanceCents: 500},
		QuoteReady{QuoteID: id, QuoteNumber: "Q-7"},
		QuoteExpiring{QuoteID: id, ExpiresAt: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)},
		IssueOpened{IssueID: id, Subject: "Damaged pallet"},
		IssueReply{IssueID: id, Subject: "Damaged pallet"},
		InvoiceDue{InvoiceID: id, AmountCents: 9900},
		AddressRequired{OrderID: id},
		OrderAtRisk{OrderID: id, Status: "processing", RiskLevel: "breached", DaysInCurrentStage: 6},
		OrderAssigned{OrderID: id},
	}
}

func TestVariants_CoverEveryType(t *testing.T) {
	seen := make(map[Type]bool)
	for _, v := range sampleVariants() {
		seen[v.Type()] = true
	}
	for _, typ := range AllTypes {
		if !seen[typ] {
			t.Errorf("no variant for %s", typ)
		}
	}
}

func TestVariants_DeriveNotificationFields(t *testing.T) {
	for _, v := range sampleVariants() {
		entityType, entityID := v.Entity()
		if !entityType.Valid() || entityID == uuid.Nil {
			t.Errorf("%s: bad entity %s/%s", v.Type(), entityType, entityID)
		}
		if v.Title() == "" || v.Message() == "" || v.EmailTemplate() == "" || v.Push().Category == "" {
			t.Errorf("%s: missing derived text", v.Type())
		}
		prefix := "/portal/"
		if v.Role() == RoleAdmin {
			prefix = "/admin/"
		}
		if !strings.HasPrefix(v.DeepLink(), prefix) {
			t.Errorf("%s: deep link %q should start with %s", v.Type(), v.DeepLink(), prefix)
		}
		if err := v.Validate(); err != nil {
			t.Errorf("%s: unexpected validation error %v", v.Type(), err)
		}
	}
}

func TestDecode_RoundTripsEveryVariant(t *testing.T) {
	for _, v := range sampleVariants() {
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal %s: %v", v.Type(), err)
		}
		got, err := Decode(v.Type(), raw)
		if err != nil {
			t.Fatalf("decode %s: %v", v.Type(), err)
		}
		if got.Type() != v.Type() || got.DeepLink() != v.DeepLink() {
			t.Fatalf("%s: decoded variant differs", v.Type())
		}
	}
}

func TestDecode_Rejects(t *testing.T) {
	if _, err := Decode("teleport", nil); err == nil {
		t.Fatalf("expected unknown type error")
	}
	if _, err := Decode(TypePaymentRequired, json.RawMessage(`{}`)); err == nil {
		t.Fatalf("expected missing entity error")
	}
	if _, err := Decode(TypeBalanceRequested, json.RawMessage(`{"orderId":"`+uuid.NewString()+`","balanceCents":0}`)); err == nil {
		t.Fatalf("expected non-positive balance error")
	}
	if _, err := Decode(TypeQuoteReady, json.RawMessage(`[`)); err == nil {
		t.Fatalf("expected json error")
	}
}

func TestNewNotification(t *testing.T) {
	now := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	user := uuid.New()
	order := uuid.New()

	n, err := NewNotification(ActionEvent{UserID: user, Variant: PaymentRequired{OrderID: order, AmountCents: 100}}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Key() != (Key{UserID: user, EntityType: EntityOrder, EntityID: order, Type: TypePaymentRequired}) {
		t.Fatalf("unexpected key %+v", n.Key())
	}
	if !n.RequiresAction || n.Resolved || n.EmitCount != 1 || !n.LastEmittedAt.Equal(now) {
		t.Fatalf("unexpected initial state %+v", n)
	}
	if !strings.Contains(n.Message, "€1.00") {
		t.Fatalf("expected formatted amount in message, got %q", n.Message)
	}
}
