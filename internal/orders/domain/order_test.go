package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestFilterActive_DropsTerminalOrders(t *testing.T) {
	orders := []Order{
		{ID: uuid.New(), Status: StatusProcessing},
		{ID: uuid.New(), Status: StatusDelivered},
		{ID: uuid.New(), Status: StatusCancelled},
		{ID: uuid.New(), Status: StatusOnHold},
	}

	active := FilterActive(orders)
	if len(active) != 2 {
		t.Fatalf("expected 2 active orders, got %d", len(active))
	}
	for _, o := range active {
		if o.Status.IsTerminal() {
			t.Fatalf("terminal order %s leaked into active set", o.Status)
		}
	}
}

func TestLatestStageAt_PicksMostRecentTimestamp(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	paid := created.Add(24 * time.Hour)
	processing := created.Add(48 * time.Hour)
	o := Order{CreatedAt: created, PaymentConfirmedAt: &paid, ProcessingStartedAt: &processing}

	if got := o.LatestStageAt(); !got.Equal(processing) {
		t.Fatalf("expected %v, got %v", processing, got)
	}
}

func TestStatusValid(t *testing.T) {
	if !StatusFailedDelivery.Valid() {
		t.Fatalf("failed_delivery should be valid")
	}
	if Status("lost_in_space").Valid() {
		t.Fatalf("unknown status should be invalid")
	}
}

func TestHasDeliveryAddress_IgnoresBlank(t *testing.T) {
	blank, street := " \t ", "Dock 4"
	cases := map[string]struct {
		address *string
		want    bool
	}{
		"nil":        {nil, false},
		"whitespace": {&blank, false},
		"street":     {&street, true},
	}
	for name, tc := range cases {
		if got := (Order{DeliveryAddress: tc.address}).HasDeliveryAddress(); got != tc.want {
			t.Errorf("%s: HasDeliveryAddress() = %v, want %v", name, got, tc.want)
		}
	}
}
