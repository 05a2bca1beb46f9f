// Package sla classifies in-flight orders against time-based service-level thresholds.
// Classification is a pure function of the order, the threshold table and an explicit now.
package sla

import (
	"time"

	"trade_portal_backend/internal/orders/domain"

	"github.com/google/uuid"
)

// RiskLevel is the SLA state of an order.
type RiskLevel string

const (
	RiskOnTrack  RiskLevel = "on_track"
	RiskAtRisk   RiskLevel = "at_risk"
	RiskBreached RiskLevel = "breached"
)

// Severity orders risk levels: on_track < at_risk < breached.
func (r RiskLevel) Severity() int {
	switch r {
	case RiskAtRisk:
		return 1
	case RiskBreached:
		return 2
	default:
		return 0
	}
}

// Classification is derived on every read and never cached.
type Classification struct {
	OrderID             uuid.UUID `json:"orderId"`
	Status              string    `json:"status"`
	RiskLevel           RiskLevel `json:"riskLevel"`
	DaysInCurrentStage  int       `json:"daysInCurrentStage"`
	ThresholdDays       int       `json:"thresholdDays"`
	BreachThresholdDays int       `json:"breachThresholdDays"`
	StageEnteredAt      time.Time `json:"stageEnteredAt"`
	Degraded            bool      `json:"degraded"`
	DegradedReason      string    `json:"degradedReason,omitempty"`
}

// ClassificationDegraded describes a classification computed from the
// created_at fallback. It is a value, not a failure.
type ClassificationDegraded struct {
	OrderID uuid.UUID
	Status  string
	Reason  string
}

// Degradation returns the degradation record when the classification used a fallback.
func (c Classification) Degradation() (ClassificationDegraded, bool) {
	if !c.Degraded {
		return ClassificationDegraded{}, false
	}
	return ClassificationDegraded{OrderID: c.OrderID, Status: c.Status, Reason: c.DegradedReason}, true
}

// Classifier computes classifications with a fixed threshold table.
type Classifier struct {
	thresholds Thresholds
}

// NewClassifier creates a classifier. A nil table means the defaults.
func NewClassifier(thresholds Thresholds) *Classifier {
	if thresholds == nil {
		thresholds = DefaultThresholds()
	}
	return &Classifier{thresholds: thresholds}
}

// Thresholds returns the table in use.
func (c *Classifier) Thresholds() Thresholds {
	return c.thresholds
}

// Classify computes the SLA state of o at now.
func (c *Classifier) Classify(o domain.Order, now time.Time) Classification {
	entered, degradedReason := stageEnteredAt(o)

	result := Classification{
		OrderID:            o.ID,
		Status:             string(o.Status),
		RiskLevel:          RiskOnTrack,
		DaysInCurrentStage: wholeDays(now.Sub(entered)),
		StageEnteredAt:     entered,
	}
	if degradedReason != "" {
		result.Degraded = true
		result.DegradedReason = degradedReason
	}

	if o.Status.IsTerminal() {
		return result
	}
	th, ok := c.thresholds[o.Status]
	if !ok {
		return result
	}

	result.ThresholdDays = th.AtRiskDays
	result.BreachThresholdDays = th.BreachDays
	switch days := result.DaysInCurrentStage; {
	case days >= th.BreachDays:
		result.RiskLevel = RiskBreached
	case days >= th.AtRiskDays:
		result.RiskLevel = RiskAtRisk
	}
	return result
}

// ClassifyAll classifies every order, preserving input order.
func (c *Classifier) ClassifyAll(orders []domain.Order, now time.Time) []Classification {
	out := make([]Classification, len(orders))
	for i, o := range orders {
		out[i] = c.Classify(o, now)
	}
	return out
}

func wholeDays(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

// stageEnteredAt picks the timestamp that marks entry into the order's
// current status. A missing timestamp falls back to created_at with a reason.
func stageEnteredAt(o domain.Order) (time.Time, string) {
	var expected *time.Time
	var field string

	switch o.Status {
	case domain.StatusOrderConfirmed, domain.StatusPendingPayment:
		return o.CreatedAt, ""
	case domain.StatusPaymentReceived, domain.StatusPaymentConfirmed:
		expected, field = o.PaymentConfirmedAt, "payment_confirmed_at"
	case domain.StatusProcessing:
		expected, field = o.ProcessingStartedAt, "processing_started_at"
	case domain.StatusReadyToShip:
		expected, field = o.ReadyToShipAt, "ready_to_ship_at"
	case domain.StatusShipped, domain.StatusOutForDelivery, domain.StatusFailedDelivery:
		expected, field = o.ShippedAt, "shipped_at"
	case domain.StatusOnHold:
		return o.LatestStageAt(), ""
	case domain.StatusDelivered:
		if o.DeliveredAt != nil {
			return *o.DeliveredAt, ""
		}
		return o.LatestStageAt(), ""
	default:
		return o.CreatedAt, ""
	}

	if expected == nil {
		return o.CreatedAt, field + " is not set, using created_at"
	}
	return *expected, ""
}
