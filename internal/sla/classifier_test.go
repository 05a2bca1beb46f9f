package sla

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"trade_portal_backend/internal/orders/domain"
	"trade_portal_backend/platform/logger"
	"trade_portal_backend/platform/metrics"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var baseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func ptr(t time.Time) *time.Time { return &t }

func TestClassify_ProcessingWithoutStartFallsBackToCreatedAt(t *testing.T) {
	c := NewClassifier(nil)
	o := domain.Order{
		ID:        uuid.New(),
		Status:    domain.StatusProcessing,
		CreatedAt: baseTime,
	}

	got := c.Classify(o, baseTime.Add(4*24*time.Hour))

	if got.RiskLevel != RiskAtRisk {
		t.Fatalf("expected at_risk, got %s", got.RiskLevel)
	}
	if got.DaysInCurrentStage != 4 {
		t.Fatalf("expected 4 days in stage, got %d", got.DaysInCurrentStage)
	}
	if !got.Degraded || got.DegradedReason == "" {
		t.Fatalf("expected degraded classification with a reason, got %+v", got)
	}
	if got.ThresholdDays != 3 || got.BreachThresholdDays != 5 {
		t.Fatalf("expected thresholds 3/5, got %d/%d", got.ThresholdDays, got.BreachThresholdDays)
	}
	if !got.StageEnteredAt.Equal(baseTime) {
		t.Fatalf("expected stage entered at created_at, got %v", got.StageEnteredAt)
	}
}

func TestClassify_Boundaries(t *testing.T) {
	c := NewClassifier(nil)
	start := baseTime
	o := domain.Order{ID: uuid.New(), Status: domain.StatusProcessing, CreatedAt: start.Add(-time.Hour), ProcessingStartedAt: &start}

	cases := []struct {
		elapsed time.Duration
		want    RiskLevel
		days    int
	}{
		{0, RiskOnTrack, 0},
		{3*24*time.Hour - time.Second, RiskOnTrack, 2},
		{3 * 24 * time.Hour, RiskAtRisk, 3},
		{5*24*time.Hour - time.Second, RiskAtRisk, 4},
		{5 * 24 * time.Hour, RiskBreached, 5},
		{30 * 24 * time.Hour, RiskBreached, 30},
	}
	for _, tc := range cases {
		got := c.Classify(o, start.Add(tc.elapsed))
		if got.RiskLevel != tc.want || got.DaysInCurrentStage != tc.days {
			t.Errorf("elapsed %v: expected %s/%d, got %s/%d", tc.elapsed, tc.want, tc.days, got.RiskLevel, got.DaysInCurrentStage)
		}
		if got.Degraded {
			t.Errorf("elapsed %v: classification should not be degraded", tc.elapsed)
		}
	}
}

func TestClassify_RiskNeverDecreasesAsTimePasses(t *testing.T) {
	c := NewClassifier(nil)
	statuses := []domain.Status{
		domain.StatusOrderConfirmed, domain.StatusPendingPayment, domain.StatusPaymentConfirmed,
		domain.StatusProcessing, domain.StatusReadyToShip, domain.StatusShipped,
		domain.StatusOutForDelivery, domain.StatusOnHold, domain.StatusFailedDelivery,
	}
	for _, s := range statuses {
		o := domain.Order{ID: uuid.New(), Status: s, CreatedAt: baseTime}
		prev := -1
		for h := 0; h <= 24*15; h += 5 {
			sev := c.Classify(o, baseTime.Add(time.Duration(h)*time.Hour)).RiskLevel.Severity()
			if sev < prev {
				t.Fatalf("%s: severity dropped from %d to %d at +%dh", s, prev, sev, h)
			}
			prev = sev
		}
	}
}

func TestClassify_TerminalAndUnconfiguredStatusesAreOnTrack(t *testing.T) {
	c := NewClassifier(Thresholds{domain.StatusProcessing: {AtRiskDays: 1, BreachDays: 2}})
	later := baseTime.Add(90 * 24 * time.Hour)

	for _, s := range []domain.Status{domain.StatusDelivered, domain.StatusCancelled, domain.StatusShipped} {
		got := c.Classify(domain.Order{ID: uuid.New(), Status: s, CreatedAt: baseTime}, later)
		if got.RiskLevel != RiskOnTrack {
			t.Errorf("%s: expected on_track, got %s", s, got.RiskLevel)
		}
	}
}

func TestClassify_ClockBeforeStageClampsToZero(t *testing.T) {
	c := NewClassifier(nil)
	o := domain.Order{ID: uuid.New(), Status: domain.StatusPendingPayment, CreatedAt: baseTime}

	got := c.Classify(o, baseTime.Add(-48*time.Hour))
	if got.DaysInCurrentStage != 0 || got.RiskLevel != RiskOnTrack {
		t.Fatalf("expected 0 days on_track, got %d %s", got.DaysInCurrentStage, got.RiskLevel)
	}
}

func TestClassify_OnHoldUsesLatestStage(t *testing.T) {
	c := NewClassifier(nil)
	processing := baseTime.Add(2 * 24 * time.Hour)
	o := domain.Order{
		ID:                  uuid.New(),
		Status:              domain.StatusOnHold,
		CreatedAt:           baseTime,
		PaymentConfirmedAt:  ptr(baseTime.Add(24 * time.Hour)),
		ProcessingStartedAt: &processing,
	}

	got := c.Classify(o, processing.Add(3*24*time.Hour))
	if !got.StageEnteredAt.Equal(processing) {
		t.Fatalf("expected on_hold stage to start at processing_started_at, got %v", got.StageEnteredAt)
	}
	if got.RiskLevel != RiskAtRisk || got.Degraded {
		t.Fatalf("expected non-degraded at_risk, got %+v", got)
	}
}

func TestReportDegraded_LogsAndCounts(t *testing.T) {
	c := NewClassifier(nil)
	var buf bytes.Buffer
	log := logger.NewWithWriter("production", &buf)

	orders := []domain.Order{
		{ID: uuid.New(), Status: domain.StatusReadyToShip, CreatedAt: baseTime},
		{ID: uuid.New(), Status: domain.StatusPendingPayment, CreatedAt: baseTime},
	}
	before := testutil.ToFloat64(metrics.SLAClassificationDegradedTotal.WithLabelValues("ready_to_ship"))

	n := ReportDegraded(log, c.ClassifyAll(orders, baseTime.Add(time.Hour)))

	if n != 1 {
		t.Fatalf("expected 1 degraded classification, got %d", n)
	}
	after := testutil.ToFloat64(metrics.SLAClassificationDegradedTotal.WithLabelValues("ready_to_ship"))
	if after-before != 1 {
		t.Fatalf("expected counter to increase by 1, got %v", after-before)
	}
	if !strings.Contains(buf.String(), "classification_degraded") {
		t.Fatalf("expected warn log, got %q", buf.String())
	}
}

func TestReportDegraded_GaugeTracksCurrentOrders(t *testing.T) {
	c := NewClassifier(nil)
	degraded := domain.Order{ID: uuid.New(), Status: domain.StatusShipped, CreatedAt: baseTime}
	cs := c.ClassifyAll([]domain.Order{degraded}, baseTime.Add(time.Hour))

	for range 3 {
		ReportDegraded(nil, cs)
	}
	if got := testutil.ToFloat64(metrics.SLADegradedOrders.WithLabelValues("shipped")); got != 1 {
		t.Fatalf("repeated refreshes should not inflate the gauge, got %v", got)
	}

	degraded.ShippedAt = ptr(baseTime)
	ReportDegraded(nil, c.ClassifyAll([]domain.Order{degraded}, baseTime.Add(time.Hour)))
	if got := testutil.CollectAndCount(metrics.SLADegradedOrders); got != 0 {
		t.Fatalf("expected no degraded series once the timestamp is set, got %d", got)
	}
}
