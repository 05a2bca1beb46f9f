package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"trade_portal_backend/internal/actions/domain"
	"trade_portal_backend/internal/events"
	"trade_portal_backend/internal/notification/outbox"
	"trade_portal_backend/platform/clock"
	"trade_portal_backend/platform/logger"
	"trade_portal_backend/platform/metrics"

	"github.com/google/uuid"
)

const (
	invalidOutboxPayloadPrefix = "invalid payload: "
	maxOutboxRetryAttempts     = 5
	outboxRetryBaseDelay       = time.Minute
	outboxRetryMaxDelay        = 60 * time.Minute
)

// OutboxStore is the part of the outbox repository the processor needs.
type OutboxStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (outbox.Record, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	ScheduleRetry(ctx context.Context, id uuid.UUID, runAt time.Time, lastError string) error
}

// ResolutionChecker reports whether a notification was resolved since it was
// queued. Deliveries for resolved notifications are skipped.
type ResolutionChecker interface {
	IsResolved(ctx context.Context, id uuid.UUID) (bool, error)
}

// OutboxProcessor delivers one outbox row per NotificationOutboxDue event.
type OutboxProcessor struct {
	store     OutboxStore
	deliverer *Deliverer
	resolved  ResolutionChecker
	clock     clock.Clock
	log       *logger.Logger
}

func NewOutboxProcessor(store OutboxStore, deliverer *Deliverer, resolved ResolutionChecker, clk clock.Clock, log *logger.Logger) *OutboxProcessor {
	return &OutboxProcessor{store: store, deliverer: deliverer, resolved: resolved, clock: clk, log: log}
}

// Handle implements events.Handler.
func (p *OutboxProcessor) Handle(ctx context.Context, event events.Event) error {
	e, ok := event.(events.NotificationOutboxDue)
	if !ok {
		return nil
	}
	return p.Process(ctx, e.OutboxID)
}

// Process delivers the row. Delivery errors schedule a retry with
// exponential backoff until maxOutboxRetryAttempts, then mark it failed.
// Only store errors are returned.
func (p *OutboxProcessor) Process(ctx context.Context, outboxID uuid.UUID) error {
	rec, process, err := p.prepareOutboxRecord(ctx, outboxID)
	if err != nil || !process {
		if err != nil {
			p.log.Error("failed to prepare outbox record", "outboxId", outboxID, "error", err)
		}
		return err
	}

	var n domain.Notification
	if err := json.Unmarshal(rec.Payload, &n); err != nil {
		_ = p.store.MarkFailed(ctx, rec.ID, invalidOutboxPayloadPrefix+err.Error())
		metrics.OutboxDeliveriesTotal.WithLabelValues(string(rec.Channel), "invalid").Inc()
		return nil
	}

	if p.resolved != nil {
		done, err := p.resolved.IsResolved(ctx, n.ID)
		if err == nil && done {
			p.log.Debug("notification already resolved; skipping delivery", "outboxId", rec.ID, "notificationId", n.ID)
			_ = p.store.MarkSucceeded(ctx, rec.ID)
			metrics.OutboxDeliveriesTotal.WithLabelValues(string(rec.Channel), "skipped").Inc()
			return nil
		}
	}

	if err := p.deliverer.Deliver(ctx, rec.Channel, n); err != nil {
		// The outbox owns retries; the task itself is done.
		p.handleOutboxDeliveryError(ctx, rec, err)
		return nil
	}

	_ = p.store.MarkSucceeded(ctx, rec.ID)
	metrics.OutboxDeliveriesTotal.WithLabelValues(string(rec.Channel), "delivered").Inc()
	p.log.Info("outbox record delivered", "outboxId", rec.ID, "channel", rec.Channel, "notificationId", n.ID)
	return nil
}

func (p *OutboxProcessor) prepareOutboxRecord(ctx context.Context, outboxID uuid.UUID) (outbox.Record, bool, error) {
	rec, err := p.store.GetByID(ctx, outboxID)
	if err != nil {
		return outbox.Record{}, false, err
	}
	if rec.Status == outbox.StatusSucceeded || rec.Status == outbox.StatusFailed {
		p.log.Debug("outbox record already finished; skipping", "outboxId", rec.ID, "status", rec.Status)
		return rec, false, nil
	}
	if !rec.Channel.Valid() {
		_ = p.store.MarkFailed(ctx, rec.ID, fmt.Sprintf("unsupported outbox channel: %s", rec.Channel))
		p.log.Warn("unsupported outbox record", "outboxId", rec.ID, "channel", rec.Channel)
		return rec, false, nil
	}
	if err := p.store.MarkProcessing(ctx, rec.ID); err != nil {
		return outbox.Record{}, false, err
	}
	return rec, true, nil
}

func (p *OutboxProcessor) handleOutboxDeliveryError(ctx context.Context, rec outbox.Record, deliveryErr error) {
	metrics.SideChannelFailuresTotal.WithLabelValues(string(rec.Channel)).Inc()
	attempt := rec.Attempts + 1
	if attempt >= maxOutboxRetryAttempts {
		_ = p.store.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		metrics.OutboxDeliveriesTotal.WithLabelValues(string(rec.Channel), "failed").Inc()
		p.log.Warn("notification outbox exhausted retries",
			"outboxId", rec.ID,
			"channel", rec.Channel,
			"attempt", attempt,
			"maxAttempts", maxOutboxRetryAttempts,
			"error", deliveryErr,
		)
		return
	}

	retryAt := p.clock.Now().Add(computeOutboxRetryDelay(attempt))
	if err := p.store.ScheduleRetry(ctx, rec.ID, retryAt, deliveryErr.Error()); err != nil {
		_ = p.store.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		p.log.Error("notification outbox retry scheduling failed; marked failed",
			"outboxId", rec.ID,
			"attempt", attempt,
			"error", err,
		)
		return
	}

	metrics.OutboxDeliveriesTotal.WithLabelValues(string(rec.Channel), "retry").Inc()
	p.log.Warn("notification outbox scheduled retry",
		"outboxId", rec.ID,
		"channel", rec.Channel,
		"attempt", attempt,
		"maxAttempts", maxOutboxRetryAttempts,
		"retryAt", retryAt,
		"error", deliveryErr,
	)
}

func computeOutboxRetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := outboxRetryBaseDelay << (attempt - 1)
	if delay > outboxRetryMaxDelay {
		return outboxRetryMaxDelay
	}
	return delay
}
