package scheduler

import (
	"context"
	"time"

	"trade_portal_backend/internal/notification/outbox"
	"trade_portal_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	defaultDispatchInterval = 2 * time.Second
	dispatchBatchSize       = 50
)

// OutboxClaimer is the part of the outbox repository the dispatcher uses.
type OutboxClaimer interface {
	ClaimPending(ctx context.Context, limit int) ([]outbox.Record, error)
	MarkPending(ctx context.Context, id uuid.UUID, lastError *string) error
}

// OutboxEnqueuer hands a claimed row to the task queue.
type OutboxEnqueuer interface {
	EnqueueOutboxDue(ctx context.Context, outboxID uuid.UUID, runAt time.Time) error
}

// NotificationOutboxDispatcher polls the outbox and enqueues due rows.
type NotificationOutboxDispatcher struct {
	repo     OutboxClaimer
	queue    OutboxEnqueuer
	interval time.Duration
	log      *logger.Logger
}

func NewNotificationOutboxDispatcher(repo OutboxClaimer, queue OutboxEnqueuer, interval time.Duration, log *logger.Logger) *NotificationOutboxDispatcher {
	if interval <= 0 {
		interval = defaultDispatchInterval
	}
	if log == nil {
		log = logger.Discard()
	}
	return &NotificationOutboxDispatcher{repo: repo, queue: queue, interval: interval, log: log}
}

func (d *NotificationOutboxDispatcher) Run(ctx context.Context) {
	if d == nil || d.repo == nil || d.queue == nil {
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if _, err := d.DispatchOnce(ctx); err != nil {
			d.log.Warn("outbox claim failed", "error", err)
		}
	}
}

// DispatchOnce claims one batch and enqueues it. Rows that cannot be
// enqueued are returned to pending with the error recorded.
func (d *NotificationOutboxDispatcher) DispatchOnce(ctx context.Context) (int, error) {
	records, err := d.repo.ClaimPending(ctx, dispatchBatchSize)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, rec := range records {
		if err := d.queue.EnqueueOutboxDue(ctx, rec.ID, rec.RunAt); err != nil {
			msg := err.Error()
			if markErr := d.repo.MarkPending(ctx, rec.ID, &msg); markErr != nil {
				d.log.Warn("outbox mark pending failed", "outboxId", rec.ID, "error", markErr)
			}
			continue
		}
		enqueued++
	}
	return enqueued, nil
}
