package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"trade_portal_backend/internal/actions/domain"
	"trade_portal_backend/internal/notification/outbox"
	"trade_portal_backend/internal/operations/opserr"
	"trade_portal_backend/platform/logger"
	"trade_portal_backend/platform/metrics"

	"github.com/google/uuid"
)

const defaultDirectTimeout = 15 * time.Second

// DirectChannel delivers side channels from a goroutine per channel. The
// caller's context is detached so request cancellation does not abort
// delivery. Failures are logged and counted.
type DirectChannel struct {
	deliverer *Deliverer
	log       *logger.Logger
	timeout   time.Duration
	wg        sync.WaitGroup
}

func NewDirectChannel(deliverer *Deliverer, log *logger.Logger) *DirectChannel {
	return &DirectChannel{deliverer: deliverer, log: log, timeout: defaultDirectTimeout}
}

// Dispatch starts delivery and returns immediately.
func (c *DirectChannel) Dispatch(ctx context.Context, n domain.Notification) error {
	detached := context.WithoutCancel(ctx)
	for _, ch := range c.deliverer.Channels() {
		c.wg.Add(1)
		go func(ch outbox.Channel) {
			defer c.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					c.log.Error("side channel panic", "channel", ch, "notificationId", n.ID, "panic", r)
				}
			}()

			sendCtx, cancel := context.WithTimeout(detached, c.timeout)
			defer cancel()

			if err := c.deliverer.Deliver(sendCtx, ch, n); err != nil {
				failed := opserr.SideChannelFailed(string(ch), "direct delivery failed", err)
				c.log.SideChannelFailed(string(ch), n.ID.String(), failed)
				metrics.SideChannelFailuresTotal.WithLabelValues(string(ch)).Inc()
			}
		}(ch)
	}
	return nil
}

// Wait blocks until in-flight deliveries finish.
func (c *DirectChannel) Wait() {
	c.wg.Wait()
}

// OutboxWriter stores pending deliveries.
type OutboxWriter interface {
	Insert(ctx context.Context, p outbox.InsertParams) (uuid.UUID, error)
}

// OutboxChannel records one outbox row per enabled channel. The scheduler
// delivers them with retry.
type OutboxChannel struct {
	writer   OutboxWriter
	channels []outbox.Channel
}

func NewOutboxChannel(writer OutboxWriter, channels []outbox.Channel) *OutboxChannel {
	return &OutboxChannel{writer: writer, channels: channels}
}

// Dispatch inserts the outbox rows. A failed insert is returned as a
// SideChannelFailed error for the caller to log.
func (c *OutboxChannel) Dispatch(ctx context.Context, n domain.Notification) error {
	var errs []error
	for _, ch := range c.channels {
		_, err := c.writer.Insert(ctx, outbox.InsertParams{
			NotificationID: n.ID,
			Channel:        ch,
			Payload:        n,
		})
		if err != nil {
			errs = append(errs, opserr.SideChannelFailed(string(ch), "outbox insert failed", err))
		}
	}
	return errors.Join(errs...)
}
