// Package notification delivers action notifications over side channels
// (push and email) and streams in-app events over SSE.
// Delivery is either direct (best-effort goroutines) or through the
// transactional outbox processed by the scheduler.
package notification

import (
	"context"

	"trade_portal_backend/internal/actions/domain"
	"trade_portal_backend/internal/email"
	"trade_portal_backend/internal/events"
	apphttp "trade_portal_backend/internal/http"
	"trade_portal_backend/internal/notification/outbox"
	"trade_portal_backend/internal/notification/push"
	"trade_portal_backend/internal/notification/sse"
	"trade_portal_backend/platform/clock"
	"trade_portal_backend/platform/config"
	"trade_portal_backend/platform/httpkit"
	"trade_portal_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SideChannel hands a newly created notification to push and email.
type SideChannel interface {
	Dispatch(ctx context.Context, n domain.Notification) error
}

// Module wires side-channel delivery and the in-app SSE stream.
type Module struct {
	deliverer *Deliverer
	direct    *DirectChannel
	outbox    *outbox.Repository
	sse       *sse.Service
	clock     clock.Clock
	log       *logger.Logger
}

// New creates the notification module. The email sender may be a NoopSender
// when email is disabled. The push client is built from cfg.
func New(sender email.Sender, cfg config.PushConfig, contacts ContactLookup, baseURL string, log *logger.Logger) *Module {
	var pushSender push.Sender
	if client := push.NewClient(cfg, log); client != nil {
		pushSender = client
	}

	var emailSender email.Sender
	if _, noop := sender.(email.NoopSender); sender != nil && !noop {
		emailSender = sender
	}

	deliverer := NewDeliverer(pushSender, emailSender, contacts, baseURL)
	return &Module{
		deliverer: deliverer,
		direct:    NewDirectChannel(deliverer, log),
		sse:       sse.New(log),
		clock:     clock.System{},
		log:       log,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string { return "notification" }

// RegisterRoutes mounts the in-app event stream.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/notifications/stream", m.sse.Handler(streamUserID, nil))
}

func streamUserID(c *gin.Context) (uuid.UUID, bool) {
	identity := httpkit.GetIdentity(c)
	if !identity.IsAuthenticated() {
		return uuid.Nil, false
	}
	return identity.UserID(), true
}

// EnableOutbox switches side-channel dispatch to the outbox backed by pool.
func (m *Module) EnableOutbox(pool *pgxpool.Pool) {
	m.outbox = outbox.New(pool)
}

// SideChannel returns the outbox channel when enabled, otherwise direct delivery.
func (m *Module) SideChannel() SideChannel {
	if m.outbox != nil {
		return NewOutboxChannel(m.outbox, m.deliverer.Channels())
	}
	return m.direct
}

// SSE exposes the stream broadcaster for other modules.
func (m *Module) SSE() *sse.Service { return m.sse }

// Deliverer exposes the channel deliverer.
func (m *Module) Deliverer() *Deliverer { return m.deliverer }

// RegisterHandlers subscribes outbox processing to the bus. Only the
// scheduler process calls this.
func (m *Module) RegisterHandlers(bus events.Bus, resolved ResolutionChecker) {
	if m.outbox == nil {
		m.log.Warn("notification outbox not enabled; outbox events will be ignored")
		return
	}
	processor := NewOutboxProcessor(m.outbox, m.deliverer, resolved, m.clock, m.log)
	bus.Subscribe(events.NameNotificationOutboxDue, processor)
	m.log.Info("notification module registered event handlers")
}

// Wait blocks until direct deliveries in flight finish. Used at shutdown.
func (m *Module) Wait() {
	m.direct.Wait()
}
