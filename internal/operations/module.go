// Package operations provides the operator workspace module: routed work
// queues, a live queue stream and bulk assignment.
package operations

import (
	"time"

	"trade_portal_backend/internal/assignment"
	"trade_portal_backend/internal/events"
	"trade_portal_backend/internal/feed"
	apphttp "trade_portal_backend/internal/http"
	"trade_portal_backend/internal/notification/sse"
	"trade_portal_backend/internal/operations/handler"
	"trade_portal_backend/internal/operations/service"
	"trade_portal_backend/internal/queues"
	"trade_portal_backend/platform/clock"
	"trade_portal_backend/platform/logger"
	"trade_portal_backend/platform/validator"

	"github.com/google/uuid"
)

// OrderStore is what the module needs from the orders repository.
type OrderStore interface {
	service.OrderSource
	assignment.Store
}

// Module is the operations bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	facade  *service.Facade
	hub     *service.Hub
	sse     *sse.Service
}

// NewModule wires the facade, the assignment coordinator and the refresher hub.
func NewModule(orders OrderStore, classifier queues.Classifier, changes feed.Feed, bus events.Bus, pollInterval time.Duration, val *validator.Validator, clk clock.Clock, log *logger.Logger) *Module {
	coord := assignment.New(orders, changes, bus, clk, log)
	facade := service.NewFacade(orders, classifier, coord, clk, log)

	m := &Module{facade: facade}
	m.hub = service.NewHub(facade, changes, pollInterval, m.pushQueues, log)
	m.handler = handler.New(facade, m.hub, val)
	return m
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "operations"
}

// Facade returns the operations facade for external use.
func (m *Module) Facade() *service.Facade {
	return m.facade
}

// SetSSE injects the SSE service (circular dependency avoidance).
func (m *Module) SetSSE(s *sse.Service) {
	m.sse = s
	m.handler.SetSSE(s)
}

func (m *Module) pushQueues(actor uuid.UUID, q queues.Queues) {
	if m.sse == nil {
		return
	}
	m.sse.Publish(actor, sse.Event{Type: sse.EventQueuesUpdated, Data: q})
}

// RegisterRoutes mounts the operator endpoints on the admin group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Admin.Group("/operations"))
}

// Close stops every running queue refresher.
func (m *Module) Close() {
	m.hub.Close()
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
