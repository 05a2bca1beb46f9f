package alerts

import (
	apphttp "trade_portal_backend/internal/http"
	"trade_portal_backend/platform/clock"
	"trade_portal_backend/platform/logger"
)

// Module is the dashboard alerts module implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
}

// NewModule creates the alerts module.
func NewModule(loader SnapshotLoader, store DismissalStore, clk clock.Clock, log *logger.Logger) *Module {
	svc := NewService(loader, store, clk, log)
	return &Module{handler: NewHandler(svc), service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "alerts"
}

// Service returns the alerts service for external use.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts the customer dashboard alerts.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/portal/alerts"))
}

var _ apphttp.Module = (*Module)(nil)
