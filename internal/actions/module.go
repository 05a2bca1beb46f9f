// Package actions provides the action-required notification module.
// This file defines the module that wires the lifecycle manager, its bus
// subscriptions and its routes.
package actions

import (
	"trade_portal_backend/internal/actions/handler"
	"trade_portal_backend/internal/actions/repository"
	"trade_portal_backend/internal/actions/service"
	"trade_portal_backend/internal/events"
	"trade_portal_backend/internal/feed"
	apphttp "trade_portal_backend/internal/http"
	"trade_portal_backend/internal/notification/sse"
	"trade_portal_backend/platform/clock"
	"trade_portal_backend/platform/logger"
	"trade_portal_backend/platform/validator"
)

// Module is the actions bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	manager *service.Manager
}

// Deps are the collaborators of the actions module. Admins, Side and Changes may be nil.
type Deps struct {
	Repo      repository.Repository
	Admins    service.AdminDirectory
	Side      service.SideChannel
	Changes   feed.Publisher
	Bus       events.Bus
	Validator *validator.Validator
	Clock     clock.Clock
	Log       *logger.Logger
}

// NewModule creates the actions module and subscribes it to the domain events
// that raise and resolve actions.
func NewModule(deps Deps) *Module {
	log := deps.Log
	if log == nil {
		log = logger.Discard()
	}
	mgr := service.New(deps.Repo, deps.Admins, deps.Side, deps.Changes, deps.Clock, log)
	if deps.Bus != nil {
		sub := &subscriber{mgr: mgr, log: log}
		sub.register(deps.Bus)
	}
	return &Module{
		handler: handler.New(mgr, deps.Validator),
		manager: mgr,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "actions"
}

// Manager returns the lifecycle manager for use by other modules.
func (m *Module) Manager() *service.Manager {
	return m.manager
}

// SetSSE injects the SSE service (circular dependency avoidance).
func (m *Module) SetSSE(s *sse.Service) {
	m.manager.SetSSE(s)
}

// RegisterRoutes mounts the notification center for every authenticated user
// and the operator endpoints on the admin group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterUserRoutes(ctx.Protected.Group("/actions"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/operations/actions"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
