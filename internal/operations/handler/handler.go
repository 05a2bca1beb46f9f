package handler

import (
	"errors"
	"net/http"

	"trade_portal_backend/internal/notification/sse"
	"trade_portal_backend/internal/operations/opserr"
	"trade_portal_backend/internal/operations/service"
	"trade_portal_backend/internal/operations/transport"
	"trade_portal_backend/platform/apperr"
	"trade_portal_backend/platform/httpkit"
	"trade_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	facade *service.Facade
	hub    *service.Hub
	sse    *sse.Service
	val    *validator.Validator
}

func New(facade *service.Facade, hub *service.Hub, val *validator.Validator) *Handler {
	return &Handler{facade: facade, hub: hub, val: val}
}

// SetSSE injects the SSE service used by the queue stream.
func (h *Handler) SetSSE(s *sse.Service) {
	h.sse = s
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/queues", h.GetQueues)
	rg.GET("/queues/stream", h.StreamQueues)
	rg.POST("/assignments", h.AssignOrders)
}

func (h *Handler) GetQueues(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	q, err := h.facade.GetQueues(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, q)
}

// StreamQueues keeps the caller's refresher alive for the life of the
// connection and relays every recomputed snapshot.
func (h *Handler) StreamQueues(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	if h.sse == nil {
		httpkit.Error(c, http.StatusServiceUnavailable, "queue stream not available", nil)
		return
	}

	var release func()
	defer func() {
		if release != nil {
			release()
		}
	}()

	userID := identity.UserID()
	stream := h.sse.Handler(
		func(*gin.Context) (uuid.UUID, bool) { return userID, true },
		func(id uuid.UUID) { release = h.hub.Acquire(id) },
	)
	stream(c)
}

func (h *Handler) AssignOrders(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.AssignOrdersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	out, err := h.facade.AssignBulk(c.Request.Context(), req.OrderIDs, req.AssigneeID, identity.UserID())
	if httpkit.HandleError(c, withOutcome(opserr.ToAppErr(err), out)) {
		return
	}
	httpkit.OK(c, transport.AssignOrdersResponse{
		Assigned:      emptyIfNil(out.Assigned),
		Failed:        emptyIfNil(out.Failed),
		AssigneeID:    out.AssigneeID,
		StillSelected: emptyIfNil(out.StillSelected),
	})
}

// withOutcome adds the assignment outcome to an AssignmentFailed error's details.
func withOutcome(err error, out service.AssignOutcome) error {
	var (
		appErr *apperr.Error
		opErr  *opserr.Error
	)
	if !errors.As(err, &appErr) || !errors.As(err, &opErr) || opErr.Kind != opserr.KindAssignmentFailed {
		return err
	}
	return appErr.WithDetails(map[string]any{
		"failedIds":     emptyIfNil(opErr.IDs),
		"partial":       opErr.Partial,
		"assigned":      emptyIfNil(out.Assigned),
		"assigneeId":    out.AssigneeID,
		"stillSelected": emptyIfNil(out.StillSelected),
	})
}

func emptyIfNil(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
