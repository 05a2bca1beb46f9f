package handler

import (
	"net/http"
	"strconv"

	"trade_portal_backend/internal/actions/domain"
	"trade_portal_backend/internal/actions/service"
	"trade_portal_backend/internal/actions/transport"
	"trade_portal_backend/internal/operations/opserr"
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
	svc *service.Manager
	val *validator.Validator
}

func New(svc *service.Manager, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterUserRoutes mounts the caller's notification center.
func (h *Handler) RegisterUserRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListPending)
	rg.GET("/count", h.CountPending)
}

// RegisterAdminRoutes mounts the operator endpoints for raising and resolving actions.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Emit)
	rg.POST("/resolve", h.ResolveByEntity)
	rg.POST("/:id/resolve", h.ResolveByID)
	rg.POST("/admins", h.EmitToAdmins)
}

func (h *Handler) ListPending(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httpkit.Error(c, http.StatusBadRequest, "invalid limit", nil)
			return
		}
		limit = n
	}

	items, err := h.svc.ListPending(c.Request.Context(), identity.UserID(), limit)
	if httpkit.HandleError(c, err) {
		return
	}
	total, err := h.svc.CountPending(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.ActionListResponse{Items: make([]transport.ActionResponse, 0, len(items)), Total: total}
	for _, n := range items {
		resp.Items = append(resp.Items, toResponse(n))
	}
	httpkit.OK(c, resp)
}

func (h *Handler) CountPending(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	total, err := h.svc.CountPending(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"count": total})
}

func (h *Handler) Emit(c *gin.Context) {
	var req transport.EmitActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	variant, err := domain.Decode(domain.Type(req.Type), req.Payload)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	id, err := h.svc.Emit(c.Request.Context(), domain.ActionEvent{UserID: req.UserID, Variant: variant})
	if httpkit.HandleError(c, opserr.ToAppErr(err)) {
		return
	}
	httpkit.Created(c, transport.EmitActionResponse{ID: id})
}

func (h *Handler) EmitToAdmins(c *gin.Context) {
	var req transport.EmitAdminActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	variant, err := domain.Decode(domain.Type(req.Type), req.Payload)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	delivered, err := h.svc.EmitToAllAdmins(c.Request.Context(), variant)
	if httpkit.HandleError(c, opserr.ToAppErr(err)) {
		return
	}
	httpkit.OK(c, transport.AdminEmitResponse{Delivered: delivered})
}

func (h *Handler) ResolveByEntity(c *gin.Context) {
	var req transport.ResolveByEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	types := make([]domain.Type, 0, len(req.Types))
	for _, t := range req.Types {
		types = append(types, domain.Type(t))
	}

	resolved, err := h.svc.ResolveByEntity(c.Request.Context(), domain.EntityType(req.EntityType), req.EntityID, types...)
	if httpkit.HandleError(c, opserr.ToAppErr(err)) {
		return
	}
	httpkit.OK(c, transport.ResolveResponse{Resolved: resolved})
}

func (h *Handler) ResolveByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	resolved, err := h.svc.ResolveByID(c.Request.Context(), id)
	if httpkit.HandleError(c, opserr.ToAppErr(err)) {
		return
	}
	httpkit.OK(c, transport.ResolveResponse{Resolved: resolved})
}

func toResponse(n domain.Notification) transport.ActionResponse {
	return transport.ActionResponse{
		ID:            n.ID,
		Type:          string(n.Type),
		Role:          string(n.Role),
		EntityType:    string(n.EntityType),
		EntityID:      n.EntityID,
		Title:         n.Title,
		Message:       n.Message,
		DeepLink:      n.DeepLink,
		Payload:       n.Payload,
		EmitCount:     n.EmitCount,
		CreatedAt:     n.CreatedAt,
		LastEmittedAt: n.LastEmittedAt,
	}
}
