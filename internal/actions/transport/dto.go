package transport

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EmitActionRequest struct {
	UserID  uuid.UUID       `json:"userId" validate:"notnil_uuid"`
	Type    string          `json:"type" validate:"required"`
	Payload json.RawMessage `json:"payload" validate:"required"`
}

type EmitAdminActionRequest struct {
	Type    string          `json:"type" validate:"required"`
	Payload json.RawMessage `json:"payload" validate:"required"`
}

type ResolveByEntityRequest struct {
	EntityType string    `json:"entityType" validate:"required,oneof=order quote issue invoice"`
	EntityID   uuid.UUID `json:"entityId" validate:"notnil_uuid"`
	Types      []string  `json:"types" validate:"omitempty,dive,required"`
}

type ActionResponse struct {
	ID            uuid.UUID       `json:"id"`
	Type          string          `json:"type"`
	Role          string          `json:"role"`
	EntityType    string          `json:"entityType"`
	EntityID      uuid.UUID       `json:"entityId"`
	Title         string          `json:"title"`
	Message       string          `json:"message"`
	DeepLink      string          `json:"deepLink"`
	Payload       json.RawMessage `json:"payload"`
	EmitCount     int             `json:"emitCount"`
	CreatedAt     time.Time       `json:"createdAt"`
	LastEmittedAt time.Time       `json:"lastEmittedAt"`
}

type ActionListResponse struct {
	Items []ActionResponse `json:"items"`
	Total int              `json:"total"`
}

type EmitActionResponse struct {
	ID uuid.UUID `json:"id"`
}

type ResolveResponse struct {
	Resolved bool `json:"resolved"`
}

type AdminEmitResponse struct {
	Delivered bool `json:"delivered"`
}
