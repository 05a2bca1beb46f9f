package transport

import (
	"github.com/google/uuid"
)

type AssignOrdersRequest struct {
	OrderIDs   []uuid.UUID `json:"orderIds" validate:"max=500"`
	AssigneeID uuid.UUID   `json:"assigneeId" validate:"notnil_uuid"`
}

type AssignOrdersResponse struct {
	Assigned      []uuid.UUID `json:"assigned"`
	Failed        []uuid.UUID `json:"failed"`
	AssigneeID    uuid.UUID   `json:"assigneeId"`
	StillSelected []uuid.UUID `json:"stillSelected"`
}
