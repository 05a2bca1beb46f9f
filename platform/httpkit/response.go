package httpkit

import (
	"context"
	"errors"
	"net/http"

	"trade_portal_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// statusClientClosedRequest is the nginx convention for a caller that went away.
const statusClientClosedRequest = 499

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func Error(c *gin.Context, status int, message string, details any) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

func Created(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// HandleError writes err and reports whether it did. *apperr.Error carries
// its own status. Other errors are a 400 with the error text, except
// cancellation which gets 499.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		Error(c, appErr.HTTPStatus(), appErr.Message, appErr.Details)
	case errors.Is(err, context.Canceled):
		c.AbortWithStatus(statusClientClosedRequest)
	default:
		Error(c, http.StatusBadRequest, err.Error(), nil)
	}
	return true
}
