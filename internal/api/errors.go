package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"reportify-backend-go/internal/core"
	"reportify-backend-go/internal/payments"
)

// mapErrorToStatus maps a domain error kind to its HTTP status and the public
// message. Unknown errors are internal failures.
func mapErrorToStatus(err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized, ErrorResponse{Message: "Authentication required"}
	case errors.Is(err, core.ErrBlocked):
		return http.StatusForbidden, ErrorResponse{Message: "Your account is blocked", Details: err.Error()}
	case errors.Is(err, core.ErrQuotaExceeded):
		return http.StatusForbidden, ErrorResponse{Message: "Free issue limit reached, upgrade to premium to report more", Details: err.Error()}
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden, ErrorResponse{Message: "Forbidden", Details: err.Error()}
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Message: "Not found", Details: err.Error()}
	case errors.Is(err, core.ErrSelfVote):
		return http.StatusBadRequest, ErrorResponse{Message: "You cannot upvote your own issue"}
	case errors.Is(err, core.ErrInvalid), errors.Is(err, payments.ErrSignature), errors.Is(err, payments.ErrPayload):
		return http.StatusBadRequest, ErrorResponse{Message: "Invalid request", Details: err.Error()}
	case errors.Is(err, core.ErrInvalidTransition):
		return http.StatusConflict, ErrorResponse{Message: "Invalid status transition", Details: err.Error()}
	case errors.Is(err, core.ErrInvalidState):
		return http.StatusConflict, ErrorResponse{Message: "Operation not allowed in the current issue state", Details: err.Error()}
	case errors.Is(err, core.ErrDuplicate):
		return http.StatusConflict, ErrorResponse{Message: "Already done", Details: err.Error()}
	default:
		return http.StatusInternalServerError, ErrorResponse{Message: "An unexpected internal server error occurred."}
	}
}

// respondError writes the mapped error. Internal failures are logged with the
// original error, which never reaches the client.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status, body := mapErrorToStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid request payload", Details: err.Error()})
}
