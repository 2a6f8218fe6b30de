// Package domain holds handler plumbing shared by the feature packages.
package domain

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/visitops/fieldtrack/internal/app/models"
)

// ErrorBody is the JSON error envelope. Code identifies the domain error so
// clients can branch without parsing messages; extra context (distance,
// conflicting session id) rides in the optional fields.
type ErrorBody struct {
	Error             string   `json:"error"`
	Code              string   `json:"code"`
	Distance          *float64 `json:"distance,omitempty"`
	AllowedRadius     *float64 `json:"allowedRadius,omitempty"`
	ExistingSessionID *string  `json:"existingSessionId,omitempty"`
}

// RespondError translates the domain error taxonomy to HTTP. Anything
// outside the taxonomy is a storage or programming failure and surfaces as a
// bare 500, logged with full detail server-side.
func RespondError(c *gin.Context, logger *zap.Logger, err error) {
	body := ErrorBody{Error: err.Error()}

	var outOfRange *models.OutOfRangeError
	var active *models.ActiveSessionError

	switch {
	case errors.As(err, &outOfRange):
		body.Code = "out_of_range"
		body.Distance = &outOfRange.Distance
		body.AllowedRadius = &outOfRange.AllowedRadius
		c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &active):
		body.Code = "session_already_active"
		id := active.SessionID.String()
		body.ExistingSessionID = &id
		c.JSON(http.StatusConflict, body)
	case errors.Is(err, models.ErrOutOfRange):
		body.Code = "out_of_range"
		c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, models.ErrSessionAlreadyActive):
		body.Code = "session_already_active"
		c.JSON(http.StatusConflict, body)
	case errors.Is(err, models.ErrSessionAlreadyClosed):
		body.Code = "session_already_closed"
		c.JSON(http.StatusConflict, body)
	case errors.Is(err, models.ErrSessionNotFound):
		body.Code = "session_not_found"
		c.JSON(http.StatusNotFound, body)
	case errors.Is(err, models.ErrOperatorNotAssigned):
		body.Code = "operator_not_assigned"
		c.JSON(http.StatusForbidden, body)
	case errors.Is(err, models.ErrInvalidLocation):
		body.Code = "invalid_location"
		c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, models.ErrNotFound):
		body.Code = "not_found"
		c.JSON(http.StatusNotFound, body)
	case errors.Is(err, models.ErrForbidden):
		body.Code = "forbidden"
		c.JSON(http.StatusForbidden, body)
	case errors.Is(err, models.ErrUnauthenticated):
		body.Code = "unauthenticated"
		c.JSON(http.StatusUnauthorized, body)
	case errors.Is(err, models.ErrBadRequest):
		body.Code = "bad_request"
		c.JSON(http.StatusBadRequest, body)
	default:
		logger.Error("Unhandled internal error",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorBody{
			Error: "internal server error",
			Code:  "internal",
		})
	}
}
