package domain

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CurrentUserID reads the authenticated user's id from the gin context (set
// by the JWT middleware). Aborts the request with 401 when it is missing or
// malformed, so handlers can return immediately on !ok.
func CurrentUserID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetString("user_id")
	if raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorBody{
			Error: "authentication required",
			Code:  "unauthenticated",
		})
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorBody{
			Error: "invalid user identity",
			Code:  "unauthenticated",
		})
		return uuid.Nil, false
	}
	return id, true
}
