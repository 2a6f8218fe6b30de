package analytics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/visitops/fieldtrack/internal/app/domain"
	"github.com/visitops/fieldtrack/internal/app/models"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// ListSessions handles GET /checkins/admin/all.
func (h *Handler) ListSessions(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		domain.RespondError(c, h.logger, models.ErrBadRequest)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	sessions, stats, pagination, err := h.service.ListSessions(c.Request.Context(), filter, page, limit)
	if err != nil {
		domain.RespondError(c, h.logger, err)
		return
	}
	if sessions == nil {
		sessions = []models.VisitSession{}
	}
	c.JSON(http.StatusOK, gin.H{
		"checkIns":   sessions,
		"stats":      stats,
		"pagination": pagination,
	})
}

// Report handles GET /checkins/admin/analytics.
func (h *Handler) Report(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	report, err := h.service.Report(c.Request.Context(), days)
	if err != nil {
		domain.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func parseFilter(c *gin.Context) (models.SessionFilter, error) {
	var filter models.SessionFilter

	if status := c.Query("status"); status != "" {
		switch status {
		case models.StatusCheckedIn, models.StatusCheckedOut, models.StatusAutoCheckout:
			filter.Status = status
		default:
			return filter, models.ErrBadRequest
		}
	}
	if raw := c.Query("bdUserId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, models.ErrBadRequest
		}
		filter.AgentID = &id
	}
	if raw := c.Query("operatorId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, models.ErrBadRequest
		}
		filter.OperatorID = &id
	}
	if raw := c.Query("dateFrom"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, models.ErrBadRequest
		}
		filter.DateFrom = &t
	}
	if raw := c.Query("dateTo"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, models.ErrBadRequest
		}
		filter.DateTo = &t
	}
	return filter, nil
}
