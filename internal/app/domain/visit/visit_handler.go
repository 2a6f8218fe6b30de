package visit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/visitops/fieldtrack/internal/app/domain"
	"github.com/visitops/fieldtrack/internal/app/models"
)

type LocationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type CheckInRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Notes     string  `json:"notes"`
}

type CheckOutRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Notes     string   `json:"notes"`
}

// Handler serves the BD-facing session lifecycle endpoints.
type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, domain.ErrorBody{
			Error: "invalid " + param,
			Code:  "bad_request",
		})
		return uuid.Nil, false
	}
	return id, true
}

// CanCheckIn probes eligibility without side effects.
// POST /api/v1/checkins/can-check-in/:operatorId
func (h *Handler) CanCheckIn(c *gin.Context) {
	agentID, ok := domain.CurrentUserID(c)
	if !ok {
		return
	}
	operatorID, ok := parseID(c, "operatorId")
	if !ok {
		return
	}

	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, domain.ErrorBody{Error: "invalid request body", Code: "bad_request"})
		return
	}

	result, err := h.service.CanCheckIn(c.Request.Context(), agentID, operatorID,
		models.Location{Latitude: req.Latitude, Longitude: req.Longitude})
	if err != nil {
		domain.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CheckIn opens a session.
// POST /api/v1/checkins/check-in/:operatorId
func (h *Handler) CheckIn(c *gin.Context) {
	agentID, ok := domain.CurrentUserID(c)
	if !ok {
		return
	}
	operatorID, ok := parseID(c, "operatorId")
	if !ok {
		return
	}

	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, domain.ErrorBody{Error: "invalid request body", Code: "bad_request"})
		return
	}

	session, err := h.service.CheckIn(c.Request.Context(), agentID, operatorID,
		models.Location{Latitude: req.Latitude, Longitude: req.Longitude}, req.Notes)
	if err != nil {
		domain.RespondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"checkInId":   session.ID,
		"checkInTime": session.CheckInTime,
		"distance":    session.CheckInLocation.DistanceFromOperator,
	})
}

// UpdateLocation appends an audit entry; the policy evaluator may close the
// session, which the response reports as autoCheckout=true.
// PUT /api/v1/checkins/update-location/:checkInId
func (h *Handler) UpdateLocation(c *gin.Context) {
	agentID, ok := domain.CurrentUserID(c)
	if !ok {
		return
	}
	sessionID, ok := parseID(c, "checkInId")
	if !ok {
		return
	}

	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, domain.ErrorBody{Error: "invalid request body", Code: "bad_request"})
		return
	}

	result, err := h.service.RecordLocation(c.Request.Context(), agentID, sessionID,
		models.Location{Latitude: req.Latitude, Longitude: req.Longitude})
	if err != nil {
		domain.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CheckOut closes the session manually.
// POST /api/v1/checkins/check-out/:checkInId
func (h *Handler) CheckOut(c *gin.Context) {
	agentID, ok := domain.CurrentUserID(c)
	if !ok {
		return
	}
	sessionID, ok := parseID(c, "checkInId")
	if !ok {
		return
	}

	var req CheckOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, domain.ErrorBody{Error: "invalid request body", Code: "bad_request"})
		return
	}

	var loc *models.Location
	if req.Latitude != nil && req.Longitude != nil {
		loc = &models.Location{Latitude: *req.Latitude, Longitude: *req.Longitude}
	}

	session, err := h.service.CheckOut(c.Request.Context(), agentID, sessionID, loc, req.Notes)
	if err != nil {
		domain.RespondError(c, h.logger, err)
		return
	}

	resp := gin.H{
		"checkInId":     session.ID,
		"checkInTime":   session.CheckInTime,
		"checkOutTime":  session.CheckOutTime,
		"totalDuration": session.TotalDurationMinutes,
	}
	if session.CheckOutLocation != nil {
		resp["distance"] = session.CheckOutLocation.DistanceFromOperator
	}
	c.JSON(http.StatusOK, resp)
}

// ActiveSession returns the caller's open session, or null.
// GET /api/v1/checkins/active
func (h *Handler) ActiveSession(c *gin.Context) {
	agentID, ok := domain.CurrentUserID(c)
	if !ok {
		return
	}

	session, err := h.service.ActiveSession(c.Request.Context(), agentID)
	if err != nil {
		domain.RespondError(c, h.logger, err)
		return
	}
	if session == nil {
		c.JSON(http.StatusOK, gin.H{"data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": session})
}

// History lists the caller's sessions, newest first, audit trails excluded.
// GET /api/v1/checkins/history?page&limit
func (h *Handler) History(c *gin.Context) {
	agentID, ok := domain.CurrentUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	sessions, pagination, err := h.service.History(c.Request.Context(), agentID, page, limit)
	if err != nil {
		domain.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":       sessions,
		"pagination": pagination,
	})
}

// Details returns the caller's own session with audit trail and metrics.
// GET /api/v1/checkins/details/:checkInId
func (h *Handler) Details(c *gin.Context) {
	agentID, ok := domain.CurrentUserID(c)
	if !ok {
		return
	}
	sessionID, ok := parseID(c, "checkInId")
	if !ok {
		return
	}

	details, err := h.service.SessionDetails(c.Request.Context(), sessionID, agentID)
	if err != nil {
		domain.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// AdminHandler serves the unscoped session reads. It is wired only behind
// the admin role gate; the capability split happens here at the boundary,
// not inside the services.
type AdminHandler struct {
	reader AdminSessionReader
	logger *zap.Logger
}

func NewAdminHandler(reader AdminSessionReader, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{reader: reader, logger: logger}
}

// Details returns any session with audit trail and metrics.
// GET /api/v1/checkins/admin/details/:checkInId
func (h *AdminHandler) Details(c *gin.Context) {
	sessionID, ok := parseID(c, "checkInId")
	if !ok {
		return
	}

	details, err := h.reader.AdminSessionDetails(c.Request.Context(), sessionID)
	if err != nil {
		domain.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, details)
}
