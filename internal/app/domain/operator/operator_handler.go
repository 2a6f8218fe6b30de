package operator

import (
	"net/http"
	"strconv"

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

type OperatorRequest struct {
	Name            string  `json:"name" binding:"required"`
	Address         string  `json:"address"`
	ContactPerson   string  `json:"contactPerson"`
	Phone           string  `json:"phone"`
	Latitude        float64 `json:"latitude" binding:"required"`
	Longitude       float64 `json:"longitude" binding:"required"`
	AssignedAgentID string  `json:"assignedAgentId" binding:"required"`
}

// Mine lists the operators assigned to the calling agent.
// GET /api/v1/operators
func (h *Handler) Mine(c *gin.Context) {
	agentID, ok := domain.CurrentUserID(c)
	if !ok {
		return
	}
	operators, err := h.service.ListForAgent(c.Request.Context(), agentID)
	if err != nil {
		domain.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": operators})
}

// Get returns one operator. BD callers only see operators assigned to them.
// GET /api/v1/operators/:operatorId
func (h *Handler) Get(c *gin.Context) {
	agentID, ok := domain.CurrentUserID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("operatorId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, domain.ErrorBody{Error: "invalid operatorId", Code: "bad_request"})
		return
	}

	op, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		domain.RespondError(c, h.logger, err)
		return
	}
	if c.GetString("role") != models.RoleAdmin && op.AssignedAgentID != agentID {
		domain.RespondError(c, h.logger, models.ErrOperatorNotAssigned)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": op})
}

// AdminList pages through all operators.
// GET /api/v1/admin/operators?page&limit
func (h *Handler) AdminList(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	operators, total, err := h.service.List(c.Request.Context(), page, limit)
	if err != nil {
		domain.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": operators,
		"pagination": models.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: (total + limit - 1) / limit,
		},
	})
}

// AdminCreate registers a new operator site.
// POST /api/v1/admin/operators
func (h *Handler) AdminCreate(c *gin.Context) {
	var req OperatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, domain.ErrorBody{Error: "invalid request body", Code: "bad_request"})
		return
	}
	agentID, err := uuid.Parse(req.AssignedAgentID)
	if err != nil {
		c.JSON(http.StatusBadRequest, domain.ErrorBody{Error: "invalid assignedAgentId", Code: "bad_request"})
		return
	}

	op := &models.Operator{
		Name:            req.Name,
		Address:         req.Address,
		ContactPerson:   req.ContactPerson,
		Phone:           req.Phone,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		AssignedAgentID: agentID,
	}
	if err := h.service.Create(c.Request.Context(), op); err != nil {
		domain.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": op})
}

// AdminUpdate replaces an operator's record. Changing coordinates while a
// session is open is the admin's responsibility to avoid; the engine reads
// coordinates per call, not per session.
// PUT /api/v1/admin/operators/:operatorId
func (h *Handler) AdminUpdate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("operatorId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, domain.ErrorBody{Error: "invalid operatorId", Code: "bad_request"})
		return
	}

	var req OperatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, domain.ErrorBody{Error: "invalid request body", Code: "bad_request"})
		return
	}
	agentID, err := uuid.Parse(req.AssignedAgentID)
	if err != nil {
		c.JSON(http.StatusBadRequest, domain.ErrorBody{Error: "invalid assignedAgentId", Code: "bad_request"})
		return
	}

	op := &models.Operator{
		ID:              id,
		Name:            req.Name,
		Address:         req.Address,
		ContactPerson:   req.ContactPerson,
		Phone:           req.Phone,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		AssignedAgentID: agentID,
	}
	if err := h.service.Update(c.Request.Context(), op); err != nil {
		domain.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": op})
}

// AdminDelete removes an operator and, by cascade, its sessions.
// DELETE /api/v1/admin/operators/:operatorId
func (h *Handler) AdminDelete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("operatorId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, domain.ErrorBody{Error: "invalid operatorId", Code: "bad_request"})
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		domain.RespondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
