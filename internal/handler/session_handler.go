package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/roadpulse/roadpulse-backend-go/internal/models"
	"github.com/roadpulse/roadpulse-backend-go/internal/service"
	"github.com/roadpulse/roadpulse-backend-go/pkg/response"
)

// SessionHandler handles HTTP requests for driving sessions
type SessionHandler struct {
	service *service.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(service *service.SessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	var req struct {
		UserID string `json:"userId"`
	}
	// Body is optional; contributors are self-declared
	_ = c.ShouldBindJSON(&req)

	session, err := h.service.Create(req.UserID)
	if err != nil {
		response.InternalError(c, "Failed to create session", err)
		return
	}
	response.Success(c, session)
}

// Get handles GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.service.Get(c.Param("id"))
	if err != nil {
		response.InternalError(c, "Failed to get session", err)
		return
	}
	if session == nil {
		response.NotFound(c, "Session not found")
		return
	}
	response.Success(c, session)
}

// List handles GET /api/v1/sessions
func (h *SessionHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	sessions, err := h.service.List(limit)
	if err != nil {
		response.InternalError(c, "Failed to list sessions", err)
		return
	}
	response.Success(c, sessions)
}

// UpdateStatus handles PUT /api/v1/sessions/:id/status
func (h *SessionHandler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid status payload", err)
		return
	}

	if err := h.service.UpdateStatus(c.Param("id"), req.Status); err != nil {
		if strings.Contains(err.Error(), "not found") {
			response.NotFound(c, err.Error())
			return
		}
		response.BadRequest(c, "Failed to update session status", err)
		return
	}
	response.Success(c, gin.H{"status": req.Status})
}

// AddPoint handles POST /api/v1/sessions/:id/points
func (h *SessionHandler) AddPoint(c *gin.Context) {
	var p models.SessionPoint
	if err := c.ShouldBindJSON(&p); err != nil {
		response.BadRequest(c, "Invalid point payload", err)
		return
	}

	if err := h.service.AddPoint(c.Param("id"), &p); err != nil {
		if strings.Contains(err.Error(), "not found") {
			response.NotFound(c, err.Error())
			return
		}
		response.BadRequest(c, "Failed to record point", err)
		return
	}
	response.Success(c, nil)
}

// Complete handles POST /api/v1/sessions/:id/complete
func (h *SessionHandler) Complete(c *gin.Context) {
	rollup, err := h.service.Complete(c.Param("id"))
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			response.NotFound(c, err.Error())
			return
		}
		response.InternalError(c, "Failed to complete session", err)
		return
	}
	response.Success(c, rollup)
}
