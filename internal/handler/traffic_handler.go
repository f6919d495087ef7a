package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/roadpulse/roadpulse-backend-go/internal/models"
	"github.com/roadpulse/roadpulse-backend-go/internal/service"
	"github.com/roadpulse/roadpulse-backend-go/pkg/response"
)

// TrafficHandler handles HTTP requests for traffic samples and density
type TrafficHandler struct {
	service *service.TrafficService
}

// NewTrafficHandler creates a new traffic handler
func NewTrafficHandler(service *service.TrafficService) *TrafficHandler {
	return &TrafficHandler{service: service}
}

// Submit handles POST /api/v1/traffic
func (h *TrafficHandler) Submit(c *gin.Context) {
	var sample models.TrafficSample
	if err := c.ShouldBindJSON(&sample); err != nil {
		response.BadRequest(c, "Invalid traffic sample", err)
		return
	}

	if err := h.service.RecordSample(&sample); err != nil {
		response.InternalError(c, "Failed to record traffic sample", err)
		return
	}
	response.Success(c, nil)
}

// Density handles GET /api/v1/traffic/density
func (h *TrafficHandler) Density(c *gin.Context) {
	cells, err := h.service.DensityCells()
	if err != nil {
		response.InternalError(c, "Failed to load traffic density", err)
		return
	}
	response.Success(c, cells)
}
