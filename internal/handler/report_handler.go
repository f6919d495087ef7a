package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roadpulse/roadpulse-backend-go/internal/hub"
	"github.com/roadpulse/roadpulse-backend-go/internal/models"
	"github.com/roadpulse/roadpulse-backend-go/internal/service"
	"github.com/roadpulse/roadpulse-backend-go/pkg/response"
)

// ReportHandler handles speed bump report submissions
type ReportHandler struct {
	aggregator *service.AggregationService
	hub        *hub.Hub
}

// NewReportHandler creates a new report handler
func NewReportHandler(aggregator *service.AggregationService, h *hub.Hub) *ReportHandler {
	return &ReportHandler{aggregator: aggregator, hub: h}
}

// Submit handles POST /api/v1/reports
func (h *ReportHandler) Submit(c *gin.Context) {
	var req models.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid report payload", err)
		return
	}
	if err := req.Validate(); err != nil {
		response.BadRequest(c, "Invalid report payload", err)
		return
	}

	result, err := h.aggregator.Submit(req)
	if err != nil {
		response.InternalError(c, "Failed to submit report", err)
		return
	}

	// Live map update for everyone currently connected
	if h.hub != nil {
		merged := struct {
			models.ReportRequest
			models.MergeResult
		}{req, *result}
		if payload, err := json.Marshal(merged); err == nil {
			h.hub.BroadcastGlobal(models.Envelope{
				Type:    models.MsgTypeSpeedBump,
				Payload: payload,
			}, nil)
		}
	}

	response.Success(c, result)
}

// Query handles GET /api/v1/speed-bumps
func (h *ReportHandler) Query(c *gin.Context) {
	var box models.BoundingBox
	if err := c.ShouldBindQuery(&box); err != nil {
		response.BadRequest(c, "Invalid bounding box", err)
		return
	}
	if box.MinLat == 0 && box.MaxLat == 0 && box.MinLon == 0 && box.MaxLon == 0 {
		// No box given: whole map
		box = models.BoundingBox{MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180}
	}
	if box.MinLat > box.MaxLat || box.MinLon > box.MaxLon {
		response.BadRequest(c, "Bounding box minimum exceeds maximum", nil)
		return
	}

	snapshots, err := h.aggregator.Query(box)
	if err != nil {
		response.InternalError(c, "Failed to query speed bumps", err)
		return
	}
	response.Success(c, snapshots)
}

// Stats handles GET /api/v1/speed-bumps/stats
func (h *ReportHandler) Stats(c *gin.Context) {
	stats, err := h.aggregator.Stats()
	if err != nil {
		response.InternalError(c, "Failed to compute stats", err)
		return
	}
	response.Success(c, stats)
}

// Reset handles DELETE /api/v1/speed-bumps
func (h *ReportHandler) Reset(c *gin.Context) {
	if err := h.aggregator.Reset(); err != nil {
		response.InternalError(c, "Failed to reset records", err)
		return
	}
	c.Status(http.StatusNoContent)
}
