package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roadpulse/roadpulse-backend-go/internal/handler"
	"github.com/roadpulse/roadpulse-backend-go/internal/hub"
	"github.com/roadpulse/roadpulse-backend-go/internal/middleware"
)

// Handlers groups everything the router wires up.
type Handlers struct {
	Reports  *handler.ReportHandler
	Sessions *handler.SessionHandler
	Traffic  *handler.TrafficHandler
	Hub      *hub.Hub
	Defaults ClientDefaults
}

// ClientDefaults are the detection parameters clients adopt on connect.
type ClientDefaults struct {
	Sensitivity      float64 `json:"sensitivity"`
	MergeBoxDegrees  float64 `json:"mergeBoxDegrees"`
	HeartbeatSeconds int     `json:"heartbeatSeconds"`
}

// SetupRouter builds the gin engine with all routes and middleware.
func SetupRouter(h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())

	// CORS for the mobile webviews and the map frontend
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"clients": h.Hub.ClientCount(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Live fan-out
	r.GET("/ws", func(c *gin.Context) {
		h.Hub.Serve(c.Writer, c.Request)
	})

	api := r.Group("/api/v1")
	{
		api.GET("/config", func(c *gin.Context) {
			c.JSON(http.StatusOK, h.Defaults)
		})

		reports := api.Group("/reports")
		reports.Use(middleware.RateLimit(120, time.Minute))
		{
			reports.POST("", h.Reports.Submit)
		}

		bumps := api.Group("/speed-bumps")
		{
			bumps.GET("", h.Reports.Query)
			bumps.GET("/stats", h.Reports.Stats)
			bumps.DELETE("", h.Reports.Reset)
		}

		sessions := api.Group("/sessions")
		{
			sessions.POST("", h.Sessions.Create)
			sessions.GET("", h.Sessions.List)
			sessions.GET("/:id", h.Sessions.Get)
			sessions.PUT("/:id/status", h.Sessions.UpdateStatus)
			sessions.POST("/:id/points", h.Sessions.AddPoint)
			sessions.POST("/:id/complete", h.Sessions.Complete)
		}

		traffic := api.Group("/traffic")
		{
			traffic.POST("", h.Traffic.Submit)
			traffic.GET("/density", h.Traffic.Density)
		}
	}

	return r
}
