package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/mediashelf/internal/domain"
)

// Version is reported by the health endpoint
var Version = "dev"

// StatsSource reports ledger counts
type StatsSource interface {
	Stats() domain.DownloadStats
}

// HealthHandler handles health check requests
type HealthHandler struct {
	stats StatsSource
	hub   *ProgressHub
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(stats StatsSource, hub *ProgressHub) *HealthHandler {
	return &HealthHandler{
		stats: stats,
		hub:   hub,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status    string               `json:"status"`
	Version   string               `json:"version"`
	Downloads domain.DownloadStats `json:"downloads"`
	Observers int                  `json:"observers"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:    "ok",
		Version:   Version,
		Downloads: h.stats.Stats(),
	}
	if h.hub != nil {
		response.Observers = h.hub.ClientCount()
	}

	c.JSON(http.StatusOK, response)
}
