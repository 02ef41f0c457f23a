package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/mediashelf/internal/domain"
	"go.uber.org/zap"
)

// SettingsStore is the part of the download manager that owns runtime settings
type SettingsStore interface {
	Settings() domain.Settings
	UpdateSettings(patch domain.SettingsPatch) (*domain.Settings, error)
}

// SettingsHandler handles runtime settings requests
type SettingsHandler struct {
	settings SettingsStore
	logger   *zap.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settings SettingsStore, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, logger: logger}
}

// GetSettings handles GET /api/v1/settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.Settings())
}

// UpdateSettings handles PATCH /api/v1/settings
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var patch domain.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.settings.UpdateSettings(patch)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSettings) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to update settings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, updated)
}
