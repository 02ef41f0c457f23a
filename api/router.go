package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yourusername/mediashelf/api/handlers"
	"github.com/yourusername/mediashelf/api/middleware"
	"github.com/yourusername/mediashelf/pkg/logger"
)

// Engine is everything the HTTP surface needs from the download manager
type Engine interface {
	handlers.DownloadEngine
	handlers.SettingsStore
	handlers.Snapshotter
}

// RouterDeps are the collaborators the router wires into handlers
type RouterDeps struct {
	Engine  Engine
	Formats handlers.FormatResolver
	Hub     *handlers.ProgressHub
	Logger  *zap.Logger
	Events  *logger.MultiLogger // optional
}

// SetupRouter sets up the HTTP router
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(deps.Logger, deps.Events))
	router.Use(middleware.Recovery(deps.Logger, deps.Events))

	// Health and metrics endpoints
	healthHandler := handlers.NewHealthHandler(deps.Engine, deps.Hub)
	router.GET("/health", healthHandler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		downloadHandler := handlers.NewDownloadHandler(deps.Engine, deps.Formats, deps.Logger)
		downloads := v1.Group("/downloads")
		{
			downloads.POST("", downloadHandler.AddDownload)
			downloads.POST("/batch", downloadHandler.AddBatch)
			downloads.GET("", downloadHandler.ListDownloads)
			downloads.GET("/stats", downloadHandler.GetStats)
			downloads.POST("/pause-all", downloadHandler.PauseAll)
			downloads.POST("/resume-all", downloadHandler.ResumeAll)
			downloads.GET("/:id", downloadHandler.GetDownload)
			downloads.DELETE("/:id", downloadHandler.DeleteDownload)
			downloads.POST("/:id/cancel", downloadHandler.CancelDownload)
			downloads.POST("/:id/pause", downloadHandler.PauseDownload)
			downloads.POST("/:id/resume", downloadHandler.ResumeDownload)
			downloads.POST("/:id/retry", downloadHandler.RetryDownload)
		}

		settingsHandler := handlers.NewSettingsHandler(deps.Engine, deps.Logger)
		v1.GET("/settings", settingsHandler.GetSettings)
		v1.PATCH("/settings", settingsHandler.UpdateSettings)

		if deps.Hub != nil {
			v1.GET("/ws", deps.Hub.Handler(deps.Engine))
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}
