package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/mediashelf/internal/app"
	"github.com/yourusername/mediashelf/internal/domain"
	"github.com/yourusername/mediashelf/internal/format"
	"go.uber.org/zap"
)

// DownloadEngine is the part of the download manager the HTTP layer drives
type DownloadEngine interface {
	Start(req domain.DownloadRequest) (string, error)
	StartBatch(req domain.DownloadRequest) (string, error)
	GetStatus(id string) (*domain.DownloadRecord, bool)
	GetAll() []*domain.DownloadRecord
	Cancel(id string) bool
	Pause(id string) bool
	Resume(id string) (string, bool)
	PauseAll() int
	ResumeAll() int
	Retry(id string) bool
	Remove(id string) bool
	Stats() domain.DownloadStats
}

// FormatResolver picks a format for requests that do not name one
type FormatResolver interface {
	Resolve(ctx context.Context, req *domain.DownloadRequest, q app.FormatQuery)
}

// DownloadHandler handles download-related HTTP requests
type DownloadHandler struct {
	engine  DownloadEngine
	formats FormatResolver
	logger  *zap.Logger
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(engine DownloadEngine, formats FormatResolver, logger *zap.Logger) *DownloadHandler {
	return &DownloadHandler{
		engine:  engine,
		formats: formats,
		logger:  logger,
	}
}

// FormatPreference is how the caller wants a format chosen when it gives no formatId
type FormatPreference struct {
	Mode     string `json:"mode,omitempty" binding:"omitempty,oneof=original planned"`
	Height   int    `json:"height,omitempty" binding:"omitempty,min=1"`
	Language string `json:"language,omitempty"`
}

// AddDownloadRequest represents a request to add a download
type AddDownloadRequest struct {
	domain.DownloadRequest
	FormatPreference
}

// BatchItem is one entry of a batch request
type BatchItem struct {
	URL       string  `json:"url" binding:"required"`
	FormatID  string  `json:"formatId"`
	Title     *string `json:"title"`
	Thumbnail *string `json:"thumbnail"`
}

// AddBatchRequest represents a playlist-like group of downloads sharing one batch id
type AddBatchRequest struct {
	BatchID string      `json:"batchId"`
	SaveDir string      `json:"saveDir"`
	Items   []BatchItem `json:"items" binding:"required,min=1,dive"`
	FormatPreference
}

// AddBatchResponse lists the ids created for a batch, in item order
type AddBatchResponse struct {
	BatchID string   `json:"batchId"`
	IDs     []string `json:"ids"`
}

func (h *DownloadHandler) resolve(c *gin.Context, req *domain.DownloadRequest, pref FormatPreference) {
	if h.formats == nil {
		return
	}
	h.formats.Resolve(c.Request.Context(), req, app.FormatQuery{
		Mode:      format.Mode(pref.Mode),
		Height:    pref.Height,
		Language:  pref.Language,
		UserAgent: c.Request.UserAgent(),
	})
}

// AddDownload handles POST /api/v1/downloads
func (h *DownloadHandler) AddDownload(c *gin.Context) {
	var req AddDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.resolve(c, &req.DownloadRequest, req.FormatPreference)

	id, err := h.engine.Start(req.DownloadRequest)
	if err != nil {
		h.logger.Error("Failed to add download", zap.Error(err))
		c.JSON(startErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	record, _ := h.engine.GetStatus(id)
	c.JSON(http.StatusCreated, record)
}

// AddBatch handles POST /api/v1/downloads/batch
func (h *DownloadHandler) AddBatch(c *gin.Context) {
	var req AddBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	batchID := req.BatchID
	if batchID == "" {
		batchID = domain.NewDownloadID()
	}

	resp := AddBatchResponse{BatchID: batchID, IDs: make([]string, 0, len(req.Items))}
	for i, item := range req.Items {
		dr := domain.DownloadRequest{
			URL:       item.URL,
			FormatID:  item.FormatID,
			SaveDir:   req.SaveDir,
			Title:     item.Title,
			Thumbnail: item.Thumbnail,
			BatchID:   domain.Ptr(batchID),
			Index:     domain.Ptr(i + 1),
		}
		h.resolve(c, &dr, req.FormatPreference)

		id, err := h.engine.StartBatch(dr)
		if err != nil {
			h.logger.Error("Failed to add batch item", zap.String("batch_id", batchID), zap.Int("index", i+1), zap.Error(err))
			c.JSON(startErrorStatus(err), gin.H{"error": err.Error(), "batchId": batchID, "ids": resp.IDs})
			return
		}
		resp.IDs = append(resp.IDs, id)
	}

	c.JSON(http.StatusCreated, resp)
}

// GetDownload handles GET /api/v1/downloads/:id
func (h *DownloadHandler) GetDownload(c *gin.Context) {
	record, ok := h.engine.GetStatus(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrDownloadNotFound.Error()})
		return
	}

	c.JSON(http.StatusOK, record)
}

// ListDownloads handles GET /api/v1/downloads
func (h *DownloadHandler) ListDownloads(c *gin.Context) {
	records := h.engine.GetAll()

	if status := c.Query("status"); status != "" {
		filtered := records[:0]
		for _, r := range records {
			if string(r.Status) == status {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	c.JSON(http.StatusOK, records)
}

// GetStats handles GET /api/v1/downloads/stats
func (h *DownloadHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Stats())
}

// CancelDownload handles POST /api/v1/downloads/:id/cancel
func (h *DownloadHandler) CancelDownload(c *gin.Context) {
	id := c.Param("id")
	if !h.engine.Cancel(id) {
		h.rejected(c, id, "download cannot be cancelled")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "download cancelled"})
}

// PauseDownload handles POST /api/v1/downloads/:id/pause
func (h *DownloadHandler) PauseDownload(c *gin.Context) {
	id := c.Param("id")
	if !h.engine.Pause(id) {
		h.rejected(c, id, "download cannot be paused")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "download paused"})
}

// ResumeDownload handles POST /api/v1/downloads/:id/resume
func (h *DownloadHandler) ResumeDownload(c *gin.Context) {
	newID, ok := h.engine.Resume(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrNoPausedRecord.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "download resumed", "id": newID})
}

// RetryDownload handles POST /api/v1/downloads/:id/retry
func (h *DownloadHandler) RetryDownload(c *gin.Context) {
	id := c.Param("id")
	if !h.engine.Retry(id) {
		h.rejected(c, id, "only failed or cancelled downloads can be retried")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "download restarted"})
}

// DeleteDownload handles DELETE /api/v1/downloads/:id
func (h *DownloadHandler) DeleteDownload(c *gin.Context) {
	if !h.engine.Remove(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrDownloadNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "download removed"})
}

// PauseAll handles POST /api/v1/downloads/pause-all
func (h *DownloadHandler) PauseAll(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"count": h.engine.PauseAll()})
}

// ResumeAll handles POST /api/v1/downloads/resume-all
func (h *DownloadHandler) ResumeAll(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"count": h.engine.ResumeAll()})
}

// rejected answers 404 for unknown ids and 409 when the download is in the wrong state
func (h *DownloadHandler) rejected(c *gin.Context, id, reason string) {
	record, ok := h.engine.GetStatus(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrDownloadNotFound.Error()})
		return
	}
	c.JSON(http.StatusConflict, gin.H{"error": reason, "status": record.Status})
}

func startErrorStatus(err error) int {
	if errors.Is(err, domain.ErrShuttingDown) {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadRequest
}
