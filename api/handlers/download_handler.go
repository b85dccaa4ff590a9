package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/tubefetch/internal/app"
	"go.uber.org/zap"
)

// DownloadHandler handles download-related HTTP requests
type DownloadHandler struct {
	manager *app.DownloadManager
	logger  *zap.Logger
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(manager *app.DownloadManager, logger *zap.Logger) *DownloadHandler {
	return &DownloadHandler{
		manager: manager,
		logger:  logger,
	}
}

// GetDownload handles GET /api/v1/downloads/:id
func (h *DownloadHandler) GetDownload(c *gin.Context) {
	job, err := h.manager.GetJob(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// ListDownloads handles GET /api/v1/downloads
func (h *DownloadHandler) ListDownloads(c *gin.Context) {
	filters := make(map[string]interface{})

	if status := c.Query("status"); status != "" {
		filters["status"] = status
	}
	if mode := c.Query("mode"); mode != "" {
		filters["mode"] = mode
	}
	if videoID := c.Query("video_id"); videoID != "" {
		filters["video_ref_id"] = videoID
	}

	jobs, err := h.manager.ListJobs(filters)
	if err != nil {
		h.logger.Error("Failed to list downloads", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, jobs)
}

// GetStats handles GET /api/v1/downloads/stats
func (h *DownloadHandler) GetStats(c *gin.Context) {
	stats, err := h.manager.Stats()
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// CancelDownload handles POST /api/v1/downloads/:id/cancel
func (h *DownloadHandler) CancelDownload(c *gin.Context) {
	id := c.Param("id")

	if err := h.manager.Cancel(id); err != nil {
		h.logger.Warn("Failed to cancel download", zap.String("id", id), zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "download cancelled"})
}

// DeleteDownload handles DELETE /api/v1/downloads/:id
func (h *DownloadHandler) DeleteDownload(c *gin.Context) {
	id := c.Param("id")

	if err := h.manager.DeleteJob(c.Request.Context(), id); err != nil {
		h.logger.Error("Failed to delete download", zap.String("id", id), zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "download deleted"})
}

// DownloadFile handles GET /api/v1/downloads/:id/file. Local artifacts are
// streamed and then deleted; remote ones redirect to a fresh signed URL.
func (h *DownloadHandler) DownloadFile(c *gin.Context) {
	id := c.Param("id")

	delivery, err := h.manager.OpenArtifact(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	if delivery.URL != "" {
		c.Redirect(http.StatusFound, delivery.URL)
		return
	}

	c.FileAttachment(delivery.Path, delivery.Name)

	// client went away before the body was written
	if c.Request.Context().Err() != nil || c.Writer.Status() != http.StatusOK {
		return
	}
	if err := h.manager.MarkDelivered(c.Request.Context(), id); err != nil {
		h.logger.Error("Failed to record delivery", zap.String("id", id), zap.Error(err))
	}
}
