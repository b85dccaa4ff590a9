package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/tubefetch/internal/app"
	"github.com/yourusername/tubefetch/internal/domain"
	"go.uber.org/zap"
)

// VideoHandler handles fetching videos and starting their downloads
type VideoHandler struct {
	manager *app.DownloadManager
	logger  *zap.Logger
}

// NewVideoHandler creates a new video handler
func NewVideoHandler(manager *app.DownloadManager, logger *zap.Logger) *VideoHandler {
	return &VideoHandler{
		manager: manager,
		logger:  logger,
	}
}

// FetchVideoRequest represents a request to fetch a video's streams
type FetchVideoRequest struct {
	URL string `json:"url" binding:"required"`
}

// VideoResponse is a fetched video with the modes offered for it
type VideoResponse struct {
	*domain.VideoRef
	Modes          []domain.DownloadMode `json:"modes"`
	DefaultMode    domain.DownloadMode   `json:"default_mode,omitempty"`
	MergeAvailable bool                  `json:"merge_available"`
}

func (h *VideoHandler) describe(video *domain.VideoRef) VideoResponse {
	modes := h.manager.Modes(video)
	def, _ := app.DefaultMode(modes)
	return VideoResponse{
		VideoRef:       video,
		Modes:          modes,
		DefaultMode:    def,
		MergeAvailable: h.manager.MergeAvailable(),
	}
}

// FetchVideo handles POST /api/v1/videos
func (h *VideoHandler) FetchVideo(c *gin.Context) {
	var req FetchVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	video, err := h.manager.FetchVideo(c.Request.Context(), req.URL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, h.describe(video))
}

// GetVideo handles GET /api/v1/videos/:id
func (h *VideoHandler) GetVideo(c *gin.Context) {
	video, err := h.manager.GetVideo(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.describe(video))
}

// CreateDownload handles POST /api/v1/videos/:id/downloads
func (h *VideoHandler) CreateDownload(c *gin.Context) {
	var req app.DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.manager.CreateJob(c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.manager.Start(job); err != nil {
		h.logger.Error("Failed to start download", zap.String("id", job.ID), zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, job)
}
