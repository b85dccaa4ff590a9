package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/tubefetch/internal/app"
)

// Version is reported by the health endpoint
var Version = "dev"

// HealthHandler handles health check requests
type HealthHandler struct {
	manager *app.DownloadManager
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(manager *app.DownloadManager) *HealthHandler {
	return &HealthHandler{
		manager: manager,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Merge   struct {
		Available bool `json:"available"`
	} `json:"merge"`
	Storage string `json:"storage"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "ok",
		Version: Version,
		Storage: h.manager.StoreName(),
	}
	response.Merge.Available = h.manager.MergeAvailable()

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready. Missing ffmpeg only limits the offered modes,
// so readiness depends on the database alone.
func (h *HealthHandler) Ready(c *gin.Context) {
	if _, err := h.manager.Stats(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "database unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          "ready",
		"merge_available": h.manager.MergeAvailable(),
	})
}
