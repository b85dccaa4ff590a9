package api

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/tubefetch/api/handlers"
	"github.com/yourusername/tubefetch/api/middleware"
	"github.com/yourusername/tubefetch/internal/app"
	"github.com/yourusername/tubefetch/pkg/logger"
	"github.com/yourusername/tubefetch/web"
)

// RouterConfig holds what the HTTP layer needs besides the manager
type RouterConfig struct {
	Logger  *zap.Logger
	Events  *logger.MultiLogger // optional
	LogsDir string
}

// templateFuncs are the helpers available to the page templates
var templateFuncs = template.FuncMap{
	"mb": func(n int64) float64 {
		return float64(n) / (1024 * 1024)
	},
	"mbf": func(n float64) float64 {
		return n / (1024 * 1024)
	},
}

// SetupRouter sets up the HTTP router: HTML pages, the JSON API and health checks
func SetupRouter(manager *app.DownloadManager, config RouterConfig) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Logger(config.Logger, config.Events))
	router.Use(middleware.Recovery(config.Logger, config.Events))
	router.Use(middleware.CORS())

	tmpl, err := web.Templates(templateFuncs)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	router.SetHTMLTemplate(tmpl)
	router.StaticFS("/static", http.FS(web.StaticFS()))

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(manager)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// HTML pages
	uiHandler := handlers.NewUIHandler(manager, config.Logger)
	router.GET("/", uiHandler.Index)
	router.POST("/fetch", uiHandler.Fetch)
	router.GET("/videos/:id", uiHandler.Video)
	router.POST("/videos/:id/download", uiHandler.Download)
	router.GET("/jobs/:id", uiHandler.Job)
	router.POST("/jobs/:id/cancel", uiHandler.Cancel)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		videoHandler := handlers.NewVideoHandler(manager, config.Logger)
		videos := v1.Group("/videos")
		{
			videos.POST("", videoHandler.FetchVideo)
			videos.GET("/:id", videoHandler.GetVideo)
			videos.POST("/:id/downloads", videoHandler.CreateDownload)
		}

		downloadHandler := handlers.NewDownloadHandler(manager, config.Logger)
		progressHandler := handlers.NewProgressWebSocketHandler(manager, config.Logger)
		downloads := v1.Group("/downloads")
		{
			downloads.GET("", downloadHandler.ListDownloads)
			downloads.GET("/stats", downloadHandler.GetStats)
			downloads.GET("/:id", downloadHandler.GetDownload)
			downloads.POST("/:id/cancel", downloadHandler.CancelDownload)
			downloads.DELETE("/:id", downloadHandler.DeleteDownload)
			downloads.GET("/:id/file", downloadHandler.DownloadFile)
			downloads.GET("/:id/progress", progressHandler.HandleWebSocket)
		}

		logHandler := handlers.NewLogHandler(config.LogsDir)
		logStream := handlers.NewLogWebSocketHandler(config.LogsDir, config.Logger)
		logs := v1.Group("/logs")
		{
			logs.GET("/categories", logHandler.GetCategories)
			logs.GET("/:category", logHandler.GetLogs)
			logs.GET("/:category/search", logHandler.SearchLogs)
			logs.GET("/:category/export", logHandler.ExportLogs)
			logs.GET("/:category/stream", logStream.HandleWebSocket)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.Redirect(http.StatusFound, "/")
	})

	return router, nil
}
