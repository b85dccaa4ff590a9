package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/tubefetch/internal/app"
	"github.com/yourusername/tubefetch/internal/domain"
	"go.uber.org/zap"
)

// UIHandler renders the HTML pages. Every error is rendered as a message on
// the page it happened on.
type UIHandler struct {
	manager *app.DownloadManager
	logger  *zap.Logger
}

// NewUIHandler creates a new UI handler
func NewUIHandler(manager *app.DownloadManager, logger *zap.Logger) *UIHandler {
	return &UIHandler{
		manager: manager,
		logger:  logger,
	}
}

type indexPage struct {
	URL            string
	Error          string
	MergeAvailable bool
}

type videoPage struct {
	Video          *domain.VideoRef
	Modes          []domain.DownloadMode
	Mode           domain.DownloadMode
	BestVideo      *domain.StreamOption
	BestAudio      *domain.StreamOption
	MergeAvailable bool
	Error          string
}

type jobPage struct {
	Job            *domain.DownloadJob
	Active         bool
	MergeAvailable bool
}

// Index handles GET /
func (h *UIHandler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", indexPage{MergeAvailable: h.manager.MergeAvailable()})
}

// Fetch handles POST /fetch
func (h *UIHandler) Fetch(c *gin.Context) {
	url := c.PostForm("url")

	video, err := h.manager.FetchVideo(c.Request.Context(), url)
	if err != nil {
		c.HTML(statusFor(err), "index.html", indexPage{
			URL:            url,
			Error:          domain.UserMessage(err),
			MergeAvailable: h.manager.MergeAvailable(),
		})
		return
	}

	c.Redirect(http.StatusSeeOther, "/videos/"+video.ID)
}

// Video handles GET /videos/:id. The mode query parameter picks the section shown.
func (h *UIHandler) Video(c *gin.Context) {
	video, err := h.manager.GetVideo(c.Param("id"))
	if err != nil {
		h.renderIndexError(c, err)
		return
	}

	c.HTML(http.StatusOK, "video.html", h.videoPage(video, domain.DownloadMode(c.Query("mode")), ""))
}

// Download handles POST /videos/:id/download
func (h *UIHandler) Download(c *gin.Context) {
	video, err := h.manager.GetVideo(c.Param("id"))
	if err != nil {
		h.renderIndexError(c, err)
		return
	}

	req := app.DownloadRequest{
		Mode:      domain.DownloadMode(c.PostForm("mode")),
		VideoItag: formInt(c, "video_itag"),
		AudioItag: formInt(c, "audio_itag"),
		Itag:      formInt(c, "itag"),
	}

	job, err := h.manager.CreateJob(video.ID, req)
	if err == nil {
		err = h.manager.Start(job)
	}
	if err != nil {
		c.HTML(statusFor(err), "video.html", h.videoPage(video, req.Mode, domain.UserMessage(err)))
		return
	}

	c.Redirect(http.StatusSeeOther, "/jobs/"+job.ID)
}

// Job handles GET /jobs/:id. Active jobs refresh themselves.
func (h *UIHandler) Job(c *gin.Context) {
	job, err := h.manager.GetJob(c.Param("id"))
	if err != nil {
		h.renderIndexError(c, err)
		return
	}

	c.HTML(http.StatusOK, "job.html", jobPage{
		Job:            job,
		Active:         job.IsActive(),
		MergeAvailable: h.manager.MergeAvailable(),
	})
}

// Cancel handles POST /jobs/:id/cancel
func (h *UIHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	if err := h.manager.Cancel(id); err != nil {
		h.logger.Debug("Cancel ignored", zap.String("id", id), zap.Error(err))
	}
	c.Redirect(http.StatusSeeOther, "/jobs/"+id)
}

func (h *UIHandler) videoPage(video *domain.VideoRef, mode domain.DownloadMode, errMsg string) videoPage {
	modes := h.manager.Modes(video)

	offered := false
	for _, m := range modes {
		if m == mode {
			offered = true
		}
	}
	if !offered {
		mode, _ = app.DefaultMode(modes)
	}

	page := videoPage{
		Video:          video,
		Modes:          modes,
		Mode:           mode,
		MergeAvailable: h.manager.MergeAvailable(),
		Error:          errMsg,
	}
	if s, ok := video.Streams.BestVideo(); ok {
		page.BestVideo = &s
	}
	if s, ok := video.Streams.BestAudio(); ok {
		page.BestAudio = &s
	}
	return page
}

func (h *UIHandler) renderIndexError(c *gin.Context, err error) {
	c.HTML(statusFor(err), "index.html", indexPage{
		Error:          domain.UserMessage(err),
		MergeAvailable: h.manager.MergeAvailable(),
	})
}

func formInt(c *gin.Context, key string) int {
	n, _ := strconv.Atoi(c.PostForm(key))
	return n
}
