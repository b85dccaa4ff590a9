package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/yourusername/tubefetch/internal/domain"
	"github.com/yourusername/tubefetch/pkg/logger"
	"go.uber.org/zap"
)

// DownloadManager owns fetched videos and download jobs. Each started job
// runs on its own goroutine; readers only ever see snapshots.
type DownloadManager struct {
	videos   domain.VideoRepository
	repo     domain.DownloadRepository
	source   domain.StreamSource
	merger   domain.Merger
	store    domain.ArtifactStore
	notifier domain.Notifier
	events   *logger.MultiLogger
	config   *domain.DownloadConfig
	logger   *zap.Logger

	baseCtx   context.Context
	cancelAll context.CancelFunc
	mu        sync.Mutex
	live      map[string]*liveJob
	wg        sync.WaitGroup
}

// liveJob is the in-memory state of a job while its pipeline runs
type liveJob struct {
	job         *domain.DownloadJob
	cancel      context.CancelFunc
	phaseStart  time.Time
	subscribers map[chan domain.DownloadJob]struct{}
}

// Delivery describes how a finished artifact is handed to the user: either a
// local file to stream or a URL to redirect to
type Delivery struct {
	Job  domain.DownloadJob
	Path string
	Name string
	URL  string
}

// NewDownloadManager creates a new download manager
func NewDownloadManager(
	videos domain.VideoRepository,
	repo domain.DownloadRepository,
	source domain.StreamSource,
	merger domain.Merger,
	store domain.ArtifactStore,
	config *domain.DownloadConfig,
	logger *zap.Logger,
) *DownloadManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &DownloadManager{
		videos:    videos,
		repo:      repo,
		source:    source,
		merger:    merger,
		store:     store,
		config:    config,
		logger:    logger,
		baseCtx:   ctx,
		cancelAll: cancel,
		live:      make(map[string]*liveJob),
	}
}

// SetNotifier enables outcome notifications
func (dm *DownloadManager) SetNotifier(notifier domain.Notifier) {
	dm.notifier = notifier
}

// SetEventLogger enables job lifecycle events in the job log
func (dm *DownloadManager) SetEventLogger(events *logger.MultiLogger) {
	dm.events = events
}

// Config returns the download configuration
func (dm *DownloadManager) Config() *domain.DownloadConfig {
	return dm.config
}

// StoreName returns the artifact store backend name
func (dm *DownloadManager) StoreName() string {
	return dm.store.Name()
}

// MergeAvailable reports whether merge modes can be offered
func (dm *DownloadManager) MergeAvailable() bool {
	return dm.merger != nil && dm.merger.Available()
}

// FetchVideo validates a URL, resolves its streams and stores the result
func (dm *DownloadManager) FetchVideo(ctx context.Context, url string) (*domain.VideoRef, error) {
	url = strings.TrimSpace(url)
	if _, err := domain.ValidateVideoURL(url); err != nil {
		return nil, err
	}

	video, err := dm.source.Resolve(ctx, url)
	if err != nil {
		dm.logger.Warn("Failed to resolve video", zap.String("url", url), zap.Error(err))
		return nil, fmt.Errorf("resolving %s: %w", url, err)
	}

	if video.Streams.Empty() {
		return nil, fmt.Errorf("%w: no downloadable MP4 video streams found for %s", domain.ErrNoStreams, url)
	}

	if err := dm.videos.SaveVideo(video); err != nil {
		return nil, fmt.Errorf("failed to save video: %w", err)
	}

	dm.logger.Info("Video fetched",
		zap.String("id", video.ID),
		zap.String("title", video.Title))
	return video, nil
}

// GetVideo returns a fetched video by ID
func (dm *DownloadManager) GetVideo(id string) (*domain.VideoRef, error) {
	return dm.videos.FindVideo(id)
}

// Modes lists the download modes offered for a video
func (dm *DownloadManager) Modes(video *domain.VideoRef) []domain.DownloadMode {
	return AvailableModes(video.Streams, dm.MergeAvailable())
}

// CreateJob validates a download request against a fetched video and stores
// a pending job. Nothing is downloaded yet.
func (dm *DownloadManager) CreateJob(videoID string, req DownloadRequest) (*domain.DownloadJob, error) {
	video, err := dm.videos.FindVideo(videoID)
	if err != nil {
		return nil, err
	}

	if !domain.ValidateMode(req.Mode) {
		return nil, fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidSelection, req.Mode)
	}
	if req.Mode.NeedsMerge() && !dm.MergeAvailable() {
		return nil, domain.ErrMergeToolMissing
	}

	offered := false
	for _, m := range dm.Modes(video) {
		if m == req.Mode {
			offered = true
			break
		}
	}
	if !offered {
		return nil, fmt.Errorf("%w: %s", domain.ErrModeNotAvailable, req.Mode)
	}

	sel, err := SelectStreams(video.Streams, req)
	if err != nil {
		return nil, err
	}

	job := domain.NewDownloadJob(video, req.Mode)
	job.VideoItag = sel.Video.Itag
	job.AudioItag = sel.Audio.Itag
	job.StreamItag = sel.Progressive.Itag

	if err := dm.repo.Create(job); err != nil {
		return nil, fmt.Errorf("failed to create download: %w", err)
	}

	dm.logEvent("job_created",
		zap.String("id", job.ID),
		zap.String("video_id", video.VideoID),
		zap.String("mode", string(job.Mode)),
		zap.Int("video_itag", job.VideoItag),
		zap.Int("audio_itag", job.AudioItag),
		zap.Int("itag", job.StreamItag))
	return job, nil
}

// Start runs a job's pipeline on its own goroutine. The job is copied; use
// GetJob or Subscribe to follow it.
func (dm *DownloadManager) Start(job *domain.DownloadJob) error {
	ctx, cancel := context.WithCancel(dm.baseCtx)
	if err := dm.track(job, cancel); err != nil {
		cancel()
		return err
	}

	dm.wg.Add(1)
	go func() {
		defer dm.wg.Done()
		defer cancel()
		dm.run(ctx, job.ID)
	}()
	return nil
}

// Run executes a job's pipeline on the calling goroutine
func (dm *DownloadManager) Run(ctx context.Context, job *domain.DownloadJob) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := dm.track(job, cancel); err != nil {
		return err
	}
	return dm.run(ctx, job.ID)
}

// Cancel stops a running job. A job left active by a previous process is
// marked cancelled directly.
func (dm *DownloadManager) Cancel(id string) error {
	dm.mu.Lock()
	lj, ok := dm.live[id]
	dm.mu.Unlock()
	if ok {
		lj.cancel()
		dm.logger.Info("Download cancellation requested", zap.String("id", id))
		return nil
	}

	job, err := dm.repo.FindByID(id)
	if err != nil {
		return err
	}
	if job.IsTerminal() {
		return fmt.Errorf("%w: %s", domain.ErrJobFinished, job.Status)
	}

	job.MarkCancelled()
	if err := dm.repo.Update(job); err != nil {
		return fmt.Errorf("failed to update download: %w", err)
	}
	dm.logEvent("job_cancelled", zap.String("id", id))
	return nil
}

// GetJob returns a snapshot of a job
func (dm *DownloadManager) GetJob(id string) (*domain.DownloadJob, error) {
	dm.mu.Lock()
	if lj, ok := dm.live[id]; ok {
		snap := *lj.job
		dm.mu.Unlock()
		return &snap, nil
	}
	dm.mu.Unlock()
	return dm.repo.FindByID(id)
}

// ListJobs lists downloads with optional filters, newest first
func (dm *DownloadManager) ListJobs(filters map[string]interface{}) ([]*domain.DownloadJob, error) {
	jobs, err := dm.repo.FindAll(filters)
	if err != nil {
		return nil, err
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()
	for i, job := range jobs {
		if lj, ok := dm.live[job.ID]; ok {
			snap := *lj.job
			jobs[i] = &snap
		}
	}
	return jobs, nil
}

// Stats returns download statistics
func (dm *DownloadManager) Stats() (*domain.DownloadStats, error) {
	return dm.repo.GetStats()
}

// Subscribe streams snapshots of a job. The channel receives the current
// state immediately and is closed once the job reaches a terminal state.
// Only the latest snapshot is buffered. Call stop to unsubscribe early.
func (dm *DownloadManager) Subscribe(id string) (<-chan domain.DownloadJob, func(), error) {
	dm.mu.Lock()
	if lj, ok := dm.live[id]; ok {
		ch := make(chan domain.DownloadJob, 1)
		ch <- *lj.job
		lj.subscribers[ch] = struct{}{}
		dm.mu.Unlock()

		stop := func() {
			dm.mu.Lock()
			defer dm.mu.Unlock()
			if _, ok := lj.subscribers[ch]; ok {
				delete(lj.subscribers, ch)
				close(ch)
			}
		}
		return ch, stop, nil
	}
	dm.mu.Unlock()

	job, err := dm.repo.FindByID(id)
	if err != nil {
		return nil, nil, err
	}
	ch := make(chan domain.DownloadJob, 1)
	ch <- *job
	close(ch)
	return ch, func() {}, nil
}

// OpenArtifact resolves how a completed job's file is handed to the user
func (dm *DownloadManager) OpenArtifact(ctx context.Context, id string) (*Delivery, error) {
	job, err := dm.GetJob(id)
	if err != nil {
		return nil, err
	}
	if !job.HasArtifact() {
		return nil, fmt.Errorf("%w: status %s", domain.ErrJobNotDeliverable, job.Status)
	}

	artifact := artifactOf(job)
	url, err := dm.store.Link(ctx, artifact)
	if err != nil {
		return nil, err
	}
	if url != "" {
		return &Delivery{Job: *job, Name: job.FileName, URL: url}, nil
	}

	info, err := os.Stat(job.FilePath)
	if err != nil || info.Size() == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrArtifactMissing, job.FileName)
	}
	return &Delivery{Job: *job, Path: job.FilePath, Name: job.FileName}, nil
}

// MarkDelivered deletes a handed-off artifact and records the delivery
func (dm *DownloadManager) MarkDelivered(ctx context.Context, id string) error {
	job, err := dm.repo.FindByID(id)
	if err != nil {
		return err
	}
	if !job.HasArtifact() {
		return fmt.Errorf("%w: status %s", domain.ErrJobNotDeliverable, job.Status)
	}

	if err := dm.store.Remove(ctx, artifactOf(job)); err != nil {
		dm.logger.Warn("Failed to remove delivered artifact", zap.String("id", id), zap.Error(err))
	}
	os.RemoveAll(dm.config.JobOutputDir(id))

	job.MarkDelivered()
	if err := dm.repo.Update(job); err != nil {
		return fmt.Errorf("failed to update download: %w", err)
	}

	dm.logEvent("job_delivered", zap.String("id", id), zap.String("file", job.FileName))
	return nil
}

// DeleteJob cancels a running job, removes its artifact and forgets it
func (dm *DownloadManager) DeleteJob(ctx context.Context, id string) error {
	ch, stop, err := dm.Subscribe(id)
	if err != nil {
		return err
	}
	defer stop()

	dm.mu.Lock()
	_, running := dm.live[id]
	dm.mu.Unlock()
	if running {
		dm.Cancel(id)
		if err := drain(ctx, ch); err != nil {
			return err
		}
	}

	job, err := dm.repo.FindByID(id)
	if err != nil {
		return err
	}
	if job.HasArtifact() {
		if err := dm.store.Remove(ctx, artifactOf(job)); err != nil {
			dm.logger.Warn("Failed to remove artifact", zap.String("id", id), zap.Error(err))
		}
	}
	os.RemoveAll(dm.config.JobOutputDir(id))
	os.RemoveAll(dm.config.JobTempDir(id))

	if err := dm.repo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete download: %w", err)
	}
	dm.logEvent("job_deleted", zap.String("id", id))
	return nil
}

// Recover fails jobs a previous process left active. Their temp files are
// removed by the janitor.
func (dm *DownloadManager) Recover() error {
	n, err := dm.repo.FailOrphaned("Download error: interrupted by a server restart.")
	if err != nil {
		return fmt.Errorf("failed to recover downloads: %w", err)
	}
	if n > 0 {
		dm.logger.Warn("Marked interrupted downloads as failed", zap.Int64("count", n))
	}
	return nil
}

// Shutdown cancels every running job and waits for their pipelines to clean up
func (dm *DownloadManager) Shutdown(ctx context.Context) error {
	dm.cancelAll()

	done := make(chan struct{})
	go func() {
		dm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// isLive reports whether a job's pipeline is running in this process
func (dm *DownloadManager) isLive(id string) bool {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	_, ok := dm.live[id]
	return ok
}

// track registers a job as running
func (dm *DownloadManager) track(job *domain.DownloadJob, cancel context.CancelFunc) error {
	if job.IsTerminal() {
		return fmt.Errorf("%w: %s", domain.ErrJobFinished, job.Status)
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()
	if _, ok := dm.live[job.ID]; ok {
		return fmt.Errorf("download %s is already running", job.ID)
	}
	owned := *job
	dm.live[job.ID] = &liveJob{
		job:         &owned,
		cancel:      cancel,
		phaseStart:  time.Now(),
		subscribers: make(map[chan domain.DownloadJob]struct{}),
	}
	return nil
}

// untrack forgets a finished job and closes its subscriptions
func (dm *DownloadManager) untrack(id string) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	lj, ok := dm.live[id]
	if !ok {
		return
	}
	for ch := range lj.subscribers {
		close(ch)
		delete(lj.subscribers, ch)
	}
	delete(dm.live, id)
}

// mutate applies fn to a running job, fans the new snapshot out to
// subscribers and optionally persists it
func (dm *DownloadManager) mutate(id string, persist bool, fn func(job *domain.DownloadJob, lj *liveJob)) domain.DownloadJob {
	dm.mu.Lock()
	lj, ok := dm.live[id]
	if !ok {
		dm.mu.Unlock()
		return domain.DownloadJob{}
	}
	fn(lj.job, lj)
	snap := *lj.job
	for ch := range lj.subscribers {
		// keep only the newest snapshot for slow readers
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
	dm.mu.Unlock()

	if persist {
		if err := dm.repo.Update(&snap); err != nil {
			dm.logger.Error("Failed to update download status", zap.String("id", id), zap.Error(err))
		}
	}
	return snap
}

func (dm *DownloadManager) snapshot(id string) domain.DownloadJob {
	return dm.mutate(id, false, func(*domain.DownloadJob, *liveJob) {})
}

func (dm *DownloadManager) logEvent(event string, fields ...zap.Field) {
	if dm.events != nil {
		dm.events.LogJobEvent(event, fields...)
	}
}

func (dm *DownloadManager) logAppError(msg string, fields ...zap.Field) {
	if dm.events != nil {
		dm.events.LogAppError(msg, fields...)
	}
}

// drain consumes snapshots until the subscription closes
func drain(ctx context.Context, ch <-chan domain.DownloadJob) error {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func artifactOf(job *domain.DownloadJob) *domain.Artifact {
	return &domain.Artifact{
		Path: job.FilePath,
		Name: job.FileName,
		Size: job.FileSize,
		Key:  job.ArtifactKey,
		URL:  job.ArtifactURL,
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}
