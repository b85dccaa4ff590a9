package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/yourusername/tubefetch/internal/domain"
	"github.com/yourusername/tubefetch/pkg/logger"
	"go.uber.org/zap"
)

// Janitor periodically deletes artifacts nobody retrieved, stale temp files
// and old fetched videos. It never downloads anything.
type Janitor struct {
	manager     *DownloadManager
	ttl         time.Duration
	interval    time.Duration
	multiLogger *logger.MultiLogger
	mu          sync.RWMutex
	running     bool
	stopChan    chan struct{}
	wg          sync.WaitGroup
}

// SweepResult counts what one janitor pass removed
type SweepResult struct {
	Expired   int
	TempFiles int
	Videos    int64
}

// NewJanitor creates a new janitor
func NewJanitor(manager *DownloadManager, config *domain.DownloadConfig, multiLogger *logger.MultiLogger) *Janitor {
	return &Janitor{
		manager:     manager,
		ttl:         config.ArtifactTTL,
		interval:    config.JanitorInterval,
		multiLogger: multiLogger,
	}
}

// Start starts the cleanup loop
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return fmt.Errorf("janitor already running")
	}
	j.running = true
	j.stopChan = make(chan struct{})

	if j.multiLogger != nil {
		j.multiLogger.LogJobEvent("janitor_started",
			zap.Duration("ttl", j.ttl),
			zap.Duration("interval", j.interval))
	}

	j.wg.Add(1)
	go j.loop(ctx, j.stopChan)
	return nil
}

// Stop stops the cleanup loop and waits for a running pass to end
func (j *Janitor) Stop() error {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return fmt.Errorf("janitor not running")
	}
	j.running = false
	close(j.stopChan)
	j.mu.Unlock()

	j.wg.Wait()
	return nil
}

// IsRunning returns whether the cleanup loop is running
func (j *Janitor) IsRunning() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.running
}

// Sweep runs one cleanup pass
func (j *Janitor) Sweep(ctx context.Context) SweepResult {
	cutoff := time.Now().Add(-j.ttl)
	var result SweepResult
	var err error

	if result.Expired, err = j.manager.ExpireUnclaimed(ctx, cutoff); err != nil {
		j.logError("Failed to expire unclaimed artifacts", err)
	}
	if result.TempFiles, err = j.manager.SweepTemp(cutoff); err != nil {
		j.logError("Failed to sweep temp directory", err)
	}
	if result.Videos, err = j.manager.PruneVideos(cutoff); err != nil {
		j.logError("Failed to prune fetched videos", err)
	}

	if j.multiLogger != nil && (result.Expired > 0 || result.TempFiles > 0 || result.Videos > 0) {
		j.multiLogger.LogJobEvent("janitor_sweep",
			zap.Int("expired", result.Expired),
			zap.Int("temp_files", result.TempFiles),
			zap.Int64("videos", result.Videos))
	}
	return result
}

func (j *Janitor) loop(ctx context.Context, stop <-chan struct{}) {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

func (j *Janitor) logError(msg string, err error) {
	j.manager.logger.Warn(msg, zap.Error(err))
	if j.multiLogger != nil {
		j.multiLogger.LogAppError(msg, zap.Error(err))
	}
}

// ExpireUnclaimed deletes artifacts of jobs completed before cutoff that were
// never retrieved and marks the jobs expired
func (dm *DownloadManager) ExpireUnclaimed(ctx context.Context, cutoff time.Time) (int, error) {
	jobs, err := dm.repo.FindUnclaimed(cutoff)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, job := range jobs {
		if err := dm.store.Remove(ctx, artifactOf(job)); err != nil {
			dm.logger.Warn("Failed to remove unclaimed artifact", zap.String("id", job.ID), zap.Error(err))
			continue
		}
		os.RemoveAll(dm.config.JobOutputDir(job.ID))

		job.MarkExpired()
		if err := dm.repo.Update(job); err != nil {
			return expired, fmt.Errorf("failed to update download: %w", err)
		}
		expired++
		dm.logEvent("job_expired", zap.String("id", job.ID), zap.String("file", job.FileName))
	}
	return expired, nil
}

// SweepTemp removes scratch directories not modified since cutoff that no
// running job owns
func (dm *DownloadManager) SweepTemp(cutoff time.Time) (int, error) {
	tempRoot := dm.config.TempDir()
	entries, err := os.ReadDir(tempRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if dm.isLive(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(tempRoot, entry.Name())); err != nil {
			dm.logger.Warn("Failed to remove stale temp entry", zap.String("name", entry.Name()), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

// PruneVideos deletes fetched videos older than cutoff that no active job uses
func (dm *DownloadManager) PruneVideos(cutoff time.Time) (int64, error) {
	return dm.videos.DeleteVideosBefore(cutoff)
}
