package app

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/yourusername/tubefetch/internal/domain"
	"go.uber.org/zap"
)

// Phase labels shown while a job runs
const (
	PhaseDownloading      = "Downloading"
	PhaseDownloadingVideo = "Downloading Video"
	PhaseDownloadingAudio = "Downloading Audio"
)

// run executes a tracked job to a terminal state. Temp files are always
// removed; on failure no artifact is left in the downloads directory.
func (dm *DownloadManager) run(ctx context.Context, id string) (err error) {
	job := dm.snapshot(id)
	tempDir := dm.config.JobTempDir(id)
	outDir := dm.config.JobOutputDir(id)

	var artifact *domain.Artifact
	defer func() {
		dm.cleanupTemp(tempDir)
		if err != nil {
			os.RemoveAll(outDir)
		}
		dm.finish(id, artifact, err)
	}()

	dm.logger.Info("Processing download",
		zap.String("id", id),
		zap.String("url", job.URL),
		zap.String("mode", string(job.Mode)))
	dm.logEvent("job_started", zap.String("id", id), zap.String("mode", string(job.Mode)))

	video, err := dm.videos.FindVideo(job.VideoRefID)
	if err != nil {
		return err
	}

	for _, dir := range []string{tempDir, outDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	base := domain.SanitizeFilename(video.Title)
	var finalPath, name string
	if job.Mode == domain.ModeProgressive {
		finalPath, name, err = dm.runProgressive(ctx, &job, video, base, tempDir, outDir)
	} else {
		finalPath, name, err = dm.runMerged(ctx, &job, video, base, tempDir, outDir)
	}
	if err != nil {
		return err
	}

	info, statErr := os.Stat(finalPath)
	if statErr != nil || info.Size() == 0 {
		if job.Mode.NeedsMerge() {
			return fmt.Errorf("%w: output file missing or empty", domain.ErrMergeFailed)
		}
		return fmt.Errorf("%w: %s", domain.ErrArtifactMissing, name)
	}

	published := &domain.Artifact{
		Path: finalPath,
		Name: name,
		Size: info.Size(),
		Key:  path.Join(id, name),
	}
	if err := dm.store.Publish(ctx, published); err != nil {
		return fmt.Errorf("failed to publish artifact: %w", err)
	}
	artifact = published
	return nil
}

// runProgressive fetches a single muxed stream and moves it into place
func (dm *DownloadManager) runProgressive(ctx context.Context, job *domain.DownloadJob, video *domain.VideoRef, base, tempDir, outDir string) (string, string, error) {
	stream, ok := video.Streams.Find(domain.KindProgressive, job.StreamItag)
	if !ok {
		return "", "", fmt.Errorf("%w: itag %d", domain.ErrInvalidSelection, job.StreamItag)
	}

	name := domain.ProgressiveFileName(base, stream)
	tempPath := filepath.Join(tempDir, name)
	finalPath := filepath.Join(outDir, name)

	dm.setPhase(job.ID, PhaseDownloading)
	if err := dm.source.Download(ctx, job.URL, stream.Itag, tempPath, dm.progressFunc(job.ID)); err != nil {
		return "", "", err
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		return "", "", fmt.Errorf("failed to move download into place: %w", err)
	}
	return finalPath, name, nil
}

// runMerged fetches video then audio and merges them with the merge tool
func (dm *DownloadManager) runMerged(ctx context.Context, job *domain.DownloadJob, video *domain.VideoRef, base, tempDir, outDir string) (string, string, error) {
	if !dm.MergeAvailable() {
		return "", "", domain.ErrMergeToolMissing
	}

	videoStream, ok := video.Streams.Find(domain.KindVideo, job.VideoItag)
	if !ok {
		return "", "", fmt.Errorf("%w: video itag %d", domain.ErrInvalidSelection, job.VideoItag)
	}
	audioStream, ok := video.Streams.Find(domain.KindAudio, job.AudioItag)
	if !ok {
		return "", "", fmt.Errorf("%w: audio itag %d", domain.ErrInvalidSelection, job.AudioItag)
	}

	videoName, audioName := domain.TempFileNames(base, audioStream)
	videoPath := filepath.Join(tempDir, videoName)
	audioPath := filepath.Join(tempDir, audioName)
	name := domain.MergedFileName(base, videoStream, audioStream)
	finalPath := filepath.Join(outDir, name)

	dm.setPhase(job.ID, PhaseDownloadingVideo)
	if err := dm.source.Download(ctx, job.URL, videoStream.Itag, videoPath, dm.progressFunc(job.ID)); err != nil {
		return "", "", err
	}

	dm.setPhase(job.ID, PhaseDownloadingAudio)
	if err := dm.source.Download(ctx, job.URL, audioStream.Itag, audioPath, dm.progressFunc(job.ID)); err != nil {
		return "", "", err
	}

	dm.mutate(job.ID, true, func(j *domain.DownloadJob, _ *liveJob) {
		j.MarkMerging()
	})
	if err := dm.merger.Merge(ctx, videoPath, audioPath, finalPath); err != nil {
		return "", "", err
	}
	return finalPath, name, nil
}

// setPhase enters a download phase and resets progress
func (dm *DownloadManager) setPhase(id, phase string) {
	dm.mutate(id, true, func(j *domain.DownloadJob, lj *liveJob) {
		j.MarkDownloading(phase)
		lj.phaseStart = time.Now()
	})
}

// progressFunc records byte progress, speed and ETA for the current phase
func (dm *DownloadManager) progressFunc(id string) domain.ProgressFunc {
	return func(done, total int64) {
		dm.mutate(id, false, func(j *domain.DownloadJob, lj *liveJob) {
			p := domain.Progress{BytesDone: done, BytesTotal: total}
			if total > 0 {
				p.Percent = int(done * 100 / total)
				if p.Percent > 100 {
					p.Percent = 100
				}
			}
			if elapsed := time.Since(lj.phaseStart).Seconds(); elapsed > 0 {
				p.SpeedBps = float64(done) / elapsed
				if total > done && p.SpeedBps > 0 {
					p.ETASeconds = int(float64(total-done) / p.SpeedBps)
				}
			}
			j.Progress = p
		})
	}
}

// finish records the outcome, notifies and releases the job
func (dm *DownloadManager) finish(id string, artifact *domain.Artifact, err error) {
	job := dm.mutate(id, true, func(j *domain.DownloadJob, _ *liveJob) {
		switch {
		case err == nil:
			j.MarkCompleted(artifact)
		case isCancellation(err):
			j.MarkCancelled()
		default:
			j.MarkFailed(err)
		}
	})
	dm.untrack(id)

	switch {
	case err == nil:
		dm.logger.Info("Download completed",
			zap.String("id", id),
			zap.String("file", job.FileName),
			zap.Int64("size", job.FileSize))
		dm.logEvent("job_completed",
			zap.String("id", id),
			zap.String("file", job.FileName),
			zap.Int64("size", job.FileSize),
			zap.String("store", dm.store.Name()))
		if dm.notifier != nil {
			dm.notifier.NotifyDownloadCompleted(job.Title)
		}
	case isCancellation(err):
		dm.logger.Info("Download cancelled", zap.String("id", id))
		dm.logEvent("job_cancelled", zap.String("id", id))
	default:
		dm.logger.Error("Download failed", zap.String("id", id), zap.Error(err))
		dm.logEvent("job_failed", zap.String("id", id), zap.String("message", job.ErrorMessage))
		dm.logAppError("Download failed", zap.String("id", id), zap.Error(err))
		if dm.notifier != nil {
			dm.notifier.NotifyDownloadFailed(job.Title, err)
		}
	}
}

// cleanupTemp removes a job's scratch directory. The shared temp root stays:
// other jobs create their directories under it concurrently.
func (dm *DownloadManager) cleanupTemp(tempDir string) {
	if err := os.RemoveAll(tempDir); err != nil {
		dm.logger.Warn("Failed to remove temp files", zap.String("dir", tempDir), zap.Error(err))
	}
}
