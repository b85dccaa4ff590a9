package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/yourusername/tubefetch/internal/domain"
	"github.com/yourusername/tubefetch/internal/infrastructure"
	"github.com/yourusername/tubefetch/pkg/logger"
	"go.uber.org/zap"
)

// Services is the wired download stack shared by the server and the CLI
type Services struct {
	Manager *DownloadManager
	Events  *logger.MultiLogger
	Merger  *infrastructure.FFmpegMerger

	closers []func() error
}

// NewServices creates directories, opens the database and wires the stream
// source, merge tool and artifact store into a download manager
func NewServices(ctx context.Context, config *domain.Config, log *zap.Logger) (*Services, error) {
	for _, dir := range []string{config.Download.BaseDir, config.Download.LogsDir, filepath.Dir(config.Database.Path)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	s := &Services{}

	events, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   config.Logging.Level,
		LogsDir: config.Download.LogsDir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize event logger: %w", err)
	}
	s.Events = events
	s.closers = append(s.closers, events.Close)

	repo, err := infrastructure.NewSQLiteRepository(config.Database.Path)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to initialize repository: %w", err)
	}
	s.closers = append(s.closers, repo.Close)

	source, err := infrastructure.NewYouTubeSource(&config.YouTube, config.Download.ProgressInterval, log)
	if err != nil {
		s.Close()
		return nil, err
	}

	store, err := infrastructure.NewArtifactStore(ctx, &config.Storage, log)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to initialize artifact store: %w", err)
	}
	if c, ok := store.(io.Closer); ok {
		s.closers = append(s.closers, c.Close)
	}

	s.Merger = infrastructure.NewFFmpegMerger(&config.Merge, config.Download.LogsDir, log)
	if !s.Merger.Available() {
		log.Warn("FFmpeg not found, only progressive downloads are offered",
			zap.String("binary", config.Merge.FFmpegBinary))
	}

	s.Manager = NewDownloadManager(repo, repo, source, s.Merger, store, &config.Download, log)
	s.Manager.SetEventLogger(events)
	s.Manager.SetNotifier(infrastructure.NewDesktopNotifier(&config.Notification, log))

	return s, nil
}

// Close releases the database, the artifact store and the log files
func (s *Services) Close() error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}
