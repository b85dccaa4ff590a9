package infrastructure

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/yourusername/tubefetch/internal/domain"
	"go.uber.org/zap"
)

const maxStderrLen = 200

// FFmpegMerger implements Merger by running ffmpeg as a subprocess
type FFmpegMerger struct {
	binary  string
	logsDir string
	logger  *zap.Logger

	lookOnce  sync.Once
	available bool
	path      string
}

// NewFFmpegMerger creates a new ffmpeg merger
func NewFFmpegMerger(config *domain.MergeConfig, logsDir string, logger *zap.Logger) *FFmpegMerger {
	binary := config.FFmpegBinary
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegMerger{
		binary:  binary,
		logsDir: logsDir,
		logger:  logger,
	}
}

// Available reports whether ffmpeg is on the PATH. The lookup runs once per process.
func (m *FFmpegMerger) Available() bool {
	m.lookOnce.Do(func() {
		path, err := exec.LookPath(m.binary)
		if err != nil {
			m.logger.Warn("FFmpeg not found, merge modes disabled",
				zap.String("binary", m.binary),
				zap.Error(err))
			return
		}
		m.available = true
		m.path = path
		m.logger.Info("FFmpeg found", zap.String("path", path))
	})
	return m.available
}

// Merge stream-copies the video and audio tracks into out
func (m *FFmpegMerger) Merge(ctx context.Context, videoPath, audioPath, out string) error {
	if !m.Available() {
		return domain.ErrMergeToolMissing
	}

	args := []string{
		"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-c", "copy",
		"-loglevel", "error",
		out,
	}

	mergeLog, err := m.openLogFile()
	if err != nil {
		m.logger.Warn("Failed to open merge log", zap.Error(err))
	} else {
		defer mergeLog.Close()
	}

	cmdLine := CommandLine(m.path, args...)
	m.writeLogHeader(mergeLog, filepath.Base(out), cmdLine)
	m.logger.Debug("Running merge", zap.String("command", cmdLine))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, m.path, args...)
	if mergeLog != nil {
		cmd.Stdout = mergeLog
		cmd.Stderr = io.MultiWriter(&stderr, mergeLog)
	} else {
		cmd.Stderr = &stderr
	}

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			m.writeLogFooter(mergeLog, false, "cancelled")
			return ctxErr
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		if r := []rune(detail); len(r) > maxStderrLen {
			detail = string(r[:maxStderrLen])
		}
		m.writeLogFooter(mergeLog, false, err.Error())
		return fmt.Errorf("%w: %s", domain.ErrMergeFailed, detail)
	}

	m.writeLogFooter(mergeLog, true, out)
	return nil
}

// openLogFile opens the merge log file for today
func (m *FFmpegMerger) openLogFile() (*os.File, error) {
	if m.logsDir == "" {
		return nil, fmt.Errorf("no logs directory configured")
	}
	if err := os.MkdirAll(m.logsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	dateStr := time.Now().Format("20060102")
	return os.OpenFile(filepath.Join(m.logsDir, "merge-"+dateStr+".log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

func (m *FFmpegMerger) writeLogHeader(file *os.File, name, cmdLine string) {
	if file == nil {
		return
	}
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(file, "\n=== [%s] Merge: %s ===\n", timestamp, name)
	fmt.Fprintf(file, "$ %s\n", cmdLine)
}

func (m *FFmpegMerger) writeLogFooter(file *os.File, success bool, message string) {
	if file == nil {
		return
	}
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	status := "SUCCESS"
	if !success {
		status = "FAILED"
	}
	fmt.Fprintf(file, "[%s] %s: %s\n", timestamp, status, message)
	file.WriteString("=== END ===\n\n")
}
