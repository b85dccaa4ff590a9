package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	log, err := New(Config{Level: "debug", Format: "json", OutputPath: path})
	require.NoError(t, err)
	log.Debug("hello", zap.String("k", "v"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"k":"v"`)
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	log, err := New(Config{Level: "loud", Format: "console", OutputPath: path})
	require.NoError(t, err)
	log.Debug("hidden")
	log.Info("shown")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
	assert.NotContains(t, string(data), "\x1b[", "no color codes in files")
}

func TestMultiLogger_WritesAndReadsBack(t *testing.T) {
	dir := t.TempDir()
	ml, err := NewMultiLogger(MultiLoggerConfig{Level: "info", LogsDir: dir})
	require.NoError(t, err)

	ml.LogJobEvent("job_completed", zap.String("job_id", "abc"), zap.Int64("size", 42))
	ml.LogAppError("merge exploded", zap.String("job_id", "def"))
	require.NoError(t, ml.Close())

	reader := NewLogReader(dir)

	jobs, err := reader.ReadLogs(CategoryJob, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "job_completed", jobs[0].Message)
	assert.Equal(t, "info", jobs[0].Level)
	assert.NotEmpty(t, jobs[0].Timestamp)
	assert.Equal(t, "abc", jobs[0].Fields["job_id"])

	errs, err := reader.ReadLogs(CategoryError, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "error", errs[0].Level)

	found, err := reader.SearchLogs(CategoryJob, time.Now(), "ABC", 0)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	found, err = reader.SearchLogs(CategoryJob, time.Now(), "zzz", 0)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestLogReader_PlainLinesAndLimit(t *testing.T) {
	dir := t.TempDir()
	reader := NewLogReader(dir)
	content := "=== [2026-01-01 10:00:00] Merge: a.mp4 ===\n$ ffmpeg -y\n\n=== END ===\n"
	require.NoError(t, os.WriteFile(reader.GetLogPath(CategoryMerge, time.Now()), []byte(content), 0644))

	entries, err := reader.ReadLogs(CategoryMerge, time.Now(), 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "$ ffmpeg -y", entries[0].Message)
	assert.Equal(t, "merge", entries[0].Category)

	missing, err := reader.ReadLogs(CategoryJob, time.Now().AddDate(0, 0, -30), 10)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestLogReader_TailLogs(t *testing.T) {
	dir := t.TempDir()
	reader := NewLogReader(dir)
	reader.pollInterval = 10 * time.Millisecond
	path := reader.GetLogPath(CategoryMerge, time.Now())
	require.NoError(t, os.WriteFile(path, []byte("old line\n"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	entries := make(chan LogEntry, 4)
	done := make(chan error, 1)
	go func() { done <- reader.TailLogs(ctx, CategoryMerge, entries) }()

	require.Eventually(t, func() bool {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return false
		}
		f.WriteString("new line\n")
		f.Close()
		select {
		case e := <-entries:
			return e.Message == "new line"
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("merge")
	require.NoError(t, err)
	assert.Equal(t, CategoryMerge, c)

	_, err = ParseCategory("queue")
	assert.Error(t, err)
}
