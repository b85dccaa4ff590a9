package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testVideo() *VideoRef {
	return NewVideoRef("https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", "Never Gonna Give You Up", StreamCatalog{})
}

func TestNewDownloadJob(t *testing.T) {
	video := testVideo()

	job := NewDownloadJob(video, ModeAuto)

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, video.ID, job.VideoRefID)
	assert.Equal(t, video.URL, job.URL)
	assert.Equal(t, video.Title, job.Title)
	assert.Equal(t, ModeAuto, job.Mode)
	assert.Equal(t, StatusPending, job.Status)
	assert.True(t, job.IsActive())
}

func TestDownloadJob_MarkDownloading(t *testing.T) {
	job := NewDownloadJob(testVideo(), ModeAuto)
	job.Progress.Percent = 80

	job.MarkDownloading("Downloading Video")
	started := job.StartedAt

	assert.Equal(t, StatusDownloading, job.Status)
	assert.Equal(t, "Downloading Video", job.Phase)
	assert.Equal(t, 0, job.Progress.Percent)
	assert.NotNil(t, started)

	job.MarkDownloading("Downloading Audio")
	assert.Same(t, started, job.StartedAt)
}

func TestDownloadJob_MarkCompleted(t *testing.T) {
	job := NewDownloadJob(testVideo(), ModeManual)

	job.MarkCompleted(&Artifact{Path: "/tmp/a.mp4", Name: "a.mp4", Size: 42})

	assert.Equal(t, StatusCompleted, job.Status)
	assert.Equal(t, "/tmp/a.mp4", job.FilePath)
	assert.Equal(t, "a.mp4", job.FileName)
	assert.Equal(t, int64(42), job.FileSize)
	assert.Equal(t, "Merge OK!", job.MergeStatus)
	assert.NotNil(t, job.CompletedAt)
	assert.True(t, job.HasArtifact())
}

func TestDownloadJob_MarkFailed(t *testing.T) {
	job := NewDownloadJob(testVideo(), ModeProgressive)
	job.FilePath = "/tmp/partial.mp4"

	job.MarkFailed(fmt.Errorf("fetching stream: %w", ErrNetwork))

	assert.Equal(t, StatusFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "Download error")
	assert.Empty(t, job.FilePath)
	assert.False(t, job.HasArtifact())
}

func TestDownloadJob_IsTerminal(t *testing.T) {
	job := NewDownloadJob(testVideo(), ModeAuto)

	assert.False(t, job.IsTerminal())

	for _, status := range []DownloadStatus{StatusDownloading, StatusMerging} {
		job.Status = status
		assert.False(t, job.IsTerminal(), status)
	}
	for _, status := range []DownloadStatus{StatusCompleted, StatusFailed, StatusCancelled, StatusDelivered, StatusExpired} {
		job.Status = status
		assert.True(t, job.IsTerminal(), status)
	}
}

func TestDownloadJob_MarkDelivered(t *testing.T) {
	job := NewDownloadJob(testVideo(), ModeAuto)
	job.MarkCompleted(&Artifact{Path: "/tmp/a.mp4", Name: "a.mp4", Size: 1})

	job.MarkDelivered()

	assert.Equal(t, StatusDelivered, job.Status)
	assert.False(t, job.HasArtifact())
	assert.Equal(t, "a.mp4", job.FileName)
}

func TestValidateMode(t *testing.T) {
	assert.True(t, ValidateMode(ModeAuto))
	assert.True(t, ValidateMode(ModeManual))
	assert.True(t, ValidateMode(ModeProgressive))
	assert.False(t, ValidateMode("invalid"))
}

func TestDownloadMode_NeedsMerge(t *testing.T) {
	assert.True(t, ModeAuto.NeedsMerge())
	assert.True(t, ModeManual.NeedsMerge())
	assert.False(t, ModeProgressive.NeedsMerge())
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err      error
		contains string
	}{
		{fmt.Errorf("%w: foo", ErrInvalidURL), "Invalid YouTube URL"},
		{fmt.Errorf("resolve: %w", ErrVideoUnavailable), "Video unavailable"},
		{ErrNoStreams, "No streams available"},
		{ErrMergeToolMissing, "FFmpeg not found"},
		{fmt.Errorf("%w: codec not supported", ErrMergeFailed), "Merge failed: codec not supported"},
		{errors.New("boom"), "Download error: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.contains, func(t *testing.T) {
			assert.Contains(t, UserMessage(tt.err), tt.contains)
		})
	}
	assert.Empty(t, UserMessage(nil))
}
