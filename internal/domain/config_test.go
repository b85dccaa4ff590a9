package domain

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.NotNil(t, config)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 8501, config.Server.Port)
	assert.Equal(t, "temp", config.Download.TempDirName)
	assert.Equal(t, time.Hour, config.Download.ArtifactTTL)
	assert.Equal(t, 500*time.Millisecond, config.Download.ProgressInterval)
	assert.Equal(t, "ffmpeg", config.Merge.FFmpegBinary)
	assert.Equal(t, StorageLocal, config.Storage.Backend)
	assert.False(t, config.Notification.Enabled)
	assert.Equal(t, "info", config.Logging.Level)
}

func TestDownloadConfig_Dirs(t *testing.T) {
	config := DownloadConfig{BaseDir: "/data/downloads", TempDirName: "temp"}

	assert.Equal(t, filepath.Join("/data/downloads", "temp"), config.TempDir())
	assert.Equal(t, filepath.Join("/data/downloads", "temp", "job-1"), config.JobTempDir("job-1"))
	assert.Equal(t, filepath.Join("/data/downloads", "job-1"), config.JobOutputDir("job-1"))
}
