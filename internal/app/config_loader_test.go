package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/tubefetch/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
download:
  base_dir: /data/tubefetch
  artifact_ttl: 1d12h
  janitor_interval: 10m
storage:
  backend: s3
  url_expiry: 30m
  s3:
    bucket: videos
    region: eu-west-1
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, "/data/tubefetch", config.Download.BaseDir)
	assert.Equal(t, 36*time.Hour, config.Download.ArtifactTTL)
	assert.Equal(t, 10*time.Minute, config.Download.JanitorInterval)
	assert.Equal(t, domain.StorageS3, config.Storage.Backend)
	assert.Equal(t, "videos", config.Storage.S3.Bucket)
	assert.Equal(t, 30*time.Minute, config.Storage.URLExpiry)

	// untouched keys keep their defaults
	assert.Equal(t, "temp", config.Download.TempDirName)
	assert.Equal(t, 500*time.Millisecond, config.Download.ProgressInterval)
	assert.Equal(t, "ffmpeg", config.Merge.FFmpegBinary)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")
	t.Setenv("TUBEFETCH_SERVER_PORT", "9100")
	t.Setenv("TUBEFETCH_DOWNLOAD_ARTIFACT_TTL", "2h")
	t.Setenv("TUBEFETCH_MERGE_FFMPEG_BINARY", "/opt/ffmpeg/bin/ffmpeg")

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, config.Server.Port)
	assert.Equal(t, 2*time.Hour, config.Download.ArtifactTTL)
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", config.Merge.FFmpegBinary)
}

func TestLoadConfig_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := writeConfig(t, "download:\n  base_dir: $HOME/videos\n")

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "videos"), config.Download.BaseDir)
	assert.Equal(t, filepath.Join(home, ".tubefetch", "tubefetch.db"), config.Database.Path)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"port out of range", "server:\n  port: 70000\n"},
		{"temp dir is a path", "download:\n  temp_dir_name: ../tmp\n"},
		{"zero ttl", "download:\n  artifact_ttl: 0s\n"},
		{"bad duration", "download:\n  janitor_interval: soon\n"},
		{"unknown backend", "storage:\n  backend: ftp\n"},
		{"s3 without bucket", "storage:\n  backend: s3\n"},
		{"gcs without bucket", "storage:\n  backend: gcs\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	config := domain.DefaultConfig()
	config.Server.Port = 9200
	config.Download.BaseDir = "/srv/tubefetch"
	config.Download.ArtifactTTL = 90 * time.Minute

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, SaveConfig(config, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9200, loaded.Server.Port)
	assert.Equal(t, "/srv/tubefetch", loaded.Download.BaseDir)
	assert.Equal(t, 90*time.Minute, loaded.Download.ArtifactTTL)
}
