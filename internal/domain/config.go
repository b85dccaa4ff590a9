package domain

import (
	"path/filepath"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Download     DownloadConfig     `mapstructure:"download"`
	YouTube      YouTubeConfig      `mapstructure:"youtube"`
	Merge        MergeConfig        `mapstructure:"merge"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	BaseDir          string        `mapstructure:"base_dir"`
	TempDirName      string        `mapstructure:"temp_dir_name"`
	LogsDir          string        `mapstructure:"logs_dir"`
	ArtifactTTL      time.Duration `mapstructure:"artifact_ttl"`
	JanitorInterval  time.Duration `mapstructure:"janitor_interval"`
	ProgressInterval time.Duration `mapstructure:"progress_interval"`
}

// TempDir returns the directory holding per-job scratch files
func (c DownloadConfig) TempDir() string {
	return filepath.Join(c.BaseDir, c.TempDirName)
}

// JobTempDir returns the scratch directory of a single job
func (c DownloadConfig) JobTempDir(jobID string) string {
	return filepath.Join(c.TempDir(), jobID)
}

// JobOutputDir returns the directory a job's final artifact is written to
func (c DownloadConfig) JobOutputDir(jobID string) string {
	return filepath.Join(c.BaseDir, jobID)
}

// YouTubeConfig contains settings for the stream resolution library
type YouTubeConfig struct {
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	ChunkSize   int64         `mapstructure:"chunk_size"`
}

// MergeConfig contains settings for the external merge tool
type MergeConfig struct {
	FFmpegBinary string `mapstructure:"ffmpeg_binary"`
}

// StorageConfig selects where finished artifacts are handed to the user from
type StorageConfig struct {
	Backend   string        `mapstructure:"backend"` // local, s3, gcs
	URLExpiry time.Duration `mapstructure:"url_expiry"`
	S3        S3Config      `mapstructure:"s3"`
	GCS       GCSConfig     `mapstructure:"gcs"`
}

// S3Config contains S3 (or S3-compatible) bucket settings
type S3Config struct {
	Bucket       string `mapstructure:"bucket"`
	Region       string `mapstructure:"region"`
	Prefix       string `mapstructure:"prefix"`
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

// GCSConfig contains Google Cloud Storage bucket settings
type GCSConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// DatabaseConfig contains SQLite settings
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// Storage backends
const (
	StorageLocal = "local"
	StorageS3    = "s3"
	StorageGCS   = "gcs"
)

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8501,
		},
		Download: DownloadConfig{
			BaseDir:          "$HOME/Downloads/tubefetch",
			TempDirName:      "temp",
			LogsDir:          "$HOME/.tubefetch/logs",
			ArtifactTTL:      time.Hour,
			JanitorInterval:  5 * time.Minute,
			ProgressInterval: 500 * time.Millisecond,
		},
		YouTube: YouTubeConfig{
			HTTPTimeout: 30 * time.Second,
		},
		Merge: MergeConfig{
			FFmpegBinary: "ffmpeg",
		},
		Storage: StorageConfig{
			Backend:   StorageLocal,
			URLExpiry: 15 * time.Minute,
		},
		Database: DatabaseConfig{
			Path: "$HOME/.tubefetch/tubefetch.db",
		},
		Notification: NotificationConfig{
			Enabled: false,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}
