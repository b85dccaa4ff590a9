package app

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"github.com/xhit/go-str2duration/v2"
	"github.com/yourusername/tubefetch/internal/domain"
)

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.tubefetch")
		v.AddConfigPath("/etc/tubefetch")
	}

	// Register every key so TUBEFETCH_* variables apply even without a config file
	if err := setDefaults(v, config); err != nil {
		return nil, err
	}

	v.SetEnvPrefix("TUBEFETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		stringToDurationHook(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults registers the default configuration with viper
func setDefaults(v *viper.Viper, config *domain.Config) error {
	var defaults map[string]interface{}
	if err := mapstructure.Decode(config, &defaults); err != nil {
		return fmt.Errorf("failed to encode default config: %w", err)
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return nil
}

// stringToDurationHook parses durations with day and week units ("1d12h")
// in addition to Go's time.ParseDuration syntax
func stringToDurationHook() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		s := strings.TrimSpace(data.(string))
		if s == "" {
			return time.Duration(0), nil
		}
		return str2duration.ParseDuration(s)
	}
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Download.BaseDir = expandPath(config.Download.BaseDir)
	config.Download.LogsDir = expandPath(config.Download.LogsDir)
	config.Database.Path = expandPath(config.Database.Path)
	config.Storage.GCS.CredentialsFile = expandPath(config.Storage.GCS.CredentialsFile)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	// $HOME first so it resolves even where the variable is unset
	if strings.Contains(path, "$HOME") {
		if home, err := os.UserHomeDir(); err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}

	return os.ExpandEnv(path)
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Download.BaseDir == "" {
		return fmt.Errorf("download base directory not configured")
	}

	if name := config.Download.TempDirName; name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid temp directory name: %q", name)
	}

	if config.Download.LogsDir == "" {
		return fmt.Errorf("logs directory not configured")
	}

	if config.Download.ArtifactTTL <= 0 {
		return fmt.Errorf("artifact TTL must be positive")
	}

	if config.Download.JanitorInterval <= 0 {
		return fmt.Errorf("janitor interval must be positive")
	}

	if config.Download.ProgressInterval <= 0 {
		return fmt.Errorf("progress interval must be positive")
	}

	if config.YouTube.HTTPTimeout < 0 {
		return fmt.Errorf("youtube HTTP timeout cannot be negative")
	}

	if config.Merge.FFmpegBinary == "" {
		config.Merge.FFmpegBinary = "ffmpeg"
	}

	switch config.Storage.Backend {
	case domain.StorageLocal:
	case domain.StorageS3:
		if config.Storage.S3.Bucket == "" || config.Storage.S3.Region == "" {
			return fmt.Errorf("s3 storage needs a bucket and a region")
		}
	case domain.StorageGCS:
		if config.Storage.GCS.Bucket == "" {
			return fmt.Errorf("gcs storage needs a bucket")
		}
	default:
		return fmt.Errorf("unknown storage backend: %q", config.Storage.Backend)
	}

	if config.Storage.Backend != domain.StorageLocal && config.Storage.URLExpiry <= 0 {
		return fmt.Errorf("storage URL expiry must be positive")
	}

	if config.Database.Path == "" {
		return fmt.Errorf("database path not configured")
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// ConfigSettings flattens a configuration into dotted keys, durations rendered as strings
func ConfigSettings(config *domain.Config) (map[string]interface{}, error) {
	v := viper.New()
	if err := setDefaults(v, config); err != nil {
		return nil, err
	}

	settings := make(map[string]interface{})
	for _, key := range v.AllKeys() {
		value := v.Get(key)
		if d, ok := value.(time.Duration); ok {
			value = d.String()
		}
		settings[key] = value
	}
	return settings, nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	settings, err := ConfigSettings(config)
	if err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	for key, value := range settings {
		v.Set(key, value)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
