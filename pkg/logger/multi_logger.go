package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogCategory represents different log categories
type LogCategory string

const (
	CategoryJob   LogCategory = "job"   // Download job lifecycle events (JSON)
	CategoryError LogCategory = "error" // Application errors (JSON)
	CategoryMerge LogCategory = "merge" // Raw ffmpeg invocations, written by the merger
)

// Categories lists every category the log reader can serve
var Categories = []LogCategory{CategoryJob, CategoryError, CategoryMerge}

// ParseCategory validates a category name
func ParseCategory(s string) (LogCategory, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown log category: %s", s)
}

// MultiLogger writes structured events to one JSON file per category per day.
// Raw merge output is written directly by the merger, not through this logger.
type MultiLogger struct {
	config      MultiLoggerConfig
	level       zapcore.Level
	mu          sync.Mutex
	loggers     map[LogCategory]*zap.Logger
	files       []*os.File
	currentDate string
}

// MultiLoggerConfig contains configuration for multi-output logging
type MultiLoggerConfig struct {
	Level   string // debug, info, warn, error
	LogsDir string // Directory for log files
}

// NewMultiLogger creates a new multi-output logger
func NewMultiLogger(config MultiLoggerConfig) (*MultiLogger, error) {
	if config.LogsDir == "" {
		return nil, fmt.Errorf("logs_dir must be specified")
	}
	if err := os.MkdirAll(config.LogsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	ml := &MultiLogger{config: config, level: level}
	if err := ml.open(time.Now().Format("20060102")); err != nil {
		return nil, err
	}
	return ml, nil
}

// open creates the day's loggers; callers hold mu or own ml exclusively
func (ml *MultiLogger) open(date string) error {
	loggers := make(map[LogCategory]*zap.Logger)
	var files []*os.File

	levels := map[LogCategory]zapcore.Level{
		CategoryJob:   ml.level,
		CategoryError: zapcore.ErrorLevel,
	}
	for category, level := range levels {
		file, err := os.OpenFile(ml.logPath(category, date), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			for _, f := range files {
				f.Close()
			}
			return fmt.Errorf("failed to create %s logger: %w", category, err)
		}
		files = append(files, file)
		loggers[category] = zap.New(zapcore.NewCore(jsonEncoder(), zapcore.AddSync(file), level))
	}

	for _, f := range ml.files {
		f.Close()
	}
	ml.loggers = loggers
	ml.files = files
	ml.currentDate = date
	return nil
}

func jsonEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "msg"
	encoderConfig.LevelKey = "level"
	encoderConfig.CallerKey = ""
	return zapcore.NewJSONEncoder(encoderConfig)
}

func (ml *MultiLogger) logPath(category LogCategory, date string) string {
	return filepath.Join(ml.config.LogsDir, fmt.Sprintf("%s-%s.log", category, date))
}

// GetLogsDir returns the logs directory path
func (ml *MultiLogger) GetLogsDir() string {
	return ml.config.LogsDir
}

// GetLogger returns the structured logger for a category, switching to a new
// file when the day has changed
func (ml *MultiLogger) GetLogger(category LogCategory) *zap.Logger {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	if today := time.Now().Format("20060102"); today != ml.currentDate {
		if err := ml.open(today); err != nil {
			fmt.Fprintf(os.Stderr, "log rotation failed: %v\n", err)
		}
	}

	if logger, ok := ml.loggers[category]; ok {
		return logger
	}
	return ml.loggers[CategoryError]
}

// LogJobEvent logs a download job lifecycle event with structured data
func (ml *MultiLogger) LogJobEvent(event string, fields ...zap.Field) {
	ml.GetLogger(CategoryJob).Info(event, fields...)
}

// LogAppError logs an application-level error (Go errors, panics)
func (ml *MultiLogger) LogAppError(msg string, fields ...zap.Field) {
	ml.GetLogger(CategoryError).Error(msg, fields...)
}

// Sync flushes all loggers
func (ml *MultiLogger) Sync() error {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	var lastErr error
	for _, logger := range ml.loggers {
		if err := logger.Sync(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Close flushes all loggers and closes their files
func (ml *MultiLogger) Close() error {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	var lastErr error
	for _, logger := range ml.loggers {
		if err := logger.Sync(); err != nil {
			lastErr = err
		}
	}
	for _, f := range ml.files {
		if err := f.Close(); err != nil {
			lastErr = err
		}
	}
	ml.files = nil
	return lastErr
}
