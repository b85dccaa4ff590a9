package infrastructure

import (
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/tubefetch/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// allowedFilters lists the columns FindAll may filter on
var allowedFilters = map[string]bool{
	"status":       true,
	"mode":         true,
	"video_ref_id": true,
}

// SQLiteRepository implements VideoRepository and DownloadRepository using SQLite
type SQLiteRepository struct {
	db *gorm.DB
}

// NewSQLiteRepository opens the database and migrates the schema
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.VideoRef{}, &domain.DownloadJob{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// SaveVideo creates or replaces a video reference
func (r *SQLiteRepository) SaveVideo(video *domain.VideoRef) error {
	return r.db.Save(video).Error
}

// FindVideo finds a video reference by ID
func (r *SQLiteRepository) FindVideo(id string) (*domain.VideoRef, error) {
	var video domain.VideoRef
	if err := r.db.First(&video, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrVideoNotFound, id)
		}
		return nil, err
	}
	return &video, nil
}

// DeleteVideosBefore removes video references fetched before cutoff that no
// download still points at
func (r *SQLiteRepository) DeleteVideosBefore(cutoff time.Time) (int64, error) {
	referenced := r.db.Model(&domain.DownloadJob{}).
		Select("video_ref_id").
		Where("status IN ?", activeStatuses())
	result := r.db.
		Where("fetched_at < ?", cutoff).
		Where("id NOT IN (?)", referenced).
		Delete(&domain.VideoRef{})
	return result.RowsAffected, result.Error
}

// Create creates a new download
func (r *SQLiteRepository) Create(job *domain.DownloadJob) error {
	return r.db.Create(job).Error
}

// Update updates an existing download
func (r *SQLiteRepository) Update(job *domain.DownloadJob) error {
	return r.db.Save(job).Error
}

// Delete deletes a download by ID
func (r *SQLiteRepository) Delete(id string) error {
	return r.db.Delete(&domain.DownloadJob{}, "id = ?", id).Error
}

// FindByID finds a download by ID
func (r *SQLiteRepository) FindByID(id string) (*domain.DownloadJob, error) {
	var job domain.DownloadJob
	if err := r.db.First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrJobNotFound, id)
		}
		return nil, err
	}
	return &job, nil
}

// FindAll finds all downloads with optional filters, newest first
func (r *SQLiteRepository) FindAll(filters map[string]interface{}) ([]*domain.DownloadJob, error) {
	var jobs []*domain.DownloadJob
	query := r.db

	for key, value := range filters {
		if !allowedFilters[key] {
			return nil, fmt.Errorf("unsupported filter: %s", key)
		}
		query = query.Where(fmt.Sprintf("%s = ?", key), value)
	}

	err := query.Order("created_at DESC").Find(&jobs).Error
	return jobs, err
}

// FindUnclaimed finds completed downloads finished before cutoff
func (r *SQLiteRepository) FindUnclaimed(cutoff time.Time) ([]*domain.DownloadJob, error) {
	var jobs []*domain.DownloadJob
	err := r.db.
		Where("status = ?", domain.StatusCompleted).
		Where("completed_at < ?", cutoff).
		Order("completed_at ASC").
		Find(&jobs).Error
	return jobs, err
}

// FailOrphaned marks downloads left active by a previous process as failed
func (r *SQLiteRepository) FailOrphaned(message string) (int64, error) {
	result := r.db.Model(&domain.DownloadJob{}).
		Where("status IN ?", activeStatuses()).
		Updates(map[string]interface{}{
			"status":        domain.StatusFailed,
			"phase":         "",
			"error_message": message,
			"updated_at":    time.Now(),
		})
	return result.RowsAffected, result.Error
}

// GetStats returns download statistics
func (r *SQLiteRepository) GetStats() (*domain.DownloadStats, error) {
	stats := &domain.DownloadStats{}

	if err := r.db.Model(&domain.DownloadJob{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	statusCounts := []struct {
		Status domain.DownloadStatus
		Count  int64
	}{}

	if err := r.db.Model(&domain.DownloadJob{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range statusCounts {
		switch sc.Status {
		case domain.StatusPending:
			stats.Pending = sc.Count
		case domain.StatusDownloading:
			stats.Downloading = sc.Count
		case domain.StatusMerging:
			stats.Merging = sc.Count
		case domain.StatusCompleted:
			stats.Completed = sc.Count
		case domain.StatusDelivered:
			stats.Delivered = sc.Count
		case domain.StatusFailed:
			stats.Failed = sc.Count
		case domain.StatusCancelled:
			stats.Cancelled = sc.Count
		case domain.StatusExpired:
			stats.Expired = sc.Count
		}
	}

	return stats, nil
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func activeStatuses() []domain.DownloadStatus {
	return []domain.DownloadStatus{domain.StatusPending, domain.StatusDownloading, domain.StatusMerging}
}
