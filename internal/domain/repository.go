package domain

import "time"

// VideoRepository defines the interface for fetched video persistence
type VideoRepository interface {
	// SaveVideo creates or replaces a video reference
	SaveVideo(video *VideoRef) error

	// FindVideo finds a video reference by ID
	FindVideo(id string) (*VideoRef, error)

	// DeleteVideosBefore removes video references fetched before cutoff
	DeleteVideosBefore(cutoff time.Time) (int64, error)
}

// DownloadRepository defines the interface for download persistence
type DownloadRepository interface {
	// Create creates a new download
	Create(job *DownloadJob) error

	// Update updates an existing download
	Update(job *DownloadJob) error

	// Delete deletes a download by ID
	Delete(id string) error

	// FindByID finds a download by ID
	FindByID(id string) (*DownloadJob, error)

	// FindAll finds all downloads with optional filters
	FindAll(filters map[string]interface{}) ([]*DownloadJob, error)

	// FindUnclaimed finds completed downloads finished before cutoff
	FindUnclaimed(cutoff time.Time) ([]*DownloadJob, error)

	// FailOrphaned marks downloads left active by a previous process as failed
	FailOrphaned(message string) (int64, error)

	// GetStats returns download statistics
	GetStats() (*DownloadStats, error)
}

// DownloadStats represents download statistics
type DownloadStats struct {
	Total       int64 `json:"total"`
	Pending     int64 `json:"pending"`
	Downloading int64 `json:"downloading"`
	Merging     int64 `json:"merging"`
	Completed   int64 `json:"completed"`
	Delivered   int64 `json:"delivered"`
	Failed      int64 `json:"failed"`
	Cancelled   int64 `json:"cancelled"`
	Expired     int64 `json:"expired"`
}
