package domain

import (
	"time"

	"github.com/google/uuid"
)

// DownloadStatus represents the current status of a download
type DownloadStatus string

const (
	StatusPending     DownloadStatus = "pending"
	StatusDownloading DownloadStatus = "downloading"
	StatusMerging     DownloadStatus = "merging"
	StatusCompleted   DownloadStatus = "completed"
	StatusFailed      DownloadStatus = "failed"
	StatusCancelled   DownloadStatus = "cancelled"
	StatusDelivered   DownloadStatus = "delivered" // artifact handed to the user and removed
	StatusExpired     DownloadStatus = "expired"   // artifact never retrieved and removed by the janitor
)

// DownloadMode is the user's choice of how streams are picked
type DownloadMode string

const (
	ModeAuto        DownloadMode = "auto"        // best video + best non-Opus audio, merged
	ModeManual      DownloadMode = "manual"      // user-picked video + audio, merged
	ModeProgressive DownloadMode = "progressive" // single muxed stream, no merge
)

// Label returns the text shown next to the mode selector
func (m DownloadMode) Label() string {
	switch m {
	case ModeAuto:
		return "Best Quality (DASH + Merge - Auto)"
	case ModeManual:
		return "Manual Quality (DASH + Merge)"
	case ModeProgressive:
		return "Progressive (Simple, Max ~720p)"
	default:
		return string(m)
	}
}

// NeedsMerge reports whether the mode fetches two streams and merges them
func (m DownloadMode) NeedsMerge() bool {
	return m == ModeAuto || m == ModeManual
}

// ValidateMode checks if a download mode is valid
func ValidateMode(mode DownloadMode) bool {
	return mode == ModeAuto || mode == ModeManual || mode == ModeProgressive
}

// Progress is the byte-level state of the stream currently being fetched
type Progress struct {
	Percent    int     `json:"percent"`
	BytesDone  int64   `json:"bytes_done"`
	BytesTotal int64   `json:"bytes_total"`
	SpeedBps   float64 `json:"speed_bps"`
	ETASeconds int     `json:"eta_seconds"`
}

// DownloadJob is one download request: mode, selected streams and outcome
type DownloadJob struct {
	ID           string         `json:"id" gorm:"primaryKey"`
	VideoRefID   string         `json:"video_ref_id" gorm:"not null;index"`
	URL          string         `json:"url" gorm:"not null"`
	Title        string         `json:"title"`
	Mode         DownloadMode   `json:"mode" gorm:"not null"`
	VideoItag    int            `json:"video_itag,omitempty"`
	AudioItag    int            `json:"audio_itag,omitempty"`
	StreamItag   int            `json:"stream_itag,omitempty"`
	Status       DownloadStatus `json:"status" gorm:"not null;index"`
	Phase        string         `json:"phase,omitempty"`
	Progress     Progress       `json:"progress" gorm:"embedded;embeddedPrefix:progress_"`
	MergeStatus  string         `json:"merge_status,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	FilePath     string         `json:"file_path,omitempty"`
	FileName     string         `json:"file_name,omitempty"`
	FileSize     int64          `json:"file_size,omitempty"`
	ArtifactKey  string         `json:"artifact_key,omitempty"`
	ArtifactURL  string         `json:"artifact_url,omitempty"`
	CreatedAt    time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// TableName specifies the table name for GORM
func (DownloadJob) TableName() string {
	return "download_jobs"
}

// NewDownloadJob creates a pending job for a fetched video
func NewDownloadJob(video *VideoRef, mode DownloadMode) *DownloadJob {
	now := time.Now()
	return &DownloadJob{
		ID:         uuid.New().String(),
		VideoRefID: video.ID,
		URL:        video.URL,
		Title:      video.Title,
		Mode:       mode,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// MarkDownloading moves the job into a download phase and resets progress
func (d *DownloadJob) MarkDownloading(phase string) {
	now := time.Now()
	if d.StartedAt == nil {
		d.StartedAt = &now
	}
	d.Status = StatusDownloading
	d.Phase = phase
	d.Progress = Progress{}
	d.UpdatedAt = now
}

// MarkMerging marks the job as waiting on the merge tool
func (d *DownloadJob) MarkMerging() {
	d.Status = StatusMerging
	d.Phase = "Merging files"
	d.MergeStatus = "Merging files..."
	d.UpdatedAt = time.Now()
}

// MarkCompleted records the produced artifact
func (d *DownloadJob) MarkCompleted(artifact *Artifact) {
	now := time.Now()
	d.Status = StatusCompleted
	d.Phase = ""
	d.FilePath = artifact.Path
	d.FileName = artifact.Name
	d.FileSize = artifact.Size
	d.ArtifactKey = artifact.Key
	d.ArtifactURL = artifact.URL
	d.ErrorMessage = ""
	if d.Mode.NeedsMerge() {
		d.MergeStatus = "Merge OK!"
	}
	d.CompletedAt = &now
	d.UpdatedAt = now
}

// MarkFailed marks the job as failed with a user-facing message
func (d *DownloadJob) MarkFailed(err error) {
	d.Status = StatusFailed
	d.Phase = ""
	d.ErrorMessage = UserMessage(err)
	d.FilePath = ""
	d.UpdatedAt = time.Now()
}

// MarkCancelled marks the job as cancelled by the user or shutdown
func (d *DownloadJob) MarkCancelled() {
	d.Status = StatusCancelled
	d.Phase = ""
	d.FilePath = ""
	d.UpdatedAt = time.Now()
}

// MarkDelivered records that the artifact was handed to the user
func (d *DownloadJob) MarkDelivered() {
	d.Status = StatusDelivered
	d.FilePath = ""
	d.UpdatedAt = time.Now()
}

// MarkExpired records that an unclaimed artifact was removed
func (d *DownloadJob) MarkExpired() {
	d.Status = StatusExpired
	d.FilePath = ""
	d.ArtifactURL = ""
	d.UpdatedAt = time.Now()
}

// IsActive checks if the job is still producing its artifact
func (d *DownloadJob) IsActive() bool {
	return d.Status == StatusPending || d.Status == StatusDownloading || d.Status == StatusMerging
}

// IsTerminal checks if the job can no longer change
func (d *DownloadJob) IsTerminal() bool {
	return !d.IsActive()
}

// HasArtifact reports whether the job holds a file waiting to be retrieved
func (d *DownloadJob) HasArtifact() bool {
	return d.Status == StatusCompleted && (d.FilePath != "" || d.ArtifactURL != "")
}

// Artifact is a finished file ready for hand-off
type Artifact struct {
	Path string // local path, empty once published elsewhere
	Name string // file name offered to the user
	Size int64
	Key  string // object key when published to a remote store
	URL  string // retrieval URL when published to a remote store
}
