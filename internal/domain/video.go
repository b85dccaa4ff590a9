package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StreamKind classifies a selectable encoding
type StreamKind string

const (
	KindProgressive StreamKind = "progressive" // video and audio in one file
	KindVideo       StreamKind = "video"       // adaptive, video only
	KindAudio       StreamKind = "audio"       // adaptive, audio only
)

// StreamOption is one selectable encoding supplied by the stream source
type StreamOption struct {
	Itag       int        `json:"itag"`
	Kind       StreamKind `json:"kind"`
	MimeType   string     `json:"mime_type"`
	Container  string     `json:"container"`
	Resolution string     `json:"resolution,omitempty"`
	Height     int        `json:"height,omitempty"`
	FPS        int        `json:"fps,omitempty"`
	VideoCodec string     `json:"video_codec,omitempty"`
	AudioCodec string     `json:"audio_codec,omitempty"`
	ABR        string     `json:"abr,omitempty"`
	Bitrate    int        `json:"bitrate"`
	Size       int64      `json:"size"`
}

// SizeMB returns the stream size in mebibytes
func (s StreamOption) SizeMB() float64 {
	return float64(s.Size) / (1024 * 1024)
}

// IsOpus reports whether the stream carries Opus audio
func (s StreamOption) IsOpus() bool {
	return strings.Contains(strings.ToLower(s.AudioCodec), "opus")
}

// Label returns the human readable description used in selects and CLI tables
func (s StreamOption) Label() string {
	switch s.Kind {
	case KindProgressive:
		return fmt.Sprintf("%s (%.1fMB)", s.Resolution, s.SizeMB())
	case KindVideo:
		return fmt.Sprintf("V: %s %dfps (%.1fMB) %s", s.Resolution, s.FPS, s.SizeMB(), s.VideoCodec)
	case KindAudio:
		return strings.TrimSpace(fmt.Sprintf("A: %s (%.1fMB) %s", s.ABR, s.SizeMB(), s.AudioCodec))
	default:
		return fmt.Sprintf("itag %d", s.Itag)
	}
}

// AudioExtension returns the file extension for a temp audio file
func (s StreamOption) AudioExtension() string {
	if s.Container != "" {
		return s.Container
	}
	return "m4a"
}

// StreamCatalog holds the streams of one video, each list ordered best first
type StreamCatalog struct {
	Progressive []StreamOption `json:"progressive"`
	Video       []StreamOption `json:"video"`
	Audio       []StreamOption `json:"audio"`
}

// Empty reports whether there is nothing with a video track to download
func (c StreamCatalog) Empty() bool {
	return len(c.Progressive) == 0 && len(c.Video) == 0
}

// Find looks up a stream of the given kind by itag
func (c StreamCatalog) Find(kind StreamKind, itag int) (StreamOption, bool) {
	var list []StreamOption
	switch kind {
	case KindProgressive:
		list = c.Progressive
	case KindVideo:
		list = c.Video
	case KindAudio:
		list = c.Audio
	}
	for _, s := range list {
		if s.Itag == itag {
			return s, true
		}
	}
	return StreamOption{}, false
}

// BestVideo returns the highest resolution adaptive video stream
func (c StreamCatalog) BestVideo() (StreamOption, bool) {
	if len(c.Video) == 0 {
		return StreamOption{}, false
	}
	return c.Video[0], true
}

// BestAudio returns the best non-Opus audio stream, falling back to the best audio stream
func (c StreamCatalog) BestAudio() (StreamOption, bool) {
	for _, s := range c.Audio {
		if s.AudioCodec != "" && !s.IsOpus() {
			return s, true
		}
	}
	if len(c.Audio) == 0 {
		return StreamOption{}, false
	}
	return c.Audio[0], true
}

// VideoRef is a fetched video: its URL, title and stream catalog
type VideoRef struct {
	ID        string        `json:"id" gorm:"primaryKey"`
	URL       string        `json:"url" gorm:"not null"`
	VideoID   string        `json:"video_id" gorm:"index"`
	Title     string        `json:"title"`
	Author    string        `json:"author,omitempty"`
	Duration  time.Duration `json:"duration"`
	Streams   StreamCatalog `json:"streams" gorm:"serializer:json;type:text"`
	FetchedAt time.Time     `json:"fetched_at"`
}

// TableName specifies the table name for GORM
func (VideoRef) TableName() string {
	return "videos"
}

// NewVideoRef creates a video reference for a resolved URL
func NewVideoRef(url, videoID, title string, streams StreamCatalog) *VideoRef {
	return &VideoRef{
		ID:        uuid.New().String(),
		URL:       url,
		VideoID:   videoID,
		Title:     title,
		Streams:   streams,
		FetchedAt: time.Now(),
	}
}
