package domain

import (
	"errors"
	"strings"
)

// Error kinds surfaced by the download pipeline. Callers match them with errors.Is.
var (
	ErrInvalidURL        = errors.New("invalid video URL")
	ErrVideoUnavailable  = errors.New("video unavailable")
	ErrNoStreams         = errors.New("no downloadable streams")
	ErrNetwork           = errors.New("network failure")
	ErrMergeToolMissing  = errors.New("merge tool not found")
	ErrMergeFailed       = errors.New("merge failed")
	ErrInvalidSelection  = errors.New("invalid stream selection")
	ErrModeNotAvailable  = errors.New("download mode not available")
	ErrJobNotFound       = errors.New("download not found")
	ErrVideoNotFound     = errors.New("video not found")
	ErrArtifactMissing   = errors.New("downloaded file missing")
	ErrJobNotDeliverable = errors.New("download has no file to deliver")
	ErrJobFinished       = errors.New("download already finished")
)

const maxDetailLen = 200

// UserMessage maps an error to the message shown in the UI
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidURL):
		return "Invalid YouTube URL format."
	case errors.Is(err, ErrVideoUnavailable):
		return "Video unavailable (private, deleted, restricted)."
	case errors.Is(err, ErrNoStreams):
		return "No streams available: no downloadable MP4 video streams found."
	case errors.Is(err, ErrMergeToolMissing):
		return "FFmpeg not found. Best Quality and Manual Quality need FFmpeg on the PATH."
	case errors.Is(err, ErrMergeFailed):
		return "Merge failed: " + truncate(detail(err, ErrMergeFailed), maxDetailLen)
	case errors.Is(err, ErrModeNotAvailable):
		return "That download option is not available for this video."
	case errors.Is(err, ErrInvalidSelection):
		return "Invalid stream selection: " + truncate(detail(err, ErrInvalidSelection), maxDetailLen)
	case errors.Is(err, ErrJobNotFound), errors.Is(err, ErrVideoNotFound):
		return "Not found. Fetch the video again."
	case errors.Is(err, ErrArtifactMissing):
		return "Downloaded file missing."
	case errors.Is(err, ErrJobNotDeliverable):
		return "This download has no file waiting. It may have been retrieved or expired."
	case errors.Is(err, ErrJobFinished):
		return "This download has already finished."
	case errors.Is(err, ErrNetwork):
		return "Download error: " + truncate(detail(err, ErrNetwork), maxDetailLen)
	default:
		return "Download error: " + truncate(err.Error(), maxDetailLen)
	}
}

// detail strips the sentinel text so only the wrapped context remains
func detail(err, kind error) string {
	msg := err.Error()
	msg = strings.Replace(msg, kind.Error()+": ", "", 1)
	msg = strings.Replace(msg, ": "+kind.Error(), "", 1)
	return strings.TrimSpace(msg)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
