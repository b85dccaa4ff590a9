package app

import (
	"fmt"

	"github.com/yourusername/tubefetch/internal/domain"
)

// DownloadRequest is the user's mode choice plus the itags picked for it
type DownloadRequest struct {
	Mode      domain.DownloadMode `json:"mode"`
	VideoItag int                 `json:"video_itag,omitempty"` // manual
	AudioItag int                 `json:"audio_itag,omitempty"` // manual
	Itag      int                 `json:"itag,omitempty"`       // progressive
}

// Selection is the resolved set of streams a job will fetch
type Selection struct {
	Video       domain.StreamOption
	Audio       domain.StreamOption
	Progressive domain.StreamOption
}

// AvailableModes lists the modes offered for a video, in display order.
// Merge modes need the merge tool and at least one video and one audio stream.
func AvailableModes(catalog domain.StreamCatalog, mergeAvailable bool) []domain.DownloadMode {
	var modes []domain.DownloadMode
	if mergeAvailable && len(catalog.Video) > 0 && len(catalog.Audio) > 0 {
		modes = append(modes, domain.ModeAuto, domain.ModeManual)
	}
	if len(catalog.Progressive) > 0 {
		modes = append(modes, domain.ModeProgressive)
	}
	return modes
}

// DefaultMode picks auto, then manual, then progressive from the offered modes
func DefaultMode(modes []domain.DownloadMode) (domain.DownloadMode, bool) {
	for _, preferred := range []domain.DownloadMode{domain.ModeAuto, domain.ModeManual, domain.ModeProgressive} {
		for _, m := range modes {
			if m == preferred {
				return m, true
			}
		}
	}
	return "", false
}

// SelectStreams resolves a request against a video's catalog. Every itag must
// belong to the catalog under the expected kind.
func SelectStreams(catalog domain.StreamCatalog, req DownloadRequest) (*Selection, error) {
	sel := &Selection{}

	switch req.Mode {
	case domain.ModeAuto:
		video, ok := catalog.BestVideo()
		if !ok {
			return nil, fmt.Errorf("%w: no video-only stream", domain.ErrInvalidSelection)
		}
		audio, ok := catalog.BestAudio()
		if !ok {
			return nil, fmt.Errorf("%w: no audio-only stream", domain.ErrInvalidSelection)
		}
		sel.Video, sel.Audio = video, audio

	case domain.ModeManual:
		if req.VideoItag == 0 || req.AudioItag == 0 {
			return nil, fmt.Errorf("%w: select both a video and an audio stream", domain.ErrInvalidSelection)
		}
		video, ok := catalog.Find(domain.KindVideo, req.VideoItag)
		if !ok {
			return nil, fmt.Errorf("%w: video itag %d is not offered for this video", domain.ErrInvalidSelection, req.VideoItag)
		}
		audio, ok := catalog.Find(domain.KindAudio, req.AudioItag)
		if !ok {
			return nil, fmt.Errorf("%w: audio itag %d is not offered for this video", domain.ErrInvalidSelection, req.AudioItag)
		}
		sel.Video, sel.Audio = video, audio

	case domain.ModeProgressive:
		if req.Itag == 0 {
			return nil, fmt.Errorf("%w: select a stream", domain.ErrInvalidSelection)
		}
		stream, ok := catalog.Find(domain.KindProgressive, req.Itag)
		if !ok {
			return nil, fmt.Errorf("%w: itag %d is not offered for this video", domain.ErrInvalidSelection, req.Itag)
		}
		sel.Progressive = stream

	default:
		return nil, fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidSelection, req.Mode)
	}

	return sel, nil
}
