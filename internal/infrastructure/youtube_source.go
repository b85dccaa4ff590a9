package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/http/cookiejar"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kkdai/youtube/v2"
	"github.com/yourusername/tubefetch/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
)

const (
	maxCachedVideos = 64
	// signed stream URLs expire after about six hours
	maxVideoAge = 4 * time.Hour
)

type cachedVideo struct {
	video     *youtube.Video
	fetchedAt time.Time
}

// YouTubeSource implements StreamSource on top of kkdai/youtube
type YouTubeSource struct {
	client           *youtube.Client
	metadataTimeout  time.Duration
	progressInterval time.Duration
	logger           *zap.Logger

	getVideo  func(ctx context.Context, url string) (*youtube.Video, error)
	getStream func(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error)
	now       func() time.Time

	mu     sync.Mutex
	videos map[string]cachedVideo // resolved metadata keyed by URL
}

// NewYouTubeSource creates a new YouTube stream source
func NewYouTubeSource(config *domain.YouTubeConfig, progressInterval time.Duration, logger *zap.Logger) (*YouTubeSource, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	client := &youtube.Client{HTTPClient: newHTTPClient(config.HTTPTimeout, jar)}
	if config.ChunkSize > 0 {
		client.ChunkSize = config.ChunkSize
	}

	return &YouTubeSource{
		client:           client,
		metadataTimeout:  config.HTTPTimeout,
		progressInterval: progressInterval,
		logger:           logger,
		getVideo:         client.GetVideoContext,
		getStream:        client.GetStreamContext,
		now:              time.Now,
		videos:           make(map[string]cachedVideo),
	}, nil
}

// newHTTPClient bounds connecting and waiting for response headers by
// timeout. Bodies are read for as long as the caller's context allows, so
// large streams on slow links are not cut off.
func newHTTPClient(timeout time.Duration, jar http.CookieJar) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if timeout > 0 {
		transport.DialContext = (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext
		transport.TLSHandshakeTimeout = timeout
		transport.ResponseHeaderTimeout = timeout
	}
	return &http.Client{Jar: jar, Transport: transport}
}

// Resolve fetches the title and stream catalog for a URL
func (s *YouTubeSource) Resolve(ctx context.Context, url string) (*domain.VideoRef, error) {
	videoID, err := domain.ValidateVideoURL(url)
	if err != nil {
		return nil, err
	}

	video, err := s.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	ref := domain.NewVideoRef(url, videoID, video.Title, BuildCatalog(video.Formats))
	ref.Author = video.Author
	ref.Duration = video.Duration

	s.logger.Info("Video resolved",
		zap.String("video_id", videoID),
		zap.String("title", video.Title),
		zap.Int("progressive", len(ref.Streams.Progressive)),
		zap.Int("video", len(ref.Streams.Video)),
		zap.Int("audio", len(ref.Streams.Audio)))

	return ref, nil
}

// Download writes the stream with the given itag to dest
func (s *YouTubeSource) Download(ctx context.Context, url string, itag int, dest string, onProgress domain.ProgressFunc) (err error) {
	video, err := s.video(ctx, url)
	if err != nil {
		return err
	}

	var format *youtube.Format
	for i := range video.Formats {
		if video.Formats[i].ItagNo == itag {
			format = &video.Formats[i]
			break
		}
	}
	if format == nil {
		return fmt.Errorf("%w: itag %d not offered for this video", domain.ErrInvalidSelection, itag)
	}

	stream, size, err := s.getStream(ctx, video, format)
	if err != nil {
		return mapYouTubeError("starting stream", err)
	}
	defer stream.Close()

	file, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", dest, cerr)
		}
		if err != nil {
			os.Remove(dest)
		}
	}()

	progress := newProgressWriter(ctx, size, s.progressInterval, onProgress)
	written, err := io.Copy(io.MultiWriter(file, progress), stream)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: downloading itag %d: %v", domain.ErrNetwork, itag, err)
	}
	progress.Finish()

	s.logger.Debug("Stream downloaded",
		zap.Int("itag", itag),
		zap.Int64("bytes", written),
		zap.String("dest", dest))
	return nil
}

// video returns cached metadata for url, fetching it when absent or old
// enough that its stream URLs may have expired
func (s *YouTubeSource) video(ctx context.Context, url string) (*youtube.Video, error) {
	s.mu.Lock()
	entry, ok := s.videos[url]
	s.mu.Unlock()
	if ok && s.now().Sub(entry.fetchedAt) < maxVideoAge {
		return entry.video, nil
	}
	return s.fetch(ctx, url)
}

// fetch resolves metadata and caches it
func (s *YouTubeSource) fetch(ctx context.Context, url string) (*youtube.Video, error) {
	fetchCtx := ctx
	if s.metadataTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.metadataTimeout)
		defer cancel()
	}

	video, err := s.getVideo(fetchCtx, url)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: fetching video metadata: %v", domain.ErrNetwork, err)
		}
		return nil, mapYouTubeError("fetching video metadata", err)
	}
	s.remember(url, video)
	return video, nil
}

func (s *YouTubeSource) remember(url string, video *youtube.Video) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if len(s.videos) >= maxCachedVideos {
		for k, entry := range s.videos {
			if now.Sub(entry.fetchedAt) >= maxVideoAge {
				delete(s.videos, k)
			}
		}
	}
	if len(s.videos) >= maxCachedVideos {
		s.videos = make(map[string]cachedVideo)
	}
	s.videos[url] = cachedVideo{video: video, fetchedAt: now}
}

// mapYouTubeError converts library errors into domain error kinds
func mapYouTubeError(action string, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, youtube.ErrLoginRequired),
		errors.Is(err, youtube.ErrVideoPrivate),
		errors.Is(err, youtube.ErrNotPlayableInEmbed):
		return fmt.Errorf("%w: %s: %v", domain.ErrVideoUnavailable, action, err)
	case errors.Is(err, youtube.ErrInvalidCharactersInVideoID),
		errors.Is(err, youtube.ErrVideoIDMinLength):
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidURL, action, err)
	}

	var statusErr *youtube.ErrPlayabiltyStatus
	if errors.As(err, &statusErr) {
		return fmt.Errorf("%w: %s: %v", domain.ErrVideoUnavailable, action, err)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrNetwork, action, err)
}

// BuildCatalog sorts a format list into progressive, video-only and
// audio-only streams, each ordered best first
func BuildCatalog(formats youtube.FormatList) domain.StreamCatalog {
	var catalog domain.StreamCatalog

	for _, f := range formats {
		mediaType, params, err := mime.ParseMediaType(f.MimeType)
		if err != nil {
			continue
		}
		major, subtype, _ := strings.Cut(mediaType, "/")
		codecs := splitCodecs(params["codecs"])

		opt := domain.StreamOption{
			Itag:      f.ItagNo,
			MimeType:  mediaType,
			Container: subtype,
			Bitrate:   bitrateOf(f),
			Size:      f.ContentLength,
		}

		switch {
		case major == "video" && subtype == "mp4" && f.AudioChannels > 0:
			opt.Kind = domain.KindProgressive
			fillVideo(&opt, f, codecs)
			if len(codecs) > 1 {
				opt.AudioCodec = codecs[1]
			}
			catalog.Progressive = append(catalog.Progressive, opt)
		case major == "video" && subtype == "mp4":
			opt.Kind = domain.KindVideo
			fillVideo(&opt, f, codecs)
			catalog.Video = append(catalog.Video, opt)
		case major == "audio":
			opt.Kind = domain.KindAudio
			if len(codecs) > 0 {
				opt.AudioCodec = codecs[0]
			}
			opt.ABR = fmt.Sprintf("%dkbps", opt.Bitrate/1000)
			catalog.Audio = append(catalog.Audio, opt)
		}
	}

	byHeight := func(list []domain.StreamOption) func(i, j int) bool {
		return func(i, j int) bool { return list[i].Height > list[j].Height }
	}
	sort.SliceStable(catalog.Progressive, byHeight(catalog.Progressive))
	sort.SliceStable(catalog.Video, byHeight(catalog.Video))
	sort.SliceStable(catalog.Audio, func(i, j int) bool {
		return catalog.Audio[i].Bitrate > catalog.Audio[j].Bitrate
	})

	return catalog
}

func fillVideo(opt *domain.StreamOption, f youtube.Format, codecs []string) {
	opt.Height = f.Height
	opt.FPS = f.FPS
	opt.Resolution = resolutionOf(f)
	if len(codecs) > 0 {
		opt.VideoCodec = codecs[0]
	}
}

// resolutionOf returns a label such as "1080p", preferring the pixel height
func resolutionOf(f youtube.Format) string {
	if f.Height > 0 {
		return strconv.Itoa(f.Height) + "p"
	}
	label := f.QualityLabel
	if i := strings.IndexByte(label, 'p'); i > 0 {
		return label[:i+1]
	}
	return label
}

func bitrateOf(f youtube.Format) int {
	if f.AverageBitrate > 0 {
		return f.AverageBitrate
	}
	return f.Bitrate
}

func splitCodecs(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	codecs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			codecs = append(codecs, p)
		}
	}
	return codecs
}
