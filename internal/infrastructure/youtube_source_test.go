package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/kkdai/youtube/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/tubefetch/internal/domain"
	"go.uber.org/zap"
)

func testFormats() youtube.FormatList {
	return youtube.FormatList{
		{ItagNo: 18, MimeType: `video/mp4; codecs="avc1.42001E, mp4a.40.2"`, Height: 360, QualityLabel: "360p", AudioChannels: 2, Bitrate: 500000, ContentLength: 1000},
		{ItagNo: 22, MimeType: `video/mp4; codecs="avc1.64001F, mp4a.40.2"`, Height: 720, QualityLabel: "720p", AudioChannels: 2, Bitrate: 1500000},
		{ItagNo: 136, MimeType: `video/mp4; codecs="avc1.4d401f"`, Height: 720, FPS: 30, QualityLabel: "720p"},
		{ItagNo: 299, MimeType: `video/mp4; codecs="avc1.64002a"`, Height: 1080, FPS: 60, QualityLabel: "1080p60"},
		{ItagNo: 248, MimeType: `video/webm; codecs="vp9"`, Height: 1080, FPS: 30},
		{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, Bitrate: 130000, AverageBitrate: 128000, AudioChannels: 2},
		{ItagNo: 251, MimeType: `audio/webm; codecs="opus"`, Bitrate: 160000, AudioChannels: 2},
		{ItagNo: 999, MimeType: `not a mime type;;`},
	}
}

func TestBuildCatalog(t *testing.T) {
	catalog := BuildCatalog(testFormats())

	require.Len(t, catalog.Progressive, 2)
	assert.Equal(t, 22, catalog.Progressive[0].Itag, "progressive ordered by resolution desc")
	assert.Equal(t, "720p", catalog.Progressive[0].Resolution)
	assert.Equal(t, "avc1.64001F", catalog.Progressive[0].VideoCodec)
	assert.Equal(t, "mp4a.40.2", catalog.Progressive[0].AudioCodec)
	assert.Equal(t, int64(1000), catalog.Progressive[1].Size)

	require.Len(t, catalog.Video, 2, "webm video streams are excluded")
	assert.Equal(t, 299, catalog.Video[0].Itag)
	assert.Equal(t, "1080p", catalog.Video[0].Resolution)
	assert.Equal(t, 60, catalog.Video[0].FPS)

	require.Len(t, catalog.Audio, 2)
	assert.Equal(t, 251, catalog.Audio[0].Itag, "audio ordered by bitrate desc")
	assert.Equal(t, "webm", catalog.Audio[0].Container)
	assert.Equal(t, "opus", catalog.Audio[0].AudioCodec)
	assert.Equal(t, "128kbps", catalog.Audio[1].ABR)
	assert.Equal(t, "mp4", catalog.Audio[1].AudioExtension())

	best, ok := catalog.BestAudio()
	require.True(t, ok)
	assert.Equal(t, 140, best.Itag)
}

func TestBuildCatalog_Empty(t *testing.T) {
	catalog := BuildCatalog(nil)

	assert.True(t, catalog.Empty())
}

func TestMapYouTubeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"private", youtube.ErrVideoPrivate, domain.ErrVideoUnavailable},
		{"login", youtube.ErrLoginRequired, domain.ErrVideoUnavailable},
		{"embed", youtube.ErrNotPlayableInEmbed, domain.ErrVideoUnavailable},
		{"playability", &youtube.ErrPlayabiltyStatus{Status: "UNPLAYABLE", Reason: "removed"}, domain.ErrVideoUnavailable},
		{"bad id", youtube.ErrInvalidCharactersInVideoID, domain.ErrInvalidURL},
		{"short id", youtube.ErrVideoIDMinLength, domain.ErrInvalidURL},
		{"other", errors.New("connection reset"), domain.ErrNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapYouTubeError("fetching", fmt.Errorf("wrapped: %w", tt.err))
			assert.True(t, errors.Is(err, tt.kind), err.Error())
		})
	}

	assert.True(t, errors.Is(mapYouTubeError("fetching", context.Canceled), context.Canceled))
}

// slowBodyHandler sends chunks of 1 KiB with a pause between each
func slowBodyHandler(chunks int, pause time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(chunks*1024))
		chunk := bytes.Repeat([]byte("x"), 1024)
		for i := 0; i < chunks; i++ {
			if _, err := w.Write(chunk); err != nil {
				return
			}
			w.(http.Flusher).Flush()
			time.Sleep(pause)
		}
	}
}

func newTestSource(t *testing.T, timeout time.Duration) *YouTubeSource {
	t.Helper()
	source, err := NewYouTubeSource(&domain.YouTubeConfig{HTTPTimeout: timeout}, time.Millisecond, zap.NewNop())
	require.NoError(t, err)
	source.getVideo = func(ctx context.Context, url string) (*youtube.Video, error) {
		return &youtube.Video{
			ID:    "dQw4w9WgXcQ",
			Title: "clip",
			Formats: youtube.FormatList{
				{ItagNo: 18, MimeType: `video/mp4; codecs="avc1.42001E, mp4a.40.2"`, AudioChannels: 2},
			},
		}, nil
	}
	return source
}

// fakeBody yields data once, then runs onEnd and returns its error
type fakeBody struct {
	data  []byte
	onEnd func() error
}

func (b *fakeBody) Read(p []byte) (int, error) {
	if len(b.data) > 0 {
		n := copy(p, b.data)
		b.data = b.data[n:]
		return n, nil
	}
	return 0, b.onEnd()
}

func (b *fakeBody) Close() error { return nil }

const testVideoURL = "https://youtu.be/dQw4w9WgXcQ"

func TestNewHTTPClient_SlowBodyIsNotCutOff(t *testing.T) {
	server := httptest.NewServer(slowBodyHandler(10, 50*time.Millisecond))
	defer server.Close()

	client := newHTTPClient(200*time.Millisecond, nil)
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Len(t, data, 10*1024)
}

func TestNewHTTPClient_StalledHeadersTimeOut(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := newHTTPClient(100*time.Millisecond, nil)
	_, err := client.Get(server.URL)
	require.Error(t, err)
}

func TestDownload_SlowStreamCompletes(t *testing.T) {
	server := httptest.NewServer(slowBodyHandler(10, 50*time.Millisecond))
	defer server.Close()

	source := newTestSource(t, 200*time.Millisecond)
	source.getStream = func(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
		if err != nil {
			return nil, 0, err
		}
		resp, err := source.client.HTTPClient.Do(req)
		if err != nil {
			return nil, 0, err
		}
		return resp.Body, resp.ContentLength, nil
	}

	dest := filepath.Join(t.TempDir(), "clip_vid.mp4")
	var lastDone, lastTotal int64
	err := source.Download(context.Background(), testVideoURL, 18, dest, func(done, total int64) {
		lastDone, lastTotal = done, total
	})
	require.NoError(t, err)

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Equal(t, int64(10*1024), info.Size())
	assert.Equal(t, int64(10*1024), lastDone)
	assert.Equal(t, int64(10*1024), lastTotal)
}

func TestDownload_ReadErrorRemovesPartialFile(t *testing.T) {
	source := newTestSource(t, time.Second)
	source.getStream = func(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error) {
		return &fakeBody{
			data:  bytes.Repeat([]byte("x"), 100),
			onEnd: func() error { return errors.New("connection reset by peer") },
		}, 1000, nil
	}

	dest := filepath.Join(t.TempDir(), "clip_vid.mp4")
	err := source.Download(context.Background(), testVideoURL, 18, dest, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNetwork), err.Error())
	assert.NoFileExists(t, dest)
}

func TestDownload_CancelledReturnsContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := newTestSource(t, time.Second)
	source.getStream = func(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error) {
		return &fakeBody{
			data: bytes.Repeat([]byte("x"), 100),
			onEnd: func() error {
				cancel()
				return errors.New("read on closed body")
			},
		}, 1000, nil
	}

	dest := filepath.Join(t.TempDir(), "clip_vid.mp4")
	err := source.Download(ctx, testVideoURL, 18, dest, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), err.Error())
	assert.False(t, errors.Is(err, domain.ErrNetwork))
	assert.NoFileExists(t, dest)
}

func TestDownload_UnknownItag(t *testing.T) {
	source := newTestSource(t, time.Second)

	err := source.Download(context.Background(), testVideoURL, 137, filepath.Join(t.TempDir(), "x.mp4"), nil)
	assert.True(t, errors.Is(err, domain.ErrInvalidSelection))
}

func TestVideoCache_RefetchesStaleEntries(t *testing.T) {
	source := newTestSource(t, time.Second)
	fetchVideo := source.getVideo
	calls := 0
	source.getVideo = func(ctx context.Context, url string) (*youtube.Video, error) {
		calls++
		return fetchVideo(ctx, url)
	}
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	source.now = func() time.Time { return clock }

	_, err := source.video(context.Background(), testVideoURL)
	require.NoError(t, err)
	_, err = source.video(context.Background(), testVideoURL)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "fresh entry served from cache")

	clock = clock.Add(maxVideoAge)
	_, err = source.video(context.Background(), testVideoURL)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "stale entry fetched again")
}

func TestFetch_MetadataTimeoutIsNetworkError(t *testing.T) {
	source := newTestSource(t, 20*time.Millisecond)
	source.getVideo = func(ctx context.Context, url string) (*youtube.Video, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	_, err := source.Resolve(context.Background(), testVideoURL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNetwork), err.Error())
}
