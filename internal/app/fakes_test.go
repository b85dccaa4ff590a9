package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yourusername/tubefetch/internal/domain"
	"github.com/yourusername/tubefetch/internal/infrastructure"
	"go.uber.org/zap"
)

const testURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

func testCatalog() domain.StreamCatalog {
	return domain.StreamCatalog{
		Progressive: []domain.StreamOption{
			{Itag: 22, Kind: domain.KindProgressive, Resolution: "720p", Container: "mp4"},
			{Itag: 18, Kind: domain.KindProgressive, Resolution: "360p", Container: "mp4"},
		},
		Video: []domain.StreamOption{
			{Itag: 137, Kind: domain.KindVideo, Resolution: "1080p", VideoCodec: "avc1.640028", Container: "mp4"},
			{Itag: 136, Kind: domain.KindVideo, Resolution: "720p", VideoCodec: "avc1.4d401f", Container: "mp4"},
		},
		Audio: []domain.StreamOption{
			{Itag: 251, Kind: domain.KindAudio, ABR: "160kbps", AudioCodec: "opus", Container: "webm"},
			{Itag: 140, Kind: domain.KindAudio, ABR: "128kbps", AudioCodec: "mp4a.40.2", Container: "mp4"},
		},
	}
}

// fakeSource serves a fixed catalog and writes small files for downloads
type fakeSource struct {
	mu         sync.Mutex
	title      string
	catalog    domain.StreamCatalog
	resolveErr error
	failItag   int
	failErr    error
	block      bool
	started    chan struct{}
	resolves   int
	downloads  []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		title:   `Rick: "Never" Gonna?`,
		catalog: testCatalog(),
		started: make(chan struct{}),
	}
}

func (f *fakeSource) Resolve(ctx context.Context, url string) (*domain.VideoRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolves++
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	videoID, err := domain.ValidateVideoURL(url)
	if err != nil {
		return nil, err
	}
	return domain.NewVideoRef(url, videoID, f.title, f.catalog), nil
}

func (f *fakeSource) Download(ctx context.Context, url string, itag int, dest string, onProgress domain.ProgressFunc) error {
	f.mu.Lock()
	f.downloads = append(f.downloads, dest)
	block, failItag, failErr := f.block, f.failItag, f.failErr
	f.mu.Unlock()

	if block {
		os.WriteFile(dest, []byte("partial"), 0644)
		close(f.started)
		<-ctx.Done()
		return ctx.Err()
	}
	if itag == failItag {
		os.WriteFile(dest, []byte("partial"), 0644)
		return failErr
	}

	data := []byte(fmt.Sprintf("itag-%d;", itag))
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return err
	}
	if onProgress != nil {
		onProgress(int64(len(data)/2), int64(len(data)))
		onProgress(int64(len(data)), int64(len(data)))
	}
	return nil
}

func (f *fakeSource) downloadNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.downloads))
	for i, d := range f.downloads {
		names[i] = filepath.Base(d)
	}
	return names
}

func (f *fakeSource) downloadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.downloads)
}

// fakeMerger concatenates its inputs, or fails leaving a partial output
type fakeMerger struct {
	available bool
	err       error
	calls     int
}

func (m *fakeMerger) Available() bool {
	return m.available
}

func (m *fakeMerger) Merge(ctx context.Context, videoPath, audioPath, out string) error {
	m.calls++
	if m.err != nil {
		os.WriteFile(out, []byte("garbage"), 0644)
		return m.err
	}
	v, err := os.ReadFile(videoPath)
	if err != nil {
		return err
	}
	a, err := os.ReadFile(audioPath)
	if err != nil {
		return err
	}
	return os.WriteFile(out, append(v, a...), 0644)
}

type testEnv struct {
	manager *DownloadManager
	source  *fakeSource
	merger  *fakeMerger
	repo    *infrastructure.SQLiteRepository
	config  *domain.DownloadConfig
	dbPath  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	config := &domain.DownloadConfig{
		BaseDir:          filepath.Join(t.TempDir(), "downloads"),
		TempDirName:      "temp",
		ArtifactTTL:      time.Hour,
		JanitorInterval:  time.Hour,
		ProgressInterval: time.Millisecond,
	}
	dbPath := filepath.Join(t.TempDir(), "test.db")
	repo, err := infrastructure.NewSQLiteRepository(dbPath)
	require.NoError(t, err)

	source := newFakeSource()
	merger := &fakeMerger{available: true}
	manager := NewDownloadManager(repo, repo, source, merger, infrastructure.NewLocalArtifactStore(zap.NewNop()), config, zap.NewNop())

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		manager.Shutdown(ctx)
		repo.Close()
	})

	return &testEnv{manager: manager, source: source, merger: merger, repo: repo, config: config, dbPath: dbPath}
}

// filesUnder lists regular files below dir, relative to it
func filesUnder(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && info.Mode().IsRegular() {
			rel, _ := filepath.Rel(dir, path)
			files = append(files, rel)
		}
		return nil
	})
	return files
}
