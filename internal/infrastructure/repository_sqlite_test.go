package infrastructure

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/tubefetch/internal/domain"
)

func setupTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testVideoRef() *domain.VideoRef {
	return domain.NewVideoRef("https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", "Test Video", domain.StreamCatalog{
		Progressive: []domain.StreamOption{{Itag: 18, Kind: domain.KindProgressive, Resolution: "360p"}},
		Video:       []domain.StreamOption{{Itag: 137, Kind: domain.KindVideo, Resolution: "1080p"}},
		Audio:       []domain.StreamOption{{Itag: 140, Kind: domain.KindAudio, ABR: "128kbps", AudioCodec: "mp4a.40.2"}},
	})
}

func TestSaveVideo_RoundTripsCatalog(t *testing.T) {
	repo := setupTestRepo(t)
	video := testVideoRef()

	require.NoError(t, repo.SaveVideo(video))

	found, err := repo.FindVideo(video.ID)
	require.NoError(t, err)
	assert.Equal(t, video.Title, found.Title)
	require.Len(t, found.Streams.Video, 1)
	assert.Equal(t, 137, found.Streams.Video[0].Itag)
	assert.Equal(t, "mp4a.40.2", found.Streams.Audio[0].AudioCodec)
}

func TestFindVideo_NotFound(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.FindVideo("missing")

	assert.True(t, errors.Is(err, domain.ErrVideoNotFound))
}

func TestFindByID_NotFound(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.FindByID("missing")

	assert.True(t, errors.Is(err, domain.ErrJobNotFound))
}

func TestCreateAndUpdateJob(t *testing.T) {
	repo := setupTestRepo(t)
	video := testVideoRef()
	require.NoError(t, repo.SaveVideo(video))

	job := domain.NewDownloadJob(video, domain.ModeAuto)
	job.VideoItag, job.AudioItag = 137, 140
	require.NoError(t, repo.Create(job))

	job.MarkDownloading("Downloading Video")
	job.Progress.Percent = 42
	require.NoError(t, repo.Update(job))

	found, err := repo.FindByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDownloading, found.Status)
	assert.Equal(t, "Downloading Video", found.Phase)
	assert.Equal(t, 42, found.Progress.Percent)
	assert.Equal(t, 140, found.AudioItag)
}

func TestFindAll_Filters(t *testing.T) {
	repo := setupTestRepo(t)
	video := testVideoRef()

	done := domain.NewDownloadJob(video, domain.ModeProgressive)
	done.MarkCompleted(&domain.Artifact{Path: "/tmp/a.mp4", Name: "a.mp4", Size: 1})
	require.NoError(t, repo.Create(done))
	require.NoError(t, repo.Create(domain.NewDownloadJob(video, domain.ModeAuto)))

	all, err := repo.FindAll(nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	completed, err := repo.FindAll(map[string]interface{}{"status": domain.StatusCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, done.ID, completed[0].ID)

	_, err = repo.FindAll(map[string]interface{}{"1=1 OR status": "x"})
	assert.Error(t, err)
}

func TestFindUnclaimed(t *testing.T) {
	repo := setupTestRepo(t)
	video := testVideoRef()

	old := domain.NewDownloadJob(video, domain.ModeProgressive)
	old.MarkCompleted(&domain.Artifact{Path: "/tmp/old.mp4", Name: "old.mp4", Size: 1})
	past := time.Now().Add(-2 * time.Hour)
	old.CompletedAt = &past
	require.NoError(t, repo.Create(old))

	fresh := domain.NewDownloadJob(video, domain.ModeProgressive)
	fresh.MarkCompleted(&domain.Artifact{Path: "/tmp/new.mp4", Name: "new.mp4", Size: 1})
	require.NoError(t, repo.Create(fresh))

	unclaimed, err := repo.FindUnclaimed(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, unclaimed, 1)
	assert.Equal(t, old.ID, unclaimed[0].ID)
}

func TestFailOrphaned(t *testing.T) {
	repo := setupTestRepo(t)
	video := testVideoRef()

	running := domain.NewDownloadJob(video, domain.ModeAuto)
	running.MarkDownloading("Downloading Audio")
	require.NoError(t, repo.Create(running))

	failed := domain.NewDownloadJob(video, domain.ModeAuto)
	failed.MarkFailed(assert.AnError)
	require.NoError(t, repo.Create(failed))

	n, err := repo.FailOrphaned("interrupted by restart")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	found, err := repo.FindByID(running.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, found.Status)
	assert.Equal(t, "interrupted by restart", found.ErrorMessage)
}

func TestDeleteVideosBefore_KeepsReferenced(t *testing.T) {
	repo := setupTestRepo(t)

	stale := testVideoRef()
	stale.FetchedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, repo.SaveVideo(stale))

	busy := testVideoRef()
	busy.FetchedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, repo.SaveVideo(busy))
	require.NoError(t, repo.Create(domain.NewDownloadJob(busy, domain.ModeAuto)))

	n, err := repo.DeleteVideosBefore(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.FindVideo(stale.ID)
	assert.Error(t, err)
	_, err = repo.FindVideo(busy.ID)
	assert.NoError(t, err)
}

func TestGetStats(t *testing.T) {
	repo := setupTestRepo(t)
	video := testVideoRef()

	require.NoError(t, repo.Create(domain.NewDownloadJob(video, domain.ModeAuto)))

	done := domain.NewDownloadJob(video, domain.ModeAuto)
	done.MarkCompleted(&domain.Artifact{Path: "/tmp/a.mp4", Name: "a.mp4", Size: 1})
	require.NoError(t, repo.Create(done))

	delivered := domain.NewDownloadJob(video, domain.ModeAuto)
	delivered.MarkDelivered()
	require.NoError(t, repo.Create(delivered))

	stats, err := repo.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(1), stats.Delivered)
	assert.Equal(t, int64(0), stats.Failed)
}
