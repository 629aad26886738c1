package infrastructure

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/media-fetch-go/internal/domain"
)

func newTestRepository(t *testing.T) *SQLiteFetchRepository {
	t.Helper()
	repo, err := NewSQLiteFetchRepository(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func succeededRecord(url string) *domain.FetchRecord {
	req := domain.NewMediaRequest(url)
	return domain.NewSucceededRecord(req, &domain.DownloadResult{
		FilePath:  "/tmp/file.mp4",
		Title:     "clip",
		Ext:       "mp4",
		MediaType: domain.MediaTypeVideo,
	}, 2048)
}

func TestSQLiteRepository_CreateAndFindByID(t *testing.T) {
	repo := newTestRepository(t)

	record := succeededRecord("https://www.tiktok.com/@user/video/1")
	require.NoError(t, repo.Create(record))

	found, err := repo.FindByID(record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.URL, found.URL)
	assert.Equal(t, domain.PlatformTikTok, found.Platform)
	assert.Equal(t, domain.FetchSucceeded, found.Status)
	assert.Equal(t, int64(2048), found.FileSize)
}

func TestSQLiteRepository_FindByID_Missing(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.FindByID("does-not-exist")
	assert.Error(t, err)
}

func TestSQLiteRepository_FindAll_Filters(t *testing.T) {
	repo := newTestRepository(t)

	require.NoError(t, repo.Create(succeededRecord("https://www.tiktok.com/@user/video/1")))
	require.NoError(t, repo.Create(succeededRecord("https://www.instagram.com/p/ABC/")))

	failed := domain.NewFailedRecord(
		domain.NewMediaRequest("https://www.instagram.com/p/XYZ/"),
		domain.NewFetchError(domain.ErrNotFound, "gone", nil))
	require.NoError(t, repo.Create(failed))

	all, err := repo.FindAll(nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	instagramOnly, err := repo.FindAll(map[string]interface{}{"platform": domain.PlatformInstagram})
	require.NoError(t, err)
	assert.Len(t, instagramOnly, 2)

	failedOnly, err := repo.FindAll(map[string]interface{}{"status": domain.FetchFailed})
	require.NoError(t, err)
	require.Len(t, failedOnly, 1)
	assert.Equal(t, "not_found", failedOnly[0].ErrorKind)
}

func TestSQLiteRepository_Stats(t *testing.T) {
	repo := newTestRepository(t)

	require.NoError(t, repo.Create(succeededRecord("https://example.com/a")))
	require.NoError(t, repo.Create(succeededRecord("https://example.com/b")))

	failed := domain.NewFailedRecord(
		domain.NewMediaRequest("https://example.com/c"),
		domain.NewFetchError(domain.ErrTransientNetwork, "flaky", nil))
	require.NoError(t, repo.Create(failed))

	stats, err := repo.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.Succeeded)
	assert.Equal(t, int64(1), stats.Failed)
}

func TestSQLiteRepository_StatsEmpty(t *testing.T) {
	repo := newTestRepository(t)

	stats, err := repo.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Total)
	assert.Equal(t, int64(0), stats.Succeeded)
	assert.Equal(t, int64(0), stats.Failed)
}
