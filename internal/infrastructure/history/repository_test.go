package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vconv/internal/domain/media"
)

func setupTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRepository_RecordAndGet(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	started := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	saved, err := repo.Record(ctx, Entry{
		JobID:       "abc",
		FileName:    "clip.mp4",
		FileSize:    500 << 20,
		Status:      media.StatusCompleted,
		DownloadURL: "/download/clip_convert.mp4",
		StartedAt:   started,
		FinishedAt:  started.Add(90 * time.Second),
	})
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)

	got, err := repo.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, "clip.mp4", got.FileName)
	assert.Equal(t, media.StatusCompleted, got.Status)
	assert.Equal(t, "/download/clip_convert.mp4", got.DownloadURL)
	assert.True(t, got.StartedAt.Equal(started))
	assert.Equal(t, 90*time.Second, got.Duration())

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_RecentAndStats(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	entries := []Entry{
		{JobID: "a", FileName: "a.mp4", FileSize: 100, Status: media.StatusCompleted, StartedAt: base, FinishedAt: base.Add(10 * time.Second)},
		{JobID: "b", FileName: "b.mp4", FileSize: 200, Status: media.StatusFailed, Error: "boom", StartedAt: base.Add(time.Minute), FinishedAt: base.Add(time.Minute + time.Second)},
		{JobID: "c", FileName: "c.mp4", FileSize: 300, Status: media.StatusCompleted, StartedAt: base.Add(2 * time.Minute), FinishedAt: base.Add(2*time.Minute + 20*time.Second)},
	}
	for _, e := range entries {
		_, err := repo.Record(ctx, e)
		require.NoError(t, err)
	}

	recent, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].JobID)
	assert.Equal(t, "b", recent[1].JobID)
	assert.Equal(t, "boom", recent[1].Error)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Completed)
	assert.Equal(t, 1, stats.Failed)
	assert.EqualValues(t, 600, stats.TotalBytes)
	assert.Equal(t, 15*time.Second, stats.AvgDuration)
}

func TestRepository_StatsEmpty(t *testing.T) {
	repo := setupTestRepo(t)

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)

	recent, err := repo.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestEntryFromJob(t *testing.T) {
	file := media.File{Name: "clip.mov", Size: 42}
	job := media.Job{
		File:      &file,
		ID:        "xyz",
		Status:    media.StatusFailed,
		LastError: media.NewError(media.KindServer, "codec not supported"),
	}

	entry, err := EntryFromJob(job)
	require.NoError(t, err)
	assert.Equal(t, "xyz", entry.JobID)
	assert.Equal(t, "clip.mov", entry.FileName)
	assert.EqualValues(t, 42, entry.FileSize)
	assert.Equal(t, "codec not supported", entry.Error)

	_, err = EntryFromJob(media.Job{Status: media.StatusProcessing})
	assert.Error(t, err)
}
