package conversion

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vconv/internal/domain/media"
)

type stubStore struct {
	mu      sync.Mutex
	saved   map[string][]byte
	removed []string
	saveErr error
}

func newStubStore() *stubStore {
	return &stubStore{saved: make(map[string][]byte)}
}

func (s *stubStore) SaveUpload(jobID, name string, src io.Reader) (string, int64, error) {
	if s.saveErr != nil {
		return "", 0, s.saveErr
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return "", 0, err
	}
	path := "uploads/" + jobID + "_" + name
	s.mu.Lock()
	s.saved[path] = data
	s.mu.Unlock()
	return path, int64(len(data)), nil
}

func (s *stubStore) ReserveOutput(inputName string) (string, string, error) {
	name := strings.TrimSuffix(inputName, ".mov") + "_convert.mp4"
	return name, "render/" + name, nil
}

func (s *stubStore) Remove(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, path)
	return nil
}

type stubConverter struct {
	info       media.VideoInfo
	probeErr   error
	convertErr error
}

func (c stubConverter) Probe(context.Context, string) (media.VideoInfo, error) {
	return c.info, c.probeErr
}

func (c stubConverter) Convert(context.Context, string, string, media.VideoInfo) error {
	return c.convertErr
}

func newTestService(store Store, converter Converter) *Service {
	return NewService(store, converter, log.New(io.Discard, "", 0))
}

func TestService_SubmitConverts(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store, stubConverter{info: media.VideoInfo{Width: 1080, Height: 1920, IsVertical: true}})

	rec, err := svc.Submit(context.Background(), "../holiday clip.mov", strings.NewReader("frames"))
	require.NoError(t, err)
	assert.Equal(t, media.RemoteUploaded, rec.Status)
	assert.Equal(t, "holiday_clip.mov", rec.InputName)
	assert.EqualValues(t, 6, rec.Size)
	assert.NotEmpty(t, rec.ID)

	svc.Wait()

	got, err := svc.Status(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, media.RemoteCompleted, got.Status)
	assert.Equal(t, "holiday_clip_convert.mp4", got.OutputName)
	require.NotNil(t, got.VideoInfo)
	assert.True(t, got.VideoInfo.IsVertical)
	assert.Contains(t, store.removed, "uploads/"+rec.ID+"_holiday_clip.mov")
}

func TestService_SubmitRejectsUnsupportedName(t *testing.T) {
	svc := newTestService(newStubStore(), stubConverter{})

	_, err := svc.Submit(context.Background(), "notes.txt", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrUnsupportedType)
	assert.Zero(t, svc.Stats().TotalJobs)
}

func TestService_SubmitSaveFailure(t *testing.T) {
	store := newStubStore()
	store.saveErr = errors.New("disk full")
	svc := newTestService(store, stubConverter{})

	_, err := svc.Submit(context.Background(), "a.mp4", strings.NewReader("x"))
	require.Error(t, err)
	assert.Zero(t, svc.Stats().TotalJobs)
}

func TestService_ConversionFailure(t *testing.T) {
	tests := []struct {
		name      string
		converter stubConverter
		message   string
	}{
		{"probe", stubConverter{probeErr: errors.New("no video stream")}, "probe: no video stream"},
		{"convert", stubConverter{convertErr: errors.New("encoder crashed")}, "encoder crashed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStubStore()
			svc := newTestService(store, tt.converter)

			rec, err := svc.Submit(context.Background(), "a.mov", strings.NewReader("x"))
			require.NoError(t, err)
			svc.Wait()

			got, err := svc.Status(rec.ID)
			require.NoError(t, err)
			assert.Equal(t, media.RemoteError, got.Status)
			assert.Equal(t, tt.message, got.Error)
			assert.Empty(t, got.OutputName)
		})
	}
}

func TestService_StatusUnknown(t *testing.T) {
	svc := newTestService(newStubStore(), stubConverter{})
	_, err := svc.Status("nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestService_StatsRecentAndCleanup(t *testing.T) {
	svc := newTestService(newStubStore(), stubConverter{})
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	svc.jobs.Put(Record{ID: "a", InputName: "a.mp4", OutputName: "a_convert.mp4", Status: media.RemoteCompleted,
		Size: 2 << 20, UploadedAt: base, FinishedAt: base.Add(4 * time.Second)})
	svc.jobs.Put(Record{ID: "b", InputName: "b.mp4", OutputName: "b_convert.mp4", Status: media.RemoteCompleted,
		Size: 1 << 20, UploadedAt: base.Add(time.Hour), FinishedAt: base.Add(time.Hour + 2*time.Second)})
	svc.jobs.Put(Record{ID: "c", Status: media.RemoteError, Size: 1 << 20, UploadedAt: base.Add(2 * time.Hour)})
	svc.jobs.Put(Record{ID: "d", Status: media.RemoteProcessing, UploadedAt: base.Add(25 * time.Hour)})

	stats := svc.Stats()
	assert.Equal(t, Stats{
		TotalJobs:         4,
		CompletedJobs:     2,
		ErrorJobs:         1,
		PendingJobs:       1,
		TotalSizeMB:       4,
		AvgProcessingTime: 3,
	}, stats)

	recent := svc.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].ID)
	assert.Equal(t, "a", recent[1].ID)

	svc.now = func() time.Time { return base.Add(25*time.Hour + time.Minute) }
	assert.Equal(t, 2, svc.Cleanup(24*time.Hour))
	_, err := svc.Status("a")
	assert.ErrorIs(t, err, ErrJobNotFound)
	_, err = svc.Status("d")
	assert.NoError(t, err)
}

func TestService_RecentCapsAtTen(t *testing.T) {
	svc := newTestService(newStubStore(), stubConverter{})
	base := time.Now()
	for i := 0; i < 15; i++ {
		svc.jobs.Put(Record{ID: string(rune('a' + i)), Status: media.RemoteCompleted, UploadedAt: base.Add(time.Duration(i) * time.Minute)})
	}

	recent := svc.Recent()
	require.Len(t, recent, 10)
	assert.Equal(t, "o", recent[0].ID)
}
