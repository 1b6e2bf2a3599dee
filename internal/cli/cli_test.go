package cli

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vconv/internal/application/conversion"
	"vconv/internal/domain/media"
	"vconv/internal/infrastructure/filesystem"
	httptransport "vconv/internal/transport/http"
)

func startServer(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()
	root := t.TempDir()
	store := filesystem.NewStore(filepath.Join(root, "uploads"), filepath.Join(root, "Render"))
	require.NoError(t, store.EnsureDirs())

	logger := log.New(io.Discard, "", 0)
	service := conversion.NewService(store, filesystem.CopyConverter{}, logger)
	router := httptransport.NewRouter(httptransport.NewHandler(service, store, httptransport.Options{Logger: logger}))

	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(func() {
		ts.Close()
		service.Wait()
	})
	return ts, &hits
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConvert_EndToEnd(t *testing.T) {
	t.Setenv("VCONV_POLL_INTERVAL", "20ms")
	ts, _ := startServer(t)
	dir := t.TempDir()
	db := filepath.Join(dir, "history.db")

	src := filepath.Join(dir, "beach day.mov")
	payload := bytes.Repeat([]byte{0x42}, 200<<10)
	require.NoError(t, os.WriteFile(src, payload, 0o644))
	target := filepath.Join(dir, "result.mp4")

	out, err := run(t, "convert", src, "--base-url", ts.URL, "--db", db, "--output", target)
	require.NoError(t, err, out)
	assert.Contains(t, out, "upload complete")
	assert.Contains(t, out, "conversion finished")
	assert.Contains(t, out, "saved "+target)

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(payload, got))

	out, err = run(t, "history", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "beach day.mov")
	assert.Contains(t, out, "/download/beach_day_convert.mp4")

	out, err = run(t, "stats", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "total=1 completed=1 failed=0")
}

func TestConvert_NoDownloadPrintsLink(t *testing.T) {
	t.Setenv("VCONV_POLL_INTERVAL", "20ms")
	ts, _ := startServer(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(src, []byte("frames"), 0o644))

	out, err := run(t, "convert", src, "--base-url", ts.URL, "--db", filepath.Join(dir, "h.db"), "--no-download")
	require.NoError(t, err, out)
	assert.Contains(t, out, ts.URL+"/download/clip_convert.mp4")
}

func TestConvert_RejectsWithoutNetwork(t *testing.T) {
	ts, hits := startServer(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))

	_, err := run(t, "convert", src, "--base-url", ts.URL, "--db", filepath.Join(dir, "h.db"))
	assert.ErrorIs(t, err, media.ValidationError(media.ReasonWrongType, ""))
	assert.Zero(t, atomic.LoadInt32(hits))
}

func TestConvert_ServerRejectionIsRecorded(t *testing.T) {
	t.Setenv("VCONV_POLL_INTERVAL", "20ms")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"unsupported file type"}`)
	}))
	defer ts.Close()

	dir := t.TempDir()
	db := filepath.Join(dir, "h.db")
	src := filepath.Join(dir, "clip.mkv")
	require.NoError(t, os.WriteFile(src, []byte("frames"), 0o644))

	_, err := run(t, "convert", src, "--base-url", ts.URL, "--db", db)
	require.Error(t, err)
	assert.Equal(t, "unsupported file type", err.Error())

	out, err := run(t, "stats", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "total=1 completed=0 failed=1")
}

func TestRoot_InvalidBaseURL(t *testing.T) {
	_, err := run(t, "stats", "--base-url", "not a url", "--db", filepath.Join(t.TempDir(), "h.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")
}
