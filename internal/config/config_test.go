package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000", cfg.Client.BaseURL)
	assert.Equal(t, "/status/", cfg.Client.StatusEndpoint)
	assert.EqualValues(t, 1<<30, cfg.Client.MaxFileSizeBytes)
	assert.Equal(t, 2*time.Second, cfg.Client.PollInterval)
	assert.Equal(t, 24*time.Hour, cfg.Server.CleanupAge)
	require.NoError(t, cfg.Validate())
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "vconv.yaml", `
client:
  base_url: http://media.internal:8000
  poll_interval: 500ms
server:
  render_dir: /srv/render
history:
  db_path: /tmp/h.db
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://media.internal:8000", cfg.Client.BaseURL)
	assert.Equal(t, 500*time.Millisecond, cfg.Client.PollInterval)
	assert.Equal(t, "/upload", cfg.Client.UploadEndpoint)
	assert.Equal(t, "/srv/render", cfg.Server.RenderDir)
	assert.Equal(t, "/tmp/h.db", cfg.History.DBPath)
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "vconv.toml", `
[client]
base_url = "https://convert.example.com"
max_file_size_bytes = 1048576
request_timeout = "5s"

[log]
verbose = true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://convert.example.com", cfg.Client.BaseURL)
	assert.EqualValues(t, 1048576, cfg.Client.MaxFileSizeBytes)
	assert.Equal(t, 5*time.Second, cfg.Client.RequestTimeout)
	assert.True(t, cfg.Log.Verbose)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "vconv.yml", "client:\n  base_url: http://from-file:1\n")
	t.Setenv("VCONV_BASE_URL", "http://from-env:2")
	t.Setenv("VCONV_POLL_INTERVAL", "3s")
	t.Setenv("VCONV_MAX_FILE_SIZE", "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://from-env:2", cfg.Client.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Client.PollInterval)
	assert.EqualValues(t, 1<<30, cfg.Client.MaxFileSizeBytes)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = Load(writeFile(t, "vconv.json", "{}"))
	require.Error(t, err)

	_, err = Load(writeFile(t, "vconv.yaml", "client: [oops"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Client.BaseURL = "localhost"
	cfg.Client.PollInterval = 0
	cfg.Client.MaxFileSizeBytes = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")
	assert.Contains(t, err.Error(), "poll_interval")
	assert.Contains(t, err.Error(), "max_file_size_bytes")
}
