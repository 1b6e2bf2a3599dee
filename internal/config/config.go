package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config holds runtime settings for the client, the development server and
// the local history.
type Config struct {
	Client  ClientConfig  `yaml:"client" toml:"client"`
	Server  ServerConfig  `yaml:"server" toml:"server"`
	History HistoryConfig `yaml:"history" toml:"history"`
	Log     LogConfig     `yaml:"log" toml:"log"`
}

// ClientConfig locates the conversion server and bounds what is sent to it.
type ClientConfig struct {
	BaseURL          string        `yaml:"base_url" toml:"base_url"`
	UploadEndpoint   string        `yaml:"upload_endpoint" toml:"upload_endpoint"`
	StatusEndpoint   string        `yaml:"status_endpoint" toml:"status_endpoint"`
	DownloadEndpoint string        `yaml:"download_endpoint" toml:"download_endpoint"`
	MaxFileSizeBytes int64         `yaml:"max_file_size_bytes" toml:"max_file_size_bytes"`
	PollInterval     time.Duration `yaml:"poll_interval" toml:"poll_interval"`
	RequestTimeout   time.Duration `yaml:"request_timeout" toml:"request_timeout"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr" toml:"addr"`
	UploadDir      string        `yaml:"upload_dir" toml:"upload_dir"`
	RenderDir      string        `yaml:"render_dir" toml:"render_dir"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" toml:"max_upload_bytes"`
	CleanupAge     time.Duration `yaml:"cleanup_age" toml:"cleanup_age"`
	StatusRate     int           `yaml:"status_rate" toml:"status_rate"`
	// Converter selects the conversion backend: "copy" or "ffmpeg".
	Converter string `yaml:"converter" toml:"converter"`
}

type HistoryConfig struct {
	DBPath string `yaml:"db_path" toml:"db_path"`
}

type LogConfig struct {
	Verbose bool `yaml:"verbose" toml:"verbose"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Client: ClientConfig{
			BaseURL:          "http://localhost:5000",
			UploadEndpoint:   "/upload",
			StatusEndpoint:   "/status/",
			DownloadEndpoint: "/download/",
			MaxFileSizeBytes: 1 << 30,
			PollInterval:     2 * time.Second,
			RequestTimeout:   30 * time.Second,
		},
		Server: ServerConfig{
			Addr:           ":5000",
			UploadDir:      "./uploads",
			RenderDir:      "./Render",
			MaxUploadBytes: 1 << 30,
			CleanupAge:     24 * time.Hour,
			StatusRate:     20,
			Converter:      "copy",
		},
		History: HistoryConfig{
			DBPath: defaultDBPath(),
		},
	}
}

// Load starts from defaults, applies the optional config file at path and then
// VCONV_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return fmt.Errorf("config %s: unsupported format, use .yaml, .yml or .toml", path)
	}
	return nil
}

func applyEnv(cfg *Config) {
	c := &cfg.Client
	c.BaseURL = getEnv("VCONV_BASE_URL", c.BaseURL)
	c.UploadEndpoint = getEnv("VCONV_UPLOAD_ENDPOINT", c.UploadEndpoint)
	c.StatusEndpoint = getEnv("VCONV_STATUS_ENDPOINT", c.StatusEndpoint)
	c.DownloadEndpoint = getEnv("VCONV_DOWNLOAD_ENDPOINT", c.DownloadEndpoint)
	c.MaxFileSizeBytes = getEnvInt64("VCONV_MAX_FILE_SIZE", c.MaxFileSizeBytes)
	c.PollInterval = getEnvDuration("VCONV_POLL_INTERVAL", c.PollInterval)
	c.RequestTimeout = getEnvDuration("VCONV_REQUEST_TIMEOUT", c.RequestTimeout)

	s := &cfg.Server
	s.Addr = getEnv("VCONV_SERVER_ADDR", s.Addr)
	s.UploadDir = getEnv("VCONV_UPLOAD_DIR", s.UploadDir)
	s.RenderDir = getEnv("VCONV_RENDER_DIR", s.RenderDir)
	s.MaxUploadBytes = getEnvInt64("VCONV_MAX_UPLOAD_BYTES", s.MaxUploadBytes)
	s.CleanupAge = getEnvDuration("VCONV_CLEANUP_AGE", s.CleanupAge)
	s.StatusRate = int(getEnvInt64("VCONV_STATUS_RATE", int64(s.StatusRate)))
	s.Converter = getEnv("VCONV_CONVERTER", s.Converter)

	cfg.History.DBPath = getEnv("VCONV_DB", cfg.History.DBPath)
	if v := strings.TrimSpace(os.Getenv("VCONV_VERBOSE")); v != "" {
		cfg.Log.Verbose = v == "1" || strings.EqualFold(v, "true")
	}
}

// Validate rejects settings the client cannot run with.
func (c Config) Validate() error {
	var errs []error
	u, err := url.Parse(c.Client.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("client.base_url %q is not an absolute URL", c.Client.BaseURL))
	}
	if c.Client.PollInterval <= 0 {
		errs = append(errs, errors.New("client.poll_interval must be positive"))
	}
	if c.Client.MaxFileSizeBytes <= 0 {
		errs = append(errs, errors.New("client.max_file_size_bytes must be positive"))
	}
	if c.Client.RequestTimeout <= 0 {
		errs = append(errs, errors.New("client.request_timeout must be positive"))
	}
	switch c.Server.Converter {
	case "copy", "ffmpeg":
	default:
		errs = append(errs, fmt.Errorf("server.converter %q must be copy or ffmpeg", c.Server.Converter))
	}
	return errors.Join(errs...)
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "vconv-history.db"
	}
	return filepath.Join(dir, "vconv", "history.db")
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	var out int64
	_, err := fmt.Sscanf(value, "%d", &out)
	if err != nil || out <= 0 {
		return fallback
	}
	return out
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	out, err := time.ParseDuration(value)
	if err != nil || out <= 0 {
		return fallback
	}
	return out
}
