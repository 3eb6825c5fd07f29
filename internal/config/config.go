// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all Orchard configuration.
type Config struct {
	// Logging
	LogLevel  string
	LogFormat string

	// Metrics (watch mode only; empty disables the endpoint)
	MetricsAddr string

	// Git
	GitBinary  string
	GitTimeout time.Duration

	// Tree listing
	DocExtensions    []string
	MaxExpandedPaths int
	MaxDirEntries    int
	MaxFileSize      int64

	// Folder classification
	PreselectPatterns []string
	SuggestPatterns   []string
	IgnorePatterns    []string
	SuggestDepth      int

	// Project store
	DatabaseURL string
	DataDir     string

	// Watch mode
	WatchDebounce time.Duration
}

// Load reads configuration from environment variables with defaults.
// A .env file in the working directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:    envOr("ORCHARD_LOG_LEVEL", "info"),
		LogFormat:   envOr("ORCHARD_LOG_FORMAT", "json"),
		MetricsAddr: envOr("ORCHARD_METRICS_ADDR", ""),

		GitBinary:  envOr("ORCHARD_GIT_BINARY", "git"),
		GitTimeout: envDuration("ORCHARD_GIT_TIMEOUT", 30*time.Second),

		DocExtensions:    envList("ORCHARD_DOC_EXTENSIONS", []string{".md", ".mdx", ".markdown", ".txt", ".rst", ".adoc"}),
		MaxExpandedPaths: envInt("ORCHARD_MAX_EXPANDED_PATHS", 200),
		MaxDirEntries:    envInt("ORCHARD_MAX_DIR_ENTRIES", 1000),
		MaxFileSize:      envInt64("ORCHARD_MAX_FILE_SIZE", 5*1024*1024), // 5MB default

		PreselectPatterns: envList("ORCHARD_PRESELECT_PATTERNS", []string{"/docs", "/doc", "/documentation"}),
		SuggestPatterns:   envList("ORCHARD_SUGGEST_PATTERNS", []string{"/wiki", "/notes", "/guides", "/handbook"}),
		IgnorePatterns:    envList("ORCHARD_IGNORE_PATTERNS", []string{"/node_modules", "/vendor", "/dist", "/build", "/target"}),
		SuggestDepth:      envInt("ORCHARD_SUGGEST_DEPTH", 3),

		DatabaseURL: envOr("ORCHARD_DATABASE_URL", ""),
		DataDir:     envOr("ORCHARD_DATA_DIR", defaultDataDir()),

		WatchDebounce: envDuration("ORCHARD_WATCH_DEBOUNCE", 300*time.Millisecond),
	}

	for i, ext := range cfg.DocExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		cfg.DocExtensions[i] = ext
	}

	if cfg.MaxExpandedPaths <= 0 {
		return nil, fmt.Errorf("ORCHARD_MAX_EXPANDED_PATHS must be positive")
	}
	if cfg.MaxDirEntries <= 0 {
		return nil, fmt.Errorf("ORCHARD_MAX_DIR_ENTRIES must be positive")
	}
	if cfg.MaxFileSize <= 0 {
		return nil, fmt.Errorf("ORCHARD_MAX_FILE_SIZE must be positive")
	}
	if cfg.GitTimeout <= 0 {
		return nil, fmt.Errorf("ORCHARD_GIT_TIMEOUT must be positive")
	}

	return cfg, nil
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "orchard")
	}
	return ".orchard"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
