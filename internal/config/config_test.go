package config

import (
	"reflect"
	"testing"
	"time"
)

var configKeys = []string{
	"ORCHARD_LOG_LEVEL",
	"ORCHARD_LOG_FORMAT",
	"ORCHARD_METRICS_ADDR",
	"ORCHARD_GIT_BINARY",
	"ORCHARD_GIT_TIMEOUT",
	"ORCHARD_DOC_EXTENSIONS",
	"ORCHARD_MAX_EXPANDED_PATHS",
	"ORCHARD_MAX_DIR_ENTRIES",
	"ORCHARD_MAX_FILE_SIZE",
	"ORCHARD_PRESELECT_PATTERNS",
	"ORCHARD_SUGGEST_PATTERNS",
	"ORCHARD_IGNORE_PATTERNS",
	"ORCHARD_SUGGEST_DEPTH",
	"ORCHARD_DATABASE_URL",
	"ORCHARD_DATA_DIR",
	"ORCHARD_WATCH_DEBOUNCE",
}

// clearEnv blanks every configuration variable so the ambient environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Errorf("logging defaults = %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.GitBinary != "git" || cfg.GitTimeout != 30*time.Second {
		t.Errorf("git defaults = %q/%v", cfg.GitBinary, cfg.GitTimeout)
	}
	wantExts := []string{".md", ".mdx", ".markdown", ".txt", ".rst", ".adoc"}
	if !reflect.DeepEqual(cfg.DocExtensions, wantExts) {
		t.Errorf("DocExtensions = %v, want %v", cfg.DocExtensions, wantExts)
	}
	if cfg.MaxExpandedPaths != 200 || cfg.MaxDirEntries != 1000 {
		t.Errorf("listing caps = %d/%d", cfg.MaxExpandedPaths, cfg.MaxDirEntries)
	}
	if cfg.MaxFileSize != 5*1024*1024 {
		t.Errorf("MaxFileSize = %d, want 5 MB", cfg.MaxFileSize)
	}
	if cfg.SuggestDepth != 3 {
		t.Errorf("SuggestDepth = %d, want 3", cfg.SuggestDepth)
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("DatabaseURL = %q, want empty", cfg.DatabaseURL)
	}
	if cfg.DataDir == "" {
		t.Error("DataDir empty")
	}
	if cfg.WatchDebounce != 300*time.Millisecond {
		t.Errorf("WatchDebounce = %v", cfg.WatchDebounce)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ORCHARD_LOG_LEVEL", "debug")
	t.Setenv("ORCHARD_GIT_BINARY", "/usr/local/bin/git")
	t.Setenv("ORCHARD_GIT_TIMEOUT", "5s")
	t.Setenv("ORCHARD_MAX_FILE_SIZE", "1024")
	t.Setenv("ORCHARD_DATABASE_URL", "sqlite:///tmp/orchard.db")
	t.Setenv("ORCHARD_IGNORE_PATTERNS", "/node_modules, /third_party")
	t.Setenv("ORCHARD_WATCH_DEBOUNCE", "1s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.GitBinary != "/usr/local/bin/git" || cfg.GitTimeout != 5*time.Second {
		t.Errorf("git = %q/%v", cfg.GitBinary, cfg.GitTimeout)
	}
	if cfg.MaxFileSize != 1024 {
		t.Errorf("MaxFileSize = %d", cfg.MaxFileSize)
	}
	if cfg.DatabaseURL != "sqlite:///tmp/orchard.db" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if want := []string{"/node_modules", "/third_party"}; !reflect.DeepEqual(cfg.IgnorePatterns, want) {
		t.Errorf("IgnorePatterns = %v, want %v", cfg.IgnorePatterns, want)
	}
	if cfg.WatchDebounce != time.Second {
		t.Errorf("WatchDebounce = %v", cfg.WatchDebounce)
	}
}

func TestLoadNormalizesExtensions(t *testing.T) {
	clearEnv(t)
	t.Setenv("ORCHARD_DOC_EXTENSIONS", "MD,.Rst , adoc")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{".md", ".rst", ".adoc"}
	if !reflect.DeepEqual(cfg.DocExtensions, want) {
		t.Errorf("DocExtensions = %v, want %v", cfg.DocExtensions, want)
	}
}

func TestLoadRejectsNonPositiveLimits(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"ORCHARD_MAX_EXPANDED_PATHS", "-1"},
		{"ORCHARD_MAX_DIR_ENTRIES", "0"},
		{"ORCHARD_MAX_FILE_SIZE", "-5"},
		{"ORCHARD_GIT_TIMEOUT", "-2s"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load accepted %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("ORCHARD_MAX_DIR_ENTRIES", "many")
	t.Setenv("ORCHARD_GIT_TIMEOUT", "soon")
	t.Setenv("ORCHARD_SUGGEST_PATTERNS", " , ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxDirEntries != 1000 {
		t.Errorf("MaxDirEntries = %d, want default 1000", cfg.MaxDirEntries)
	}
	if cfg.GitTimeout != 30*time.Second {
		t.Errorf("GitTimeout = %v, want default 30s", cfg.GitTimeout)
	}
	if want := []string{"/wiki", "/notes", "/guides", "/handbook"}; !reflect.DeepEqual(cfg.SuggestPatterns, want) {
		t.Errorf("SuggestPatterns = %v, want defaults %v", cfg.SuggestPatterns, want)
	}
}
