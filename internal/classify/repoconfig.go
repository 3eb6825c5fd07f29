package classify

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/orcharddocs/orchard/internal/logging"
)

// RepoConfigName is the optional per-repository override file, read from the
// repository root once per classification batch.
const RepoConfigName = ".orchard.yml"

// maxRepoConfigBytes caps how much of an untrusted repository file is read.
const maxRepoConfigBytes = 64 * 1024

type repoConfig struct {
	Preselect []string `yaml:"preselect"`
	Suggest   []string `yaml:"suggest"`
	Ignore    []string `yaml:"ignore"`
}

// loadRepoConfig reads .orchard.yml from the repository root. A missing file
// contributes nothing; an oversize or malformed one is logged and skipped,
// never fatal.
func loadRepoConfig(repoRoot string) Patterns {
	full := filepath.Join(repoRoot, RepoConfigName)

	info, err := os.Stat(full)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logging.Debug("repo config unreadable", logging.Err(err))
		}
		return Patterns{}
	}
	if info.Size() > maxRepoConfigBytes {
		logging.Warn("repo config too large, skipping",
			logging.String("file", RepoConfigName),
			logging.Int64("size", info.Size()))
		return Patterns{}
	}

	raw, err := os.ReadFile(full)
	if err != nil {
		logging.Debug("repo config unreadable", logging.Err(err))
		return Patterns{}
	}

	var cfg repoConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		logging.Warn("repo config malformed, skipping",
			logging.String("file", RepoConfigName),
			logging.Err(err))
		return Patterns{}
	}
	return Patterns{
		Preselect: cfg.Preselect,
		Suggest:   cfg.Suggest,
		Ignore:    cfg.Ignore,
	}
}
