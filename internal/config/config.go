package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/quocln/mcp-shrimp-task-manager/internal/domain"
)

// Config is the process configuration: where the data directory lives and
// how the search and assessment layers are tuned. Values come from an
// optional YAML file, overridden by environment variables.
type Config struct {
	DataDir          string `yaml:"dataDir"`
	PageSize         int    `yaml:"pageSize"`
	ArchiveScanLimit int    `yaml:"archiveScanLimit"`
	LogLevel         string `yaml:"logLevel"`

	Complexity domain.ComplexityThresholds `yaml:"complexity"`
}

// Default returns the configuration used when no file or environment
// overrides are present. The data directory defaults to .shrimp under the
// working directory.
func Default() Config {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return Config{
		DataDir:          filepath.Join(cwd, ".shrimp"),
		PageSize:         5,
		ArchiveScanLimit: 50,
		LogLevel:         "info",
		Complexity:       domain.DefaultComplexityThresholds(),
	}
}

// Load reads the YAML file at path (missing file is fine), then applies
// environment overrides: SHRIMP_DATA_DIR, SHRIMP_PAGE_SIZE,
// SHRIMP_ARCHIVE_SCAN_LIMIT, SHRIMP_LOG_LEVEL.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if v := os.Getenv("SHRIMP_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("SHRIMP_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return cfg, fmt.Errorf("SHRIMP_PAGE_SIZE: %q is not a positive integer", v)
		}
		cfg.PageSize = n
	}
	if v := os.Getenv("SHRIMP_ARCHIVE_SCAN_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return cfg, fmt.Errorf("SHRIMP_ARCHIVE_SCAN_LIMIT: %q is not a positive integer", v)
		}
		cfg.ArchiveScanLimit = n
	}
	if v := os.Getenv("SHRIMP_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if cfg.PageSize < 1 {
		cfg.PageSize = 5
	}
	if cfg.ArchiveScanLimit < 1 {
		cfg.ArchiveScanLimit = 50
	}
	if zero := (domain.ComplexityThresholds{}); cfg.Complexity == zero {
		cfg.Complexity = domain.DefaultComplexityThresholds()
	}

	return cfg, nil
}
