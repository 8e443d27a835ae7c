package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"

	cerrors "driftwatch/internal/core/errors"
)

type Config struct {
	Version       int           `toml:"version"`
	Project       Project       `toml:"project"`
	Paths         Paths         `toml:"paths"`
	Exclude       Exclude       `toml:"exclude"`
	DB            Database      `toml:"db"`
	Analysis      Analysis      `toml:"analysis"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
	Output        Output        `toml:"output"`
}

type Project struct {
	Key string `toml:"key"`
}

type Paths struct {
	Roots []string `toml:"roots"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Database struct {
	Enabled       bool   `toml:"enabled"`
	Path          string `toml:"path"`
	BusyTimeoutMS int    `toml:"busy_timeout_ms"`
}

type Analysis struct {
	Workers int `toml:"workers"`
}

type Watch struct {
	Debounce         time.Duration `toml:"debounce"`
	RescansPerMinute float64       `toml:"rescans_per_minute"`
}

type Observability struct {
	MetricsAddr  string `toml:"metrics_addr"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
}

type Output struct {
	Markdown string `toml:"markdown"`
	JSON     string `toml:"json"`
}

// EnvConfigPath overrides the config file location when set.
const EnvConfigPath = "DRIFTWATCH_CONFIG"

func Load(path string) (*Config, error) {
	if env := strings.TrimSpace(os.Getenv(EnvConfigPath)); env != "" {
		path = env
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := validateVersion(&cfg); err != nil {
		return nil, err
	}
	if err := validatePaths(&cfg); err != nil {
		return nil, err
	}
	if err := validateExcludes(&cfg); err != nil {
		return nil, err
	}
	if err := validateWatch(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a ready-to-use config without reading any file,
// used when no config file exists next to the scanned project.
func Default(root string) *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	if root != "" {
		cfg.Paths.Roots = []string{root}
	}
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if strings.TrimSpace(cfg.Project.Key) == "" {
		cfg.Project.Key = "default"
	}
	if len(cfg.Paths.Roots) == 0 {
		cfg.Paths.Roots = []string{"."}
	}
	if len(cfg.Exclude.Dirs) == 0 {
		cfg.Exclude.Dirs = []string{
			".git", ".hg", ".svn", "node_modules", "vendor", "dist",
			"build", "target", "__pycache__", ".venv", ".idea", ".vscode",
		}
	}
	if strings.TrimSpace(cfg.DB.Path) == "" {
		cfg.DB.Path = "data/driftwatch.db"
		cfg.DB.Enabled = true
	}
	if cfg.DB.BusyTimeoutMS <= 0 {
		cfg.DB.BusyTimeoutMS = 2000
	}
	if cfg.Analysis.Workers <= 0 {
		cfg.Analysis.Workers = 64
	}
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Watch.RescansPerMinute <= 0 {
		cfg.Watch.RescansPerMinute = 12
	}
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return cerrors.New(cerrors.CodeValidationError,
			fmt.Sprintf("unsupported config version %d", cfg.Version))
	}
	return nil
}

func validatePaths(cfg *Config) error {
	for _, root := range cfg.Paths.Roots {
		if strings.TrimSpace(root) == "" {
			return cerrors.New(cerrors.CodeValidationError, "paths.roots must not contain empty entries")
		}
	}
	return nil
}

func validateExcludes(cfg *Config) error {
	for _, p := range cfg.Exclude.Dirs {
		if _, err := glob.Compile(p); err != nil {
			return cerrors.Wrap(err, cerrors.CodeValidationError,
				fmt.Sprintf("invalid exclude dir pattern %q", p))
		}
	}
	for _, p := range cfg.Exclude.Files {
		if _, err := glob.Compile(p); err != nil {
			return cerrors.Wrap(err, cerrors.CodeValidationError,
				fmt.Sprintf("invalid exclude file pattern %q", p))
		}
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce > time.Minute {
		return cerrors.New(cerrors.CodeValidationError,
			fmt.Sprintf("watch.debounce %s is unreasonably long", cfg.Watch.Debounce))
	}
	return nil
}
