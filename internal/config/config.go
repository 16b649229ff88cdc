// Package config loads fsbatch settings from a TOML or YAML file.
//
// Values not present in the file keep their defaults; command-line flags
// override both.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/michaelscutari/fsbatch/internal/resolve"
)

// EnvVar names the environment variable that overrides the config path.
const EnvVar = "FSBATCH_CONFIG"

// Config holds the complete application configuration.
type Config struct {
	Copy    CopyConfig    `toml:"copy" yaml:"copy"`
	Rename  RenameConfig  `toml:"rename" yaml:"rename"`
	Sync    SyncConfig    `toml:"sync" yaml:"sync"`
	Journal JournalConfig `toml:"journal" yaml:"journal"`
	Resolve ResolveConfig `toml:"resolve" yaml:"resolve"`
}

// CopyConfig holds numbered-copy defaults.
type CopyConfig struct {
	Initial  int      `toml:"initial" yaml:"initial"`
	Step     int      `toml:"step" yaml:"step"`
	Prefix   string   `toml:"prefix" yaml:"prefix"`
	Suffix   string   `toml:"suffix" yaml:"suffix"`
	Override bool     `toml:"override" yaml:"override"`
	Exclude  []string `toml:"exclude" yaml:"exclude"`
}

// RenameConfig holds rename defaults.
type RenameConfig struct {
	Initial int      `toml:"initial" yaml:"initial"`
	Step    int      `toml:"step" yaml:"step"`
	Prefix  string   `toml:"prefix" yaml:"prefix"`
	Suffix  string   `toml:"suffix" yaml:"suffix"`
	Keep    bool     `toml:"keep" yaml:"keep"`
	Deep    bool     `toml:"deep" yaml:"deep"`
	Exclude []string `toml:"exclude" yaml:"exclude"`
}

// SyncConfig holds sync defaults.
type SyncConfig struct {
	Backend  string   `toml:"backend" yaml:"backend"`
	Debounce Duration `toml:"debounce" yaml:"debounce"`
	ModTime  bool     `toml:"mod_time" yaml:"mod_time"`
}

// JournalConfig controls the run journal.
type JournalConfig struct {
	Dir       string `toml:"dir" yaml:"dir"`
	Retention int    `toml:"retention" yaml:"retention"`
	Disabled  bool   `toml:"disabled" yaml:"disabled"`
}

// ResolveConfig tunes collision resolution.
type ResolveConfig struct {
	MaxProbes int `toml:"max_probes" yaml:"max_probes"`
}

// Duration wraps time.Duration for TOML and YAML parsing.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText formats the duration as a string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.UnmarshalText([]byte(value.Value))
}

// Default returns the built-in configuration.
func Default() *Config {
	copyCounter := resolve.CopyCounter()
	renameCounter := resolve.RenameCounter()
	return &Config{
		Copy: CopyConfig{
			Initial: copyCounter.Initial,
			Step:    copyCounter.Step,
		},
		Rename: RenameConfig{
			Initial: renameCounter.Initial,
			Step:    renameCounter.Step,
		},
		Sync: SyncConfig{
			Backend:  "auto",
			Debounce: Duration{500 * time.Millisecond},
		},
		Journal: JournalConfig{
			Retention: 200,
		},
		Resolve: ResolveConfig{
			MaxProbes: resolve.DefaultMaxProbes,
		},
	}
}

// Counter returns the copy counter.
func (c CopyConfig) Counter() resolve.Counter {
	return resolve.Counter{Initial: c.Initial, Step: c.Step, Prefix: c.Prefix, Suffix: c.Suffix}
}

// Counter returns the rename counter.
func (c RenameConfig) Counter() resolve.Counter {
	return resolve.Counter{Initial: c.Initial, Step: c.Step, Prefix: c.Prefix, Suffix: c.Suffix}
}

// DefaultPath returns $FSBATCH_CONFIG, or config.toml in the user config
// directory.
func DefaultPath() string {
	if p := os.Getenv(EnvVar); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "fsbatch", "config.toml")
}

// Load reads the file at path over the defaults. The format is chosen by
// extension: .toml, .yaml or .yml.
func Load(path string) (*Config, error) {
	path = expandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q (want .toml, .yaml or .yml)", filepath.Ext(path))
	}

	cfg.Journal.Dir = expandPath(cfg.Journal.Dir)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault loads DefaultPath. A missing default file yields the
// defaults; a file named by an explicit path must exist.
func LoadDefault() (*Config, error) {
	path := DefaultPath()
	if path == "" {
		return Default(), nil
	}
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) && os.Getenv(EnvVar) == "" {
		return Default(), nil
	}
	return cfg, err
}

// Validate rejects settings no command could run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Rename.Step == 0 {
		errs = append(errs, errors.New("rename.step must not be zero"))
	}
	switch c.Sync.Backend {
	case "auto", "native", "robocopy":
	default:
		errs = append(errs, fmt.Errorf("sync.backend %q is not one of auto, native, robocopy", c.Sync.Backend))
	}
	if c.Sync.Debounce.Duration < 0 {
		errs = append(errs, errors.New("sync.debounce must not be negative"))
	}
	if c.Journal.Retention < 0 {
		errs = append(errs, errors.New("journal.retention must not be negative"))
	}
	if c.Resolve.MaxProbes < 1 {
		errs = append(errs, errors.New("resolve.max_probes must be at least 1"))
	}
	return errors.Join(errs...)
}

func expandPath(path string) string {
	if path == "" {
		return path
	}
	path = os.ExpandEnv(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
