package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "config.toml", `
[copy]
prefix = "img_"
override = true

[rename]
initial = 1
step = 2
exclude = ["^thumbs"]

[sync]
backend = "native"
debounce = "2s"
mod_time = true

[journal]
retention = 10
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "img_", cfg.Copy.Prefix)
	assert.True(t, cfg.Copy.Override)
	assert.Equal(t, 0, cfg.Copy.Initial, "unset keys keep defaults")
	assert.Equal(t, 1, cfg.Copy.Step)
	assert.Equal(t, 1, cfg.Rename.Initial)
	assert.Equal(t, 2, cfg.Rename.Step)
	assert.Equal(t, []string{"^thumbs"}, cfg.Rename.Exclude)
	assert.Equal(t, "native", cfg.Sync.Backend)
	assert.Equal(t, 2*time.Second, cfg.Sync.Debounce.Duration)
	assert.True(t, cfg.Sync.ModTime)
	assert.Equal(t, 10, cfg.Journal.Retention)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yml", `
rename:
  prefix: " ("
  suffix: ")"
sync:
  debounce: 750ms
resolve:
  max_probes: 50
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, " (", cfg.Rename.Prefix)
	assert.Equal(t, ")", cfg.Rename.Suffix)
	assert.Equal(t, 2, cfg.Rename.Initial)
	assert.Equal(t, 750*time.Millisecond, cfg.Sync.Debounce.Duration)
	assert.Equal(t, "auto", cfg.Sync.Backend)
	assert.Equal(t, 50, cfg.Resolve.MaxProbes)

	c := cfg.Rename.Counter()
	assert.Equal(t, " (2)", c.Label(c.At(0)))
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero step", "[rename]\nstep = 0\n"},
		{"bad backend", "[sync]\nbackend = \"rsync\"\n"},
		{"bad duration", "[sync]\ndebounce = \"soon\"\n"},
		{"negative retention", "[journal]\nretention = -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "config.toml", tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	_, err := Load(writeFile(t, "config.json", "{}"))
	assert.ErrorContains(t, err, "unsupported config format")
}

func TestLoadExpandsJournalDir(t *testing.T) {
	t.Setenv("FSBATCH_TEST_ROOT", "/var/tmp/fsb")
	cfg, err := Load(writeFile(t, "config.toml", "[journal]\ndir = \"$FSBATCH_TEST_ROOT/journal\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "/var/tmp/fsb/journal", cfg.Journal.Dir)
}

func TestLoadDefaultMissingFile(t *testing.T) {
	t.Setenv(EnvVar, "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadDefaultExplicitMissing(t *testing.T) {
	t.Setenv(EnvVar, filepath.Join(t.TempDir(), "missing.toml"))
	_, err := LoadDefault()
	assert.Error(t, err)
}

func TestDurationText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Duration)

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))
}
