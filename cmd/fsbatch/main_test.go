package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelscutari/fsbatch/internal/console"
	"github.com/michaelscutari/fsbatch/internal/resolve"
	"github.com/michaelscutari/fsbatch/internal/scan"
)

func TestCounterFlagsOverrideConfigOnlyWhenSet(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	var f counterFlags
	f.register(cmd, resolve.RenameCounter())
	require.NoError(t, cmd.ParseFlags([]string{"--step", "3", "-p", "v"}))

	got := f.apply(cmd, resolve.Counter{Initial: 7, Step: 1, Suffix: ")"})
	assert.Equal(t, resolve.Counter{Initial: 7, Step: 3, Prefix: "v", Suffix: ")"}, got)
}

func TestReportRunErrorLevels(t *testing.T) {
	invalid := scan.CheckDirs(filepath.Join(t.TempDir(), "a"), filepath.Join(t.TempDir(), "b"))
	require.Error(t, invalid)

	tests := []struct {
		level console.Level
		lines int
	}{
		{console.LevelQuiet, 0},
		{console.LevelNormal, 1},
		{console.LevelVerbose, 2},
	}
	for _, tt := range tests {
		var stdout, stderr bytes.Buffer
		out = console.New(&stdout, &stderr, tt.level)

		err := reportRunError(invalid)
		var silent *silentError
		assert.True(t, errors.As(err, &silent))
		assert.Equal(t, tt.lines, bytes.Count(stderr.Bytes(), []byte("\n")), "level %d", tt.level)
	}
}

func TestReportRunErrorCanceled(t *testing.T) {
	var stdout, stderr bytes.Buffer
	out = console.New(&stdout, &stderr, console.LevelNormal)
	assert.NoError(t, reportRunError(errors.Join(errors.New("copy stopped"), context.Canceled)))
	assert.Contains(t, stderr.String(), "canceled")
}

func TestCopyCommand(t *testing.T) {
	root := t.TempDir()
	cfgFile := filepath.Join(root, "config.toml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("[copy]\nprefix = \"_\"\n"), 0o644))
	t.Setenv("FSBATCH_CONFIG", cfgFile)

	src := filepath.Join(root, "src")
	require.NoError(t, os.Mkdir(src, 0o755))
	for _, name := range []string{"10.txt", "2.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(src, name), []byte(name), 0o644))
	}
	dest := filepath.Join(root, "dest")

	rootCmd.SetArgs([]string{"--no-journal", "-q", "copy", dest, "-s", src})
	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(filepath.Join(dest, "2_0.txt"))
	require.NoError(t, err)
	assert.Equal(t, "2.txt", string(data))
	data, err = os.ReadFile(filepath.Join(dest, "10_1.txt"))
	require.NoError(t, err)
	assert.Equal(t, "10.txt", string(data))
}
