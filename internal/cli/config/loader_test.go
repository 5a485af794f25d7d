package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultMapping, cfg.Mapping)
	assert.Equal(t, DefaultDataDir, cfg.DataDir)
	assert.Equal(t, DefaultStateDB, cfg.StateDB)
	assert.Equal(t, DefaultJobs, cfg.Jobs)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.False(t, cfg.Verbose)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := "mapping: states.yaml\ndata_dir: /data\nrequired_columns:\n  - State\n  - SchoolName\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "statemapper.yaml"), []byte(content), 0600))
	chdir(t, dir)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "states.yaml", cfg.Mapping)
	assert.Equal(t, "/data", cfg.DataDir)
	assert.Equal(t, []string{"State", "SchoolName"}, cfg.RequiredColumns)
	assert.Equal(t, "statemapper.yaml", GetConfigFileUsed())
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	chdir(t, t.TempDir())
	_, err := LoadConfig("no-such-config.yaml", nil)
	assert.Error(t, err)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "statemapper.yaml"),
		[]byte("data_dir: /from-file\n"), 0600))
	chdir(t, dir)
	t.Setenv("STATEMAPPER_DATA_DIR", "/from-env")
	t.Setenv("STATEMAPPER_REQUIRED_COLUMNS", "State,SchoolName")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "/from-env", cfg.DataDir)
	assert.Equal(t, []string{"State", "SchoolName"}, cfg.RequiredColumns)
}

func TestLoadConfigFlagsOverrideEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("STATEMAPPER_JOBS", "2")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("jobs", DefaultJobs, "")
	flags.String("data-dir", DefaultDataDir, "")
	require.NoError(t, flags.Parse([]string{"--jobs=8", "--data-dir=/from-flag"}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Jobs)
	assert.Equal(t, "/from-flag", cfg.DataDir)
}

func TestLoadConfigUnchangedFlagsIgnored(t *testing.T) {
	chdir(t, t.TempDir())

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("jobs", 99, "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, DefaultJobs, cfg.Jobs)
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
