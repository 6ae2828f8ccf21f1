package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/openmined/cdnpublish/internal/config"
	"github.com/openmined/cdnpublish/internal/storage/storagetest"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{"CDN_STORAGE_API_BASE_URL", "CDN_STORAGE_API_KEY", "CDN_ZONE_NAME"}

// unsetEnv clears the CDN_* variables for the duration of the test.
func unsetEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

// isolate moves the test into an empty working directory with a clean environment.
func isolate(t *testing.T) string {
	t.Helper()
	unsetEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func parsedRoot(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

// execute runs the CLI with args and returns what it wrote to stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()

	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func serverArgs(srv *storagetest.Server, args ...string) []string {
	return append(args, "-s", srv.URL, "-k", srv.AccessKey, "-z", srv.Zone)
}

func TestLoadConfigEnv(t *testing.T) {
	isolate(t)
	t.Setenv("CDN_STORAGE_API_KEY", "env-key")
	t.Setenv("CDN_ZONE_NAME", "env-zone")

	cfg, err := loadConfig(parsedRoot(t))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, "env-key", cfg.AccessKey)
	assert.Equal(t, "env-zone", cfg.Zone)
}

func TestLoadConfigFlagsOverrideEnv(t *testing.T) {
	isolate(t)
	t.Setenv("CDN_STORAGE_API_BASE_URL", "https://env.example.com")
	t.Setenv("CDN_STORAGE_API_KEY", "env-key")
	t.Setenv("CDN_ZONE_NAME", "env-zone")

	cfg, err := loadConfig(parsedRoot(t, "-s", "https://flag.example.com", "--zone-name", "flag-zone"))
	require.NoError(t, err)

	assert.Equal(t, "https://flag.example.com", cfg.BaseURL)
	assert.Equal(t, "env-key", cfg.AccessKey)
	assert.Equal(t, "flag-zone", cfg.Zone)
}

func TestLoadConfigFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "cdn.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage_api_base_url: https://file.example.com
storage_api_key: file-key
zone_name: file-zone
`), 0o644))
	t.Setenv("CDN_ZONE_NAME", "env-zone")

	cfg, err := loadConfig(parsedRoot(t, "--config", path))
	require.NoError(t, err)

	assert.Equal(t, "https://file.example.com", cfg.BaseURL)
	assert.Equal(t, "file-key", cfg.AccessKey)
	assert.Equal(t, "env-zone", cfg.Zone)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	dir := isolate(t)

	_, err := loadConfig(parsedRoot(t, "--config", filepath.Join(dir, "missing.json"), "-k", "k", "-z", "z"))
	assert.Error(t, err)
}

func TestLoadConfigDotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CDN_STORAGE_API_KEY=dotenv-key\nCDN_ZONE_NAME=dotenv-zone\n"), 0o644))
	t.Setenv("CDN_ZONE_NAME", "env-zone")

	cfg, err := loadConfig(parsedRoot(t))
	require.NoError(t, err)

	assert.Equal(t, "dotenv-key", cfg.AccessKey)
	assert.Equal(t, "env-zone", cfg.Zone)
}

func TestLoadConfigMissingExplicitEnvFile(t *testing.T) {
	isolate(t)

	_, err := loadConfig(parsedRoot(t, "--env-file", "nope.env", "-k", "k", "-z", "z"))
	assert.Error(t, err)
}

func TestLoadConfigValidation(t *testing.T) {
	isolate(t)

	_, err := loadConfig(parsedRoot(t, "-z", "zone"))
	assert.ErrorIs(t, err, config.ErrNoAccessKey)

	_, err = loadConfig(parsedRoot(t, "-k", "key"))
	assert.ErrorIs(t, err, config.ErrNoZone)

	_, err = loadConfig(parsedRoot(t, "-k", "key", "-z", "zone", "-s", "storage.example.com"))
	assert.ErrorIs(t, err, config.ErrBadBaseURL)
}
