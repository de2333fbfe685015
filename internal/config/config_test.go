package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.NotEmpty(t, cfg.SavedQueryDB)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Timeout, cfg.Timeout)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
baseUrl: https://discover.example.com
org: acme
projects: ["1", "2"]
timeout: 10s
logLevel: debug
retry:
  maxRetries: 7
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://discover.example.com", cfg.BaseURL)
	assert.Equal(t, "acme", cfg.Org)
	assert.Equal(t, []string{"1", "2"}, cfg.Projects)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 7, cfg.Retry.MaxRetries)
	// Retry keys absent from the file keep their defaults.
	assert.Equal(t, Default().Retry.InitialBackoff, cfg.Retry.InitialBackoff)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("baseUrl: https://file.example.com\norg: fileorg\n"), 0o600))

	t.Setenv(EnvBaseURL, "https://env.example.com")
	t.Setenv(EnvOrg, "envorg")
	t.Setenv(EnvToken, "sekrit")
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.BaseURL)
	assert.Equal(t, "envorg", cfg.Org)
	assert.Equal(t, "sekrit", cfg.Token)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("baseUrl: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.BaseURL = "https://discover.example.com"
		cfg.Org = "acme"
		return cfg
	}

	require.NoError(t, valid().Validate())

	cfg := valid()
	cfg.BaseURL = ""
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.BaseURL = "not a url"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Org = ""
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Timeout = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Retry.Jitter = 1.5
	assert.Error(t, cfg.Validate())
}
