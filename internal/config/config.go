// Package config loads discover configuration with layering:
// defaults, then an optional yaml file, then environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Env variable names recognized by Load. The token is env-only so it
// never lands in a config file.
const (
	EnvBaseURL  = "DISCOVER_BASE_URL"
	EnvOrg      = "DISCOVER_ORG"
	EnvToken    = "DISCOVER_TOKEN"
	EnvLogLevel = "DISCOVER_LOG_LEVEL"
)

// Retry tunes transient failure handling for backend requests.
type Retry struct {
	MaxRetries     int           `yaml:"maxRetries"`
	InitialBackoff time.Duration `yaml:"initialBackoff"`
	MaxBackoff     time.Duration `yaml:"maxBackoff"`
	Jitter         float64       `yaml:"jitter"`
}

// Config is the full discover configuration.
type Config struct {
	BaseURL      string        `yaml:"baseUrl"`
	Org          string        `yaml:"org"`
	Token        string        `yaml:"-"`
	Projects     []string      `yaml:"projects"`
	LogLevel     string        `yaml:"logLevel"`
	Pretty       bool          `yaml:"pretty"`
	Timeout      time.Duration `yaml:"timeout"`
	SavedQueryDB string        `yaml:"savedQueryDb"`
	Retry        Retry         `yaml:"retry"`
}

// Default returns the configuration baseline.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return &Config{
		LogLevel:     "info",
		Pretty:       true,
		Timeout:      30 * time.Second,
		SavedQueryDB: filepath.Join(home, ".discover", "saved.db"),
		Retry: Retry{
			MaxRetries:     3,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     5 * time.Second,
			Jitter:         0.2,
		},
	}
}

// Load builds the configuration from defaults, the yaml file at path
// (skipped when path is empty or the file does not exist), and finally
// the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Missing config file is fine; defaults + env apply.
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvOrg); v != "" {
		c.Org = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		c.Token = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// Validate checks that the configuration can drive a backend session.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL is required (set baseUrl or %s)", EnvBaseURL)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base URL %q is not a valid absolute URL", c.BaseURL)
	}
	if c.Org == "" {
		return fmt.Errorf("organization slug is required (set org or %s)", EnvOrg)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.Retry.Jitter < 0 || c.Retry.Jitter > 1 {
		return fmt.Errorf("retry jitter must be within [0, 1], got %v", c.Retry.Jitter)
	}
	return nil
}
