// Package config loads totpctl settings from a YAML file with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/forest6511/totpctl/internal/display"
	"github.com/forest6511/totpctl/internal/keystore"
	"github.com/forest6511/totpctl/pkg/failure"
	"github.com/forest6511/totpctl/pkg/vault"
)

// AppName names the per-user configuration directory.
const AppName = "totpctl"

// FileName is the config file name inside the configuration directory.
const FileName = "config.yaml"

// Backends
const (
	BackendFile    = "file"
	BackendKeyring = "keyring"
)

// Environment overrides
const (
	EnvVault   = "TOTPCTL_VAULT"
	EnvBackend = "TOTPCTL_BACKEND"
)

// Errors
var (
	ErrInvalidConfig = failure.New(failure.Input, "config: invalid configuration")
	ErrNoConfigDir   = failure.New(failure.Storage, "config: cannot determine configuration directory")
)

// Config holds user settings. Zero values are replaced by defaults on load.
type Config struct {
	VaultPath       string        `yaml:"vault_path"`
	Backend         string        `yaml:"backend"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	RowHeight       int           `yaml:"row_height"`
	LogLevel        string        `yaml:"log_level"`
	KeystoreService string        `yaml:"keystore_service"`
}

// Dir returns the per-user configuration directory for totpctl.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoConfigDir, err)
	}
	return filepath.Join(base, AppName), nil
}

// DefaultPath returns the default config file path.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load reads the config at path, or the default path when path is empty.
// A missing file yields the defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := &Config{}
	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, failure.Wrapf(failure.Storage, "config: failed to read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidConfig, path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvVault); v != "" {
		c.VaultPath = v
	}
	if v := os.Getenv(EnvBackend); v != "" {
		c.Backend = v
	}
}

func (c *Config) applyDefaults() error {
	if c.VaultPath == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		c.VaultPath = filepath.Join(dir, vault.FileName)
	}
	if c.Backend == "" {
		c.Backend = BackendFile
	}
	if c.PollInterval == 0 {
		c.PollInterval = display.DefaultPollInterval
	}
	if c.RowHeight == 0 {
		c.RowHeight = display.DefaultRowHeight
	}
	if c.LogLevel == "" {
		c.LogLevel = zerolog.WarnLevel.String()
	}
	if c.KeystoreService == "" {
		c.KeystoreService = keystore.DefaultService
	}
	return nil
}

// Validate checks enumerated and numeric fields.
func (c *Config) Validate() error {
	c.Backend = strings.ToLower(c.Backend)
	if c.Backend != BackendFile && c.Backend != BackendKeyring {
		return fmt.Errorf("%w: backend must be %q or %q, got %q", ErrInvalidConfig, BackendFile, BackendKeyring, c.Backend)
	}
	if c.PollInterval < 10*time.Millisecond || c.PollInterval > 5*time.Second {
		return fmt.Errorf("%w: poll_interval must be between 10ms and 5s, got %s", ErrInvalidConfig, c.PollInterval)
	}
	if c.RowHeight < 1 || c.RowHeight > 20 {
		return fmt.Errorf("%w: row_height must be between 1 and 20, got %d", ErrInvalidConfig, c.RowHeight)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.WarnLevel, fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	return lvl, nil
}
