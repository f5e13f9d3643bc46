package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/gritvcs/grit/pkg/object"
)

// supportedFormatVersion is the only on-disk layout this build understands.
const supportedFormatVersion = 0

// Config stores repository-local settings, persisted as
// .grit/config.toml.
type Config struct {
	FormatVersion int        `toml:"format-version"`
	Core          CoreConfig `toml:"core"`
	User          UserConfig `toml:"user"`
}

// CoreConfig holds settings the storage layer depends on. Hash is fixed
// for the lifetime of the repository: changing it would invalidate every
// identifier in the object graph.
type CoreConfig struct {
	Hash          string `toml:"hash"`
	DefaultBranch string `toml:"default-branch"`
}

// UserConfig is the default identity recorded in commits and tags.
type UserConfig struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
}

// DefaultConfig returns the configuration written by Init.
func DefaultConfig(algo object.Algorithm) *Config {
	return &Config{
		FormatVersion: supportedFormatVersion,
		Core: CoreConfig{
			Hash:          string(algo),
			DefaultBranch: "main",
		},
	}
}

// Identity formats the configured user as "Name <email>", the form stored
// in commit and tag headers. Falls back to "unknown" when unset.
func (c *Config) Identity() string {
	if c == nil || c.User.Name == "" {
		return "unknown"
	}
	if c.User.Email == "" {
		return c.User.Name
	}
	return fmt.Sprintf("%s <%s>", c.User.Name, c.User.Email)
}

func configPath(gritDir string) string {
	return filepath.Join(gritDir, "config.toml")
}

// ReadConfig loads and validates .grit/config.toml.
func ReadConfig(gritDir string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(configPath(gritDir), &cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: missing config.toml in %s", gritDir)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if cfg.FormatVersion != supportedFormatVersion {
		return nil, fmt.Errorf("read config: unsupported format-version %d", cfg.FormatVersion)
	}
	if _, err := object.ParseAlgorithm(cfg.Core.Hash); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if cfg.Core.DefaultBranch == "" {
		cfg.Core.DefaultBranch = "main"
	}
	return &cfg, nil
}

// WriteConfig atomically writes .grit/config.toml.
func WriteConfig(gritDir string, cfg *Config) error {
	tmp, err := os.CreateTemp(gritDir, ".config-tmp-*")
	if err != nil {
		return fmt.Errorf("write config: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if err := toml.NewEncoder(tmp).Encode(cfg); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: close: %w", err)
	}
	if err := os.Rename(tmpName, configPath(gritDir)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: rename: %w", err)
	}
	return nil
}

// SetUser updates the recorded identity and persists the config.
func (r *Repo) SetUser(name, email string) error {
	r.Config.User.Name = name
	r.Config.User.Email = email
	return WriteConfig(r.GritDir, r.Config)
}
