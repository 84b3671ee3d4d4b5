package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// Config represents the global ~/.multichannel/config.toml.
type Config struct {
	DefaultProfile     string             `toml:"default_profile" env:"MULTICHANNEL_PROFILE"`
	Archive            string             `toml:"archive" env:"MULTICHANNEL_ARCHIVE"`
	KeepCarriageReturn bool               `toml:"keep_carriage_return" env:"MULTICHANNEL_KEEP_CR"`
	Profiles           map[string]Profile `toml:"profiles,omitempty"`
}

// Profile holds per-application settings.
type Profile struct {
	Archive string `toml:"archive"`
}

// Load reads config from the given path. Returns nil and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadWithEnv reads the config file if present and applies environment overrides.
// A missing file yields a config built from the environment alone.
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		cfg = &Config{}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from MULTICHANNEL_* environment variables.
// Unset variables leave fields untouched.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ArchiveFor returns the archive configured for profile, falling back to the
// global archive.
func (c *Config) ArchiveFor(profile string) string {
	if p, ok := c.Profiles[profile]; ok && p.Archive != "" {
		return p.Archive
	}
	return c.Archive
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
