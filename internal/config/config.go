package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all mailpeek configuration.
type Config struct {
	Sync  SyncConfig  `toml:"sync"`
	Gmail GmailConfig `toml:"gmail"`
	Vault VaultConfig `toml:"vault"`
}

// GmailConfig holds Gmail OAuth application credentials.
// Users supply their own via config file or env vars.
type GmailConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// SyncConfig holds synchronization settings.
type SyncConfig struct {
	// Interval is the background poll cadence while the observer reports
	// not-visible. Wake events sync immediately regardless of this value.
	Interval string `toml:"interval"`
}

// VaultConfig selects where token material is persisted.
type VaultConfig struct {
	// Backend is "file" (machine-bound encrypted blobs) or "keyring"
	// (OS keyring).
	Backend string `toml:"backend"`
}

func defaults() Config {
	return Config{
		Sync:  SyncConfig{Interval: "2m"},
		Vault: VaultConfig{Backend: "file"},
	}
}

// Load reads config from path. If path is empty or the file does not exist,
// returns defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// SyncInterval parses the configured background cadence.
func (c *Config) SyncInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Sync.Interval)
	if err != nil {
		return 0, fmt.Errorf("failed to parse sync interval %q: %w", c.Sync.Interval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("sync interval must be positive, got %q", c.Sync.Interval)
	}
	return d, nil
}

// ConfigDir returns the mailpeek config directory path.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "mailpeek")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "mailpeek")
}

// DataDir returns the mailpeek data directory path.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "mailpeek")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "mailpeek")
}
