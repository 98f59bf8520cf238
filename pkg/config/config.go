/*
Package config manages TOML config for semkit services.
*/
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

// Config holds the entire config structure.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Data     DataConfig     `toml:"data"`
	Store    StoreConfig    `toml:"store"`
	Wordstat WordstatConfig `toml:"wordstat"`
}

// ServerConfig has HTTP server related options.
type ServerConfig struct {
	Addr         string `toml:"addr"`
	SuggestLimit int    `toml:"suggest_limit"`
}

// DataConfig points at the frequency source files.
type DataConfig struct {
	Dir string `toml:"dir"`
}

// StoreConfig holds document store options.
type StoreConfig struct {
	Path string `toml:"path"`
}

// WordstatConfig holds the external statistics API options.
type WordstatConfig struct {
	BaseURL           string `toml:"base_url"`
	Token             string `toml:"token"`
	RequestsPerSecond int    `toml:"requests_per_second"`
	RequestsPerDay    int    `toml:"requests_per_day"`
	CacheTTLMinutes   int    `toml:"cache_ttl_minutes"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
}

// CacheTTL returns the configured cache lifetime as a duration.
func (w WordstatConfig) CacheTTL() time.Duration {
	return time.Duration(w.CacheTTLMinutes) * time.Minute
}

// Timeout returns the configured per-call timeout as a duration.
func (w WordstatConfig) Timeout() time.Duration {
	return time.Duration(w.TimeoutSeconds) * time.Second
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			SuggestLimit: 24,
		},
		Data: DataConfig{
			Dir: "data/",
		},
		Store: StoreConfig{
			Path: "semkit.db",
		},
		Wordstat: WordstatConfig{
			RequestsPerSecond: 5,
			RequestsPerDay:    1000,
			CacheTTLMinutes:   30,
			TimeoutSeconds:    30,
		},
	}
}

// Load parses a TOML config file on top of the defaults, so partial files
// only override what they mention.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. ./semkit.toml when present
// 3. Builtin defaults
// A broken file falls back down the chain with a warning, never fatally.
func LoadWithPriority(customPath string) (*Config, string) {
	if customPath != "" {
		cfg, err := Load(customPath)
		if err == nil {
			log.Debugf("Loaded config from custom path: %s", customPath)
			return cfg, customPath
		}
		log.Warnf("Failed to load config from %s: %v. Trying default path...", customPath, err)
	}

	const defaultPath = "semkit.toml"
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := Load(defaultPath)
		if err == nil {
			log.Debugf("Loaded config from default path: %s", defaultPath)
			return cfg, defaultPath
		}
		log.Warnf("Failed to load config at %s: %v. Using builtin defaults...", defaultPath, err)
	}
	return DefaultConfig(), ""
}
