// Package config loads and persists the on-disk configuration for the
// openshare daemon and CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/openshare-go/openshare/pkg/constants"
)

// Config holds all configuration needed to run a transfer endpoint.
type Config struct {
	Listen    ListenConfig    `toml:"listen"`
	Storage   StorageConfig   `toml:"storage"`
	Discovery DiscoveryConfig `toml:"discovery"`
}

// ListenConfig controls the local transport endpoint.
type ListenConfig struct {
	Port      int    `toml:"port"`
	ChunkSize int    `toml:"chunk_size"`
	Transport string `toml:"transport"` // "tcp" or "quic"
}

// StorageConfig controls where chunks and manifests are kept on disk.
type StorageConfig struct {
	DataDir string `toml:"data_dir"`
}

// DiscoveryConfig controls how this node announces and finds peers.
type DiscoveryConfig struct {
	ServiceType string `toml:"service_type"`
	AccountHash string `toml:"account_hash"`
	DeviceID    string `toml:"device_id"`
}

// DefaultConfig returns a configuration usable without any file on disk.
func DefaultConfig() Config {
	dataDir := defaultDataDir()
	return Config{
		Listen: ListenConfig{
			Port:      constants.DefaultListenPort,
			ChunkSize: constants.DefaultChunkSize,
			Transport: "quic",
		},
		Storage: StorageConfig{
			DataDir: dataDir,
		},
		Discovery: DiscoveryConfig{
			ServiceType: constants.DefaultServiceType,
		},
	}
}

// LoadConfig reads config from path, overlaying it onto DefaultConfig.
// A missing file is not an error; the defaults are returned as-is.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path as TOML, creating parent directories.
func SaveConfig(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create dir for %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: create %s: %w", path, err)
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// EnsureDataDir creates the data directory and its chunks/manifests
// subdirectories if they do not already exist.
func (c Config) EnsureDataDir() error {
	for _, sub := range []string{"", "chunks", "manifests"} {
		dir := filepath.Join(c.Storage.DataDir, sub)
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	return nil
}

// DefaultConfigPath returns the default location of the config file,
// honoring OPENSHARE_HOME if set.
func DefaultConfigPath() string {
	return filepath.Join(openshareHome(), "config.toml")
}

func defaultDataDir() string {
	return filepath.Join(openshareHome(), "data")
}

func openshareHome() string {
	if env := os.Getenv("OPENSHARE_HOME"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".openshare"
	}
	return filepath.Join(home, ".openshare")
}
