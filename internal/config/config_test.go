package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Listen.Port != 9876 {
		t.Errorf("Listen.Port = %d, want %d", cfg.Listen.Port, 9876)
	}
	if cfg.Listen.ChunkSize != 256*1024 {
		t.Errorf("Listen.ChunkSize = %d, want %d", cfg.Listen.ChunkSize, 256*1024)
	}
	if cfg.Listen.Transport != "quic" {
		t.Errorf("Listen.Transport = %q, want %q", cfg.Listen.Transport, "quic")
	}
	if cfg.Discovery.ServiceType != "_openshare._tcp.local." {
		t.Errorf("Discovery.ServiceType = %q, want %q", cfg.Discovery.ServiceType, "_openshare._tcp.local.")
	}
	if cfg.Storage.DataDir == "" {
		t.Error("Storage.DataDir should not be empty")
	}
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadConfig(filepath.Join(dir, "nonexistent.toml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Listen.Port != DefaultConfig().Listen.Port {
		t.Error("missing config file should yield default port")
	}
}

func TestSaveThenLoadConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := DefaultConfig()
	cfg.Listen.Port = 12345
	cfg.Discovery.DeviceID = "test-device"

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Listen.Port != 12345 {
		t.Errorf("loaded Listen.Port = %d, want %d", loaded.Listen.Port, 12345)
	}
	if loaded.Discovery.DeviceID != "test-device" {
		t.Errorf("loaded Discovery.DeviceID = %q, want %q", loaded.Discovery.DeviceID, "test-device")
	}
}

func TestEnsureDataDirCreatesSubdirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Storage.DataDir = filepath.Join(dir, "data")

	if err := cfg.EnsureDataDir(); err != nil {
		t.Fatalf("EnsureDataDir failed: %v", err)
	}

	for _, sub := range []string{"chunks", "manifests"} {
		if info, err := os.Stat(filepath.Join(cfg.Storage.DataDir, sub)); err != nil || !info.IsDir() {
			t.Errorf("expected directory %s to exist", sub)
		}
	}
}
