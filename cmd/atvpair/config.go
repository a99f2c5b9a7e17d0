package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the CLI configuration file.
//
//	log_level: debug
//	storage_path: /var/lib/atvpair/credentials.db
//	scan_timeout: 5s
//	pair_timeout: 30s
type Config struct {
	LogLevel    string        `yaml:"log_level"`
	StoragePath string        `yaml:"storage_path"`
	ScanTimeout time.Duration `yaml:"scan_timeout"`
	PairTimeout time.Duration `yaml:"pair_timeout"`
}

func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "atvpair")
}

// DefaultConfigPath is used when --config is not given.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultConfig returns the configuration used for missing fields.
func DefaultConfig() Config {
	return Config{
		LogLevel:    "warn",
		StoragePath: filepath.Join(configDir(), "credentials.db"),
		ScanTimeout: 3 * time.Second,
		PairTimeout: 30 * time.Second,
	}
}

// LoadConfig reads path over the defaults. A missing file yields the
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("cannot read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("cannot parse config %s: %w", path, err)
	}
	if _, err := parseLogLevel(cfg.LogLevel); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if cfg.ScanTimeout <= 0 || cfg.PairTimeout <= 0 {
		return cfg, fmt.Errorf("config %s: timeouts must be positive", path)
	}
	return cfg, nil
}
