// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

// Package config loads the shared configuration for the coldpath
// commands from <dataDir>/config.yaml. A missing file yields the
// defaults; a malformed one is reported and ignored.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// AirGapConfig tunes the QR leg of the air-gap transport. Frame and
// chunk sizes are part of the wire contract and are not configurable.
type AirGapConfig struct {
	FrameRate int `yaml:"frame_rate" description:"Animated QR frames per second" default:"8"`
}

// Config is the coldpath configuration file.
type Config struct {
	// AccountsPath is where paired accounts are persisted. Relative
	// paths resolve against the data directory.
	AccountsPath string `yaml:"accounts_path" description:"Account store file" default:"accounts.json"`

	DiscoveryPolls int    `yaml:"discovery_polls" description:"Seconds to wait for a paired device to appear before failing" default:"30"`
	StatusInterval string `yaml:"status_interval" description:"Device status poll interval" default:"500ms"`

	AirGap AirGapConfig `yaml:"airgap" description:"Air-gap QR settings"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		AccountsPath:   "accounts.json",
		DiscoveryPolls: 30,
		StatusInterval: "500ms",
		AirGap:         AirGapConfig{FrameRate: 8},
	}
}

// DataDir resolves the coldpath data directory: the flag value if set,
// otherwise $COLDPATH_DATA, otherwise ~/.coldpath.
func DataDir(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if dir := os.Getenv("COLDPATH_DATA"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".coldpath"
	}
	return filepath.Join(home, ".coldpath")
}

// ResolvePath resolves a path relative to baseDir if not absolute.
// Returns path unchanged if empty or already absolute.
func ResolvePath(path, baseDir string) string {
	if path == "" || baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Load reads <dataDir>/config.yaml, filling missing fields with
// defaults and resolving relative paths against dataDir. Errors are
// never fatal: the commands must work on a fresh machine.
func Load(dataDir string) Config {
	defaults := Default()

	if dataDir == "" {
		return defaults
	}

	path := filepath.Join(dataDir, "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		defaults.AccountsPath = ResolvePath(defaults.AccountsPath, dataDir)
		return defaults
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Warning: Failed to parse config file %s: %v\n", path, err)
		defaults.AccountsPath = ResolvePath(defaults.AccountsPath, dataDir)
		return defaults
	}

	if cfg.AccountsPath == "" {
		cfg.AccountsPath = defaults.AccountsPath
	}
	if cfg.DiscoveryPolls == 0 {
		cfg.DiscoveryPolls = defaults.DiscoveryPolls
	}
	if cfg.StatusInterval == "" {
		cfg.StatusInterval = defaults.StatusInterval
	}
	if cfg.AirGap.FrameRate == 0 {
		cfg.AirGap.FrameRate = defaults.AirGap.FrameRate
	}

	cfg.AccountsPath = ResolvePath(cfg.AccountsPath, dataDir)
	return cfg
}

// StatusPollInterval parses the configured status interval, falling
// back to the default on a bad duration string.
func (c Config) StatusPollInterval() time.Duration {
	d, err := time.ParseDuration(c.StatusInterval)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}
