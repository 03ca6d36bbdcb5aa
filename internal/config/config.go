package config

import (
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	// Player settings
	Player PlayerConfig `koanf:"player"`

	// Folder scanning
	RecursiveScan bool `koanf:"recursive_scan"` // scan folders recursively for playable files

	// Desktop notifications on session end
	Notifications *bool `koanf:"notifications"` // default: true
}

// PlayerConfig holds driver and playback settings.
type PlayerConfig struct {
	DriverMode            string  `koanf:"driver_mode"`             // "precise" (IPC) or "coarse" (process only)
	Executable            string  `koanf:"executable"`              // player binary (default: mpv)
	IPCSocket             string  `koanf:"ipc_socket"`              // socket path, empty = per-process temp socket
	SampleIntervalSeconds int     `koanf:"sample_interval_seconds"` // checkpoint period (1-60, default: 5)
	CompletionThreshold   float64 `koanf:"completion_threshold"`    // finished cutoff fraction (0.5-1.0, default: 0.98)
	ConnectTimeoutSeconds int     `koanf:"connect_timeout_seconds"` // IPC socket connect timeout (default: 5)
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	configPaths := getConfigPaths()

	for _, path := range configPaths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	// Expand ~ in the player executable and socket path
	cfg.Player.Executable = expandPath(cfg.Player.Executable)
	cfg.Player.IPCSocket = expandPath(cfg.Player.IPCSocket)

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/cue/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "cue", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// GetPlayerConfig returns the player configuration with defaults applied.
func (c *Config) GetPlayerConfig() PlayerConfig {
	cfg := c.Player

	if cfg.DriverMode != "coarse" && cfg.DriverMode != "precise" {
		cfg.DriverMode = "precise"
	}
	if cfg.Executable == "" {
		cfg.Executable = "mpv"
	}
	if cfg.SampleIntervalSeconds < 1 || cfg.SampleIntervalSeconds > 60 {
		cfg.SampleIntervalSeconds = 5
	}
	if cfg.CompletionThreshold < 0.5 || cfg.CompletionThreshold > 1.0 {
		cfg.CompletionThreshold = 0.98
	}
	if cfg.ConnectTimeoutSeconds <= 0 {
		cfg.ConnectTimeoutSeconds = 5
	}

	return cfg
}

// NotificationsEnabled returns true unless notifications were disabled.
func (c *Config) NotificationsEnabled() bool {
	return c.Notifications == nil || *c.Notifications
}
