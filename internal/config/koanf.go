// Sentinel - Real-Time Risk & Anomaly Engine
// Copyright 2026 Corvid Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/corvid-labs/sentinel

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar names the environment variable pointing at an
// explicit config file.
const ConfigPathEnvVar = "SENTINEL_CONFIG"

// DefaultConfigPaths are searched in order when SENTINEL_CONFIG is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/sentinel/config.yaml",
}

// Load builds the configuration from defaults, an optional YAML file,
// and environment variables, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	// SENTINEL_SERVER_PORT -> server.port, SENTINEL_DETECTION_THRESHOLD_COUNT ->
	// detection.threshold_count, and so on.
	envProvider := env.Provider("SENTINEL_", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// findConfigFile returns the first config file that exists, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envTransformFunc maps SENTINEL_* environment variables to config paths.
// The section prefix becomes the first path element; the rest of the
// variable name is kept as a single key.
//
//	SENTINEL_SERVER_PORT                  -> server.port
//	SENTINEL_LOGGING_LEVEL                -> logging.level
//	SENTINEL_DATABASE_PATH                -> database.path
//	SENTINEL_DETECTION_MAX_TRAVEL_SPEED_KMH -> detection.max_travel_speed_kmh
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, "SENTINEL_"))

	for _, section := range []string{"server", "logging", "database", "detection", "bus", "notifier"} {
		prefix := section + "_"
		if strings.HasPrefix(key, prefix) {
			return section + "." + strings.TrimPrefix(key, prefix)
		}
	}

	// Unknown prefixes are ignored by returning an empty key.
	return ""
}
