// Sentinel - Real-Time Risk & Anomaly Engine
// Copyright 2026 Corvid Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/corvid-labs/sentinel

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default configuration must validate: %v", err)
	}

	if cfg.Detection.WindowSeconds != 1.0 {
		t.Errorf("expected default window 1.0s, got %v", cfg.Detection.WindowSeconds)
	}
	if cfg.Detection.ThresholdCount != 20 {
		t.Errorf("expected default threshold 20, got %d", cfg.Detection.ThresholdCount)
	}
	if cfg.Detection.MaxTravelSpeedKmH != 500 {
		t.Errorf("expected default max speed 500, got %v", cfg.Detection.MaxTravelSpeedKmH)
	}
	if cfg.Detection.FraudSuspiciousThreshold != 70 {
		t.Errorf("expected default suspicious threshold 70, got %d", cfg.Detection.FraudSuspiciousThreshold)
	}
}

func TestLoadDefaultsOnly(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() with defaults failed: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Detection.Window() != time.Second {
		t.Errorf("expected 1s window, got %v", cfg.Detection.Window())
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SENTINEL_SERVER_PORT", "9999")
	t.Setenv("SENTINEL_DETECTION_THRESHOLD_COUNT", "40")
	t.Setenv("SENTINEL_LOGGING_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("expected env override port 9999, got %d", cfg.Server.Port)
	}
	if cfg.Detection.ThresholdCount != 40 {
		t.Errorf("expected env override threshold 40, got %d", cfg.Detection.ThresholdCount)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected env override level debug, got %s", cfg.Logging.Level)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("detection:\n  max_travel_speed_kmh: 900\nserver:\n  port: 7070\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Detection.MaxTravelSpeedKmH != 900 {
		t.Errorf("expected file override speed 900, got %v", cfg.Detection.MaxTravelSpeedKmH)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("expected file override port 7070, got %d", cfg.Server.Port)
	}
}

func TestEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("SENTINEL_SERVER_PORT", "9999")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("env must beat file: expected 9999, got %d", cfg.Server.Port)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero window", func(c *Config) { c.Detection.WindowSeconds = 0 }},
		{"negative window", func(c *Config) { c.Detection.WindowSeconds = -1 }},
		{"zero threshold", func(c *Config) { c.Detection.ThresholdCount = 0 }},
		{"zero max speed", func(c *Config) { c.Detection.MaxTravelSpeedKmH = 0 }},
		{"threshold above 100", func(c *Config) { c.Detection.FraudSuspiciousThreshold = 101 }},
		{"empty phrases", func(c *Config) { c.Detection.PressurePhrases = nil }},
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"empty db path", func(c *Config) { c.Database.Path = "" }},
		{"zero bus buffer", func(c *Config) { c.Bus.BufferSize = 0 }},
		{"notifier enabled without url", func(c *Config) { c.Notifier.Enabled = true; c.Notifier.URL = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"SENTINEL_SERVER_PORT", "server.port"},
		{"SENTINEL_SERVER_REQUESTS_PER_MINUTE", "server.requests_per_minute"},
		{"SENTINEL_DETECTION_MAX_TRAVEL_SPEED_KMH", "detection.max_travel_speed_kmh"},
		{"SENTINEL_DATABASE_PATH", "database.path"},
		{"SENTINEL_BUS_BUFFER_SIZE", "bus.buffer_size"},
		{"SENTINEL_UNRELATED_KEY", ""},
	}

	for _, tt := range tests {
		if got := envTransformFunc(tt.in); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
