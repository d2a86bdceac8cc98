// Sentinel - Real-Time Risk & Anomaly Engine
// Copyright 2026 Corvid Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/corvid-labs/sentinel

// Package config loads and validates the Sentinel configuration.
//
// Configuration is layered with clear precedence:
//
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the complete Sentinel configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Database  DatabaseConfig  `koanf:"database"`
	Detection DetectionConfig `koanf:"detection"`
	Bus       BusConfig       `koanf:"bus"`
	Notifier  NotifierConfig  `koanf:"notifier"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port" validate:"gte=1,lte=65535"`

	// RequestsPerMinute is the outer per-client hard limit enforced by
	// httprate, independent of the rate anomaly detector.
	RequestsPerMinute int `koanf:"requests_per_minute" validate:"gte=1"`

	CORSOrigins []string `koanf:"cors_origins"`

	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// DatabaseConfig configures the DuckDB store.
type DatabaseConfig struct {
	// Path is the DuckDB database file; ":memory:" keeps it in memory.
	Path string `koanf:"path" validate:"required"`

	MaxOpenConns int `koanf:"max_open_conns" validate:"gte=1"`
	MaxIdleConns int `koanf:"max_idle_conns" validate:"gte=0"`
}

// DetectionConfig configures the detectors.
type DetectionConfig struct {
	// WindowSeconds is the sliding request window width.
	WindowSeconds float64 `koanf:"window_seconds" validate:"gt=0"`

	// ThresholdCount is the in-window count that maps to a rate score of 50.
	ThresholdCount int `koanf:"threshold_count" validate:"gte=1"`

	// MaxIdentities bounds the rate tracker's identity registry.
	MaxIdentities int `koanf:"max_identities" validate:"gte=1"`

	// MaxTravelSpeedKmH is the impossible-travel speed threshold.
	MaxTravelSpeedKmH float64 `koanf:"max_travel_speed_kmh" validate:"gt=0"`

	// FraudSuspiciousThreshold is the score above which a document is suspicious.
	FraudSuspiciousThreshold int `koanf:"fraud_suspicious_threshold" validate:"gte=0,lte=100"`

	PressurePhrases      []string          `koanf:"pressure_phrases" validate:"min=1"`
	BrandDomains         map[string]string `koanf:"brand_domains"`
	BankingTerms         []string          `koanf:"banking_terms" validate:"min=1"`
	ChangeTerms          []string          `koanf:"change_terms" validate:"min=1"`
	PublicEntityKeywords []string          `koanf:"public_entity_keywords"`

	VelocityMultiplier       float64 `koanf:"velocity_multiplier" validate:"gt=0"`
	DefaultHistoricalAverage float64 `koanf:"default_historical_average" validate:"gt=0"`
	HighAmountThreshold      float64 `koanf:"high_amount_threshold" validate:"gt=0"`
}

// Window returns the request window as a duration.
func (d DetectionConfig) Window() time.Duration {
	return time.Duration(d.WindowSeconds * float64(time.Second))
}

// BusConfig configures the event bus.
type BusConfig struct {
	// BufferSize is the per-subscriber channel capacity.
	BufferSize int `koanf:"buffer_size" validate:"gte=1"`
}

// NotifierConfig configures the outbound webhook notifier.
type NotifierConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url" validate:"required_if=Enabled true,omitempty,url"`

	// RatePerSecond and Burst pace outbound deliveries.
	RatePerSecond float64       `koanf:"rate_per_second" validate:"gt=0"`
	Burst         int           `koanf:"burst" validate:"gte=1"`
	Timeout       time.Duration `koanf:"timeout" validate:"gt=0"`
}

// defaultConfig returns the built-in defaults.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			RequestsPerMinute: 600,
			CORSOrigins:       []string{"*"},
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Database: DatabaseConfig{
			Path:         "sentinel.db",
			MaxOpenConns: 4,
			MaxIdleConns: 2,
		},
		Detection: DetectionConfig{
			WindowSeconds:            1.0,
			ThresholdCount:           20,
			MaxIdentities:            100000,
			MaxTravelSpeedKmH:        500,
			FraudSuspiciousThreshold: 70,
			PressurePhrases: []string{
				"urgent",
				"immediate payment",
				"final notice",
				"act now",
				"wire today",
				"account suspended",
			},
			BrandDomains: map[string]string{
				"paypal":    "paypal.com",
				"microsoft": "microsoft.com",
				"google":    "google.com",
				"apple":     "apple.com",
				"amazon":    "amazon.com",
				"netflix":   "netflix.com",
			},
			BankingTerms: []string{
				"bank account",
				"account number",
				"iban",
				"routing number",
				"payment details",
			},
			ChangeTerms: []string{
				"new",
				"changed",
				"updated",
				"change of",
			},
			PublicEntityKeywords: []string{
				"city of",
				"county",
				"municipal",
				"tax authority",
				"department of",
			},
			VelocityMultiplier:       3.0,
			DefaultHistoricalAverage: 1000.0,
			HighAmountThreshold:      5000.0,
		},
		Bus: BusConfig{
			BufferSize: 64,
		},
		Notifier: NotifierConfig{
			Enabled:       false,
			RatePerSecond: 5,
			Burst:         10,
			Timeout:       5 * time.Second,
		},
	}
}

// Validate checks the configuration. Invalid configuration is fatal at
// startup.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
