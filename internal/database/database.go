// Sentinel - Real-Time Risk & Anomaly Engine
// Copyright 2026 Corvid Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/corvid-labs/sentinel

// Package database implements the DuckDB-backed stores the engine
// consumes: the vendor ledger, login history, risk states, and the
// verdict sink. All writes consult the read-only switch the access
// gate propagates to, so a locked system refuses writes even if a
// caller bypasses the HTTP middleware.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // duckdb driver

	"github.com/corvid-labs/sentinel/internal/config"
	"github.com/corvid-labs/sentinel/internal/logging"
)

// ErrReadOnly is returned by every write while the store is read-only.
var ErrReadOnly = errors.New("store is read-only")

// DB wraps the DuckDB connection and implements the engine's store
// interfaces.
type DB struct {
	conn     *sql.DB
	readOnly atomic.Bool
}

// New opens the database, configures the pool, and initializes the schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	// Ensure the parent directory exists for file-backed databases.
	if cfg.Path != ":memory:" {
		if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	// Disable auto-install/auto-load to prevent hangs in restricted
	// network environments.
	connStr := cfg.Path + "?autoinstall_known_extensions=false&autoload_known_extensions=false"

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(time.Hour)

	db := &DB{conn: conn}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := db.initSchema(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Info().Str("path", cfg.Path).Msg("database opened")
	return db, nil
}

// NewMemory opens an in-memory database, used by tests.
func NewMemory() (*DB, error) {
	return New(&config.DatabaseConfig{
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
}

// initSchema creates the tables if they do not exist.
func (db *DB) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS vendors (
			id VARCHAR PRIMARY KEY,
			name VARCHAR NOT NULL UNIQUE,
			bank_fingerprint VARCHAR NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bills (
			id VARCHAR PRIMARY KEY,
			vendor_id VARCHAR NOT NULL,
			amount DOUBLE NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS logins (
			identity VARCHAR NOT NULL,
			source_addr VARCHAR NOT NULL DEFAULT '',
			latitude DOUBLE NOT NULL DEFAULT 0,
			longitude DOUBLE NOT NULL DEFAULT 0,
			ts TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS risk_states (
			identity VARCHAR PRIMARY KEY,
			elevated BOOLEAN NOT NULL,
			reason VARCHAR NOT NULL DEFAULT '',
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS risk_verdicts (
			id VARCHAR PRIMARY KEY,
			vendor_name VARCHAR NOT NULL,
			amount DOUBLE NOT NULL,
			score INTEGER NOT NULL,
			suspicious BOOLEAN NOT NULL,
			alerts VARCHAR NOT NULL DEFAULT '[]',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS travel_verdicts (
			identity VARCHAR NOT NULL,
			source_addr VARCHAR NOT NULL DEFAULT '',
			latitude DOUBLE NOT NULL,
			longitude DOUBLE NOT NULL,
			distance_km DOUBLE NOT NULL,
			elapsed_hours DOUBLE NOT NULL,
			speed_kmh DOUBLE NOT NULL,
			impossible BOOLEAN NOT NULL,
			ts TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS threat_events (
			id VARCHAR PRIMARY KEY,
			kind VARCHAR NOT NULL,
			severity VARCHAR NOT NULL,
			identity VARCHAR NOT NULL,
			message VARCHAR NOT NULL,
			metadata VARCHAR NOT NULL DEFAULT '',
			ts TIMESTAMP NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

// SetReadOnly flips the store's write protection. It implements the
// access gate's propagation target.
func (db *DB) SetReadOnly(_ context.Context, readOnly bool) error {
	db.readOnly.Store(readOnly)
	logging.Info().Bool("read_only", readOnly).Msg("store write protection toggled")
	return nil
}

// IsReadOnly reports whether writes are currently refused.
func (db *DB) IsReadOnly() bool {
	return db.readOnly.Load()
}

// checkWritable returns ErrReadOnly while the store is read-only.
func (db *DB) checkWritable() error {
	if db.readOnly.Load() {
		return ErrReadOnly
	}
	return nil
}

// Ping verifies the connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
