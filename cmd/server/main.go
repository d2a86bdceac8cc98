// Sentinel - Real-Time Risk & Anomaly Engine
// Copyright 2026 Corvid Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/corvid-labs/sentinel

// Command server runs the Sentinel risk and anomaly engine: an HTTP
// API backed by sliding-window rate tracking, impossible-travel
// detection, and heuristic fraud scoring, with live threat fan-out over
// websockets and an optional outbound webhook.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/corvid-labs/sentinel/internal/accessgate"
	"github.com/corvid-labs/sentinel/internal/api"
	"github.com/corvid-labs/sentinel/internal/config"
	"github.com/corvid-labs/sentinel/internal/database"
	"github.com/corvid-labs/sentinel/internal/detection"
	"github.com/corvid-labs/sentinel/internal/eventbus"
	"github.com/corvid-labs/sentinel/internal/logging"
	"github.com/corvid-labs/sentinel/internal/notify"
	"github.com/corvid-labs/sentinel/internal/supervisor"
	"github.com/corvid-labs/sentinel/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Timestamp: true,
	})
	logging.Info().Msg("sentinel starting")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Database.Path).
			Msg("failed to open database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Warn().Err(err).Msg("failed to close database")
		}
	}()

	bus := eventbus.New(cfg.Bus.BufferSize)
	defer bus.Close()

	engine := detection.NewEngine(
		detection.NewRateWindowTracker(detection.RateWindowConfig{
			Window:        cfg.Detection.Window(),
			Threshold:     cfg.Detection.ThresholdCount,
			MaxIdentities: cfg.Detection.MaxIdentities,
		}),
		detection.NewTravelDetector(detection.TravelConfig{
			MaxSpeedKmH: cfg.Detection.MaxTravelSpeedKmH,
		}),
		detection.NewFraudEngine(detection.FraudConfig{
			SuspiciousThreshold:      cfg.Detection.FraudSuspiciousThreshold,
			PressurePhrases:          cfg.Detection.PressurePhrases,
			BrandDomains:             cfg.Detection.BrandDomains,
			BankingTerms:             cfg.Detection.BankingTerms,
			ChangeTerms:              cfg.Detection.ChangeTerms,
			PublicEntityKeywords:     cfg.Detection.PublicEntityKeywords,
			VelocityMultiplier:       cfg.Detection.VelocityMultiplier,
			DefaultHistoricalAverage: cfg.Detection.DefaultHistoricalAverage,
			HighAmountThreshold:      cfg.Detection.HighAmountThreshold,
		}, db),
		db, db, db, bus,
	)

	gate := accessgate.New(db)
	hub := websocket.NewHub()

	handler := api.NewHandler(engine, db, gate, bus)
	router := api.NewRouter(handler, &cfg.Server, gate, engine, hub)

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddStreamingService(supervisor.NewHubService(hub))
	tree.AddStreamingService(websocket.NewBridge(bus, hub))
	if cfg.Notifier.Enabled {
		tree.AddStreamingService(notify.NewWebhookNotifier(cfg.Notifier, bus))
	}
	tree.AddAPIService(supervisor.NewHTTPService(cfg.Server, router.Setup()))

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := tree.Serve(ctx); err != nil && err != context.Canceled {
		logging.Error().Err(err).Msg("supervisor exited with error")
		os.Exit(1)
	}

	logging.Info().Msg("sentinel stopped")
}
