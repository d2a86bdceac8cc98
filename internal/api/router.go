// Sentinel - Real-Time Risk & Anomaly Engine
// Copyright 2026 Corvid Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/corvid-labs/sentinel

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/corvid-labs/sentinel/internal/accessgate"
	"github.com/corvid-labs/sentinel/internal/config"
	"github.com/corvid-labs/sentinel/internal/middleware"
	"github.com/corvid-labs/sentinel/internal/websocket"
)

// Router assembles the HTTP routes.
type Router struct {
	handler *Handler
	cfg     *config.ServerConfig
	gate    *accessgate.Gate
	scorer  middleware.RequestScorer
	hub     *websocket.Hub
}

// NewRouter creates a router over the handler set.
func NewRouter(
	handler *Handler,
	cfg *config.ServerConfig,
	gate *accessgate.Gate,
	scorer middleware.RequestScorer,
	hub *websocket.Hub,
) *Router {
	return &Router{
		handler: handler,
		cfg:     cfg,
		gate:    gate,
		scorer:  scorer,
		hub:     hub,
	}
}

// Setup configures all routes and the middleware stack.
//
// The lockdown toggle route is deliberately outside the Lockdown
// middleware so an operator can always lift a lockdown. Read routes
// stay open during lockdown; only mutating routes are gated.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: router.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader, middleware.IdentityHeader},
		MaxAge:         300,
	}))
	r.Use(middleware.PrometheusMetrics)

	// Unversioned probes sit outside the rate window so monitoring
	// never counts against an identity.
	r.Get("/health", router.handler.Health)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(router.cfg.RequestsPerMinute, time.Minute))

		// Every API request is a rate-window sample; bursty identities
		// are refused here before reaching any handler.
		r.Use(middleware.RateScore(router.scorer))

		r.Get("/health", router.handler.Health)
		r.Post("/lockdown", router.handler.Lockdown)

		r.Get("/vendors", router.handler.ListVendors)
		r.Get("/threats/recent", router.handler.RecentThreats)
		r.Get("/threats/stream", websocket.Handler(router.hub, router.cfg.CORSOrigins))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Lockdown(router.gate))

			r.Post("/vendors", router.handler.CreateVendor)
			r.Post("/logins/check", router.handler.CheckLogin)
			r.Post("/bills/analyze", router.handler.AnalyzeBill)
		})
	})

	return r
}
