// Sentinel - Real-Time Risk & Anomaly Engine
// Copyright 2026 Corvid Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/corvid-labs/sentinel

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/corvid-labs/sentinel/internal/config"
	"github.com/corvid-labs/sentinel/internal/logging"
	"github.com/corvid-labs/sentinel/internal/websocket"
)

// HTTPService runs the HTTP server as a suture.Service with graceful
// shutdown on context cancellation.
type HTTPService struct {
	cfg     config.ServerConfig
	handler http.Handler
}

// NewHTTPService creates the HTTP server service.
func NewHTTPService(cfg config.ServerConfig, handler http.Handler) *HTTPService {
	return &HTTPService{cfg: cfg, handler: handler}
}

// Serve listens until the context is canceled, then drains connections
// within the configured shutdown timeout.
func (s *HTTPService) Serve(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))
	server := &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", addr).Msg("http server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("http server shutdown incomplete")
		}
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	}
}

// String names the service in supervisor logs.
func (s *HTTPService) String() string { return "http-server" }

// HubService runs the websocket hub loop as a suture.Service.
type HubService struct {
	hub *websocket.Hub
}

// NewHubService wraps the hub for supervision.
func NewHubService(hub *websocket.Hub) *HubService {
	return &HubService{hub: hub}
}

// Serve runs the hub until the context is canceled.
func (s *HubService) Serve(ctx context.Context) error {
	s.hub.RunWithContext(ctx)
	return ctx.Err()
}

// String names the service in supervisor logs.
func (s *HubService) String() string { return "websocket-hub" }
