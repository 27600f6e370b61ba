// Libraria - Book Discovery and Hybrid Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libraria

// Package main is the entry point for the Libraria server.
//
// Libraria is a self-hosted book discovery service. It searches external
// book catalogs (Open Library, Google Books) through a fault-tolerant
// gateway, keeps per-user reading profiles in an embedded BadgerDB
// store, and serves hybrid recommendations that combine TF-IDF content
// similarity with collaborative signal from reading history.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered settings from defaults, config.yaml, and
//     environment variables (Koanf v2)
//  2. Profile store: embedded BadgerDB with a background GC loop
//  3. Catalog gateway: providers in failover priority order, each
//     behind a rate limiter and circuit breaker
//  4. Recommendation engine: content and collaborative scorers,
//     context filter, diversity pass
//  5. HTTP server: Chi REST API plus Prometheus /metrics
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables (LIBRARIA_ prefix), config
// file (config.yaml), built-in defaults.
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM: it stops
// accepting new connections, waits for in-flight requests up to the
// configured shutdown timeout, then closes the profile store.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/libraria/internal/api"
	"github.com/tomtom215/libraria/internal/catalog"
	"github.com/tomtom215/libraria/internal/config"
	"github.com/tomtom215/libraria/internal/logging"
	"github.com/tomtom215/libraria/internal/profile"
	"github.com/tomtom215/libraria/internal/recommend"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Strs("providers", cfg.Catalog.Providers).
		Str("profile_path", cfg.Profiles.Path).
		Int("port", cfg.Server.Port).
		Msg("Starting Libraria")

	// Profile store with background value-log GC
	store, err := profile.Open(&cfg.Profiles)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open profile store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing profile store")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go store.RunGC(ctx, cfg.Profiles.GCInterval)

	// Catalog gateway with per-provider breaker and rate limiter
	gateway, err := catalog.NewGateway(&cfg.Catalog)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build catalog gateway")
	}

	engine := recommend.NewEngine(gateway, store, &cfg.Recommend)

	handler := api.NewHandler(engine, gateway, store)
	mw := api.NewChiMiddleware(&api.ChiMiddlewareConfig{
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		CORSAllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		CORSAllowedHeaders: []string{"Content-Type", "Authorization"},
		CORSMaxAge:         86400,
		RateLimitRequests:  cfg.Server.RateLimitReqs,
		RateLimitWindow:    cfg.Server.RateLimitWindow,
	})
	router := api.NewRouter(handler, mw)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      http.TimeoutHandler(router.Setup(), cfg.Server.RequestTimeout, "request timed out"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("HTTP server failed")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("Graceful shutdown incomplete, forcing close")
		_ = server.Close()
	}

	cancel()
	logging.Info().Msg("Application stopped gracefully")
}
