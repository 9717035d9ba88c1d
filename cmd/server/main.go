// Estatewatch - Real Estate Marketplace Risk & Relevance Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/estatewatch

// Package main is the entry point for the Estatewatch server.
//
// Estatewatch scores marketplace listings for fraud risk and serves ranked
// listing recommendations. The server initializes components in order:
//
//  1. Configuration: koanf v2 layered sources (env > config file > defaults)
//  2. Logging: global zerolog logger
//  3. Postgres: marketplace reader (listings, accounts, interactions)
//  4. Verdict history: Badger append-only store
//  5. Engines: risk scorer and recommendation service
//  6. HTTP server: REST API with health and Prometheus metrics
//
// # Configuration
//
// Environment variables use the ESTATEWATCH_ prefix with double underscores
// separating sections, e.g. ESTATEWATCH_SERVER__PORT=8080. A config file is
// read from config.yaml or the path in ESTATEWATCH_CONFIG.
//
// Required settings:
//   - ESTATEWATCH_DATABASE__DSN: Postgres connection string
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: it stops accepting
// connections, waits for in-flight requests up to the configured shutdown
// timeout, then closes the stores.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tomtom215/estatewatch/internal/api"
	"github.com/tomtom215/estatewatch/internal/config"
	"github.com/tomtom215/estatewatch/internal/logging"
	"github.com/tomtom215/estatewatch/internal/metrics"
	"github.com/tomtom215/estatewatch/internal/recommend"
	"github.com/tomtom215/estatewatch/internal/risk"
	"github.com/tomtom215/estatewatch/internal/store"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("server exited")
	}
}

func run() error {
	// A .env file is optional; environment wins either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.Logger()

	if cfg.Database.DSN == "" {
		return errors.New("database.dsn is required (ESTATEWATCH_DATABASE__DSN)")
	}
	pg, err := store.OpenPostgres(cfg.Database.DSN, logger)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer pg.Close()

	verdicts, err := store.OpenVerdictStore(cfg.Verdicts.Path, logger)
	if err != nil {
		return fmt.Errorf("open verdict store: %w", err)
	}
	defer verdicts.Close()

	scorer, err := risk.NewScorer(cfg.Risk, pg, logger)
	if err != nil {
		return fmt.Errorf("create risk scorer: %w", err)
	}

	recommender, err := recommend.NewService(cfg.Recommend, pg, pg, logger)
	if err != nil {
		return fmt.Errorf("create recommendation service: %w", err)
	}
	metrics.RegisterProfileCache(
		func() float64 { hits, _ := recommender.CacheStats(); return float64(hits) },
		func() float64 { _, misses := recommender.CacheStats(); return float64(misses) },
	)

	handler := api.NewHandler(pg, scorer, verdicts, recommender, pg, logger)
	router := api.NewRouter(handler, &api.MiddlewareConfig{
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		RateLimitRequests:  cfg.Server.RateLimitRequests,
		RateLimitWindow:    cfg.Server.RateLimitWindow,
	}, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
