// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

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

	"github.com/tomtom215/cascade/internal/api"
	"github.com/tomtom215/cascade/internal/cache"
	"github.com/tomtom215/cascade/internal/cascade"
	"github.com/tomtom215/cascade/internal/config"
	"github.com/tomtom215/cascade/internal/database"
	"github.com/tomtom215/cascade/internal/logging"
	"github.com/tomtom215/cascade/internal/risk"
	"github.com/tomtom215/cascade/internal/snapshot"
	"github.com/tomtom215/cascade/internal/supervisor"
	"github.com/tomtom215/cascade/internal/supervisor/services"
	"github.com/tomtom215/cascade/internal/upstream"
)

// viewCacheSize bounds the in-process view cache.
const viewCacheSize = 512

func main() {
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
		Str("upstream_url", cfg.Upstream.URL).
		Str("db_path", cfg.Database.Path).
		Float64("q60", cfg.Risk.Q60).
		Float64("q90", cfg.Risk.Q90).
		Msg("Starting Cascade")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Cascade stopped with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

func run(cfg *config.Config) error {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	snapshots, err := openSnapshots(&cfg.Snapshot)
	if err != nil {
		return err
	}
	if snapshots != nil {
		defer func() {
			if err := snapshots.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing snapshot store")
			}
		}()
	}

	client := upstream.NewCircuitBreakerClient(upstream.NewClient(&cfg.Upstream))
	if err := client.Ping(context.Background()); err != nil {
		logging.Warn().Err(err).Msg("Analytics service unreachable at start-up; serving degraded views until it recovers")
	}

	thresholds, err := risk.NewThresholdStore(risk.Thresholds{Q60: cfg.Risk.Q60, Q90: cfg.Risk.Q90}, risk.SourceConfig)
	if err != nil {
		return fmt.Errorf("initial thresholds: %w", err)
	}

	viewCache := cache.NewLRU[*cascade.View]("views", viewCacheSize, cfg.API.CacheTTL)
	service := cascade.NewService(cascade.Options{
		Upstream:   client,
		Mirror:     db,
		Thresholds: thresholds,
		Snapshots:  snapshots,
		Cache:      viewCache,
	})

	// The handler's dataset cache is keyed by thresholds too; it is cleared
	// through the closure once the handler exists.
	var handler *api.Handler
	refresher := cascade.NewRefresher(client, db, thresholds, clearAll{
		viewCache.Clear,
		func() { handler.ClearCache() },
	})
	handler = api.NewHandler(&cfg.API, api.Deps{
		Cascade:    service,
		Recomputer: refresher,
		Dataset:    db,
		Upstream:   client,
	})

	router := api.NewRouter(handler, api.NewChiMiddleware(api.NewChiMiddlewareConfig(&cfg.Security)))
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}
	tree.AddDataService(services.NewRefreshService(refresher, cfg.Risk.RefreshInterval, cfg.Risk.RefreshOnStart))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().
		Str("addr", server.Addr).
		Dur("refresh_interval", cfg.Risk.RefreshInterval).
		Msg("Services added to supervisor tree")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)

	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			serveErr = err
		}
		cancel()
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}
	return serveErr
}

// openSnapshots opens the last-known-good view store. It returns nil when
// snapshots are disabled.
func openSnapshots(cfg *config.SnapshotConfig) (snapshot.Store[cascade.View], error) {
	if !cfg.Enabled {
		logging.Info().Msg("Snapshots disabled; degraded views fall back to the mirror")
		return nil, nil
	}
	if cfg.Path == "" {
		logging.Info().Dur("ttl", cfg.TTL).Msg("Snapshots kept in memory")
		return snapshot.NewMemoryStore[cascade.View](cfg.TTL), nil
	}
	store, err := snapshot.OpenBadgerStore[cascade.View](cfg.Path, cfg.TTL)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	logging.Info().Str("path", cfg.Path).Dur("ttl", cfg.TTL).Msg("Snapshots persisted in BadgerDB")
	return store, nil
}

// clearAll invalidates every response cache after new thresholds are published.
type clearAll []func()

func (c clearAll) Clear() {
	for _, fn := range c {
		fn()
	}
}
