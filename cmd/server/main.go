// Murmur Discovery - Audio Clip Feed Ranking
// Copyright 2026 Murmur Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main is the entry point for the discovery server.
//
// The server initializes components in order:
//
//  1. Configuration: Koanf v2 layered defaults, YAML file, environment
//  2. Logging: zerolog via the central logging package
//  3. Database: embedded DuckDB signal store
//  4. Ranking: velocity tracker and relevance scoring engine
//  5. Feed assembler: the seven discovery pipelines
//  6. Supervision: suture tree running the HTTP server and, unless an
//     external scheduler owns the trigger, the cron velocity refresh
//
// Shutdown is graceful on SIGINT/SIGTERM: the supervisor drains the
// HTTP server and waits for an in-flight refresh before exiting.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/murmurapp/discovery/internal/api"
	"github.com/murmurapp/discovery/internal/config"
	"github.com/murmurapp/discovery/internal/database"
	"github.com/murmurapp/discovery/internal/feed"
	"github.com/murmurapp/discovery/internal/logging"
	"github.com/murmurapp/discovery/internal/ranking"
	"github.com/murmurapp/discovery/internal/supervisor"
	"github.com/murmurapp/discovery/internal/supervisor/services"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.Logger()

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("database close failed")
		}
	}()

	tracker := ranking.NewTracker(db, ranking.TrackerConfig{
		MaxAgeHours:      cfg.Velocity.MaxAgeHours,
		BatchLimit:       cfg.Velocity.BatchLimit,
		RetentionDays:    cfg.Velocity.RetentionDays,
		RefreshPerSecond: cfg.Velocity.RefreshPerSecond,
	}, logger)
	engine := ranking.NewEngine(db, tracker, logger)
	assembler := feed.New(db, engine, tracker, cfg.Feed, logger)

	handler := api.NewHandler(db, assembler, tracker)
	router := api.NewRouter(handler, &cfg.Server)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddAPIService(services.NewHTTPService(server, supervisor.DefaultTreeConfig().ShutdownTimeout))

	if cfg.Velocity.ScheduleEnabled {
		tree.AddJobService(services.NewVelocityService(tracker, cfg.Velocity.Schedule, logger))
	} else {
		logging.Info().Msg("built-in velocity schedule disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().
		Str("addr", server.Addr).
		Str("database", cfg.Database.Path).
		Msg("discovery server starting")

	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("supervisor: %w", err)
	}

	logging.Info().Msg("discovery server stopped")
	return nil
}
