// Murmur Discovery - Audio Clip Feed Ranking
// Copyright 2026 Murmur Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/murmurapp/discovery/internal/metrics"
	"github.com/murmurapp/discovery/internal/ranking"
)

// VelocityRefresher is the tracker surface the scheduler drives.
// Satisfied by *ranking.Tracker.
type VelocityRefresher interface {
	RefreshAll(ctx context.Context) (ranking.RefreshStats, error)
}

// VelocityService runs the scheduled velocity refresh on a cron
// schedule. Deployments with an external scheduler disable it and call
// the refresh endpoint instead; both paths are idempotent, so running
// them side by side is safe too.
type VelocityService struct {
	refresher VelocityRefresher
	schedule  string
	logger    zerolog.Logger
}

// NewVelocityService creates the scheduled refresh service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewVelocityService(refresher VelocityRefresher, schedule string, logger zerolog.Logger) *VelocityService {
	return &VelocityService{
		refresher: refresher,
		schedule:  schedule,
		logger:    logger.With().Str("component", "velocity-scheduler").Logger(),
	}
}

// Serve implements suture.Service: one immediate refresh, then the cron
// schedule until the context is canceled.
func (s *VelocityService) Serve(ctx context.Context) error {
	if _, err := cron.ParseStandard(s.schedule); err != nil {
		// A bad schedule will never fix itself by restarting.
		return fmt.Errorf("invalid refresh schedule %q: %w", s.schedule, err)
	}

	s.runOnce(ctx)

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() { s.runOnce(ctx) }); err != nil {
		return fmt.Errorf("register refresh schedule: %w", err)
	}

	c.Start()
	s.logger.Info().Str("schedule", s.schedule).Msg("velocity refresh scheduled")

	<-ctx.Done()

	// Wait for an in-flight run to finish before reporting stopped.
	stopCtx := c.Stop()
	<-stopCtx.Done()

	return ctx.Err()
}

func (s *VelocityService) runOnce(ctx context.Context) {
	start := time.Now()

	stats, err := s.refresher.RefreshAll(ctx)
	metrics.RecordRefreshRun("scheduled", err, stats.Refreshed, stats.Purged, stats.Duration)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error().Err(err).Msg("scheduled velocity refresh failed")
		return
	}

	s.logger.Info().
		Int("scanned", stats.Scanned).
		Int("refreshed", stats.Refreshed).
		Int64("purged", stats.Purged).
		Dur("duration", time.Since(start)).
		Msg("scheduled velocity refresh complete")
}

func (s *VelocityService) String() string {
	return "velocity-scheduler"
}
