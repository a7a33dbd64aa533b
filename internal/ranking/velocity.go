// Murmur Discovery - Audio Clip Feed Ranking
// Copyright 2026 Murmur Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package ranking

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/murmurapp/discovery/internal/models"
)

// DefaultVelocityWindowHours is the default window for velocity reads.
const DefaultVelocityWindowHours = 24

// Velocity metric weights. An active reaction or reply is a stronger
// engagement signal than a passive listen.
const (
	reactionRateWeight = 3.0
	replyRateWeight    = 2.0
	remixRateWeight    = 2.0
	listenRateWeight   = 0.5
)

// TrackerConfig holds velocity tracker parameters.
type TrackerConfig struct {
	// MaxAgeHours bounds which clips RefreshAll touches.
	MaxAgeHours int

	// BatchLimit caps clips refreshed per RefreshAll invocation.
	BatchLimit int

	// RetentionDays is how long samples are kept before cleanup.
	RetentionDays int

	// RefreshPerSecond paces per-clip refresh writes. 0 disables pacing.
	RefreshPerSecond float64
}

// DefaultTrackerConfig returns the documented defaults.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		MaxAgeHours:      48,
		BatchLimit:       1000,
		RetentionDays:    7,
		RefreshPerSecond: 0,
	}
}

// Tracker maintains the per-clip engagement velocity time series: one
// sample per (clip, hour bucket) holding an absolute counter snapshot.
// Refreshes are idempotent overwrites, so overlapping scheduled runs and
// manual triggers converge to the same stored truth without coordination.
type Tracker struct {
	store   VelocityStore
	config  TrackerConfig
	logger  zerolog.Logger
	limiter *rate.Limiter
}

// RefreshStats summarizes one RefreshAll run.
type RefreshStats struct {
	// Scanned is the number of candidate clips considered.
	Scanned int `json:"scanned"`

	// Refreshed is the number of samples written.
	Refreshed int `json:"refreshed"`

	// Purged is the number of expired samples deleted.
	Purged int64 `json:"purged"`

	// Duration is the total run time.
	Duration time.Duration `json:"-"`
}

// NewTracker creates a velocity tracker.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewTracker(store VelocityStore, cfg TrackerConfig, logger zerolog.Logger) *Tracker {
	var limiter *rate.Limiter
	if cfg.RefreshPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RefreshPerSecond), 1)
	}

	return &Tracker{
		store:   store,
		config:  cfg,
		logger:  logger.With().Str("component", "velocity").Logger(),
		limiter: limiter,
	}
}

// RefreshVelocity snapshots the clip's current absolute counters into
// the sample for its current hour bucket. No-op when the clip does not
// exist. Safe to call concurrently and redundantly: each write simply
// re-asserts the same or newer truth.
func (t *Tracker) RefreshVelocity(ctx context.Context, clipID string) error {
	return t.refreshAt(ctx, clipID, time.Now())
}

// refreshAt is RefreshVelocity against an explicit clock, for tests and
// for batch runs sharing one observation time.
func (t *Tracker) refreshAt(ctx context.Context, clipID string, now time.Time) error {
	clip, err := t.store.GetClip(ctx, clipID)
	if err != nil {
		return fmt.Errorf("get clip: %w", err)
	}
	if clip == nil {
		return nil
	}

	bucket := int(math.Floor(clip.AgeHours(now)))
	if bucket < 0 {
		bucket = 0
	}

	sample := &models.VelocitySample{
		ClipID:        clip.ID,
		HourBucket:    bucket,
		ReactionCount: clip.TotalReactions(),
		ListenCount:   clip.ListenCount,
		ReplyCount:    clip.ReplyCount,
		RemixCount:    clip.RemixCount,
		UpdatedAt:     now,
	}

	if err := t.store.UpsertVelocitySample(ctx, sample); err != nil {
		return fmt.Errorf("upsert velocity sample: %w", err)
	}

	return nil
}

// RefreshAll refreshes every live clip younger than the configured max
// age, bounded by the batch limit, then purges samples past retention.
// Intended to run on a fixed schedule; concurrent runs are safe.
func (t *Tracker) RefreshAll(ctx context.Context) (RefreshStats, error) {
	start := time.Now()
	stats := RefreshStats{}

	ids, err := t.store.ListRecentLiveClipIDs(ctx, t.config.MaxAgeHours, t.config.BatchLimit)
	if err != nil {
		return stats, fmt.Errorf("list recent clips: %w", err)
	}
	stats.Scanned = len(ids)

	for _, id := range ids {
		if t.limiter != nil {
			if err := t.limiter.Wait(ctx); err != nil {
				return stats, fmt.Errorf("refresh pacing: %w", err)
			}
		}

		if err := t.refreshAt(ctx, id, time.Now()); err != nil {
			// One bad clip must not abort the batch.
			t.logger.Warn().Str("clip_id", id).Err(err).Msg("refresh failed")
			continue
		}
		stats.Refreshed++
	}

	cutoff := start.AddDate(0, 0, -t.config.RetentionDays)
	purged, err := t.store.PurgeVelocitySamples(ctx, cutoff)
	if err != nil {
		return stats, fmt.Errorf("purge velocity samples: %w", err)
	}
	stats.Purged = purged
	stats.Duration = time.Since(start)

	t.logger.Info().
		Int("scanned", stats.Scanned).
		Int("refreshed", stats.Refreshed).
		Int64("purged", stats.Purged).
		Dur("duration", stats.Duration).
		Msg("velocity refresh complete")

	return stats, nil
}

// Velocity returns the rate-weighted recent engagement for a clip over
// the default window.
func (t *Tracker) Velocity(ctx context.Context, clipID string, windowHours int) (float64, error) {
	return t.VelocityAt(ctx, clipID, windowHours, time.Now())
}

// VelocityAt computes velocity against an explicit clock so callers can
// bind a whole ranking request to one observation time.
//
// Clips older than the window read as 0: they are too old to be
// "rising" no matter their history. Otherwise each metric's bucket sums
// over [0, min(window, age)] are divided by max(age, 1) to get per-hour
// rates, then combined with the fixed metric weights.
func (t *Tracker) VelocityAt(ctx context.Context, clipID string, windowHours int, now time.Time) (float64, error) {
	if windowHours <= 0 {
		windowHours = DefaultVelocityWindowHours
	}

	clip, err := t.store.GetClip(ctx, clipID)
	if err != nil {
		return 0, fmt.Errorf("get clip: %w", err)
	}
	if clip == nil {
		return 0, nil
	}

	ageHours := clip.AgeHours(now)
	if ageHours > float64(windowHours) {
		return 0, nil
	}

	maxBucket := int(math.Floor(math.Min(float64(windowHours), ageHours)))
	if maxBucket < 0 {
		maxBucket = 0
	}

	sums, err := t.store.VelocitySums(ctx, clipID, maxBucket)
	if err != nil {
		return 0, fmt.Errorf("velocity sums: %w", err)
	}

	// Floor the divisor at one hour to avoid infinite rates at the
	// moment of publish.
	divisor := math.Max(ageHours, 1)

	return float64(sums.Reactions)/divisor*reactionRateWeight +
		float64(sums.Replies)/divisor*replyRateWeight +
		float64(sums.Remixes)/divisor*remixRateWeight +
		float64(sums.Listens)/divisor*listenRateWeight, nil
}
