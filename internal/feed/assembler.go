// Murmur Discovery - Audio Clip Feed Ranking
// Copyright 2026 Murmur Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/murmurapp/discovery/internal/config"
	"github.com/murmurapp/discovery/internal/metrics"
	"github.com/murmurapp/discovery/internal/models"
	"github.com/murmurapp/discovery/internal/ranking"
)

// Pool bounds outside the weight tables.
const (
	risingPoolHours         = 48
	controversialPoolDays   = 7
	controversyMinReactions = 5
)

// ErrViewerRequired is returned by pipelines that cannot run anonymously.
var ErrViewerRequired = errors.New("viewer required")

// Assembler runs the feed pipelines. Stateless; safe for concurrent use.
type Assembler struct {
	store   Store
	engine  *ranking.Engine
	tracker *ranking.Tracker
	cfg     config.FeedConfig
	logger  zerolog.Logger
}

// New creates a feed assembler.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(store Store, engine *ranking.Engine, tracker *ranking.Tracker, cfg config.FeedConfig, logger zerolog.Logger) *Assembler {
	return &Assembler{
		store:   store,
		engine:  engine,
		tracker: tracker,
		cfg:     cfg,
		logger:  logger.With().Str("component", "feed").Logger(),
	}
}

// fetchFunc loads a candidate pool bounded by fetchLimit.
type fetchFunc func(ctx context.Context, fetchLimit int) ([]models.Clip, error)

// keyFunc computes the order key for one candidate. include false drops
// the candidate from the feed.
type keyFunc func(ctx context.Context, clip *models.Clip) (score float64, include bool, err error)

// Best returns the top clips by trending score within the window.
func (a *Assembler) Best(ctx context.Context, viewerID string, window Window, limit, offset int) (*Page, error) {
	now := time.Now()
	fetch := func(ctx context.Context, fetchLimit int) ([]models.Clip, error) {
		return a.store.ListTopClipsSince(ctx, window.Since(now), fetchLimit)
	}
	return a.run(ctx, PipelineBest, viewerID, fetch, trendingKey, limit, offset)
}

// Rising returns young clips ordered by engagement velocity. Clips with
// zero velocity never appear; an empty rising feed is meaningful.
func (a *Assembler) Rising(ctx context.Context, viewerID string, limit, offset int) (*Page, error) {
	now := time.Now()
	fetch := func(ctx context.Context, fetchLimit int) ([]models.Clip, error) {
		return a.store.ListLiveClipsCreatedSince(ctx, now.Add(-risingPoolHours*time.Hour), fetchLimit)
	}
	key := func(ctx context.Context, clip *models.Clip) (float64, bool, error) {
		v, err := a.tracker.VelocityAt(ctx, clip.ID, ranking.DefaultVelocityWindowHours, now)
		if err != nil {
			return 0, false, fmt.Errorf("velocity for %s: %w", clip.ID, err)
		}
		return v, v > 0, nil
	}
	return a.run(ctx, PipelineRising, viewerID, fetch, key, limit, offset)
}

// Controversial returns recent clips with divided reactions and
// sustained listening.
func (a *Assembler) Controversial(ctx context.Context, viewerID string, limit, offset int) (*Page, error) {
	now := time.Now()
	fetch := func(ctx context.Context, fetchLimit int) ([]models.Clip, error) {
		return a.store.ListLiveClipsCreatedSince(ctx, now.AddDate(0, 0, -controversialPoolDays), fetchLimit)
	}
	key := func(_ context.Context, clip *models.Clip) (float64, bool, error) {
		if clip.TotalReactions() <= controversyMinReactions {
			return 0, false, nil
		}
		return controversyScore(clip, now), true, nil
	}
	return a.run(ctx, PipelineControversial, viewerID, fetch, key, limit, offset)
}

// Topic returns the top clips in one topic by trending score.
func (a *Assembler) Topic(ctx context.Context, viewerID, topicID string, limit, offset int) (*Page, error) {
	fetch := func(ctx context.Context, fetchLimit int) ([]models.Clip, error) {
		return a.store.ListClipsByTopic(ctx, topicID, fetchLimit)
	}
	return a.run(ctx, PipelineTopic, viewerID, fetch, trendingKey, limit, offset)
}

// City returns the top clips tagged with one city by trending score.
func (a *Assembler) City(ctx context.Context, viewerID, city string, limit, offset int) (*Page, error) {
	fetch := func(ctx context.Context, fetchLimit int) ([]models.Clip, error) {
		return a.store.ListClipsByCity(ctx, city, fetchLimit)
	}
	return a.run(ctx, PipelineCity, viewerID, fetch, trendingKey, limit, offset)
}

// Following returns clips from creators the viewer follows, newest
// first with trending as the tie-break.
func (a *Assembler) Following(ctx context.Context, viewerID string, limit, offset int) (*Page, error) {
	if viewerID == "" {
		return nil, ErrViewerRequired
	}
	fetch := func(ctx context.Context, fetchLimit int) ([]models.Clip, error) {
		return a.store.ListClipsByFollowedAuthors(ctx, viewerID, fetchLimit)
	}
	key := func(_ context.Context, clip *models.Clip) (float64, bool, error) {
		// Recency is the primary key; unix seconds order newest first
		// under the shared descending sort.
		return float64(clip.CreatedAt.Unix()), true, nil
	}
	return a.run(ctx, PipelineFollowing, viewerID, fetch, key, limit, offset)
}

// Unheard returns clips the viewer has never listened to, ordered by
// the full relevance score. Clips scoring zero or excluded are dropped.
func (a *Assembler) Unheard(ctx context.Context, viewerID string, limit, offset int) (*Page, error) {
	if viewerID == "" {
		return nil, ErrViewerRequired
	}
	now := time.Now()
	fetch := func(ctx context.Context, fetchLimit int) ([]models.Clip, error) {
		return a.store.ListUnheardClips(ctx, viewerID, fetchLimit)
	}
	key := func(ctx context.Context, clip *models.Clip) (float64, bool, error) {
		start := time.Now()
		result, err := a.engine.Score(ctx, clip, viewerID, now, "")
		metrics.ScoringDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			return 0, false, fmt.Errorf("score %s: %w", clip.ID, err)
		}
		if result.Excluded || result.Score <= 0 {
			return 0, false, nil
		}
		return result.Score, true, nil
	}
	return a.run(ctx, PipelineUnheard, viewerID, fetch, key, limit, offset)
}

// trendingKey orders by the externally maintained trending score.
func trendingKey(_ context.Context, clip *models.Clip) (float64, bool, error) {
	return clip.TrendingScore, true, nil
}

// run is the shared pipeline runner. The pool is over-fetched to absorb
// exclusions and key-based drops; ordering is fully deterministic.
func (a *Assembler) run(ctx context.Context, pipeline, viewerID string, fetch fetchFunc, key keyFunc, limit, offset int) (*Page, error) {
	start := time.Now()

	limit = a.clampLimit(limit)
	if offset < 0 {
		offset = 0
	}

	fetchLimit := (offset + limit) * a.overfetchFactor()
	pool, err := fetch(ctx, fetchLimit)
	if err != nil {
		return nil, fmt.Errorf("%s pool: %w", pipeline, err)
	}

	items := make([]Item, 0, len(pool))
	for i := range pool {
		clip := &pool[i]

		excluded, err := a.viewerExcludes(ctx, viewerID, clip)
		if err != nil {
			return nil, err
		}
		if excluded {
			continue
		}

		score, include, err := key(ctx, clip)
		if err != nil {
			return nil, err
		}
		if !include {
			continue
		}
		items = append(items, Item{Clip: *clip, Score: score})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		if !items[i].Clip.CreatedAt.Equal(items[j].Clip.CreatedAt) {
			return items[i].Clip.CreatedAt.After(items[j].Clip.CreatedAt)
		}
		return items[i].Clip.ID < items[j].Clip.ID
	})

	items = paginate(items, offset, limit)

	metrics.RecordFeedRequest(pipeline, len(items), time.Since(start))
	a.logger.Debug().
		Str("pipeline", pipeline).
		Int("pool", len(pool)).
		Int("returned", len(items)).
		Dur("duration", time.Since(start)).
		Msg("feed assembled")

	return &Page{Pipeline: pipeline, Items: items, Limit: limit, Offset: offset}, nil
}

// viewerExcludes applies the hard exclusion predicates for known
// viewers. Anonymous requests see the unfiltered pool.
func (a *Assembler) viewerExcludes(ctx context.Context, viewerID string, clip *models.Clip) (bool, error) {
	if viewerID == "" {
		return false, nil
	}

	if clip.TopicID != "" {
		muted, err := a.store.IsTopicMuted(ctx, viewerID, clip.TopicID)
		if err != nil {
			return false, fmt.Errorf("topic mute check: %w", err)
		}
		if muted {
			metrics.ScoringExclusionsTotal.WithLabelValues("muted_topic").Inc()
			return true, nil
		}
	}

	muted, err := a.store.IsCreatorMuted(ctx, viewerID, clip.AuthorID)
	if err != nil {
		return false, fmt.Errorf("creator mute check: %w", err)
	}
	if muted {
		metrics.ScoringExclusionsTotal.WithLabelValues("muted_creator").Inc()
		return true, nil
	}

	blocked, err := a.store.IsBlocked(ctx, viewerID, clip.AuthorID)
	if err != nil {
		return false, fmt.Errorf("block check: %w", err)
	}
	if blocked {
		metrics.ScoringExclusionsTotal.WithLabelValues("blocked").Inc()
		return true, nil
	}

	return false, nil
}

func (a *Assembler) clampLimit(limit int) int {
	if limit <= 0 {
		return a.cfg.DefaultLimit
	}
	if limit > a.cfg.MaxLimit {
		return a.cfg.MaxLimit
	}
	return limit
}

func (a *Assembler) overfetchFactor() int {
	if a.cfg.OverfetchFactor <= 0 {
		return 3
	}
	return a.cfg.OverfetchFactor
}

func paginate(items []Item, offset, limit int) []Item {
	if offset >= len(items) {
		return []Item{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
