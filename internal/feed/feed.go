// Murmur Discovery - Audio Clip Feed Ranking
// Copyright 2026 Murmur Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package feed assembles the seven discovery feeds. Each pipeline is a
// thin configuration over one shared runner: fetch a candidate pool,
// filter viewer exclusions, compute an order key, sort with
// deterministic tie-breaks, paginate.
package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/murmurapp/discovery/internal/models"
)

// Pipeline names as exposed in metrics and logs.
const (
	PipelineBest          = "best"
	PipelineRising        = "rising"
	PipelineControversial = "controversial"
	PipelineTopic         = "topic"
	PipelineCity          = "city"
	PipelineFollowing     = "following"
	PipelineUnheard       = "unheard"
)

// Window is the look-back period for the best-of feed.
type Window string

const (
	WindowHour  Window = "hour"
	WindowDay   Window = "day"
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
	WindowYear  Window = "year"
	WindowAll   Window = "all"
)

// ParseWindow validates a window query value. Empty defaults to day.
func ParseWindow(s string) (Window, error) {
	switch Window(s) {
	case "":
		return WindowDay, nil
	case WindowHour, WindowDay, WindowWeek, WindowMonth, WindowYear, WindowAll:
		return Window(s), nil
	default:
		return "", fmt.Errorf("unknown window %q", s)
	}
}

// Since returns the inclusive lower time bound for the window. The all
// window returns the zero time.
func (w Window) Since(now time.Time) time.Time {
	switch w {
	case WindowHour:
		return now.Add(-time.Hour)
	case WindowDay:
		return now.AddDate(0, 0, -1)
	case WindowWeek:
		return now.AddDate(0, 0, -7)
	case WindowMonth:
		return now.AddDate(0, -1, 0)
	case WindowYear:
		return now.AddDate(-1, 0, 0)
	default:
		return time.Time{}
	}
}

// Item is one ranked feed entry.
type Item struct {
	Clip models.Clip `json:"clip"`

	// Score is the pipeline's order key for this entry: trending for
	// the browse feeds, velocity for rising, the controversy score for
	// controversial, relevance for unheard.
	Score float64 `json:"score"`
}

// Page is one feed response page.
type Page struct {
	Pipeline string `json:"pipeline"`
	Items    []Item `json:"items"`
	Limit    int    `json:"limit"`
	Offset   int    `json:"offset"`
}

// Store is the candidate-pool and exclusion-predicate surface the
// assembler needs, implemented by the database layer.
type Store interface {
	ListTopClipsSince(ctx context.Context, since time.Time, limit int) ([]models.Clip, error)
	ListClipsByTopic(ctx context.Context, topicID string, limit int) ([]models.Clip, error)
	ListClipsByCity(ctx context.Context, city string, limit int) ([]models.Clip, error)
	ListClipsByFollowedAuthors(ctx context.Context, viewerID string, limit int) ([]models.Clip, error)
	ListLiveClipsCreatedSince(ctx context.Context, since time.Time, limit int) ([]models.Clip, error)
	ListUnheardClips(ctx context.Context, viewerID string, limit int) ([]models.Clip, error)

	IsTopicMuted(ctx context.Context, viewerID, topicID string) (bool, error)
	IsCreatorMuted(ctx context.Context, viewerID, authorID string) (bool, error)
	IsBlocked(ctx context.Context, viewerID, authorID string) (bool, error)
}
