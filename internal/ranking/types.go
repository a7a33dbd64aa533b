// Murmur Discovery - Audio Clip Feed Ranking
// Copyright 2026 Murmur Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ranking implements the relevance scoring engine and the
// engagement velocity tracker.
//
// The package has no dependency on the database package. The SignalStore
// and VelocityStore interfaces decouple the engine from storage and are
// implemented by the database layer.
package ranking

import (
	"context"
	"time"

	"github.com/murmurapp/discovery/internal/models"
)

// Signal names. These are the keys of the per-viewer weight-override map
// and of the default weight table.
const (
	SignalTrending      = "trending"
	SignalTopicFollow   = "topic_follow"
	SignalCreatorFollow = "creator_follow"
	SignalCompletion    = "completion"
	SignalSkipPenalty   = "skip_penalty"
	SignalVelocity      = "velocity"
	SignalReputation    = "reputation"
	SignalTopicActivity = "topic_activity"
	SignalDiversity     = "diversity"
)

// ExcludedScore is the wire sentinel for a hard-excluded clip. It is
// distinct from a merely irrelevant score of zero.
const ExcludedScore = -1.0

// Result is the outcome of scoring one (clip, viewer) pair: either a
// hard exclusion (mute/block match) or a non-negative score. Keeping
// exclusion out of the numeric range preserves the distinction between
// "never show" and "deprioritized to irrelevance".
type Result struct {
	// Score is the relevance score. Meaningless when Excluded is true.
	Score float64

	// Excluded marks a mute/block match.
	Excluded bool
}

// Scored wraps a score in a non-excluded Result.
func Scored(score float64) Result {
	return Result{Score: score}
}

// Excluded returns the hard-exclusion Result.
func Excluded() Result {
	return Result{Excluded: true}
}

// Wire returns the score, or the ExcludedScore sentinel for exclusions.
func (r Result) Wire() float64 {
	if r.Excluded {
		return ExcludedScore
	}
	return r.Score
}

// SignalStore is the read-only view over clip metadata, viewer state,
// social-graph predicates, and historical aggregates that scoring needs.
// Implemented by the database layer.
//
// Lookup methods return (nil, nil) for missing rows; predicate and
// aggregate methods return zero values for viewers or clips with no
// history. Store unavailability is returned as an error and propagates
// to the caller untouched.
type SignalStore interface {
	// GetClip returns a clip by id, or nil when it does not exist.
	GetClip(ctx context.Context, clipID string) (*models.Clip, error)

	// GetViewerPreference returns the viewer's preference row, or nil
	// when the viewer never customized anything.
	GetViewerPreference(ctx context.Context, viewerID string) (*models.ViewerPreference, error)

	// IsFollowing reports whether the viewer follows the author.
	IsFollowing(ctx context.Context, viewerID, authorID string) (bool, error)

	// IsSubscribed reports whether the viewer subscribes to the topic.
	IsSubscribed(ctx context.Context, viewerID, topicID string) (bool, error)

	// IsTopicMuted reports whether the viewer muted the topic.
	IsTopicMuted(ctx context.Context, viewerID, topicID string) (bool, error)

	// IsCreatorMuted reports whether the viewer muted the author.
	IsCreatorMuted(ctx context.Context, viewerID, authorID string) (bool, error)

	// IsBlocked reports whether the viewer blocked the author.
	IsBlocked(ctx context.Context, viewerID, authorID string) (bool, error)

	// IsMember reports whether the viewer belongs to the community.
	IsMember(ctx context.Context, viewerID, communityID string) (bool, error)

	// ClipCompletion returns the viewer's own completion percentage on
	// the clip. ok is false when the viewer never listened to it.
	ClipCompletion(ctx context.Context, viewerID, clipID string) (percent float64, ok bool, err error)

	// AuthorCompletionRate returns the viewer's average completion
	// percentage across the author's other clips over the last N days,
	// with the number of listens it is based on.
	AuthorCompletionRate(ctx context.Context, viewerID, authorID string, days int) (avg float64, listens int, err error)

	// AuthorSkipRate returns the viewer's rolling skip rate (0-100)
	// against the author over the last N days.
	AuthorSkipRate(ctx context.Context, viewerID, authorID string, days int) (float64, error)

	// TopicSkipRate returns the viewer's rolling skip rate (0-100)
	// against the topic over the last N days.
	TopicSkipRate(ctx context.Context, viewerID, topicID string, days int) (float64, error)

	// WasSkipped reports whether the viewer explicitly skipped the clip.
	WasSkipped(ctx context.Context, viewerID, clipID string) (bool, error)

	// RecentTopics returns the distinct topics among the viewer's most
	// recent listens within the last N days, capped at limit entries,
	// most recently heard first.
	RecentTopics(ctx context.Context, viewerID string, days, limit int) ([]string, error)

	// PreferredHours returns the viewer's historically preferred
	// listening hours (0-23) over the last N days.
	PreferredHours(ctx context.Context, viewerID string, days int) ([]int, error)

	// AuthorReputation returns the externally computed reputation score.
	AuthorReputation(ctx context.Context, authorID string) (int, error)

	// TopicClipCounts returns the number of live clips in the topic,
	// total and posted within the last 24 hours.
	TopicClipCounts(ctx context.Context, topicID string) (total, recent int, err error)
}

// VelocityStore is the storage contract for the engagement velocity
// tracker. Implemented by the database layer; the velocity_samples table
// is the only state this subsystem owns.
type VelocityStore interface {
	// GetClip returns a clip by id, or nil when it does not exist.
	GetClip(ctx context.Context, clipID string) (*models.Clip, error)

	// ListRecentLiveClipIDs returns ids of live clips younger than
	// maxAgeHours, newest first, bounded by limit.
	ListRecentLiveClipIDs(ctx context.Context, maxAgeHours, limit int) ([]string, error)

	// UpsertVelocitySample writes the sample, overwriting any existing
	// row for the same (clip, hour bucket).
	UpsertVelocitySample(ctx context.Context, sample *models.VelocitySample) error

	// VelocitySums returns per-metric sums over buckets [0, maxBucket].
	VelocitySums(ctx context.Context, clipID string, maxBucket int) (VelocitySums, error)

	// PurgeVelocitySamples deletes samples last updated before the
	// cutoff and returns the number removed.
	PurgeVelocitySamples(ctx context.Context, before time.Time) (int64, error)
}

// VelocitySums holds per-metric bucket sums for one clip.
type VelocitySums struct {
	Reactions int
	Listens   int
	Replies   int
	Remixes   int
}
