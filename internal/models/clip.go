// Murmur Discovery - Audio Clip Feed Ranking
// Copyright 2026 Murmur Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package models defines the shared data types for the discovery service.
package models

import (
	"time"
)

// ClipStatus is the publication status of a clip.
type ClipStatus string

const (
	// ClipStatusLive marks a published clip eligible for ranking.
	ClipStatusLive ClipStatus = "live"
	// ClipStatusDraft marks an unpublished clip.
	ClipStatusDraft ClipStatus = "draft"
	// ClipStatusRemoved marks a clip taken down by moderation.
	ClipStatusRemoved ClipStatus = "removed"
)

// Clip is a short audio post, the unit of ranking. Counters are mutated
// continuously by ingestion paths outside this subsystem; only clips with
// status "live" are ever scored or returned.
type Clip struct {
	// ID is the unique clip identifier.
	ID string `json:"id"`

	// AuthorID identifies the creator.
	AuthorID string `json:"author_id"`

	// TopicID is the optional topic, empty when untagged.
	TopicID string `json:"topic_id,omitempty"`

	// CommunityID is the optional community the clip was posted to.
	CommunityID string `json:"community_id,omitempty"`

	// Tags is a set of free-form labels.
	Tags []string `json:"tags,omitempty"`

	// Moods is a set of mood/emotion markers.
	Moods []string `json:"moods,omitempty"`

	// City is the optional city tag for local feeds.
	City string `json:"city,omitempty"`

	// DurationSeconds is the audio length.
	DurationSeconds int `json:"duration_seconds"`

	// Status is the publication status.
	Status ClipStatus `json:"status"`

	// TrendingScore is an externally maintained rolling signal.
	TrendingScore float64 `json:"trending_score"`

	// ListenCount is the total listen counter.
	ListenCount int `json:"listen_count"`

	// Reactions maps reaction kind to count.
	Reactions map[string]int `json:"reactions,omitempty"`

	// CompletionRate is the viewer-independent average completion (0-100).
	CompletionRate float64 `json:"completion_rate"`

	// ReplyCount is the number of audio replies.
	ReplyCount int `json:"reply_count"`

	// RemixCount is the number of remixes of this clip.
	RemixCount int `json:"remix_count"`

	// CreatedAt is the publish time.
	CreatedAt time.Time `json:"created_at"`
}

// IsLive reports whether the clip may be ranked.
func (c *Clip) IsLive() bool {
	return c.Status == ClipStatusLive
}

// AgeHours returns the clip age in fractional hours at the given time.
func (c *Clip) AgeHours(now time.Time) float64 {
	return now.Sub(c.CreatedAt).Hours()
}

// TotalReactions returns the sum of all reaction-kind counts.
func (c *Clip) TotalReactions() int {
	total := 0
	for _, n := range c.Reactions {
		total += n
	}
	return total
}

// VelocitySample is one snapshot of a clip's absolute counters at a given
// hour bucket (floor of hours since creation). At most one sample exists
// per (clip, bucket); re-writing the same bucket overwrites, so a refresh
// is idempotent and never double-counts.
type VelocitySample struct {
	// ClipID identifies the clip.
	ClipID string `json:"clip_id"`

	// HourBucket is floor(hours since clip creation) at snapshot time.
	HourBucket int `json:"hour_bucket"`

	// ReactionCount is the absolute reaction total as of this hour.
	ReactionCount int `json:"reaction_count"`

	// ListenCount is the absolute listen total as of this hour.
	ListenCount int `json:"listen_count"`

	// ReplyCount is the absolute reply total as of this hour.
	ReplyCount int `json:"reply_count"`

	// RemixCount is the absolute remix total as of this hour.
	RemixCount int `json:"remix_count"`

	// UpdatedAt is when the sample was last written.
	UpdatedAt time.Time `json:"updated_at"`
}
