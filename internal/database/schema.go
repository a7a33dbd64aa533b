// Murmur Discovery - Audio Clip Feed Ranking
// Copyright 2026 Murmur Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package database

// schemaStatements creates all tables and indexes. Every statement is
// idempotent so startup can run them unconditionally.
//
// Tags, moods, reactions, weight overrides, and topic affinities are
// stored as JSON text columns; they are opaque to every query and only
// decoded at the edges.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS clips (
		id VARCHAR PRIMARY KEY,
		author_id VARCHAR NOT NULL,
		topic_id VARCHAR,
		community_id VARCHAR,
		tags VARCHAR,
		moods VARCHAR,
		city VARCHAR,
		duration_seconds INTEGER NOT NULL DEFAULT 0,
		status VARCHAR NOT NULL,
		trending_score DOUBLE NOT NULL DEFAULT 0,
		listen_count INTEGER NOT NULL DEFAULT 0,
		reactions VARCHAR,
		completion_rate DOUBLE NOT NULL DEFAULT 0,
		reply_count INTEGER NOT NULL DEFAULT 0,
		remix_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_clips_status_created ON clips(status, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_clips_topic ON clips(topic_id)`,
	`CREATE INDEX IF NOT EXISTS idx_clips_city ON clips(city)`,
	`CREATE INDEX IF NOT EXISTS idx_clips_author ON clips(author_id)`,

	// The composite primary key is what makes refresh idempotent: a
	// re-ingest of the same hour overwrites instead of accumulating.
	`CREATE TABLE IF NOT EXISTS velocity_samples (
		clip_id VARCHAR NOT NULL,
		hour_bucket INTEGER NOT NULL,
		reaction_count INTEGER NOT NULL DEFAULT 0,
		listen_count INTEGER NOT NULL DEFAULT 0,
		reply_count INTEGER NOT NULL DEFAULT 0,
		remix_count INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (clip_id, hour_bucket)
	)`,

	`CREATE TABLE IF NOT EXISTS viewer_preferences (
		viewer_id VARCHAR PRIMARY KEY,
		min_duration_seconds INTEGER NOT NULL DEFAULT 0,
		max_duration_seconds INTEGER NOT NULL DEFAULT 0,
		weight_overrides VARCHAR,
		allow_skip_history BOOLEAN NOT NULL DEFAULT true,
		allow_listening_patterns BOOLEAN NOT NULL DEFAULT true,
		allow_device_signals BOOLEAN NOT NULL DEFAULT true,
		topic_affinities VARCHAR
	)`,

	`CREATE TABLE IF NOT EXISTS follows (
		viewer_id VARCHAR NOT NULL,
		author_id VARCHAR NOT NULL,
		PRIMARY KEY (viewer_id, author_id)
	)`,
	`CREATE TABLE IF NOT EXISTS topic_subscriptions (
		viewer_id VARCHAR NOT NULL,
		topic_id VARCHAR NOT NULL,
		PRIMARY KEY (viewer_id, topic_id)
	)`,
	`CREATE TABLE IF NOT EXISTS community_members (
		viewer_id VARCHAR NOT NULL,
		community_id VARCHAR NOT NULL,
		PRIMARY KEY (viewer_id, community_id)
	)`,
	`CREATE TABLE IF NOT EXISTS topic_mutes (
		viewer_id VARCHAR NOT NULL,
		topic_id VARCHAR NOT NULL,
		PRIMARY KEY (viewer_id, topic_id)
	)`,
	`CREATE TABLE IF NOT EXISTS creator_mutes (
		viewer_id VARCHAR NOT NULL,
		author_id VARCHAR NOT NULL,
		PRIMARY KEY (viewer_id, author_id)
	)`,
	`CREATE TABLE IF NOT EXISTS blocks (
		viewer_id VARCHAR NOT NULL,
		author_id VARCHAR NOT NULL,
		PRIMARY KEY (viewer_id, author_id)
	)`,

	`CREATE TABLE IF NOT EXISTS listens (
		viewer_id VARCHAR NOT NULL,
		clip_id VARCHAR NOT NULL,
		completion_percent DOUBLE NOT NULL DEFAULT 0,
		listened_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_listens_viewer ON listens(viewer_id, listened_at)`,
	`CREATE INDEX IF NOT EXISTS idx_listens_clip ON listens(clip_id)`,

	`CREATE TABLE IF NOT EXISTS skips (
		viewer_id VARCHAR NOT NULL,
		clip_id VARCHAR NOT NULL,
		position_seconds INTEGER NOT NULL DEFAULT 0,
		skipped_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_skips_viewer ON skips(viewer_id, skipped_at)`,

	`CREATE TABLE IF NOT EXISTS authors (
		id VARCHAR PRIMARY KEY,
		reputation INTEGER NOT NULL DEFAULT 0
	)`,
}
