// Murmur Discovery - Audio Clip Feed Ranking
// Copyright 2026 Murmur Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/murmurapp/discovery/internal/models"
)

// GetViewerPreference returns the viewer's preference row, or nil when
// the viewer never customized anything.
func (db *DB) GetViewerPreference(ctx context.Context, viewerID string) (*models.ViewerPreference, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var (
		pref           models.ViewerPreference
		overridesJSON  string
		affinitiesJSON string
	)

	err := db.conn.QueryRowContext(ctx, `
		SELECT viewer_id, min_duration_seconds, max_duration_seconds,
		       COALESCE(weight_overrides, '{}'),
		       allow_skip_history, allow_listening_patterns, allow_device_signals,
		       COALESCE(topic_affinities, '{}')
		FROM viewer_preferences WHERE viewer_id = ?`, viewerID).Scan(
		&pref.ViewerID, &pref.MinDurationSeconds, &pref.MaxDurationSeconds,
		&overridesJSON, &pref.AllowSkipHistory, &pref.AllowListeningPatterns,
		&pref.AllowDeviceSignals, &affinitiesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get viewer preference: %w", err)
	}

	if err := json.Unmarshal([]byte(overridesJSON), &pref.WeightOverrides); err != nil {
		return nil, fmt.Errorf("decode weight overrides: %w", err)
	}
	if err := json.Unmarshal([]byte(affinitiesJSON), &pref.TopicAffinities); err != nil {
		return nil, fmt.Errorf("decode topic affinities: %w", err)
	}
	return &pref, nil
}

// UpsertViewerPreference writes a viewer preference row.
func (db *DB) UpsertViewerPreference(ctx context.Context, pref *models.ViewerPreference) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	overrides, err := json.Marshal(pref.WeightOverrides)
	if err != nil {
		return fmt.Errorf("marshal weight overrides: %w", err)
	}
	affinities, err := json.Marshal(pref.TopicAffinities)
	if err != nil {
		return fmt.Errorf("marshal topic affinities: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO viewer_preferences (viewer_id, min_duration_seconds,
			max_duration_seconds, weight_overrides, allow_skip_history,
			allow_listening_patterns, allow_device_signals, topic_affinities)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (viewer_id) DO UPDATE SET
			min_duration_seconds = excluded.min_duration_seconds,
			max_duration_seconds = excluded.max_duration_seconds,
			weight_overrides = excluded.weight_overrides,
			allow_skip_history = excluded.allow_skip_history,
			allow_listening_patterns = excluded.allow_listening_patterns,
			allow_device_signals = excluded.allow_device_signals,
			topic_affinities = excluded.topic_affinities`,
		pref.ViewerID, pref.MinDurationSeconds, pref.MaxDurationSeconds,
		string(overrides), pref.AllowSkipHistory, pref.AllowListeningPatterns,
		pref.AllowDeviceSignals, string(affinities))
	if err != nil {
		return fmt.Errorf("upsert viewer preference: %w", err)
	}
	return nil
}

// IsFollowing reports whether the viewer follows the author.
func (db *DB) IsFollowing(ctx context.Context, viewerID, authorID string) (bool, error) {
	return db.exists(ctx,
		`SELECT 1 FROM follows WHERE viewer_id = ? AND author_id = ?`,
		viewerID, authorID)
}

// IsSubscribed reports whether the viewer subscribes to the topic.
func (db *DB) IsSubscribed(ctx context.Context, viewerID, topicID string) (bool, error) {
	return db.exists(ctx,
		`SELECT 1 FROM topic_subscriptions WHERE viewer_id = ? AND topic_id = ?`,
		viewerID, topicID)
}

// IsTopicMuted reports whether the viewer muted the topic.
func (db *DB) IsTopicMuted(ctx context.Context, viewerID, topicID string) (bool, error) {
	return db.exists(ctx,
		`SELECT 1 FROM topic_mutes WHERE viewer_id = ? AND topic_id = ?`,
		viewerID, topicID)
}

// IsCreatorMuted reports whether the viewer muted the author.
func (db *DB) IsCreatorMuted(ctx context.Context, viewerID, authorID string) (bool, error) {
	return db.exists(ctx,
		`SELECT 1 FROM creator_mutes WHERE viewer_id = ? AND author_id = ?`,
		viewerID, authorID)
}

// IsBlocked reports whether the viewer blocked the author.
func (db *DB) IsBlocked(ctx context.Context, viewerID, authorID string) (bool, error) {
	return db.exists(ctx,
		`SELECT 1 FROM blocks WHERE viewer_id = ? AND author_id = ?`,
		viewerID, authorID)
}

// IsMember reports whether the viewer belongs to the community.
func (db *DB) IsMember(ctx context.Context, viewerID, communityID string) (bool, error) {
	return db.exists(ctx,
		`SELECT 1 FROM community_members WHERE viewer_id = ? AND community_id = ?`,
		viewerID, communityID)
}

// WasSkipped reports whether the viewer explicitly skipped the clip.
func (db *DB) WasSkipped(ctx context.Context, viewerID, clipID string) (bool, error) {
	return db.exists(ctx,
		`SELECT 1 FROM skips WHERE viewer_id = ? AND clip_id = ?`,
		viewerID, clipID)
}

// ClipCompletion returns the viewer's own completion percentage on the
// clip, taking the most recent listen. ok is false when the viewer
// never listened to it.
func (db *DB) ClipCompletion(ctx context.Context, viewerID, clipID string) (float64, bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var percent float64
	err := db.conn.QueryRowContext(ctx, `
		SELECT completion_percent FROM listens
		WHERE viewer_id = ? AND clip_id = ?
		ORDER BY listened_at DESC LIMIT 1`, viewerID, clipID).Scan(&percent)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("clip completion: %w", err)
	}
	return percent, true, nil
}

// AuthorCompletionRate returns the viewer's average completion
// percentage across the author's clips over the last N days, with the
// number of listens it is based on.
func (db *DB) AuthorCompletionRate(ctx context.Context, viewerID, authorID string, days int) (float64, int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -days)

	var (
		avg     sql.NullFloat64
		listens int
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT AVG(l.completion_percent), COUNT(*)
		FROM listens l
		JOIN clips c ON c.id = l.clip_id
		WHERE l.viewer_id = ? AND c.author_id = ? AND l.listened_at >= ?`,
		viewerID, authorID, cutoff).Scan(&avg, &listens)
	if err != nil {
		return 0, 0, fmt.Errorf("author completion rate: %w", err)
	}
	return avg.Float64, listens, nil
}

// AuthorSkipRate returns the viewer's rolling skip rate (0-100) against
// the author over the last N days. Rate is skips over skips plus
// listens; a viewer with no history has rate zero.
func (db *DB) AuthorSkipRate(ctx context.Context, viewerID, authorID string, days int) (float64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -days)

	var skips, listens int
	err := db.conn.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM skips s JOIN clips c ON c.id = s.clip_id
			 WHERE s.viewer_id = ? AND c.author_id = ? AND s.skipped_at >= ?),
			(SELECT COUNT(*) FROM listens l JOIN clips c ON c.id = l.clip_id
			 WHERE l.viewer_id = ? AND c.author_id = ? AND l.listened_at >= ?)`,
		viewerID, authorID, cutoff, viewerID, authorID, cutoff).Scan(&skips, &listens)
	if err != nil {
		return 0, fmt.Errorf("author skip rate: %w", err)
	}
	return skipRate(skips, listens), nil
}

// TopicSkipRate returns the viewer's rolling skip rate (0-100) against
// the topic over the last N days.
func (db *DB) TopicSkipRate(ctx context.Context, viewerID, topicID string, days int) (float64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -days)

	var skips, listens int
	err := db.conn.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM skips s JOIN clips c ON c.id = s.clip_id
			 WHERE s.viewer_id = ? AND c.topic_id = ? AND s.skipped_at >= ?),
			(SELECT COUNT(*) FROM listens l JOIN clips c ON c.id = l.clip_id
			 WHERE l.viewer_id = ? AND c.topic_id = ? AND l.listened_at >= ?)`,
		viewerID, topicID, cutoff, viewerID, topicID, cutoff).Scan(&skips, &listens)
	if err != nil {
		return 0, fmt.Errorf("topic skip rate: %w", err)
	}
	return skipRate(skips, listens), nil
}

// RecentTopics returns the distinct topics among the viewer's recent
// listens within the last N days, most recently heard first, capped at
// limit entries.
func (db *DB) RecentTopics(ctx context.Context, viewerID string, days, limit int) ([]string, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -days)

	rows, err := db.conn.QueryContext(ctx, `
		SELECT c.topic_id
		FROM listens l
		JOIN clips c ON c.id = l.clip_id
		WHERE l.viewer_id = ? AND l.listened_at >= ? AND c.topic_id IS NOT NULL
		GROUP BY c.topic_id
		ORDER BY MAX(l.listened_at) DESC
		LIMIT ?`, viewerID, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("recent topics: %w", err)
	}
	defer rows.Close()

	var topics []string
	for rows.Next() {
		var topic string
		if err := rows.Scan(&topic); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		topics = append(topics, topic)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate topics: %w", err)
	}
	return topics, nil
}

// PreferredHours returns the hours of day (0-23) in which the viewer
// listened at least twice over the last N days, most active first.
func (db *DB) PreferredHours(ctx context.Context, viewerID string, days int) ([]int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -days)

	rows, err := db.conn.QueryContext(ctx, `
		SELECT CAST(EXTRACT(hour FROM listened_at) AS INTEGER) AS hr
		FROM listens
		WHERE viewer_id = ? AND listened_at >= ?
		GROUP BY hr
		HAVING COUNT(*) >= 2
		ORDER BY COUNT(*) DESC, hr`, viewerID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("preferred hours: %w", err)
	}
	defer rows.Close()

	var hours []int
	for rows.Next() {
		var hour int
		if err := rows.Scan(&hour); err != nil {
			return nil, fmt.Errorf("scan hour: %w", err)
		}
		hours = append(hours, hour)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hours: %w", err)
	}
	return hours, nil
}

// AuthorReputation returns the externally computed reputation score, or
// zero for unknown authors.
func (db *DB) AuthorReputation(ctx context.Context, authorID string) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var reputation int
	err := db.conn.QueryRowContext(ctx,
		`SELECT reputation FROM authors WHERE id = ?`, authorID).Scan(&reputation)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("author reputation: %w", err)
	}
	return reputation, nil
}

// SetAuthorReputation writes an author's reputation score.
func (db *DB) SetAuthorReputation(ctx context.Context, authorID string, reputation int) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO authors (id, reputation) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET reputation = excluded.reputation`,
		authorID, reputation)
	if err != nil {
		return fmt.Errorf("set author reputation: %w", err)
	}
	return nil
}

// AddFollow records that the viewer follows the author.
func (db *DB) AddFollow(ctx context.Context, viewerID, authorID string) error {
	return db.insertPair(ctx,
		`INSERT OR IGNORE INTO follows (viewer_id, author_id) VALUES (?, ?)`,
		"add follow", viewerID, authorID)
}

// AddTopicSubscription records that the viewer subscribes to the topic.
func (db *DB) AddTopicSubscription(ctx context.Context, viewerID, topicID string) error {
	return db.insertPair(ctx,
		`INSERT OR IGNORE INTO topic_subscriptions (viewer_id, topic_id) VALUES (?, ?)`,
		"add topic subscription", viewerID, topicID)
}

// AddCommunityMember records that the viewer belongs to the community.
func (db *DB) AddCommunityMember(ctx context.Context, viewerID, communityID string) error {
	return db.insertPair(ctx,
		`INSERT OR IGNORE INTO community_members (viewer_id, community_id) VALUES (?, ?)`,
		"add community member", viewerID, communityID)
}

// AddTopicMute records that the viewer muted the topic.
func (db *DB) AddTopicMute(ctx context.Context, viewerID, topicID string) error {
	return db.insertPair(ctx,
		`INSERT OR IGNORE INTO topic_mutes (viewer_id, topic_id) VALUES (?, ?)`,
		"add topic mute", viewerID, topicID)
}

// AddCreatorMute records that the viewer muted the author.
func (db *DB) AddCreatorMute(ctx context.Context, viewerID, authorID string) error {
	return db.insertPair(ctx,
		`INSERT OR IGNORE INTO creator_mutes (viewer_id, author_id) VALUES (?, ?)`,
		"add creator mute", viewerID, authorID)
}

// AddBlock records that the viewer blocked the author.
func (db *DB) AddBlock(ctx context.Context, viewerID, authorID string) error {
	return db.insertPair(ctx,
		`INSERT OR IGNORE INTO blocks (viewer_id, author_id) VALUES (?, ?)`,
		"add block", viewerID, authorID)
}

// RecordListen appends a listen event with its completion percentage.
func (db *DB) RecordListen(ctx context.Context, viewerID, clipID string, completionPercent float64, at time.Time) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO listens (viewer_id, clip_id, completion_percent, listened_at)
		VALUES (?, ?, ?, ?)`,
		viewerID, clipID, completionPercent, at)
	if err != nil {
		return fmt.Errorf("record listen: %w", err)
	}
	return nil
}

// RecordSkip appends a skip event.
func (db *DB) RecordSkip(ctx context.Context, viewerID, clipID string, at time.Time) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO skips (viewer_id, clip_id, skipped_at) VALUES (?, ?, ?)`,
		viewerID, clipID, at)
	if err != nil {
		return fmt.Errorf("record skip: %w", err)
	}
	return nil
}

// skipRate converts skip and listen counts to a 0-100 rate.
func skipRate(skips, listens int) float64 {
	total := skips + listens
	if total == 0 {
		return 0
	}
	return 100 * float64(skips) / float64(total)
}

// exists runs an EXISTS-style single-row probe.
func (db *DB) exists(ctx context.Context, query string, args ...any) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var one int
	err := db.conn.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists probe: %w", err)
	}
	return true, nil
}

// insertPair runs a two-column relation insert.
func (db *DB) insertPair(ctx context.Context, query, op string, args ...any) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
