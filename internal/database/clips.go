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

const clipColumns = `id, author_id, COALESCE(topic_id, ''), COALESCE(community_id, ''),
	COALESCE(tags, '[]'), COALESCE(moods, '[]'), COALESCE(city, ''),
	duration_seconds, status, trending_score, listen_count,
	COALESCE(reactions, '{}'), completion_rate, reply_count, remix_count, created_at`

// GetClip returns a clip by id, or nil when it does not exist.
func (db *DB) GetClip(ctx context.Context, clipID string) (*models.Clip, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+clipColumns+` FROM clips WHERE id = ?`, clipID)

	clip, err := scanClip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get clip: %w", err)
	}
	return clip, nil
}

// ListTopClipsSince returns live clips created at or after since,
// ordered by trending score with deterministic tie-breaks. A zero since
// means no lower bound (the "all" window).
func (db *DB) ListTopClipsSince(ctx context.Context, since time.Time, limit int) ([]models.Clip, error) {
	query := `SELECT ` + clipColumns + ` FROM clips
		WHERE status = 'live' AND created_at >= ?
		ORDER BY trending_score DESC, created_at DESC, id
		LIMIT ?`
	return db.queryClips(ctx, query, since, limit)
}

// ListClipsByTopic returns live clips in a topic ordered by trending.
func (db *DB) ListClipsByTopic(ctx context.Context, topicID string, limit int) ([]models.Clip, error) {
	query := `SELECT ` + clipColumns + ` FROM clips
		WHERE status = 'live' AND topic_id = ?
		ORDER BY trending_score DESC, created_at DESC, id
		LIMIT ?`
	return db.queryClips(ctx, query, topicID, limit)
}

// ListClipsByCity returns live clips tagged with a city ordered by
// trending.
func (db *DB) ListClipsByCity(ctx context.Context, city string, limit int) ([]models.Clip, error) {
	query := `SELECT ` + clipColumns + ` FROM clips
		WHERE status = 'live' AND city = ?
		ORDER BY trending_score DESC, created_at DESC, id
		LIMIT ?`
	return db.queryClips(ctx, query, city, limit)
}

// ListClipsByFollowedAuthors returns live clips authored by accounts
// the viewer follows, newest first.
func (db *DB) ListClipsByFollowedAuthors(ctx context.Context, viewerID string, limit int) ([]models.Clip, error) {
	query := `SELECT ` + clipColumns + ` FROM clips
		WHERE status = 'live'
		  AND author_id IN (SELECT author_id FROM follows WHERE viewer_id = ?)
		ORDER BY created_at DESC, trending_score DESC, id
		LIMIT ?`
	return db.queryClips(ctx, query, viewerID, limit)
}

// ListLiveClipsCreatedSince returns live clips created at or after
// since, newest first. Used as the pool for the rising and
// controversial pipelines.
func (db *DB) ListLiveClipsCreatedSince(ctx context.Context, since time.Time, limit int) ([]models.Clip, error) {
	query := `SELECT ` + clipColumns + ` FROM clips
		WHERE status = 'live' AND created_at >= ?
		ORDER BY created_at DESC, id
		LIMIT ?`
	return db.queryClips(ctx, query, since, limit)
}

// ListUnheardClips returns live clips the viewer has never listened to,
// newest first. The relevance score reorders the pool afterward.
func (db *DB) ListUnheardClips(ctx context.Context, viewerID string, limit int) ([]models.Clip, error) {
	query := `SELECT ` + clipColumns + ` FROM clips c
		WHERE c.status = 'live'
		  AND NOT EXISTS (
			SELECT 1 FROM listens l WHERE l.viewer_id = ? AND l.clip_id = c.id
		  )
		ORDER BY c.created_at DESC, c.id
		LIMIT ?`
	return db.queryClips(ctx, query, viewerID, limit)
}

// TopicClipCounts returns live clip counts for a topic, total and
// created within the last 24 hours.
func (db *DB) TopicClipCounts(ctx context.Context, topicID string) (int, int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cutoff := time.Now().Add(-24 * time.Hour)

	var total, recent int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE created_at >= ?)
		 FROM clips WHERE status = 'live' AND topic_id = ?`,
		cutoff, topicID).Scan(&total, &recent)
	if err != nil {
		return 0, 0, fmt.Errorf("topic clip counts: %w", err)
	}
	return total, recent, nil
}

// UpsertClip writes a clip row, overwriting any existing row with the
// same id. Clip lifecycle is owned by external ingestion; this exists
// for that path and for test fixtures.
func (db *DB) UpsertClip(ctx context.Context, clip *models.Clip) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tags, err := json.Marshal(clip.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	moods, err := json.Marshal(clip.Moods)
	if err != nil {
		return fmt.Errorf("marshal moods: %w", err)
	}
	reactions, err := json.Marshal(clip.Reactions)
	if err != nil {
		return fmt.Errorf("marshal reactions: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO clips (id, author_id, topic_id, community_id, tags, moods, city,
			duration_seconds, status, trending_score, listen_count, reactions,
			completion_rate, reply_count, remix_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			author_id = excluded.author_id,
			topic_id = excluded.topic_id,
			community_id = excluded.community_id,
			tags = excluded.tags,
			moods = excluded.moods,
			city = excluded.city,
			duration_seconds = excluded.duration_seconds,
			status = excluded.status,
			trending_score = excluded.trending_score,
			listen_count = excluded.listen_count,
			reactions = excluded.reactions,
			completion_rate = excluded.completion_rate,
			reply_count = excluded.reply_count,
			remix_count = excluded.remix_count,
			created_at = excluded.created_at`,
		clip.ID, clip.AuthorID, nullEmpty(clip.TopicID), nullEmpty(clip.CommunityID),
		string(tags), string(moods), nullEmpty(clip.City),
		clip.DurationSeconds, string(clip.Status), clip.TrendingScore,
		clip.ListenCount, string(reactions), clip.CompletionRate,
		clip.ReplyCount, clip.RemixCount, clip.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert clip: %w", err)
	}
	return nil
}

// queryClips runs a clip query and scans all rows.
func (db *DB) queryClips(ctx context.Context, query string, args ...any) ([]models.Clip, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query clips: %w", err)
	}
	defer rows.Close()

	var clips []models.Clip
	for rows.Next() {
		clip, err := scanClip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan clip: %w", err)
		}
		clips = append(clips, *clip)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clips: %w", err)
	}
	return clips, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanClip scans one clip row, decoding the JSON columns.
func scanClip(row rowScanner) (*models.Clip, error) {
	var (
		clip          models.Clip
		status        string
		tagsJSON      string
		moodsJSON     string
		reactionsJSON string
	)

	err := row.Scan(&clip.ID, &clip.AuthorID, &clip.TopicID, &clip.CommunityID,
		&tagsJSON, &moodsJSON, &clip.City, &clip.DurationSeconds, &status,
		&clip.TrendingScore, &clip.ListenCount, &reactionsJSON,
		&clip.CompletionRate, &clip.ReplyCount, &clip.RemixCount, &clip.CreatedAt)
	if err != nil {
		return nil, err
	}

	clip.Status = models.ClipStatus(status)

	if err := json.Unmarshal([]byte(tagsJSON), &clip.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if err := json.Unmarshal([]byte(moodsJSON), &clip.Moods); err != nil {
		return nil, fmt.Errorf("decode moods: %w", err)
	}
	if err := json.Unmarshal([]byte(reactionsJSON), &clip.Reactions); err != nil {
		return nil, fmt.Errorf("decode reactions: %w", err)
	}

	return &clip, nil
}

// nullEmpty maps "" to NULL for optional columns.
func nullEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
