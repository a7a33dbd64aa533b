// Murmur Discovery - Audio Clip Feed Ranking
// Copyright 2026 Murmur Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/murmurapp/discovery/internal/models"
	"github.com/murmurapp/discovery/internal/ranking"
)

// ListRecentLiveClipIDs returns ids of live clips younger than
// maxAgeHours, newest first, bounded by limit.
func (db *DB) ListRecentLiveClipIDs(ctx context.Context, maxAgeHours, limit int) ([]string, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cutoff := time.Now().Add(-time.Duration(maxAgeHours) * time.Hour)

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id FROM clips
		WHERE status = 'live' AND created_at >= ?
		ORDER BY created_at DESC, id
		LIMIT ?`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent live clips: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan clip id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clip ids: %w", err)
	}
	return ids, nil
}

// UpsertVelocitySample writes the sample, overwriting any existing row
// for the same (clip, hour bucket). Last writer wins.
func (db *DB) UpsertVelocitySample(ctx context.Context, sample *models.VelocitySample) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO velocity_samples (clip_id, hour_bucket, reaction_count,
			listen_count, reply_count, remix_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (clip_id, hour_bucket) DO UPDATE SET
			reaction_count = excluded.reaction_count,
			listen_count = excluded.listen_count,
			reply_count = excluded.reply_count,
			remix_count = excluded.remix_count,
			updated_at = excluded.updated_at`,
		sample.ClipID, sample.HourBucket, sample.ReactionCount,
		sample.ListenCount, sample.ReplyCount, sample.RemixCount,
		sample.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert velocity sample: %w", err)
	}
	return nil
}

// VelocitySums returns per-metric sums over buckets [0, maxBucket].
// A clip with no samples in range returns all zeros.
func (db *DB) VelocitySums(ctx context.Context, clipID string, maxBucket int) (ranking.VelocitySums, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var sums ranking.VelocitySums
	err := db.conn.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(reaction_count), 0), COALESCE(SUM(listen_count), 0),
		       COALESCE(SUM(reply_count), 0), COALESCE(SUM(remix_count), 0)
		FROM velocity_samples
		WHERE clip_id = ? AND hour_bucket <= ?`, clipID, maxBucket).Scan(
		&sums.Reactions, &sums.Listens, &sums.Replies, &sums.Remixes)
	if err != nil {
		return ranking.VelocitySums{}, fmt.Errorf("velocity sums: %w", err)
	}
	return sums, nil
}

// PurgeVelocitySamples deletes samples last updated before the cutoff
// and returns the number removed.
func (db *DB) PurgeVelocitySamples(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM velocity_samples WHERE updated_at < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("purge velocity samples: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge velocity samples: %w", err)
	}
	return removed, nil
}
