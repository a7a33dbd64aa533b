// Murmur Discovery - Audio Clip Feed Ranking
// Copyright 2026 Murmur Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package feed

import (
	"math"
	"time"

	"github.com/murmurapp/discovery/internal/models"
)

// controversyScore rewards clips with reactions spread evenly across
// kinds and sustained listening relative to age. A clip whose reactions
// pile onto one kind has a high spread and scores low; an even split
// has zero spread and keeps its full reaction total.
func controversyScore(clip *models.Clip, now time.Time) float64 {
	total := clip.TotalReactions()
	if total == 0 {
		return 0
	}

	spread := reactionSpread(clip.Reactions)
	listenRate := float64(clip.ListenCount) / math.Max(1, clip.AgeHours(now))

	return float64(total) / (1 + spread) * listenRate
}

// reactionSpread is the population standard deviation of the per-kind
// reaction counts.
func reactionSpread(reactions map[string]int) float64 {
	n := len(reactions)
	if n == 0 {
		return 0
	}

	mean := 0.0
	for _, count := range reactions {
		mean += float64(count)
	}
	mean /= float64(n)

	variance := 0.0
	for _, count := range reactions {
		d := float64(count) - mean
		variance += d * d
	}
	variance /= float64(n)

	return math.Sqrt(variance)
}
