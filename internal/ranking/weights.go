// Murmur Discovery - Audio Clip Feed Ranking
// Copyright 2026 Murmur Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package ranking

// Default signal weights. A viewer's weight-override map replaces
// individual entries; missing keys fall back to these values.
var defaultWeights = map[string]float64{
	SignalTrending:      0.30,
	SignalTopicFollow:   0.25,
	SignalCreatorFollow: 0.15,
	SignalCompletion:    0.15,
	SignalSkipPenalty:   0.30,
	SignalVelocity:      0.10,
	SignalReputation:    0.05,
	SignalTopicActivity: 0.05,
	SignalDiversity:     0.05,
}

// similarCreatorWeight is the fixed bonus for high completion affinity
// with the clip's author. Unlike the nine table-driven signals it is not
// present in the per-viewer override map.
const similarCreatorWeight = 0.10

// Fixed additive terms outside the weight table.
const (
	durationWithinBonus   = 0.15
	durationShorterBonus  = 0.05
	durationLongerPenalty = 0.10

	hourMatchBonus     = 0.10
	periodAffinityBonus = 0.15

	clipSkippedPenalty = 0.5
)

// DefaultWeights returns a copy of the default weight table.
func DefaultWeights() map[string]float64 {
	w := make(map[string]float64, len(defaultWeights))
	for k, v := range defaultWeights {
		w[k] = v
	}
	return w
}

// resolveWeights merges viewer overrides over the defaults. Keys not in
// the default table are ignored; an override applies only to a known
// signal name.
func resolveWeights(overrides map[string]float64) map[string]float64 {
	w := DefaultWeights()
	for k, v := range overrides {
		if _, known := w[k]; known {
			w[k] = v
		}
	}
	return w
}
