// Murmur Discovery - Audio Clip Feed Ranking
// Copyright 2026 Murmur Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package ranking

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/murmurapp/discovery/internal/models"
)

// Scoring thresholds and normalizers.
const (
	trendingNorm   = 1000.0
	velocityNorm   = 10.0
	reputationNorm = 1000.0

	// completionAffinityThreshold gates the completion and
	// similar-creator signals: below it a listen says nothing.
	completionAffinityThreshold = 70.0

	// skipRateThreshold gates skip penalties (percent).
	skipRateThreshold = 50.0

	recentTopicNorm = 10.0

	diversityPenaltyFactor = 0.05
	diversityBonusFactor   = 0.10

	// History windows in days.
	skipHistoryDays     = 30
	affinityHistoryDays = 30
	diversityDays       = 7
	diversityTopicCap   = 20
	listeningPatternDays = 30
)

// Engine is the relevance scoring engine: a pure function from current
// store state to a Result for one (clip, viewer) pair. It holds no
// mutable state and is safe for arbitrary concurrent use.
type Engine struct {
	store    SignalStore
	velocity *Tracker
	logger   zerolog.Logger
}

// NewEngine creates a scoring engine over the given store and tracker.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(store SignalStore, velocity *Tracker, logger zerolog.Logger) *Engine {
	return &Engine{
		store:    store,
		velocity: velocity,
		logger:   logger.With().Str("component", "ranking").Logger(),
	}
}

// Score computes the relevance score for one clip and viewer at the
// given time. viewerID may be empty for anonymous viewers, in which
// case only the trending component applies. deviceType is reserved for
// device-affinity signals and currently unused.
//
// Hard exclusions (muted topic or creator) short-circuit before any
// weighted computation. Aggregate signals that fail to load degrade to
// a zero contribution; predicate failures propagate as errors.
func (e *Engine) Score(ctx context.Context, clip *models.Clip, viewerID string, now time.Time, deviceType string) (Result, error) {
	_ = deviceType

	if clip == nil {
		return Scored(0), nil
	}

	pref, err := e.loadPreference(ctx, viewerID)
	if err != nil {
		return Result{}, err
	}
	weights := resolveWeights(prefOverrides(pref))

	base := clip.TrendingScore / trendingNorm * weights[SignalTrending]

	if viewerID == "" {
		return Scored(clampScore(base)), nil
	}

	excluded, err := e.isExcluded(ctx, clip, viewerID)
	if err != nil {
		return Result{}, err
	}
	if excluded {
		return Excluded(), nil
	}

	score := base
	score += e.followSignals(ctx, clip, viewerID, weights)
	score += e.completionSignals(ctx, clip, viewerID, weights)
	score += e.velocitySignal(ctx, clip, now, weights)
	score += e.reputationSignal(ctx, clip, weights)
	score += e.topicActivitySignal(ctx, clip, weights)
	score += e.diversitySignal(ctx, clip, viewerID, weights)
	score += durationSignal(clip, pref)
	score += e.timeOfDaySignal(ctx, clip, viewerID, now, pref)
	score -= e.skipPenalty(ctx, clip, viewerID, weights, pref)

	return Scored(clampScore(score)), nil
}

// loadPreference fetches the viewer's preference row, substituting the
// permissive default for viewers who never customized anything and for
// anonymous viewers.
func (e *Engine) loadPreference(ctx context.Context, viewerID string) (*models.ViewerPreference, error) {
	if viewerID == "" {
		return defaultPreference(""), nil
	}

	pref, err := e.store.GetViewerPreference(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("get viewer preference: %w", err)
	}
	if pref == nil {
		return defaultPreference(viewerID), nil
	}
	return pref, nil
}

// defaultPreference is the preference applied when a viewer has no
// stored row. Privacy toggles default to allowing history-derived
// signals; viewers opt out by saving a preference.
func defaultPreference(viewerID string) *models.ViewerPreference {
	return &models.ViewerPreference{
		ViewerID:               viewerID,
		AllowSkipHistory:       true,
		AllowListeningPatterns: true,
		AllowDeviceSignals:     true,
	}
}

func prefOverrides(pref *models.ViewerPreference) map[string]float64 {
	if pref == nil {
		return nil
	}
	return pref.WeightOverrides
}

// isExcluded checks the hard-exclusion predicates. A match removes the
// clip from consideration entirely, distinct from a low score.
func (e *Engine) isExcluded(ctx context.Context, clip *models.Clip, viewerID string) (bool, error) {
	if clip.TopicID != "" {
		muted, err := e.store.IsTopicMuted(ctx, viewerID, clip.TopicID)
		if err != nil {
			return false, fmt.Errorf("topic mute check: %w", err)
		}
		if muted {
			return true, nil
		}
	}

	muted, err := e.store.IsCreatorMuted(ctx, viewerID, clip.AuthorID)
	if err != nil {
		return false, fmt.Errorf("creator mute check: %w", err)
	}
	return muted, nil
}

// followSignals adds the topic-subscription and creator-follow bonuses.
func (e *Engine) followSignals(ctx context.Context, clip *models.Clip, viewerID string, weights map[string]float64) float64 {
	contribution := 0.0

	if clip.TopicID != "" {
		subscribed, err := e.store.IsSubscribed(ctx, viewerID, clip.TopicID)
		if err != nil {
			e.degraded(SignalTopicFollow, err)
		} else if subscribed {
			contribution += weights[SignalTopicFollow]
		}
	}

	following, err := e.store.IsFollowing(ctx, viewerID, clip.AuthorID)
	if err != nil {
		e.degraded(SignalCreatorFollow, err)
	} else if following {
		contribution += weights[SignalCreatorFollow]
	}

	return contribution
}

// completionSignals adds the viewer's own completion affinity on this
// clip plus the fixed similar-creator bonus when the viewer's recent
// completion rate on the author's other clips is high.
func (e *Engine) completionSignals(ctx context.Context, clip *models.Clip, viewerID string, weights map[string]float64) float64 {
	contribution := 0.0

	percent, ok, err := e.store.ClipCompletion(ctx, viewerID, clip.ID)
	if err != nil {
		e.degraded(SignalCompletion, err)
	} else if ok && percent > completionAffinityThreshold {
		contribution += weights[SignalCompletion] * percent / 100
	}

	avg, listens, err := e.store.AuthorCompletionRate(ctx, viewerID, clip.AuthorID, affinityHistoryDays)
	if err != nil {
		e.degraded("similar_creator", err)
	} else if listens > 0 && avg > completionAffinityThreshold {
		contribution += similarCreatorWeight
	}

	return contribution
}

func (e *Engine) velocitySignal(ctx context.Context, clip *models.Clip, now time.Time, weights map[string]float64) float64 {
	v, err := e.velocity.VelocityAt(ctx, clip.ID, DefaultVelocityWindowHours, now)
	if err != nil {
		e.degraded(SignalVelocity, err)
		return 0
	}
	return math.Min(1, v/velocityNorm) * weights[SignalVelocity]
}

func (e *Engine) reputationSignal(ctx context.Context, clip *models.Clip, weights map[string]float64) float64 {
	rep, err := e.store.AuthorReputation(ctx, clip.AuthorID)
	if err != nil {
		e.degraded(SignalReputation, err)
		return 0
	}
	return math.Min(1, float64(rep)/reputationNorm) * weights[SignalReputation]
}

// topicActivitySignal rewards clips in active topics: a log-scaled term
// for total live clips plus half-weight credit for activity in the last
// 24 hours.
func (e *Engine) topicActivitySignal(ctx context.Context, clip *models.Clip, weights map[string]float64) float64 {
	if clip.TopicID == "" {
		return 0
	}

	total, recent, err := e.store.TopicClipCounts(ctx, clip.TopicID)
	if err != nil {
		e.degraded(SignalTopicActivity, err)
		return 0
	}

	w := weights[SignalTopicActivity]
	contribution := math.Min(1, math.Log(float64(total)+1)/math.Log(100)) * w
	if recent > 0 {
		contribution += math.Min(1, float64(recent)/recentTopicNorm) * w * 0.5
	}
	return contribution
}

// diversitySignal penalizes topics the viewer heard recently and
// rewards unheard ones. A viewer with no recent history contributes
// nothing either way.
func (e *Engine) diversitySignal(ctx context.Context, clip *models.Clip, viewerID string, weights map[string]float64) float64 {
	topics, err := e.store.RecentTopics(ctx, viewerID, diversityDays, diversityTopicCap)
	if err != nil {
		e.degraded(SignalDiversity, err)
		return 0
	}
	if len(topics) == 0 {
		return 0
	}

	w := weights[SignalDiversity]
	for _, t := range topics {
		if t != "" && t == clip.TopicID {
			return -diversityPenaltyFactor * w
		}
	}
	return diversityBonusFactor * w
}

// durationSignal applies the viewer's preferred-duration range.
func durationSignal(clip *models.Clip, pref *models.ViewerPreference) float64 {
	if !pref.HasDurationPreference() {
		return 0
	}

	switch {
	case clip.DurationSeconds < pref.MinDurationSeconds:
		return durationShorterBonus
	case clip.DurationSeconds > pref.MaxDurationSeconds:
		return -durationLongerPenalty
	default:
		return durationWithinBonus
	}
}

// timeOfDaySignal rewards clips served during the viewer's historically
// preferred listening hours, with an extra bonus when the clip's topic
// is in the viewer's affinity list for the current day period. Gated by
// the listening-patterns privacy toggle.
func (e *Engine) timeOfDaySignal(ctx context.Context, clip *models.Clip, viewerID string, now time.Time, pref *models.ViewerPreference) float64 {
	if !pref.AllowListeningPatterns {
		return 0
	}

	contribution := 0.0
	hour := now.Hour()

	hours, err := e.store.PreferredHours(ctx, viewerID, listeningPatternDays)
	if err != nil {
		e.degraded("time_of_day", err)
	} else {
		for _, h := range hours {
			if h == hour {
				contribution += hourMatchBonus
				break
			}
		}
	}

	if clip.TopicID != "" {
		for _, t := range pref.AffineTopics(models.DayPeriodOf(hour)) {
			if t == clip.TopicID {
				contribution += periodAffinityBonus
				break
			}
		}
	}

	return contribution
}

// skipPenalty computes the total skip-derived deduction: author and
// topic rolling skip rates above the threshold, plus a flat penalty
// when the viewer skipped this exact clip. Gated by the skip-history
// privacy toggle. Returns a non-negative deduction.
func (e *Engine) skipPenalty(ctx context.Context, clip *models.Clip, viewerID string, weights map[string]float64, pref *models.ViewerPreference) float64 {
	if !pref.AllowSkipHistory {
		return 0
	}

	w := weights[SignalSkipPenalty]
	penalty := 0.0

	authorRate, err := e.store.AuthorSkipRate(ctx, viewerID, clip.AuthorID, skipHistoryDays)
	if err != nil {
		e.degraded(SignalSkipPenalty, err)
	} else if authorRate > skipRateThreshold {
		penalty += w * authorRate / 100
	}

	if clip.TopicID != "" {
		topicRate, err := e.store.TopicSkipRate(ctx, viewerID, clip.TopicID, skipHistoryDays)
		if err != nil {
			e.degraded(SignalSkipPenalty, err)
		} else if topicRate > skipRateThreshold {
			penalty += w * 0.5 * topicRate / 100
		}
	}

	skipped, err := e.store.WasSkipped(ctx, viewerID, clip.ID)
	if err != nil {
		e.degraded(SignalSkipPenalty, err)
	} else if skipped {
		penalty += clipSkippedPenalty
	}

	return penalty
}

// degraded logs an aggregate signal that failed to load. The signal
// contributes zero; scoring continues.
func (e *Engine) degraded(signal string, err error) {
	e.logger.Warn().
		Str("signal", signal).
		Err(err).
		Msg("signal degraded, contributing 0")
}

// clampScore floors negative non-excluded scores at zero. A clip may be
// deprioritized to irrelevance but never surfaces as negative outside
// the exclusion sentinel.
func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	return score
}
