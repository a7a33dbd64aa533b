// Murmur Discovery - Audio Clip Feed Ranking
// Copyright 2026 Murmur Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package ranking

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/murmurapp/discovery/internal/models"
)

// mockStore implements SignalStore and VelocityStore in memory for
// engine tests. Zero value behaves like an empty database.
type mockStore struct {
	clips       map[string]*models.Clip
	preferences map[string]*models.ViewerPreference

	follows       map[string]bool // viewerID|authorID
	subscriptions map[string]bool // viewerID|topicID
	topicMutes    map[string]bool
	creatorMutes  map[string]bool
	blocks        map[string]bool
	members       map[string]bool
	skippedClips  map[string]bool // viewerID|clipID

	completions     map[string]float64 // viewerID|clipID
	authorAvgRate   map[string]float64 // viewerID|authorID
	authorListens   map[string]int
	authorSkipRates map[string]float64
	topicSkipRates  map[string]float64
	recentTopics    map[string][]string
	preferredHours  map[string][]int
	reputations     map[string]int
	topicTotals     map[string]int
	topicRecent     map[string]int

	samples map[string][]models.VelocitySample

	// failures maps a method name to an injected error.
	failures map[string]error
}

func newMockStore() *mockStore {
	return &mockStore{
		clips:           make(map[string]*models.Clip),
		preferences:     make(map[string]*models.ViewerPreference),
		follows:         make(map[string]bool),
		subscriptions:   make(map[string]bool),
		topicMutes:      make(map[string]bool),
		creatorMutes:    make(map[string]bool),
		blocks:          make(map[string]bool),
		members:         make(map[string]bool),
		skippedClips:    make(map[string]bool),
		completions:     make(map[string]float64),
		authorAvgRate:   make(map[string]float64),
		authorListens:   make(map[string]int),
		authorSkipRates: make(map[string]float64),
		topicSkipRates:  make(map[string]float64),
		recentTopics:    make(map[string][]string),
		preferredHours:  make(map[string][]int),
		reputations:     make(map[string]int),
		topicTotals:     make(map[string]int),
		topicRecent:     make(map[string]int),
		samples:         make(map[string][]models.VelocitySample),
		failures:        make(map[string]error),
	}
}

func pairKey(a, b string) string { return a + "|" + b }

func (m *mockStore) fail(method string) error { return m.failures[method] }

func (m *mockStore) GetClip(_ context.Context, clipID string) (*models.Clip, error) {
	if err := m.fail("GetClip"); err != nil {
		return nil, err
	}
	return m.clips[clipID], nil
}

func (m *mockStore) GetViewerPreference(_ context.Context, viewerID string) (*models.ViewerPreference, error) {
	if err := m.fail("GetViewerPreference"); err != nil {
		return nil, err
	}
	return m.preferences[viewerID], nil
}

func (m *mockStore) IsFollowing(_ context.Context, viewerID, authorID string) (bool, error) {
	if err := m.fail("IsFollowing"); err != nil {
		return false, err
	}
	return m.follows[pairKey(viewerID, authorID)], nil
}

func (m *mockStore) IsSubscribed(_ context.Context, viewerID, topicID string) (bool, error) {
	if err := m.fail("IsSubscribed"); err != nil {
		return false, err
	}
	return m.subscriptions[pairKey(viewerID, topicID)], nil
}

func (m *mockStore) IsTopicMuted(_ context.Context, viewerID, topicID string) (bool, error) {
	if err := m.fail("IsTopicMuted"); err != nil {
		return false, err
	}
	return m.topicMutes[pairKey(viewerID, topicID)], nil
}

func (m *mockStore) IsCreatorMuted(_ context.Context, viewerID, authorID string) (bool, error) {
	if err := m.fail("IsCreatorMuted"); err != nil {
		return false, err
	}
	return m.creatorMutes[pairKey(viewerID, authorID)], nil
}

func (m *mockStore) IsBlocked(_ context.Context, viewerID, authorID string) (bool, error) {
	if err := m.fail("IsBlocked"); err != nil {
		return false, err
	}
	return m.blocks[pairKey(viewerID, authorID)], nil
}

func (m *mockStore) IsMember(_ context.Context, viewerID, communityID string) (bool, error) {
	if err := m.fail("IsMember"); err != nil {
		return false, err
	}
	return m.members[pairKey(viewerID, communityID)], nil
}

func (m *mockStore) ClipCompletion(_ context.Context, viewerID, clipID string) (float64, bool, error) {
	if err := m.fail("ClipCompletion"); err != nil {
		return 0, false, err
	}
	percent, ok := m.completions[pairKey(viewerID, clipID)]
	return percent, ok, nil
}

func (m *mockStore) AuthorCompletionRate(_ context.Context, viewerID, authorID string, _ int) (float64, int, error) {
	if err := m.fail("AuthorCompletionRate"); err != nil {
		return 0, 0, err
	}
	key := pairKey(viewerID, authorID)
	return m.authorAvgRate[key], m.authorListens[key], nil
}

func (m *mockStore) AuthorSkipRate(_ context.Context, viewerID, authorID string, _ int) (float64, error) {
	if err := m.fail("AuthorSkipRate"); err != nil {
		return 0, err
	}
	return m.authorSkipRates[pairKey(viewerID, authorID)], nil
}

func (m *mockStore) TopicSkipRate(_ context.Context, viewerID, topicID string, _ int) (float64, error) {
	if err := m.fail("TopicSkipRate"); err != nil {
		return 0, err
	}
	return m.topicSkipRates[pairKey(viewerID, topicID)], nil
}

func (m *mockStore) WasSkipped(_ context.Context, viewerID, clipID string) (bool, error) {
	if err := m.fail("WasSkipped"); err != nil {
		return false, err
	}
	return m.skippedClips[pairKey(viewerID, clipID)], nil
}

func (m *mockStore) RecentTopics(_ context.Context, viewerID string, _, limit int) ([]string, error) {
	if err := m.fail("RecentTopics"); err != nil {
		return nil, err
	}
	topics := m.recentTopics[viewerID]
	if len(topics) > limit {
		topics = topics[:limit]
	}
	return topics, nil
}

func (m *mockStore) PreferredHours(_ context.Context, viewerID string, _ int) ([]int, error) {
	if err := m.fail("PreferredHours"); err != nil {
		return nil, err
	}
	return m.preferredHours[viewerID], nil
}

func (m *mockStore) AuthorReputation(_ context.Context, authorID string) (int, error) {
	if err := m.fail("AuthorReputation"); err != nil {
		return 0, err
	}
	return m.reputations[authorID], nil
}

func (m *mockStore) TopicClipCounts(_ context.Context, topicID string) (int, int, error) {
	if err := m.fail("TopicClipCounts"); err != nil {
		return 0, 0, err
	}
	return m.topicTotals[topicID], m.topicRecent[topicID], nil
}

func (m *mockStore) ListRecentLiveClipIDs(_ context.Context, maxAgeHours, limit int) ([]string, error) {
	if err := m.fail("ListRecentLiveClipIDs"); err != nil {
		return nil, err
	}
	now := time.Now()
	var ids []string
	for id, clip := range m.clips {
		if clip.IsLive() && clip.AgeHours(now) < float64(maxAgeHours) {
			ids = append(ids, id)
		}
		if len(ids) >= limit {
			break
		}
	}
	return ids, nil
}

func (m *mockStore) UpsertVelocitySample(_ context.Context, sample *models.VelocitySample) error {
	if err := m.fail("UpsertVelocitySample"); err != nil {
		return err
	}
	existing := m.samples[sample.ClipID]
	for i := range existing {
		if existing[i].HourBucket == sample.HourBucket {
			existing[i] = *sample
			return nil
		}
	}
	m.samples[sample.ClipID] = append(existing, *sample)
	return nil
}

func (m *mockStore) VelocitySums(_ context.Context, clipID string, maxBucket int) (VelocitySums, error) {
	if err := m.fail("VelocitySums"); err != nil {
		return VelocitySums{}, err
	}
	var sums VelocitySums
	for _, s := range m.samples[clipID] {
		if s.HourBucket > maxBucket {
			continue
		}
		sums.Reactions += s.ReactionCount
		sums.Listens += s.ListenCount
		sums.Replies += s.ReplyCount
		sums.Remixes += s.RemixCount
	}
	return sums, nil
}

func (m *mockStore) PurgeVelocitySamples(_ context.Context, before time.Time) (int64, error) {
	if err := m.fail("PurgeVelocitySamples"); err != nil {
		return 0, err
	}
	var purged int64
	for id, samples := range m.samples {
		kept := samples[:0]
		for _, s := range samples {
			if s.UpdatedAt.Before(before) {
				purged++
				continue
			}
			kept = append(kept, s)
		}
		m.samples[id] = kept
	}
	return purged, nil
}

func newTestEngine(store *mockStore) *Engine {
	tracker := NewTracker(store, DefaultTrackerConfig(), zerolog.Nop())
	return NewEngine(store, tracker, zerolog.Nop())
}

func liveClip(id, authorID, topicID string, trendingScore float64, age time.Duration, now time.Time) *models.Clip {
	return &models.Clip{
		ID:            id,
		AuthorID:      authorID,
		TopicID:       topicID,
		Status:        models.ClipStatusLive,
		TrendingScore: trendingScore,
		CreatedAt:     now.Add(-age),
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScoreNilClip(t *testing.T) {
	engine := newTestEngine(newMockStore())

	result, err := engine.Score(context.Background(), nil, "viewer-1", time.Now(), "")
	if err != nil {
		t.Fatalf("score nil clip: %v", err)
	}
	if result.Excluded || result.Score != 0 {
		t.Errorf("nil clip should score 0, got %+v", result)
	}
}

func TestScoreAnonymousViewer(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store)
	now := time.Now()

	clip := liveClip("clip-1", "author-1", "jazz", 500, time.Hour, now)
	// Personalization state that must not leak into anonymous scores.
	store.subscriptions[pairKey("", "jazz")] = true
	store.reputations["author-1"] = 900

	result, err := engine.Score(context.Background(), clip, "", now, "")
	if err != nil {
		t.Fatalf("score: %v", err)
	}

	// Anonymous viewers get the trending component only.
	want := 500.0 / 1000 * 0.30
	if !almostEqual(result.Score, want) {
		t.Errorf("anonymous score = %f, want %f", result.Score, want)
	}
}

func TestScoreTopicMuteExcludes(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store)
	now := time.Now()

	clip := liveClip("clip-1", "author-1", "politics", 999, time.Hour, now)
	store.topicMutes[pairKey("viewer-1", "politics")] = true
	// Positive signals must not override a hard exclusion.
	store.follows[pairKey("viewer-1", "author-1")] = true

	result, err := engine.Score(context.Background(), clip, "viewer-1", now, "")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !result.Excluded {
		t.Error("muted topic should hard-exclude")
	}
	if result.Wire() != ExcludedScore {
		t.Errorf("wire score = %f, want %f", result.Wire(), ExcludedScore)
	}
}

func TestScoreCreatorMuteExcludes(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store)
	now := time.Now()

	clip := liveClip("clip-1", "author-1", "jazz", 100, time.Hour, now)
	store.creatorMutes[pairKey("viewer-1", "author-1")] = true

	result, err := engine.Score(context.Background(), clip, "viewer-1", now, "")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !result.Excluded {
		t.Error("muted creator should hard-exclude")
	}
}

func TestScoreFollowBonuses(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store)
	now := time.Now()

	clip := liveClip("clip-1", "author-1", "jazz", 0, time.Hour, now)
	store.subscriptions[pairKey("viewer-1", "jazz")] = true
	store.follows[pairKey("viewer-1", "author-1")] = true

	result, err := engine.Score(context.Background(), clip, "viewer-1", now, "")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	// topic_follow 0.25 + creator_follow 0.15.
	if !almostEqual(result.Score, 0.40) {
		t.Errorf("score = %f, want 0.40", result.Score)
	}
}

func TestScoreCompletionAffinity(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store)
	now := time.Now()

	clip := liveClip("clip-1", "author-1", "", 0, time.Hour, now)
	store.completions[pairKey("viewer-1", "clip-1")] = 90

	result, err := engine.Score(context.Background(), clip, "viewer-1", now, "")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	// completion weight 0.15 scaled by 90/100.
	if !almostEqual(result.Score, 0.15*0.9) {
		t.Errorf("score = %f, want %f", result.Score, 0.15*0.9)
	}
}

func TestScoreCompletionBelowThresholdIgnored(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store)
	now := time.Now()

	clip := liveClip("clip-1", "author-1", "", 0, time.Hour, now)
	store.completions[pairKey("viewer-1", "clip-1")] = 60

	result, err := engine.Score(context.Background(), clip, "viewer-1", now, "")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if result.Score != 0 {
		t.Errorf("sub-threshold completion should not contribute, got %f", result.Score)
	}
}

func TestScoreSimilarCreatorBonus(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store)
	now := time.Now()

	clip := liveClip("clip-1", "author-1", "", 0, time.Hour, now)
	store.authorAvgRate[pairKey("viewer-1", "author-1")] = 85
	store.authorListens[pairKey("viewer-1", "author-1")] = 4

	result, err := engine.Score(context.Background(), clip, "viewer-1", now, "")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !almostEqual(result.Score, 0.10) {
		t.Errorf("score = %f, want 0.10", result.Score)
	}
}

func TestScoreSimilarCreatorFixedUnderOverrides(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store)
	now := time.Now()

	clip := liveClip("clip-1", "author-1", "", 0, time.Hour, now)
	store.authorAvgRate[pairKey("viewer-1", "author-1")] = 85
	store.authorListens[pairKey("viewer-1", "author-1")] = 4
	// Zeroing every overridable weight must leave the similar-creator
	// bonus intact.
	overrides := make(map[string]float64)
	for name := range DefaultWeights() {
		overrides[name] = 0
	}
	store.preferences["viewer-1"] = &models.ViewerPreference{
		ViewerID:               "viewer-1",
		WeightOverrides:        overrides,
		AllowSkipHistory:       true,
		AllowListeningPatterns: true,
	}

	result, err := engine.Score(context.Background(), clip, "viewer-1", now, "")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !almostEqual(result.Score, 0.10) {
		t.Errorf("score = %f, want fixed 0.10", result.Score)
	}
}

func TestScoreWeightOverrides(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store)
	now := time.Now()

	clip := liveClip("clip-1", "author-1", "jazz", 1000, time.Hour, now)
	store.subscriptions[pairKey("viewer-1", "jazz")] = true
	store.preferences["viewer-1"] = &models.ViewerPreference{
		ViewerID: "viewer-1",
		WeightOverrides: map[string]float64{
			SignalTrending:    0.50,
			SignalTopicFollow: 0.05,
			"bogus_signal":    9.99,
		},
		AllowSkipHistory:       true,
		AllowListeningPatterns: true,
	}

	result, err := engine.Score(context.Background(), clip, "viewer-1", now, "")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	// trending 1000/1000*0.50 + topic_follow 0.05; unknown keys ignored.
	if !almostEqual(result.Score, 0.55) {
		t.Errorf("score = %f, want 0.55", result.Score)
	}
}

func TestScoreSkipPenalties(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store)
	now := time.Now()

	clip := liveClip("clip-1", "author-1", "jazz", 1000, time.Hour, now)
	store.authorSkipRates[pairKey("viewer-1", "author-1")] = 80
	store.topicSkipRates[pairKey("viewer-1", "jazz")] = 60

	result, err := engine.Score(context.Background(), clip, "viewer-1", now, "")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	// base 0.30 - author 0.30*0.80 - topic 0.30*0.5*0.60.
	want := 0.30 - 0.30*0.80 - 0.30*0.5*0.60
	want = math.Max(0, want)
	if !almostEqual(result.Score, want) {
		t.Errorf("score = %f, want %f", result.Score, want)
	}
}

func TestScoreSkipRateBelowThresholdIgnored(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store)
	now := time.Now()

	clip := liveClip("clip-1", "author-1", "jazz", 1000, time.Hour, now)
	store.authorSkipRates[pairKey("viewer-1", "author-1")] = 40

	result, err := engine.Score(context.Background(), clip, "viewer-1", now, "")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !almostEqual(result.Score, 0.30) {
		t.Errorf("sub-threshold skip rate should not penalize, got %f", result.Score)
	}
}

func TestScoreClipSkippedPenalty(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store)
	now := time.Now()

	clip := liveClip("clip-1", "author-1", "", 1000, time.Hour, now)
	store.skippedClips[pairKey("viewer-1", "clip-1")] = true

	result, err := engine.Score(context.Background(), clip, "viewer-1", now, "")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	// base 0.30 - flat 0.5, floored at zero.
	if result.Score != 0 {
		t.Errorf("score = %f, want 0", result.Score)
	}
	if result.Excluded {
		t.Error("a skipped clip is deprioritized, not excluded")
	}
}

func TestScorePrivacyTogglesDisableSkipSignals(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store)
	now := time.Now()

	clip := liveClip("clip-1", "author-1", "jazz", 1000, time.Hour, now)
	store.authorSkipRates[pairKey("viewer-1", "author-1")] = 95
	store.skippedClips[pairKey("viewer-1", "clip-1")] = true
	store.preferences["viewer-1"] = &models.ViewerPreference{
		ViewerID:         "viewer-1",
		AllowSkipHistory: false,
	}

	result, err := engine.Score(context.Background(), clip, "viewer-1", now, "")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !almostEqual(result.Score, 0.30) {
		t.Errorf("skip signals should be gated off, got %f", result.Score)
	}
}

func TestScoreDurationPreference(t *testing.T) {
	store := newMockStore()
	now := time.Now()
	store.preferences["viewer-1"] = &models.ViewerPreference{
		ViewerID:           "viewer-1",
		MinDurationSeconds: 30,
		MaxDurationSeconds: 120,
		AllowSkipHistory:   true,
	}
	engine := newTestEngine(store)

	cases := []struct {
		name     string
		duration int
		want     float64
	}{
		{"within range", 60, 0.15},
		{"shorter", 10, 0.05},
		{"longer", 300, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clip := liveClip("clip-1", "author-1", "", 0, time.Hour, now)
			clip.DurationSeconds = tc.duration

			result, err := engine.Score(context.Background(), clip, "viewer-1", now, "")
			if err != nil {
				t.Fatalf("score: %v", err)
			}
			if !almostEqual(result.Score, tc.want) {
				t.Errorf("score = %f, want %f", result.Score, tc.want)
			}
		})
	}
}

func TestScoreDiversity(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store)
	now := time.Now()

	store.recentTopics["viewer-1"] = []string{"jazz", "news"}

	seen := liveClip("clip-seen", "author-1", "jazz", 0, time.Hour, now)
	unseen := liveClip("clip-unseen", "author-1", "comedy", 0, time.Hour, now)

	result, err := engine.Score(context.Background(), seen, "viewer-1", now, "")
	if err != nil {
		t.Fatalf("score seen: %v", err)
	}
	// -0.05 * 0.05 floored at zero.
	if result.Score != 0 {
		t.Errorf("seen-topic score = %f, want 0 after clamp", result.Score)
	}

	result, err = engine.Score(context.Background(), unseen, "viewer-1", now, "")
	if err != nil {
		t.Fatalf("score unseen: %v", err)
	}
	if !almostEqual(result.Score, 0.10*0.05) {
		t.Errorf("unseen-topic score = %f, want %f", result.Score, 0.10*0.05)
	}

	// No history at all: no bonus either way.
	result, err = engine.Score(context.Background(), unseen, "viewer-2", now, "")
	if err != nil {
		t.Fatalf("score without history: %v", err)
	}
	if result.Score != 0 {
		t.Errorf("no-history score = %f, want 0", result.Score)
	}
}

func TestScoreTimeOfDay(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store)
	now := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)

	store.preferredHours["viewer-1"] = []int{8, 21}
	store.preferences["viewer-1"] = &models.ViewerPreference{
		ViewerID:               "viewer-1",
		AllowListeningPatterns: true,
		TopicAffinities: map[models.DayPeriod][]string{
			models.DayPeriodMorning: {"news"},
		},
	}

	clip := liveClip("clip-1", "author-1", "news", 0, time.Hour, now)
	result, err := engine.Score(context.Background(), clip, "viewer-1", now, "")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	// Hour match 0.10 + morning affinity 0.15.
	if !almostEqual(result.Score, 0.25) {
		t.Errorf("score = %f, want 0.25", result.Score)
	}

	// Same viewer with listening patterns disallowed.
	store.preferences["viewer-1"].AllowListeningPatterns = false
	result, err = engine.Score(context.Background(), clip, "viewer-1", now, "")
	if err != nil {
		t.Fatalf("score gated: %v", err)
	}
	if result.Score != 0 {
		t.Errorf("gated score = %f, want 0", result.Score)
	}
}

func TestScoreReputation(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store)
	now := time.Now()

	clip := liveClip("clip-1", "author-1", "", 0, time.Hour, now)
	store.reputations["author-1"] = 500

	result, err := engine.Score(context.Background(), clip, "viewer-1", now, "")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !almostEqual(result.Score, 0.5*0.05) {
		t.Errorf("score = %f, want %f", result.Score, 0.5*0.05)
	}

	// Reputation saturates at the normalizer.
	store.reputations["author-1"] = 5000
	result, err = engine.Score(context.Background(), clip, "viewer-1", now, "")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !almostEqual(result.Score, 0.05) {
		t.Errorf("saturated score = %f, want 0.05", result.Score)
	}
}

func TestScoreTopicActivity(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store)
	now := time.Now()

	clip := liveClip("clip-1", "author-1", "jazz", 0, time.Hour, now)
	store.topicTotals["jazz"] = 99
	store.topicRecent["jazz"] = 10

	result, err := engine.Score(context.Background(), clip, "viewer-1", now, "")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	// log(100)/log(100)=1 full activity term plus saturated recency at
	// half weight.
	want := 1.0*0.05 + 1.0*0.05*0.5
	if !almostEqual(result.Score, want) {
		t.Errorf("score = %f, want %f", result.Score, want)
	}
}

func TestScorePredicateFailurePropagates(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store)
	now := time.Now()

	clip := liveClip("clip-1", "author-1", "jazz", 100, time.Hour, now)
	store.failures["IsTopicMuted"] = errors.New("store down")

	_, err := engine.Score(context.Background(), clip, "viewer-1", now, "")
	if err == nil {
		t.Fatal("mute predicate failure must propagate")
	}
}

func TestScoreAggregateFailureDegrades(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store)
	now := time.Now()

	clip := liveClip("clip-1", "author-1", "jazz", 1000, time.Hour, now)
	store.failures["AuthorSkipRate"] = errors.New("aggregate timeout")
	store.failures["RecentTopics"] = errors.New("aggregate timeout")
	store.failures["TopicClipCounts"] = errors.New("aggregate timeout")

	result, err := engine.Score(context.Background(), clip, "viewer-1", now, "")
	if err != nil {
		t.Fatalf("aggregate failures must not abort scoring: %v", err)
	}
	// Only the trending base survives.
	if !almostEqual(result.Score, 0.30) {
		t.Errorf("degraded score = %f, want 0.30", result.Score)
	}
}

func TestScoreNeverNegative(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store)
	now := time.Now()

	clip := liveClip("clip-1", "author-1", "jazz", 0, time.Hour, now)
	store.authorSkipRates[pairKey("viewer-1", "author-1")] = 100
	store.topicSkipRates[pairKey("viewer-1", "jazz")] = 100
	store.skippedClips[pairKey("viewer-1", "clip-1")] = true

	result, err := engine.Score(context.Background(), clip, "viewer-1", now, "")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if result.Score < 0 {
		t.Errorf("score = %f, must never be negative", result.Score)
	}
	if result.Excluded {
		t.Error("penalties must not produce exclusion")
	}
}
