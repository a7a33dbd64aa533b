// Murmur Discovery - Audio Clip Feed Ranking
// Copyright 2026 Murmur Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

// DayPeriod buckets the clock into listening periods.
type DayPeriod string

const (
	// DayPeriodMorning covers 05:00-11:59.
	DayPeriodMorning DayPeriod = "morning"
	// DayPeriodAfternoon covers 12:00-16:59.
	DayPeriodAfternoon DayPeriod = "afternoon"
	// DayPeriodEvening covers 17:00-21:59.
	DayPeriodEvening DayPeriod = "evening"
	// DayPeriodNight covers 22:00-04:59.
	DayPeriodNight DayPeriod = "night"
)

// DayPeriodOf returns the period containing the given hour (0-23).
func DayPeriodOf(hour int) DayPeriod {
	switch {
	case hour >= 5 && hour < 12:
		return DayPeriodMorning
	case hour >= 12 && hour < 17:
		return DayPeriodAfternoon
	case hour >= 17 && hour < 22:
		return DayPeriodEvening
	default:
		return DayPeriodNight
	}
}

// ViewerPreference holds a viewer's ranking preferences and privacy
// toggles. A zero value (all toggles false, empty maps) is a valid
// preference for viewers who never customized anything.
type ViewerPreference struct {
	// ViewerID identifies the viewer.
	ViewerID string `json:"viewer_id"`

	// MinDurationSeconds is the lower bound of the preferred clip length.
	MinDurationSeconds int `json:"min_duration_seconds"`

	// MaxDurationSeconds is the upper bound of the preferred clip length.
	// 0 means no preference.
	MaxDurationSeconds int `json:"max_duration_seconds"`

	// WeightOverrides overrides scoring signal weights by signal name.
	// Missing keys fall back to the documented defaults.
	WeightOverrides map[string]float64 `json:"weight_overrides,omitempty"`

	// AllowSkipHistory permits skip-rate signals.
	AllowSkipHistory bool `json:"allow_skip_history"`

	// AllowListeningPatterns permits time-of-day signals.
	AllowListeningPatterns bool `json:"allow_listening_patterns"`

	// AllowDeviceSignals permits device-type signals.
	AllowDeviceSignals bool `json:"allow_device_signals"`

	// TopicAffinities maps a day period to preferred topic ids.
	TopicAffinities map[DayPeriod][]string `json:"topic_affinities,omitempty"`
}

// HasDurationPreference reports whether a duration range is configured.
func (p *ViewerPreference) HasDurationPreference() bool {
	return p.MaxDurationSeconds > 0
}

// AffineTopics returns the preferred topic ids for the given period.
func (p *ViewerPreference) AffineTopics(period DayPeriod) []string {
	if p.TopicAffinities == nil {
		return nil
	}
	return p.TopicAffinities[period]
}
