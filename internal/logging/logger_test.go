// Murmur Discovery - Audio Clip Feed Ranking
// Copyright 2026 Murmur Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestInitWritesJSON(t *testing.T) {
	var buf bytes.Buffer

	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(Config{})

	Info().Str("pipeline", "rising").Msg("feed assembled")

	out := buf.String()
	if !strings.Contains(out, "feed assembled") {
		t.Errorf("expected message in output, got: %s", out)
	}
	if !strings.Contains(out, `"level":"info"`) {
		t.Errorf("expected level field in output, got: %s", out)
	}
	if !strings.Contains(out, `"pipeline":"rising"`) {
		t.Errorf("expected pipeline field in output, got: %s", out)
	}
}

func TestInitLevelFilters(t *testing.T) {
	var buf bytes.Buffer

	Init(Config{Level: "warn", Output: &buf})
	defer Init(Config{})

	Info().Msg("below threshold")
	Warn().Msg("at threshold")

	out := buf.String()
	if strings.Contains(out, "below threshold") {
		t.Errorf("info message should have been filtered, got: %s", out)
	}
	if !strings.Contains(out, "at threshold") {
		t.Errorf("warn message should have passed, got: %s", out)
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"ERROR", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := levelFromString(tt.input); got != tt.want {
			t.Errorf("levelFromString(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestWithAddsField(t *testing.T) {
	var buf bytes.Buffer

	Init(Config{Level: "debug", Output: &buf})
	defer Init(Config{})

	logger := With().Str("component", "ranking").Logger()
	logger.Info().Msg("scored")

	if !strings.Contains(buf.String(), `"component":"ranking"`) {
		t.Errorf("expected component field, got: %s", buf.String())
	}
}

func TestSlogLoggerForwardsToZerolog(t *testing.T) {
	var buf bytes.Buffer

	Init(Config{Level: "debug", Output: &buf})
	defer Init(Config{})

	slogger := NewSlogLogger()
	slogger.Info("supervisor event", slog.String("service", "http-server"), slog.Int("restarts", 2))

	out := buf.String()
	if !strings.Contains(out, "supervisor event") {
		t.Errorf("expected message in output, got: %s", out)
	}
	if !strings.Contains(out, `"service":"http-server"`) {
		t.Errorf("expected string attr, got: %s", out)
	}
	if !strings.Contains(out, `"restarts":2`) {
		t.Errorf("expected int attr, got: %s", out)
	}
}

func TestSlogHandlerGroups(t *testing.T) {
	var buf bytes.Buffer

	Init(Config{Level: "debug", Output: &buf})
	defer Init(Config{})

	slogger := NewSlogLogger().WithGroup("job").With(slog.String("name", "velocity"))
	slogger.Warn("slow run")

	if !strings.Contains(buf.String(), `"job.name":"velocity"`) {
		t.Errorf("expected group-prefixed key, got: %s", buf.String())
	}
}
