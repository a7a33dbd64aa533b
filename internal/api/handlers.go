// Murmur Discovery - Audio Clip Feed Ranking
// Copyright 2026 Murmur Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api exposes the feed pipelines and the velocity refresh
// triggers over HTTP using the chi router.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/murmurapp/discovery/internal/database"
	"github.com/murmurapp/discovery/internal/feed"
	"github.com/murmurapp/discovery/internal/metrics"
	"github.com/murmurapp/discovery/internal/models"
	"github.com/murmurapp/discovery/internal/ranking"
	"github.com/murmurapp/discovery/internal/validation"
)

// requestTimeout bounds feed assembly per request.
const requestTimeout = 10 * time.Second

// Handler serves the discovery endpoints.
type Handler struct {
	db        *database.DB
	assembler *feed.Assembler
	tracker   *ranking.Tracker
}

// NewHandler creates the API handler.
func NewHandler(db *database.DB, assembler *feed.Assembler, tracker *ranking.Tracker) *Handler {
	return &Handler{db: db, assembler: assembler, tracker: tracker}
}

// pageParams are the shared pagination query parameters.
type pageParams struct {
	Limit  int `validate:"min=0,max=1000"`
	Offset int `validate:"min=0,max=1000000"`
}

func parsePageParams(r *http.Request) pageParams {
	return pageParams{
		Limit:  getIntParam(r, "limit", 0),
		Offset: getIntParam(r, "offset", 0),
	}
}

// feedPipeline runs one pipeline closure and writes the envelope. All
// feed handlers share the same parameter handling and error mapping.
func (h *Handler) feedPipeline(w http.ResponseWriter, r *http.Request,
	run func(ctx context.Context, viewer string, p pageParams) (*feed.Page, error)) {
	start := time.Now()

	params := parsePageParams(r)
	if verr := validation.ValidateStruct(&params); verr != nil {
		respondValidationError(w, verr)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	page, err := run(ctx, viewerID(r), params)
	if err != nil {
		if errors.Is(err, feed.ErrViewerRequired) {
			respondError(w, http.StatusBadRequest, "VIEWER_REQUIRED",
				"This feed requires the X-Viewer-ID header", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "FEED_ERROR",
			"Failed to assemble feed", err)
		return
	}

	respondSuccess(w, page, start)
}

func respondValidationError(w http.ResponseWriter, verr *validation.RequestError) {
	respondJSON(w, http.StatusBadRequest, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now()},
		Error: &models.APIError{
			Code:    "VALIDATION_ERROR",
			Message: verr.Error(),
			Details: verr.Details(),
		},
	})
}

// FeedBest handles GET /api/v1/feeds/best?window=day.
func (h *Handler) FeedBest(w http.ResponseWriter, r *http.Request) {
	window, err := feed.ParseWindow(r.URL.Query().Get("window"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_WINDOW",
			"window must be one of hour, day, week, month, year, all", nil)
		return
	}

	h.feedPipeline(w, r, func(ctx context.Context, viewer string, p pageParams) (*feed.Page, error) {
		return h.assembler.Best(ctx, viewer, window, p.Limit, p.Offset)
	})
}

// FeedRising handles GET /api/v1/feeds/rising.
func (h *Handler) FeedRising(w http.ResponseWriter, r *http.Request) {
	h.feedPipeline(w, r, func(ctx context.Context, viewer string, p pageParams) (*feed.Page, error) {
		return h.assembler.Rising(ctx, viewer, p.Limit, p.Offset)
	})
}

// FeedControversial handles GET /api/v1/feeds/controversial.
func (h *Handler) FeedControversial(w http.ResponseWriter, r *http.Request) {
	h.feedPipeline(w, r, func(ctx context.Context, viewer string, p pageParams) (*feed.Page, error) {
		return h.assembler.Controversial(ctx, viewer, p.Limit, p.Offset)
	})
}

// FeedTopic handles GET /api/v1/feeds/topics/{topicID}.
func (h *Handler) FeedTopic(w http.ResponseWriter, r *http.Request) {
	topicID := chi.URLParam(r, "topicID")
	if topicID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_TOPIC", "Topic is required", nil)
		return
	}

	h.feedPipeline(w, r, func(ctx context.Context, viewer string, p pageParams) (*feed.Page, error) {
		return h.assembler.Topic(ctx, viewer, topicID, p.Limit, p.Offset)
	})
}

// FeedCity handles GET /api/v1/feeds/cities/{city}.
func (h *Handler) FeedCity(w http.ResponseWriter, r *http.Request) {
	city := chi.URLParam(r, "city")
	if city == "" {
		respondError(w, http.StatusBadRequest, "INVALID_CITY", "City is required", nil)
		return
	}

	h.feedPipeline(w, r, func(ctx context.Context, viewer string, p pageParams) (*feed.Page, error) {
		return h.assembler.City(ctx, viewer, city, p.Limit, p.Offset)
	})
}

// FeedFollowing handles GET /api/v1/feeds/following.
func (h *Handler) FeedFollowing(w http.ResponseWriter, r *http.Request) {
	h.feedPipeline(w, r, func(ctx context.Context, viewer string, p pageParams) (*feed.Page, error) {
		return h.assembler.Following(ctx, viewer, p.Limit, p.Offset)
	})
}

// FeedUnheard handles GET /api/v1/feeds/unheard.
func (h *Handler) FeedUnheard(w http.ResponseWriter, r *http.Request) {
	h.feedPipeline(w, r, func(ctx context.Context, viewer string, p pageParams) (*feed.Page, error) {
		return h.assembler.Unheard(ctx, viewer, p.Limit, p.Offset)
	})
}

// RefreshVelocityClip handles POST /api/v1/velocity/refresh/{clipID}.
// Missing clips are a successful no-op, matching the tracker contract.
func (h *Handler) RefreshVelocityClip(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	clipID := chi.URLParam(r, "clipID")
	if clipID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_CLIP", "Clip is required", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.tracker.RefreshVelocity(ctx, clipID); err != nil {
		respondError(w, http.StatusInternalServerError, "REFRESH_ERROR",
			"Failed to refresh velocity", err)
		return
	}

	respondSuccess(w, map[string]string{"clip_id": clipID}, start)
}

// RefreshVelocityAll handles POST /api/v1/velocity/refresh, the trigger
// for external schedulers.
func (h *Handler) RefreshVelocityAll(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	// Batch runs can exceed the per-request budget; bound them
	// separately.
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	stats, err := h.tracker.RefreshAll(ctx)
	metrics.RecordRefreshRun("manual", err, stats.Refreshed, stats.Purged, stats.Duration)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "REFRESH_ERROR",
			"Velocity refresh failed", err)
		return
	}

	respondSuccess(w, stats, start)
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	if err := h.db.Ping(ctx); err != nil {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	respondJSON(w, code, &models.APIResponse{
		Status: "success",
		Data:   map[string]string{"status": status},
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}
