// Murmur Discovery - Audio Clip Feed Ranking
// Copyright 2026 Murmur Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/murmurapp/discovery/internal/config"
	"github.com/murmurapp/discovery/internal/logging"
	"github.com/murmurapp/discovery/internal/metrics"
)

// Router wires the handler into the chi middleware stack.
type Router struct {
	handler *Handler
	cfg     *config.ServerConfig
}

// NewRouter creates the router.
func NewRouter(handler *Handler, cfg *config.ServerConfig) *Router {
	return &Router{handler: handler, cfg: cfg}
}

// Setup builds the full route tree.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", viewerHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(rt.cfg.RateLimitReqs, rt.cfg.RateLimitWindow))
		r.Use(instrument)

		r.Route("/feeds", func(r chi.Router) {
			r.Get("/best", rt.handler.FeedBest)
			r.Get("/rising", rt.handler.FeedRising)
			r.Get("/controversial", rt.handler.FeedControversial)
			r.Get("/topics/{topicID}", rt.handler.FeedTopic)
			r.Get("/cities/{city}", rt.handler.FeedCity)
			r.Get("/following", rt.handler.FeedFollowing)
			r.Get("/unheard", rt.handler.FeedUnheard)
		})

		r.Route("/velocity", func(r chi.Router) {
			r.Post("/refresh", rt.handler.RefreshVelocityAll)
			r.Post("/refresh/{clipID}", rt.handler.RefreshVelocityClip)
		})

		r.Get("/health", rt.handler.Health)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// requestID assigns each request a UUID, exposed in the response header
// and the request-scoped log context.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		logger := logging.Logger().With().Str("request_id", id).Logger()
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context())))
	})
}

// instrument records per-endpoint request counts and latency.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		endpoint := chi.RouteContext(r.Context()).RoutePattern()
		metrics.RecordAPIRequest(endpoint, r.Method, ww.Status(), time.Since(start))
	})
}
