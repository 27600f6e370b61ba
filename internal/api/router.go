// Libraria - Book Discovery and Hybrid Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libraria

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/libraria/internal/middleware"
)

// Router wires handlers and middleware into the HTTP route tree.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router from a handler and middleware factory.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		chiMiddleware: mw,
	}
}

// chiAdapter adapts http.HandlerFunc middleware to Chi's
// func(http.Handler) http.Handler so it can be used with r.Use().
func chiAdapter(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// Setup configures all HTTP routes using Chi router.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order.
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(RequestLogging())

	// Health endpoints: permissive rate limiting for monitoring probes.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	// Book catalog endpoints.
	r.Route("/api/v1/books", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(chiAdapter(middleware.PrometheusMetrics))

		r.Get("/search", router.handler.SearchBooks)
		r.Get("/{id}", router.handler.GetBook)
	})

	// Recommendation endpoints: each request fans out to catalog
	// providers and runs both scorers, so limits are tighter.
	r.Route("/api/v1/recommendations", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitRecommend())
		r.Use(APISecurityHeaders())
		r.Use(chiAdapter(middleware.PrometheusMetrics))

		r.Get("/", router.handler.GetRecommendations)
		r.Get("/trending", router.handler.GetTrending)
		r.Get("/mood", router.handler.GetByMood)
	})

	// User profile endpoints.
	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(chiAdapter(middleware.PrometheusMetrics))

		r.Get("/{id}/profile", router.handler.GetProfile)

		r.With(router.chiMiddleware.RateLimitWrite()).
			Post("/{id}/history", router.handler.AppendHistory)
		r.With(router.chiMiddleware.RateLimitWrite()).
			Delete("/{id}/history/{index}", router.handler.RemoveHistory)
	})

	// Observability.
	r.Handle("/metrics", promhttp.Handler())

	return r
}
