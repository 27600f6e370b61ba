// Libraria - Book Discovery and Hybrid Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libraria

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/libraria/internal/catalog"
	"github.com/tomtom215/libraria/internal/logging"
	"github.com/tomtom215/libraria/internal/profile"
	"github.com/tomtom215/libraria/internal/recommend"
)

// RecommendService is the recommendation engine surface the handlers
// depend on. Satisfied by recommend.Engine.
type RecommendService interface {
	Recommend(ctx context.Context, req recommend.Request) ([]recommend.Recommendation, error)
	SearchCandidates(ctx context.Context, query string, filters catalog.Filters, limit int) ([]catalog.Book, error)
	Trending(ctx context.Context, query, window string, topN int) ([]recommend.Recommendation, error)
	ByMood(ctx context.Context, query, mood string, topN int) ([]recommend.Recommendation, error)
}

// BookSource resolves single books by ID. Satisfied by catalog.Gateway.
type BookSource interface {
	Details(ctx context.Context, bookID string) (*catalog.Book, error)
}

// ProfileService is the profile store surface the handlers depend on.
// Satisfied by profile.Store.
type ProfileService interface {
	Load(ctx context.Context, userID string) (*profile.UserProfile, error)
	Append(ctx context.Context, userID string, entry profile.ReadingHistoryEntry) (*profile.UserProfile, error)
	Remove(ctx context.Context, userID string, index int) (*profile.UserProfile, error)
}

// Handler holds the dependencies for all API endpoints.
type Handler struct {
	engine   RecommendService
	books    BookSource
	profiles ProfileService
}

// NewHandler creates an API handler.
func NewHandler(engine RecommendService, books BookSource, profiles ProfileService) *Handler {
	return &Handler{
		engine:   engine,
		books:    books,
		profiles: profiles,
	}
}

// respondDomainError maps domain errors to HTTP responses. The details
// carry the pipeline stage that failed so clients can tell a catalog
// outage from a recommendation timeout.
func respondDomainError(rw *ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		rw.NotFound("Book not found")
	case errors.Is(err, recommend.ErrTimedOut):
		rw.ErrorWithDetails(http.StatusGatewayTimeout, ErrCodeGatewayTimeout,
			"Request timed out while building recommendations",
			map[string]interface{}{"stage": "recommend"})
	case errors.Is(err, catalog.ErrUnavailable):
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable,
			"Book catalog providers are unavailable",
			map[string]interface{}{"stage": "catalog"})
	case errors.Is(err, profile.ErrInvalidIndex):
		rw.BadRequest("History index out of range")
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
	default:
		logging.Error().Err(err).Msg("Unhandled API error")
		rw.InternalError("An internal error occurred")
	}
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	rw.Success(map[string]string{
		"status":  "ok",
		"service": "libraria",
	})
}

// HealthLive handles GET /api/v1/health/live.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "alive"})
}

// HealthReady handles GET /api/v1/health/ready. Ready means all
// downstream dependencies are wired.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.engine == nil || h.books == nil || h.profiles == nil {
		rw.ServiceUnavailable("Service dependencies are not ready")
		return
	}
	rw.Success(map[string]string{"status": "ready"})
}

// SearchBooks handles GET /api/v1/books/search.
func (h *Handler) SearchBooks(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	req := SearchRequest{
		Query:     r.URL.Query().Get("q"),
		MinYear:   getIntParam(r, "min_year", 0),
		MaxYear:   getIntParam(r, "max_year", 0),
		MinRating: getFloatParam(r, "min_rating", 0),
		Limit:     getIntParam(r, "limit", 20),
	}
	if !validateRequest(rw, &req) {
		return
	}

	filters := catalog.Filters{
		MinYear:   req.MinYear,
		MaxYear:   req.MaxYear,
		MinRating: req.MinRating,
	}

	books, err := h.engine.SearchCandidates(r.Context(), req.Query, filters, req.Limit)
	if err != nil {
		respondDomainError(rw, err)
		return
	}

	rw.SuccessList(books, len(books))
}

// GetBook handles GET /api/v1/books/{id}.
func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	bookID := chi.URLParam(r, "id")
	if bookID == "" {
		rw.BadRequest("Book ID is required")
		return
	}

	book, err := h.books.Details(r.Context(), bookID)
	if err != nil {
		respondDomainError(rw, err)
		return
	}

	rw.Success(book)
}

// GetRecommendations handles GET /api/v1/recommendations.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	q := r.URL.Query()
	req := RecommendRequest{
		BookID: q.Get("book_id"),
		UserID: q.Get("user_id"),
		TopN:   getIntParam(r, "top_n", 0),
	}
	if !validateRequest(rw, &req) {
		return
	}
	if req.BookID == "" && req.UserID == "" {
		rw.BadRequest("Either book_id or user_id is required")
		return
	}

	results, err := h.engine.Recommend(r.Context(), recommend.Request{
		TargetBookID: req.BookID,
		UserID:       req.UserID,
		TopN:         req.TopN,
		Context: recommend.Context{
			Mood:        q.Get("mood"),
			TimeOfDay:   q.Get("time_of_day"),
			ReadingGoal: q.Get("reading_goal"),
			Trending:    q.Get("trending"),
		},
	})
	if err != nil {
		respondDomainError(rw, err)
		return
	}

	rw.SuccessList(results, len(results))
}

// GetTrending handles GET /api/v1/recommendations/trending.
func (h *Handler) GetTrending(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	req := TrendingRequest{
		Query:  r.URL.Query().Get("q"),
		Window: r.URL.Query().Get("window"),
		TopN:   getIntParam(r, "top_n", 0),
	}
	if !validateRequest(rw, &req) {
		return
	}
	if req.Window == "" {
		req.Window = recommend.TrendingRecent
	}

	results, err := h.engine.Trending(r.Context(), req.Query, req.Window, req.TopN)
	if err != nil {
		respondDomainError(rw, err)
		return
	}

	rw.SuccessList(results, len(results))
}

// GetByMood handles GET /api/v1/recommendations/mood.
func (h *Handler) GetByMood(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	req := MoodRequest{
		Query: r.URL.Query().Get("q"),
		Mood:  r.URL.Query().Get("mood"),
		TopN:  getIntParam(r, "top_n", 0),
	}
	if !validateRequest(rw, &req) {
		return
	}

	results, err := h.engine.ByMood(r.Context(), req.Query, req.Mood, req.TopN)
	if err != nil {
		respondDomainError(rw, err)
		return
	}

	rw.SuccessList(results, len(results))
}

// GetProfile handles GET /api/v1/users/{id}/profile. Unknown users get
// a fresh empty profile, never a 404.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID := chi.URLParam(r, "id")
	if userID == "" {
		rw.BadRequest("User ID is required")
		return
	}

	prof, err := h.profiles.Load(r.Context(), userID)
	if err != nil {
		respondDomainError(rw, err)
		return
	}

	rw.Success(prof)
}

// AppendHistory handles POST /api/v1/users/{id}/history.
func (h *Handler) AppendHistory(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID := chi.URLParam(r, "id")
	if userID == "" {
		rw.BadRequest("User ID is required")
		return
	}

	var entry profile.ReadingHistoryEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		rw.BadRequest("Invalid JSON body")
		return
	}
	if entry.Title == "" {
		rw.BadRequest("Entry title is required")
		return
	}
	if entry.Rating != nil && (*entry.Rating < 0 || *entry.Rating > 5) {
		rw.BadRequest("Rating must be between 0 and 5")
		return
	}
	switch entry.Status {
	case "", profile.StatusRead, profile.StatusReading, profile.StatusWantToRead:
	default:
		rw.BadRequest("Status must be one of: read, reading, want_to_read")
		return
	}
	if entry.Status == "" {
		entry.Status = profile.StatusRead
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	prof, err := h.profiles.Append(r.Context(), userID, entry)
	if err != nil {
		respondDomainError(rw, err)
		return
	}

	rw.Created(prof)
}

// RemoveHistory handles DELETE /api/v1/users/{id}/history/{index}.
func (h *Handler) RemoveHistory(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID := chi.URLParam(r, "id")
	if userID == "" {
		rw.BadRequest("User ID is required")
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		rw.BadRequest("History index must be a non-negative integer")
		return
	}

	if _, err := h.profiles.Remove(r.Context(), userID, index); err != nil {
		respondDomainError(rw, err)
		return
	}

	rw.NoContent()
}
