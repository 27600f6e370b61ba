// Libraria - Book Discovery and Hybrid Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libraria

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/libraria/internal/catalog"
	"github.com/tomtom215/libraria/internal/profile"
	"github.com/tomtom215/libraria/internal/recommend"
)

// fakeEngine is a scriptable RecommendService.
type fakeEngine struct {
	recommendations []recommend.Recommendation
	books           []catalog.Book
	err             error

	lastRequest recommend.Request
	lastWindow  string
	lastMood    string
}

func (f *fakeEngine) Recommend(_ context.Context, req recommend.Request) ([]recommend.Recommendation, error) {
	f.lastRequest = req
	return f.recommendations, f.err
}

func (f *fakeEngine) SearchCandidates(_ context.Context, _ string, _ catalog.Filters, _ int) ([]catalog.Book, error) {
	return f.books, f.err
}

func (f *fakeEngine) Trending(_ context.Context, _, window string, _ int) ([]recommend.Recommendation, error) {
	f.lastWindow = window
	return f.recommendations, f.err
}

func (f *fakeEngine) ByMood(_ context.Context, _, mood string, _ int) ([]recommend.Recommendation, error) {
	f.lastMood = mood
	return f.recommendations, f.err
}

// fakeBooks is a scriptable BookSource.
type fakeBooks struct {
	book *catalog.Book
	err  error
}

func (f *fakeBooks) Details(_ context.Context, _ string) (*catalog.Book, error) {
	return f.book, f.err
}

// fakeProfileStore is a scriptable ProfileService.
type fakeProfileStore struct {
	prof      *profile.UserProfile
	err       error
	lastEntry profile.ReadingHistoryEntry
	lastIndex int
}

func (f *fakeProfileStore) Load(_ context.Context, userID string) (*profile.UserProfile, error) {
	if f.prof != nil {
		return f.prof, f.err
	}
	return profile.NewProfile(userID), f.err
}

func (f *fakeProfileStore) Append(_ context.Context, userID string, entry profile.ReadingHistoryEntry) (*profile.UserProfile, error) {
	f.lastEntry = entry
	if f.err != nil {
		return nil, f.err
	}
	prof := profile.NewProfile(userID)
	prof.History = append(prof.History, entry)
	return prof, nil
}

func (f *fakeProfileStore) Remove(_ context.Context, userID string, index int) (*profile.UserProfile, error) {
	f.lastIndex = index
	if f.err != nil {
		return nil, f.err
	}
	return profile.NewProfile(userID), nil
}

func newTestServer(engine *fakeEngine, books *fakeBooks, profiles *fakeProfileStore) http.Handler {
	if engine == nil {
		engine = &fakeEngine{}
	}
	if books == nil {
		books = &fakeBooks{}
	}
	if profiles == nil {
		profiles = &fakeProfileStore{}
	}
	handler := NewHandler(engine, books, profiles)
	mw := NewChiMiddleware(&ChiMiddlewareConfig{RateLimitDisabled: true})
	return NewRouter(handler, mw).Setup()
}

func doRequest(t *testing.T, h http.Handler, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v\n%s", err, rec.Body.String())
	}
	return resp
}

func TestHealthEndpoints(t *testing.T) {
	h := newTestServer(nil, nil, nil)

	for _, path := range []string{"/api/v1/health", "/api/v1/health/live", "/api/v1/health/ready"} {
		rec := doRequest(t, h, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
		resp := decodeEnvelope(t, rec)
		if !resp.Success {
			t.Errorf("GET %s success = false", path)
		}
	}
}

func TestSearchBooks(t *testing.T) {
	engine := &fakeEngine{books: []catalog.Book{{ID: "b1", Title: "Dune"}}}
	h := newTestServer(engine, nil, nil)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/books/search?q=dune&limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	resp := decodeEnvelope(t, rec)
	if resp.Meta == nil || resp.Meta.Count != 1 {
		t.Errorf("meta count missing or wrong: %+v", resp.Meta)
	}
}

func TestSearchBooksMissingQuery(t *testing.T) {
	h := newTestServer(nil, nil, nil)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/books/search", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	resp := decodeEnvelope(t, rec)
	if resp.Error == nil || resp.Error.Code != ErrCodeValidationFailed {
		t.Errorf("error = %+v, want %s", resp.Error, ErrCodeValidationFailed)
	}
	if resp.Error.Retryable {
		t.Error("validation error marked retryable")
	}
}

func TestSearchBooksCatalogUnavailable(t *testing.T) {
	engine := &fakeEngine{err: catalog.ErrUnavailable}
	h := newTestServer(engine, nil, nil)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/books/search?q=dune", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	resp := decodeEnvelope(t, rec)
	if resp.Error == nil || !resp.Error.Retryable {
		t.Errorf("503 error should be retryable: %+v", resp.Error)
	}
	if details, ok := resp.Error.Details.(map[string]interface{}); !ok || details["stage"] != "catalog" {
		t.Errorf("details = %v, want stage catalog", resp.Error.Details)
	}
}

func TestGetBook(t *testing.T) {
	books := &fakeBooks{book: &catalog.Book{ID: "b1", Title: "Dune"}}
	h := newTestServer(nil, books, nil)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/books/b1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestGetBookNotFound(t *testing.T) {
	books := &fakeBooks{err: catalog.ErrNotFound}
	h := newTestServer(nil, books, nil)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/books/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetRecommendations(t *testing.T) {
	engine := &fakeEngine{recommendations: []recommend.Recommendation{
		{Book: catalog.Book{ID: "b1"}, Score: 0.9},
	}}
	h := newTestServer(engine, nil, nil)

	rec := doRequest(t, h, http.MethodGet,
		"/api/v1/recommendations?book_id=b1&mood=adventurous&time_of_day=night&reading_goal=quick_read&top_n=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	// Context parameters pass through to the engine untouched.
	got := engine.lastRequest
	if got.TargetBookID != "b1" || got.TopN != 5 {
		t.Errorf("request = %+v, want book_id=b1 top_n=5", got)
	}
	if got.Context.Mood != "adventurous" || got.Context.TimeOfDay != "night" || got.Context.ReadingGoal != "quick_read" {
		t.Errorf("context = %+v not forwarded", got.Context)
	}
}

func TestGetRecommendationsRequiresTarget(t *testing.T) {
	h := newTestServer(nil, nil, nil)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/recommendations", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetRecommendationsTimeout(t *testing.T) {
	engine := &fakeEngine{err: recommend.ErrTimedOut}
	h := newTestServer(engine, nil, nil)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/recommendations?book_id=b1", "")
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504", rec.Code)
	}

	resp := decodeEnvelope(t, rec)
	if resp.Error == nil || !resp.Error.Retryable {
		t.Errorf("timeout error should be retryable: %+v", resp.Error)
	}
	if details, ok := resp.Error.Details.(map[string]interface{}); !ok || details["stage"] != "recommend" {
		t.Errorf("details = %v, want stage recommend", resp.Error.Details)
	}
}

func TestGetTrendingDefaultsWindow(t *testing.T) {
	engine := &fakeEngine{}
	h := newTestServer(engine, nil, nil)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/recommendations/trending", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if engine.lastWindow != recommend.TrendingRecent {
		t.Errorf("window = %q, want default %q", engine.lastWindow, recommend.TrendingRecent)
	}
}

func TestGetTrendingRejectsUnknownWindow(t *testing.T) {
	h := newTestServer(nil, nil, nil)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/recommendations/trending?window=last_decade", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetByMoodRequiresMood(t *testing.T) {
	h := newTestServer(nil, nil, nil)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/recommendations/mood", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetByMood(t *testing.T) {
	engine := &fakeEngine{}
	h := newTestServer(engine, nil, nil)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/recommendations/mood?mood=relaxed", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if engine.lastMood != "relaxed" {
		t.Errorf("mood = %q, want relaxed", engine.lastMood)
	}
}

func TestGetProfile(t *testing.T) {
	h := newTestServer(nil, nil, &fakeProfileStore{})

	rec := doRequest(t, h, http.MethodGet, "/api/v1/users/u1/profile", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	resp := decodeEnvelope(t, rec)
	if !resp.Success {
		t.Error("unknown user should still return a fresh profile")
	}
}

func TestAppendHistory(t *testing.T) {
	profiles := &fakeProfileStore{}
	h := newTestServer(nil, nil, profiles)

	body := `{"title":"Dune","rating":4.5,"status":"read","authors":["Frank Herbert"]}`
	rec := doRequest(t, h, http.MethodPost, "/api/v1/users/u1/history", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	if profiles.lastEntry.Title != "Dune" {
		t.Errorf("entry title = %q, want Dune", profiles.lastEntry.Title)
	}
	if profiles.lastEntry.Timestamp.IsZero() {
		t.Error("missing timestamp was not defaulted")
	}
}

func TestAppendHistoryValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{"title":`},
		{name: "missing title", body: `{"rating":4}`},
		{name: "rating out of range", body: `{"title":"Dune","rating":7}`},
		{name: "unknown status", body: `{"title":"Dune","status":"abandoned"}`},
	}

	h := newTestServer(nil, nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, h, http.MethodPost, "/api/v1/users/u1/history", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestRemoveHistory(t *testing.T) {
	profiles := &fakeProfileStore{}
	h := newTestServer(nil, nil, profiles)

	rec := doRequest(t, h, http.MethodDelete, "/api/v1/users/u1/history/2", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if profiles.lastIndex != 2 {
		t.Errorf("index = %d, want 2", profiles.lastIndex)
	}
}

func TestRemoveHistoryBadIndex(t *testing.T) {
	h := newTestServer(nil, nil, nil)

	for _, path := range []string{"/api/v1/users/u1/history/abc", "/api/v1/users/u1/history/-1"} {
		rec := doRequest(t, h, http.MethodDelete, path, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("DELETE %s = %d, want 400", path, rec.Code)
		}
	}
}

func TestRemoveHistoryIndexOutOfRange(t *testing.T) {
	profiles := &fakeProfileStore{err: profile.ErrInvalidIndex}
	h := newTestServer(nil, nil, profiles)

	rec := doRequest(t, h, http.MethodDelete, "/api/v1/users/u1/history/99", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRequestIDHeaderSet(t *testing.T) {
	h := newTestServer(nil, nil, nil)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/health", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing from response")
	}
}

func TestSecurityHeadersSet(t *testing.T) {
	h := newTestServer(nil, nil, nil)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/health", "")
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
}
