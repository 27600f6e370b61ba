// Libraria - Book Discovery and Hybrid Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libraria

package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/libraria/internal/catalog"
	"github.com/tomtom215/libraria/internal/config"
	"github.com/tomtom215/libraria/internal/logging"
	"github.com/tomtom215/libraria/internal/metrics"
	"github.com/tomtom215/libraria/internal/profile"
)

// CandidateSource supplies candidate books. Satisfied by
// catalog.Gateway.
type CandidateSource interface {
	Search(ctx context.Context, query string, filters catalog.Filters, limit int) ([]catalog.Book, error)
	Details(ctx context.Context, bookID string) (*catalog.Book, error)
}

// ProfileSource loads user profiles. Satisfied by profile.Store.
type ProfileSource interface {
	Load(ctx context.Context, userID string) (*profile.UserProfile, error)
}

// Engine drives one recommendation request end to end: candidate
// retrieval, both scorers, hybrid combination, context filtering, and
// the diversity pass. Engines are stateless per request and safe for
// concurrent use.
type Engine struct {
	catalog  CandidateSource
	profiles ProfileSource
	cfg      *config.RecommendConfig

	content *ContentScorer
	collab  *CollaborativeScorer
	filter  *contextFilter
}

// NewEngine creates a recommendation engine.
func NewEngine(cat CandidateSource, profiles ProfileSource, cfg *config.RecommendConfig) *Engine {
	return &Engine{
		catalog:  cat,
		profiles: profiles,
		cfg:      cfg,
		content:  NewContentScorer(cfg),
		collab:   NewCollaborativeScorer(cfg),
		filter:   newContextFilter(cfg),
	}
}

// Recommend produces a ranked recommendation list for a target book, a
// user, or both. An empty list is a valid non-error response; errors
// are limited to catalog unavailability, unknown target books, and
// timeouts.
func (e *Engine) Recommend(ctx context.Context, req Request) ([]Recommendation, error) {
	start := time.Now()
	mode := "personalized"
	if req.TargetBookID != "" {
		mode = "similar"
	}
	defer func() {
		metrics.RecommendDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	}()

	topN := e.normalizeTopN(req.TopN)

	prof := e.loadProfile(ctx, req.UserID)

	target, err := e.resolveTarget(ctx, req.TargetBookID, prof)
	if err != nil {
		return nil, err
	}

	candidates, err := e.fetchCandidates(ctx, target, req.TargetBookID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		metrics.RecommendationsReturned.Observe(0)
		return []Recommendation{}, nil
	}

	enrichSentiment(candidates)

	content, contentErr, collab, collabErr, err := e.runScorers(ctx, target, candidates, prof)
	if err != nil {
		return nil, err
	}

	ranked := combine(candidates, content, contentErr, collab, collabErr, e.cfg)
	ranked = e.filter.apply(ranked, req.Context)
	ranked = enforceDiversity(ranked, topN)
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}

	metrics.RecommendationsReturned.Observe(float64(len(ranked)))
	logging.Debug().
		Str("mode", mode).
		Int("candidates", len(candidates)).
		Int("results", len(ranked)).
		Msg("Recommendation request completed")

	return ranked, nil
}

// SearchCandidates exposes raw candidate retrieval to the API layer.
func (e *Engine) SearchCandidates(ctx context.Context, query string, filters catalog.Filters, limit int) ([]catalog.Book, error) {
	books, err := e.catalog.Search(ctx, query, filters, limit)
	if err != nil {
		return nil, mapTimeout(ctx, err)
	}
	return books, nil
}

// Trending ranks candidates within a publication-year window by
// popularity. The query seeds candidate retrieval; empty means a
// generic popular-books search.
func (e *Engine) Trending(ctx context.Context, query, window string, topN int) ([]Recommendation, error) {
	start := time.Now()
	defer func() {
		metrics.RecommendDuration.WithLabelValues("trending").Observe(time.Since(start).Seconds())
	}()

	topN = e.normalizeTopN(topN)
	if query == "" {
		query = "best books"
	}

	candidates, err := e.catalog.Search(ctx, query, catalog.Filters{}, e.cfg.MaxCandidates)
	if err != nil {
		return nil, mapTimeout(ctx, err)
	}

	results := make([]Recommendation, 0, len(candidates))
	for i := range candidates {
		cand := &candidates[i]
		if !e.filter.inTrendingWindow(cand.Year, window) {
			continue
		}

		reasons := []string{fmt.Sprintf("Published in %d", cand.Year)}
		if cand.EditionCount > 0 {
			reasons = append(reasons, fmt.Sprintf("%d editions", cand.EditionCount))
		}
		if cand.Rating != nil {
			reasons = append(reasons, fmt.Sprintf("Rating: %.1f/5.0", *cand.Rating))
		} else {
			reasons = append(reasons, "Popular choice")
		}

		results = append(results, Recommendation{
			Book:       *cand,
			Score:      clamp01(cand.PopularityScore()),
			Algorithms: []string{AlgorithmTrending},
			Reasons:    reasons,
		})
	}

	sortRanking(results, nil)
	if len(results) > topN {
		results = results[:topN]
	}
	metrics.RecommendationsReturned.Observe(float64(len(results)))
	return results, nil
}

// ByMood ranks candidates by how well their subjects cover the mood's
// subject table, nudged by description sentiment. Unrecognized moods
// produce an empty list.
func (e *Engine) ByMood(ctx context.Context, query, mood string, topN int) ([]Recommendation, error) {
	start := time.Now()
	defer func() {
		metrics.RecommendDuration.WithLabelValues("mood").Observe(time.Since(start).Seconds())
	}()

	topN = e.normalizeTopN(topN)
	moodSubjects := e.cfg.MoodSubjects[strings.ToLower(mood)]
	if query == "" {
		query = strings.Join(prefix(moodSubjects, 2), " ")
		if query == "" {
			query = "best books"
		}
	}

	candidates, err := e.catalog.Search(ctx, query, catalog.Filters{}, e.cfg.MaxCandidates)
	if err != nil {
		return nil, mapTimeout(ctx, err)
	}
	enrichSentiment(candidates)

	results := make([]Recommendation, 0, len(candidates))
	for i := range candidates {
		cand := &candidates[i]

		score := moodMatchFraction(cand.Subjects, moodSubjects)
		if score == 0 {
			continue
		}
		if sentimentAligned(mood, cand.SentimentScore) {
			score = clamp01(score * moodBoost)
		}

		results = append(results, Recommendation{
			Book:       *cand,
			Score:      score,
			Algorithms: []string{AlgorithmMood},
			Reasons: []string{
				"Matches '" + mood + "' mood",
				"Genres: " + joinOrDefault(prefix(cand.Subjects, 3), "Various"),
				"Sentiment: " + SentimentLabel(cand.SentimentScore),
			},
		})
	}

	sortRanking(results, nil)
	if len(results) > topN {
		results = results[:topN]
	}
	metrics.RecommendationsReturned.Observe(float64(len(results)))
	return results, nil
}

// normalizeTopN applies the default and the configured cap.
func (e *Engine) normalizeTopN(topN int) int {
	if topN <= 0 {
		return e.cfg.DefaultTopN
	}
	if topN > e.cfg.MaxTopN {
		return e.cfg.MaxTopN
	}
	return topN
}

// loadProfile fetches the user's profile; store failures degrade to an
// anonymous request rather than failing it.
func (e *Engine) loadProfile(ctx context.Context, userID string) *profile.UserProfile {
	if userID == "" || e.profiles == nil {
		return nil
	}

	prof, err := e.profiles.Load(ctx, userID)
	if err != nil {
		logging.Warn().Err(err).Str("user_id", userID).Msg("Profile load failed, proceeding without personalization")
		return nil
	}
	return prof
}

// resolveTarget fetches the target book, or synthesizes one from the
// profile's favorites for user-driven requests.
func (e *Engine) resolveTarget(ctx context.Context, targetBookID string, prof *profile.UserProfile) (*catalog.Book, error) {
	if targetBookID != "" {
		book, err := e.catalog.Details(ctx, targetBookID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return nil, fmt.Errorf("target book %s: %w", targetBookID, catalog.ErrNotFound)
			}
			return nil, mapTimeout(ctx, err)
		}
		return book, nil
	}

	// User-driven request: the profile's favorites stand in as the
	// content target.
	target := &catalog.Book{}
	if prof != nil {
		target.Authors = prof.FavoriteAuthors
		target.Subjects = prof.FavoriteGenres
	}
	return target, nil
}

// fetchCandidates retrieves the candidate pool and drops the target
// book itself from it.
func (e *Engine) fetchCandidates(ctx context.Context, target *catalog.Book, targetBookID string) ([]catalog.Book, error) {
	query := candidateQuery(target)

	books, err := e.catalog.Search(ctx, query, catalog.Filters{}, e.cfg.MaxCandidates)
	if err != nil {
		if errors.Is(err, catalog.ErrUnavailable) {
			return nil, err
		}
		return nil, mapTimeout(ctx, err)
	}

	if targetBookID == "" && target.Title == "" {
		return books, nil
	}

	filtered := books[:0]
	for i := range books {
		if books[i].ID == targetBookID {
			continue
		}
		if target.Title != "" && strings.EqualFold(books[i].Title, target.Title) {
			continue
		}
		filtered = append(filtered, books[i])
	}
	return filtered, nil
}

// candidateQuery derives a search query from the target's subjects,
// falling back to its authors, then its title.
func candidateQuery(target *catalog.Book) string {
	if len(target.Subjects) > 0 {
		return strings.Join(prefix(target.Subjects, 2), " ")
	}
	if len(target.Authors) > 0 {
		return target.Authors[0]
	}
	if target.Title != "" {
		return target.Title
	}
	return "best books"
}

// runScorers executes both scorers concurrently under the scoring
// timeout. Individual scorer failures are captured for the combiner's
// degradation policy; only a request-level timeout aborts the call.
func (e *Engine) runScorers(ctx context.Context, target *catalog.Book, candidates []catalog.Book, prof *profile.UserProfile) (content scoreSet, contentErr error, collab scoreSet, collabErr error, err error) {
	scoreCtx, cancel := context.WithTimeout(ctx, e.cfg.ScoreTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(scoreCtx)

	g.Go(func() error {
		content, contentErr = e.content.Score(gctx, target, candidates, prof)
		return nil
	})
	g.Go(func() error {
		collab, collabErr = e.collab.Score(gctx, prof, candidates)
		return nil
	})
	_ = g.Wait()

	// Partial results are discarded on timeout or cancellation.
	if ctxErr := scoreCtx.Err(); ctxErr != nil {
		return nil, nil, nil, nil, mapTimeout(scoreCtx, ctxErr)
	}
	return content, contentErr, collab, collabErr, nil
}

// enrichSentiment fills each candidate's sentiment score from its
// description.
func enrichSentiment(books []catalog.Book) {
	for i := range books {
		if books[i].Description != "" && books[i].SentimentScore == 0 {
			books[i].SentimentScore = Sentiment(books[i].Description)
		}
	}
}

// mapTimeout converts context expiry into ErrTimedOut so callers see a
// single timeout error regardless of which stage hit the deadline.
func mapTimeout(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimedOut, err)
	}
	return err
}

func joinOrDefault(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return strings.Join(values, ", ")
}
