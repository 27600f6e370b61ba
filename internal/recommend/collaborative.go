// Libraria - Book Discovery and Hybrid Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libraria

package recommend

import (
	"context"
	"fmt"

	"github.com/tomtom215/libraria/internal/catalog"
	"github.com/tomtom215/libraria/internal/config"
	"github.com/tomtom215/libraria/internal/profile"
)

// Collaborative similarity weights: shared authors carry more signal
// than shared tags.
const (
	cfAuthorWeight = 0.5
	cfTagWeight    = 0.3
)

// cfRatingThreshold is the minimum rating for a history entry to act
// as collaborative signal.
const cfRatingThreshold = 4.0

// CollaborativeScorer scores candidates from the user's well-rated
// reading history: a candidate's score is the rating-weighted average
// of its similarity to entries rated >= 4, normalized to [0,1]. With
// no usable history it falls back to per-candidate popularity.
type CollaborativeScorer struct {
	cfg *config.RecommendConfig
}

// NewCollaborativeScorer creates a collaborative scorer.
func NewCollaborativeScorer(cfg *config.RecommendConfig) *CollaborativeScorer {
	return &CollaborativeScorer{cfg: cfg}
}

// Score returns a score for every candidate; 0 is the floor when no
// signal exists, never an absent entry.
func (s *CollaborativeScorer) Score(ctx context.Context, prof *profile.UserProfile, candidates []catalog.Book) (scoreSet, error) {
	if prof == nil || !prof.HasRatings() {
		return s.popularityScores(ctx, candidates)
	}

	out := make(scoreSet, len(candidates))
	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cand := &candidates[i]
		score, likedTitle := historyScore(cand, prof)
		out[cand.ID] = scored{
			value:     score,
			reasons:   collaborativeReasons(cand, likedTitle, score),
			algorithm: AlgorithmCollaborative,
		}
	}
	return out, nil
}

// historyScore computes the rating-weighted average similarity of a
// candidate to the user's well-rated history, scaled into [0,1]. It
// also returns the title of one liked book that drove the score.
func historyScore(cand *catalog.Book, prof *profile.UserProfile) (float64, string) {
	var sum float64
	var count int
	var likedTitle string

	for i := range prof.History {
		entry := &prof.History[i]
		if entry.Rating == nil || *entry.Rating < cfRatingThreshold {
			continue
		}

		sim := itemSimilarity(cand, entry)
		if sim <= 0 {
			continue
		}

		sum += *entry.Rating * sim
		count++
		if likedTitle == "" {
			likedTitle = entry.Title
		}
	}

	if count == 0 {
		return 0, ""
	}
	// Average is on the 0-5 rating scale; divide back to [0,1].
	return clamp01(sum / float64(count) / 5.0), likedTitle
}

// itemSimilarity measures author and tag overlap between a candidate
// and a history entry, clamped to 1.0.
func itemSimilarity(cand *catalog.Book, entry *profile.ReadingHistoryEntry) float64 {
	var sim float64

	if overlapsFold(cand.Authors, entry.Authors) {
		sim += cfAuthorWeight
	}

	candTags := prefix(cand.Subjects, 5)
	if len(candTags) > 0 && len(entry.Tags) > 0 {
		common := intersectFold(candTags, entry.Tags)
		if len(common) > 0 {
			denom := len(candTags)
			if len(entry.Tags) > denom {
				denom = len(entry.Tags)
			}
			sim += cfTagWeight * float64(len(common)) / float64(denom)
		}
	}

	return clamp01(sim)
}

func collaborativeReasons(cand *catalog.Book, likedTitle string, score float64) []string {
	reasons := make([]string, 0, 3)
	if likedTitle != "" {
		reasons = append(reasons, "You enjoyed: "+likedTitle)
	}
	reasons = append(reasons, fmt.Sprintf("Match score: %.0f%%", score*100))
	if cand.Rating != nil {
		reasons = append(reasons, fmt.Sprintf("Community rating: %.1f/5.0", *cand.Rating))
	}
	return reasons
}

// popularityScores is the cold-start fallback: each candidate scored by
// its own edition count and community rating.
func (s *CollaborativeScorer) popularityScores(ctx context.Context, candidates []catalog.Book) (scoreSet, error) {
	out := make(scoreSet, len(candidates))
	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cand := &candidates[i]
		out[cand.ID] = scored{
			value:     clamp01(cand.PopularityScore()),
			reasons:   []string{fmt.Sprintf("Popular book with %d editions", cand.EditionCount)},
			algorithm: AlgorithmPopularity,
		}
	}
	return out, nil
}
