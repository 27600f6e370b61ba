// Libraria - Book Discovery and Hybrid Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libraria

package recommend

import (
	"sort"

	"github.com/tomtom215/libraria/internal/catalog"
	"github.com/tomtom215/libraria/internal/config"
	"github.com/tomtom215/libraria/internal/logging"
	"github.com/tomtom215/libraria/internal/metrics"
)

// combine merges content and collaborative scores into one ranked list.
//
// Combined score is the weighted sum of both scorers; candidates both
// scorers rate above the similarity floor get the consensus boost,
// clamped to 1.0. If one scorer failed or produced nothing the
// combiner degrades to single-strategy mode on the survivor, annotating
// every result, rather than failing the request.
//
// Ordering is total: combined score descending, then raw content score
// descending, then title ascending. Running combine twice on identical
// inputs yields identical ordering.
func combine(candidates []catalog.Book, content scoreSet, contentErr error, collab scoreSet, collabErr error, cfg *config.RecommendConfig) []Recommendation {
	contentDown := contentErr != nil || len(content) == 0
	collabDown := collabErr != nil || len(collab) == 0

	switch {
	case contentDown && collabDown:
		if contentErr != nil || collabErr != nil {
			logging.Warn().
				AnErr("content_err", contentErr).
				AnErr("collaborative_err", collabErr).
				Msg("Both scorers unavailable, returning empty ranking")
		}
		return []Recommendation{}
	case contentDown:
		metrics.ScorerDegradations.WithLabelValues(AlgorithmContent).Inc()
		logging.Warn().Err(contentErr).Msg("Content scorer unavailable, collaborative-only ranking")
		return singleStrategy(candidates, collab, "Collaborative-only ranking (content scoring unavailable)")
	case collabDown:
		metrics.ScorerDegradations.WithLabelValues(AlgorithmCollaborative).Inc()
		logging.Warn().Err(collabErr).Msg("Collaborative scorer unavailable, content-only ranking")
		return singleStrategy(candidates, content, "Content-only ranking (collaborative scoring unavailable)")
	}

	results := make([]Recommendation, 0, len(candidates))
	contentRaw := make(map[string]float64, len(content))

	for i := range candidates {
		cand := &candidates[i]
		cs, hasContent := content[cand.ID]
		fs, hasCollab := collab[cand.ID]
		if !hasContent && !hasCollab {
			continue
		}

		score := cfg.ContentWeight*cs.value + cfg.CollaborativeWeight*fs.value

		rec := Recommendation{
			Book:  *cand,
			Score: clamp01(score),
		}
		if hasContent && cs.value > 0 {
			rec.Algorithms = append(rec.Algorithms, cs.algorithm)
			rec.Reasons = append(rec.Reasons, cs.reasons...)
			contentRaw[cand.ID] = cs.value
		}
		if hasCollab && fs.value > 0 {
			rec.Algorithms = append(rec.Algorithms, fs.algorithm)
			rec.Reasons = append(rec.Reasons, fs.reasons...)
		}
		if len(rec.Algorithms) == 0 {
			continue
		}

		if cs.value > cfg.SimilarityFloor && fs.value > cfg.SimilarityFloor {
			rec.Score = clamp01(rec.Score * cfg.ConsensusBoost)
			rec.Reasons = append(rec.Reasons, "Recommended by multiple methods")
		}

		results = append(results, rec)
	}

	sortRanking(results, contentRaw)
	return results
}

// singleStrategy ranks on one scorer's output alone, annotating each
// result with the degradation note.
func singleStrategy(candidates []catalog.Book, scores scoreSet, note string) []Recommendation {
	results := make([]Recommendation, 0, len(scores))

	for i := range candidates {
		cand := &candidates[i]
		sc, ok := scores[cand.ID]
		if !ok || sc.value <= 0 {
			continue
		}

		results = append(results, Recommendation{
			Book:       *cand,
			Score:      clamp01(sc.value),
			Algorithms: []string{sc.algorithm},
			Reasons:    append(append([]string{}, sc.reasons...), note),
		})
	}

	sortRanking(results, nil)
	return results
}

// sortRanking orders results by score descending, raw content score
// descending, then title ascending. The content tie-break map may be
// nil in single-strategy mode.
func sortRanking(results []Recommendation, contentRaw map[string]float64) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if contentRaw != nil {
			ci, cj := contentRaw[results[i].Book.ID], contentRaw[results[j].Book.ID]
			if ci != cj {
				return ci > cj
			}
		}
		return results[i].Book.Title < results[j].Book.Title
	})
}
