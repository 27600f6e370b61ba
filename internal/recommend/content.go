// Libraria - Book Discovery and Hybrid Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libraria

package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/tomtom215/libraria/internal/catalog"
	"github.com/tomtom215/libraria/internal/config"
	"github.com/tomtom215/libraria/internal/profile"
)

// ContentScorer scores candidates by text similarity to a target book.
// Each request builds its own vectorizer over [target]+candidates, so
// scoring is reproducible and free of cross-request state.
//
// Similarity is the cosine of TF-IDF weighted term vectors over
// unigrams and bigrams of title, authors, subjects, and description.
// Candidates below the similarity floor are excluded from the output
// rather than scored as zero.
type ContentScorer struct {
	cfg *config.RecommendConfig
}

// NewContentScorer creates a content scorer.
func NewContentScorer(cfg *config.RecommendConfig) *ContentScorer {
	return &ContentScorer{cfg: cfg}
}

// Score returns candidate scores in [0,1] keyed by book ID. Favorite
// author and genre boosts from the profile compose multiplicatively
// and the result is clamped to 1.0. A nil profile applies no boosts.
func (s *ContentScorer) Score(ctx context.Context, target *catalog.Book, candidates []catalog.Book, prof *profile.UserProfile) (scoreSet, error) {
	if len(candidates) == 0 {
		return scoreSet{}, nil
	}

	docs := make([]string, 0, len(candidates)+1)
	docs = append(docs, target.TextRepresentation())
	for i := range candidates {
		docs = append(docs, candidates[i].TextRepresentation())
	}

	v := newVectorizer(docs, s.cfg.VocabularySize)
	targetVec := v.vector(0)

	out := make(scoreSet, len(candidates))
	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cand := &candidates[i]
		sim := cosine(targetVec, v.vector(i+1))
		if sim <= s.cfg.SimilarityFloor {
			continue
		}

		reasons := contentReasons(target, cand, sim)
		score := s.applyPreferenceBoosts(sim, cand, prof, &reasons)

		out[cand.ID] = scored{value: score, reasons: reasons, algorithm: AlgorithmContent}
	}
	return out, nil
}

// applyPreferenceBoosts multiplies the score by the favorite-author and
// favorite-genre boosts, clamped to 1.0.
func (s *ContentScorer) applyPreferenceBoosts(score float64, b *catalog.Book, prof *profile.UserProfile, reasons *[]string) float64 {
	if prof == nil {
		return clamp01(score)
	}

	boost := 1.0
	if overlapsFold(b.Authors, prof.FavoriteAuthors) {
		boost *= s.cfg.AuthorBoost
		*reasons = append(*reasons, "By one of your favorite authors")
	}
	if overlapsFold(b.Subjects, prof.FavoriteGenres) {
		boost *= s.cfg.GenreBoost
		*reasons = append(*reasons, "Matches your favorite genres")
	}
	return clamp01(score * boost)
}

// contentReasons explains what drove a content match.
func contentReasons(target, cand *catalog.Book, sim float64) []string {
	reasons := make([]string, 0, 4)

	if common := intersectFold(target.Authors, cand.Authors); len(common) > 0 {
		reasons = append(reasons, "Same author: "+strings.Join(common, ", "))
	}

	if common := intersectFold(prefix(target.Subjects, 5), prefix(cand.Subjects, 5)); len(common) > 0 {
		if len(common) > 3 {
			common = common[:3]
		}
		reasons = append(reasons, "Similar topics: "+strings.Join(common, ", "))
	}

	reasons = append(reasons, fmt.Sprintf("Content similarity: %.0f%%", sim*100))

	if cand.Rating != nil {
		reasons = append(reasons, fmt.Sprintf("Rating: %.1f/5.0", *cand.Rating))
	}
	return reasons
}

// vectorizer holds the TF-IDF model for one request's document set.
type vectorizer struct {
	vocab   map[string]int // term -> vocab index
	idf     []float64
	vectors []map[int]float64 // per-document l2-normalized sparse vectors
}

// newVectorizer tokenizes the documents, caps the vocabulary at the
// most frequent maxTerms terms (ties broken lexicographically), and
// precomputes normalized TF-IDF vectors.
func newVectorizer(docs []string, maxTerms int) *vectorizer {
	tokenized := make([][]string, len(docs))
	termFreq := make(map[string]int)
	docFreq := make(map[string]int)

	for i, doc := range docs {
		terms := extractTerms(doc)
		tokenized[i] = terms

		seen := make(map[string]struct{}, len(terms))
		for _, t := range terms {
			termFreq[t]++
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				docFreq[t]++
			}
		}
	}

	v := &vectorizer{vocab: buildVocab(termFreq, maxTerms)}

	// Smoothed IDF, as if one extra document contained every term.
	n := float64(len(docs))
	v.idf = make([]float64, len(v.vocab))
	for term, idx := range v.vocab {
		v.idf[idx] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}

	v.vectors = make([]map[int]float64, len(docs))
	for i, terms := range tokenized {
		v.vectors[i] = v.weigh(terms)
	}
	return v
}

// vector returns the normalized TF-IDF vector for document i.
func (v *vectorizer) vector(i int) map[int]float64 { return v.vectors[i] }

// weigh computes an l2-normalized TF-IDF vector for one document.
func (v *vectorizer) weigh(terms []string) map[int]float64 {
	vec := make(map[int]float64)
	for _, t := range terms {
		if idx, ok := v.vocab[t]; ok {
			vec[idx]++
		}
	}

	var norm float64
	for idx := range vec {
		vec[idx] *= v.idf[idx]
		norm += vec[idx] * vec[idx]
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for idx := range vec {
			vec[idx] /= norm
		}
	}
	return vec
}

// buildVocab keeps the maxTerms most frequent terms.
func buildVocab(termFreq map[string]int, maxTerms int) map[string]int {
	terms := make([]string, 0, len(termFreq))
	for t := range termFreq {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if termFreq[terms[i]] != termFreq[terms[j]] {
			return termFreq[terms[i]] > termFreq[terms[j]]
		}
		return terms[i] < terms[j]
	})

	if maxTerms > 0 && len(terms) > maxTerms {
		terms = terms[:maxTerms]
	}

	vocab := make(map[string]int, len(terms))
	for i, t := range terms {
		vocab[t] = i
	}
	return vocab
}

// cosine computes the dot product of two l2-normalized sparse vectors.
func cosine(a, b map[int]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for idx, av := range a {
		if bv, ok := b[idx]; ok {
			dot += av * bv
		}
	}
	// Guard against float drift pushing the self-similarity above 1.
	return clamp01(dot)
}

// extractTerms produces unigrams and bigrams from lowercased
// alphanumeric tokens with stopwords removed.
func extractTerms(text string) []string {
	words := tokenizeWords(text)

	filtered := words[:0]
	for _, w := range words {
		if _, stop := stopwords[w]; !stop {
			filtered = append(filtered, w)
		}
	}

	terms := make([]string, 0, len(filtered)*2)
	for i, w := range filtered {
		terms = append(terms, w)
		if i+1 < len(filtered) {
			terms = append(terms, w+" "+filtered[i+1])
		}
	}
	return terms
}

// stopwords is a compact English stopword list; enough to keep filler
// words from dominating short book descriptions.
var stopwords = wordSet(
	"a", "an", "and", "are", "as", "at", "be", "but", "by", "for", "from",
	"had", "has", "have", "he", "her", "his", "in", "is", "it", "its",
	"of", "on", "or", "she", "that", "the", "their", "they", "this", "to",
	"was", "were", "which", "who", "will", "with",
)

func clamp01(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}

// prefix returns up to n leading elements.
func prefix(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// overlapsFold reports whether any element of a appears in b,
// case-insensitively.
func overlapsFold(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(b))
	for _, s := range b {
		set[strings.ToLower(s)] = struct{}{}
	}
	for _, s := range a {
		if _, ok := set[strings.ToLower(s)]; ok {
			return true
		}
	}
	return false
}

// intersectFold returns elements of a that appear in b,
// case-insensitively, preserving a's order and casing.
func intersectFold(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(b))
	for _, s := range b {
		set[strings.ToLower(s)] = struct{}{}
	}
	var common []string
	for _, s := range a {
		if _, ok := set[strings.ToLower(s)]; ok {
			common = append(common, s)
		}
	}
	return common
}
