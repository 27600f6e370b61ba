// Libraria - Book Discovery and Hybrid Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libraria

// Package catalog abstracts multiple external book-metadata providers
// behind a single gateway with retry, circuit breaking, and failover.
package catalog

import "strings"

// Book is the normalized book shape returned by every provider.
// Books are immutable once constructed for a request; two Book values with
// the same ID refer to the same work.
type Book struct {
	// ID is the provider-independent work identifier.
	ID string `json:"id"`

	// Title is the work title.
	Title string `json:"title"`

	// Authors is the ordered list of author names.
	Authors []string `json:"authors"`

	// Year is the first publication year (0 if unknown).
	Year int `json:"year"`

	// EditionCount is the number of known editions (0 if unknown).
	EditionCount int `json:"edition_count"`

	// Subjects is the list of subject/genre tags.
	Subjects []string `json:"subjects,omitempty"`

	// Description is the free-text description.
	Description string `json:"description,omitempty"`

	// Rating is the community rating on a 0-5 scale, if known.
	Rating *float64 `json:"rating,omitempty"`

	// CoverURL references the cover image, if any.
	CoverURL string `json:"cover_url,omitempty"`

	// ISBN is the primary ISBN, if known.
	ISBN string `json:"isbn,omitempty"`

	// Publisher is the primary publisher, if known.
	Publisher string `json:"publisher,omitempty"`

	// Language is the primary language code, if known.
	Language string `json:"language,omitempty"`

	// PageCount is the page count, if known (0 if unknown).
	PageCount int `json:"page_count,omitempty"`

	// SentimentScore is the description polarity in [-1, 1], computed
	// during scoring. Zero until enriched.
	SentimentScore float64 `json:"sentiment_score,omitempty"`
}

// PrimaryAuthor returns the first author, or empty if none.
func (b *Book) PrimaryAuthor() string {
	if len(b.Authors) == 0 {
		return ""
	}
	return b.Authors[0]
}

// PopularityScore derives a [0, 1] popularity signal from edition count
// and community rating: 0.4 * min(editions/100, 1) + 0.6 * rating/5.
func (b *Book) PopularityScore() float64 {
	editionScore := float64(b.EditionCount) / 100.0
	if editionScore > 1.0 {
		editionScore = 1.0
	}

	var ratingScore float64
	if b.Rating != nil {
		ratingScore = *b.Rating / 5.0
	}

	return editionScore*0.4 + ratingScore*0.6
}

// TextRepresentation concatenates title, authors, subjects, and
// description for term-based scoring.
func (b *Book) TextRepresentation() string {
	parts := make([]string, 0, 4)
	if b.Title != "" {
		parts = append(parts, b.Title)
	}
	if len(b.Authors) > 0 {
		parts = append(parts, strings.Join(b.Authors, " "))
	}
	if len(b.Subjects) > 0 {
		parts = append(parts, strings.Join(b.Subjects, " "))
	}
	if b.Description != "" {
		parts = append(parts, b.Description)
	}
	return strings.Join(parts, " ")
}

// dedupeKey identifies a work across providers for merge de-duplication.
func (b *Book) dedupeKey() string {
	return strings.ToLower(strings.TrimSpace(b.Title)) + "|" +
		strings.ToLower(strings.TrimSpace(b.PrimaryAuthor()))
}
