// Libraria - Book Discovery and Hybrid Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libraria

package catalog

import (
	"context"
	"errors"
)

// Common catalog errors.
var (
	// ErrUnavailable indicates every configured provider was exhausted.
	ErrUnavailable = errors.New("catalog unavailable: all providers exhausted")

	// ErrNotFound indicates a book ID is unknown to a provider.
	ErrNotFound = errors.New("book not found")
)

// Filters is the closed set of recognized search filter options.
type Filters struct {
	// MinYear and MaxYear bound the first publication year (0 = unset).
	MinYear int `json:"min_year,omitempty"`
	MaxYear int `json:"max_year,omitempty"`

	// MinRating is the minimum community rating on a 0-5 scale (0 = unset).
	MinRating float64 `json:"min_rating,omitempty"`
}

// Provider translates one external book-metadata API into the Book shape.
// Implementations are plain HTTP translators; retry, rate limiting, and
// circuit breaking are owned by the Gateway.
type Provider interface {
	// Name returns the provider identifier (e.g., "openlibrary").
	Name() string

	// Search returns up to limit books matching the query and filters.
	Search(ctx context.Context, query string, filters Filters, limit int) ([]Book, error)

	// Details returns the full record for a book ID.
	// Returns ErrNotFound if the ID is unknown.
	Details(ctx context.Context, bookID string) (*Book, error)
}

// matchesFilters reports whether a book passes the given filters.
// Used to enforce filters client-side for providers whose API cannot
// express them.
func matchesFilters(b *Book, f Filters) bool {
	if f.MinYear > 0 && (b.Year == 0 || b.Year < f.MinYear) {
		return false
	}
	if f.MaxYear > 0 && (b.Year == 0 || b.Year > f.MaxYear) {
		return false
	}
	if f.MinRating > 0 && (b.Rating == nil || *b.Rating < f.MinRating) {
		return false
	}
	return true
}
