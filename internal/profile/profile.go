// Libraria - Book Discovery and Hybrid Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libraria

// Package profile stores user reading histories and the preference
// fields derived from them. Derived fields are caches recomputed from
// the history list on every load and save; they are never trusted from
// caller input and never drift from the history.
package profile

import (
	"sort"
	"time"
)

// Reading statuses.
const (
	StatusRead       = "read"
	StatusReading    = "reading"
	StatusWantToRead = "want_to_read"
)

// Derivation constants.
const (
	// favoriteRatingThreshold is the minimum rating for an entry to
	// contribute to favorite authors/genres.
	favoriteRatingThreshold = 4.0

	// maxFavorites caps the derived favorite author/genre lists.
	maxFavorites = 10
)

// ReadingHistoryEntry is one book in a user's reading history. Entries
// are append-only; corrections are new entries or explicit removal.
type ReadingHistoryEntry struct {
	BookID    string    `json:"book_id"`
	Title     string    `json:"title"`
	Authors   []string  `json:"authors,omitempty"`
	Rating    *float64  `json:"rating,omitempty"` // 0-5, nil if unrated
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Review    string    `json:"review,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
}

// UserProfile is a user's reading history plus derived preferences.
type UserProfile struct {
	UserID  string                `json:"user_id"`
	Name    string                `json:"name,omitempty"`
	History []ReadingHistoryEntry `json:"reading_history"`

	// Derived fields, recomputed by Derive.
	FavoriteAuthors []string `json:"favorite_authors,omitempty"`
	FavoriteGenres  []string `json:"favorite_genres,omitempty"`
	AverageRating   float64  `json:"average_rating,omitempty"`

	Preferences map[string]string `json:"preferences,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// NewProfile returns an empty profile for a user.
func NewProfile(userID string) *UserProfile {
	return &UserProfile{
		UserID:    userID,
		History:   []ReadingHistoryEntry{},
		CreatedAt: time.Now().UTC(),
	}
}

// Derive recomputes all derived fields from the history list. It is a
// pure function of History: favorite authors and genres are the top
// ten by frequency among entries rated >= 4, ordered by count
// descending then name ascending for determinism.
func (p *UserProfile) Derive() {
	authorCounts := make(map[string]int)
	genreCounts := make(map[string]int)

	var ratingSum float64
	var ratingCount int

	for i := range p.History {
		entry := &p.History[i]

		if entry.Rating != nil {
			ratingSum += *entry.Rating
			ratingCount++
		}

		if entry.Rating == nil || *entry.Rating < favoriteRatingThreshold {
			continue
		}
		for _, author := range entry.Authors {
			authorCounts[author]++
		}
		for _, tag := range entry.Tags {
			genreCounts[tag]++
		}
	}

	p.FavoriteAuthors = topByCount(authorCounts, maxFavorites)
	p.FavoriteGenres = topByCount(genreCounts, maxFavorites)

	if ratingCount > 0 {
		p.AverageRating = ratingSum / float64(ratingCount)
	} else {
		p.AverageRating = 0
	}
}

// HasRatings reports whether any history entry carries a rating at or
// above the favorite threshold. Used to detect collaborative cold start.
func (p *UserProfile) HasRatings() bool {
	for i := range p.History {
		if p.History[i].Rating != nil && *p.History[i].Rating >= favoriteRatingThreshold {
			return true
		}
	}
	return false
}

// ReadCount returns the number of entries with status "read".
func (p *UserProfile) ReadCount() int {
	n := 0
	for i := range p.History {
		if p.History[i].Status == StatusRead {
			n++
		}
	}
	return n
}

// topByCount returns up to max keys ordered by count descending, name
// ascending.
func topByCount(counts map[string]int, max int) []string {
	if len(counts) == 0 {
		return nil
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	if len(keys) > max {
		keys = keys[:max]
	}
	return keys
}
