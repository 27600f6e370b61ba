// Libraria - Book Discovery and Hybrid Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libraria

// Package recommend implements the hybrid book recommendation engine:
// TF-IDF content similarity and collaborative signal combined with
// consensus boosting, then contextual re-weighting and a diversity
// pass over the final ranking.
package recommend

import (
	"errors"

	"github.com/tomtom215/libraria/internal/catalog"
)

// Algorithm tags attached to recommendations.
const (
	AlgorithmContent       = "content"
	AlgorithmCollaborative = "collaborative"
	AlgorithmPopularity    = "popularity"
	AlgorithmTrending      = "trending"
	AlgorithmMood          = "mood"
)

// ErrTimedOut indicates the caller-supplied deadline expired before a
// ranking was produced. Partial results are discarded.
var ErrTimedOut = errors.New("recommendation request timed out")

// Recommendation is one ranked result. Produced fresh per request,
// never persisted.
type Recommendation struct {
	Book       catalog.Book `json:"book"`
	Score      float64      `json:"score"`
	Algorithms []string     `json:"algorithms"`
	Reasons    []string     `json:"reasons"`
}

// Context carries the caller-supplied contextual options. Empty or
// unrecognized values are ignored, never errors.
type Context struct {
	// Mood is one of: happy, sad, adventurous, thoughtful, relaxed.
	Mood string `json:"mood,omitempty"`

	// TimeOfDay is one of: day, night.
	TimeOfDay string `json:"time_of_day,omitempty"`

	// ReadingGoal is one of: quick_read, deep_dive.
	ReadingGoal string `json:"reading_goal,omitempty"`

	// Trending is one of: recent, this_year, classic. Non-matching
	// candidates are removed rather than re-weighted.
	Trending string `json:"trending,omitempty"`
}

// IsZero reports whether no context option is set.
func (c Context) IsZero() bool {
	return c.Mood == "" && c.TimeOfDay == "" && c.ReadingGoal == "" && c.Trending == ""
}

// Request describes one recommendation request. Exactly one of
// TargetBookID and UserID drives candidate selection; when both are
// set the target book wins and the profile only contributes
// preference boosts and collaborative signal.
type Request struct {
	TargetBookID string
	UserID       string
	Context      Context
	TopN         int
}

// scored is a scorer output for one candidate.
type scored struct {
	value     float64
	reasons   []string
	algorithm string
}

// scoreSet maps candidate book IDs to scorer outputs.
type scoreSet map[string]scored
