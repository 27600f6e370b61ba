// Libraria - Book Discovery and Hybrid Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libraria

package recommend

import (
	"strings"
	"time"

	"github.com/tomtom215/libraria/internal/config"
)

// Context adjustment factors. Tunable nudges, not invariants.
const (
	moodBoost      = 1.2
	sentimentBoost = 1.1

	nightShortBoost  = 1.1
	nightLongPenalty = 0.85

	goalMatchBoost    = 1.15
	goalMismatchDrop  = 0.85
	shortReadMaxPages = 300
)

// Trending windows.
const (
	TrendingRecent   = "recent"
	TrendingThisYear = "this_year"
	TrendingClassic  = "classic"

	trendingRecentYears = 2
	classicCutoffYear   = 2000
)

// contextFilter re-weights or filters a ranked list according to the
// caller-supplied context. Each recognized option applies an
// independent multiplicative adjustment; options compose, unrecognized
// values are ignored, and the list is re-sorted afterwards.
type contextFilter struct {
	cfg *config.RecommendConfig
	now func() time.Time
}

func newContextFilter(cfg *config.RecommendConfig) *contextFilter {
	return &contextFilter{cfg: cfg, now: time.Now}
}

// apply returns the context-adjusted ranking. The input slice is not
// modified.
func (f *contextFilter) apply(results []Recommendation, ctx Context) []Recommendation {
	if ctx.IsZero() {
		return results
	}

	out := make([]Recommendation, 0, len(results))
	for _, rec := range results {
		if ctx.Trending != "" && !f.inTrendingWindow(rec.Book.Year, ctx.Trending) {
			continue
		}

		factor := 1.0
		factor *= f.moodFactor(&rec, ctx.Mood)
		factor *= f.timeOfDayFactor(&rec, ctx.TimeOfDay)
		factor *= f.readingGoalFactor(&rec, ctx.ReadingGoal)

		rec.Score = clamp01(rec.Score * factor)
		out = append(out, rec)
	}

	sortRanking(out, nil)
	return out
}

// moodFactor boosts candidates whose subjects match the mood table,
// scaled by how much of the table they cover, with an extra nudge when
// description sentiment aligns with the mood.
func (f *contextFilter) moodFactor(rec *Recommendation, mood string) float64 {
	if mood == "" {
		return 1
	}
	subjects, ok := f.cfg.MoodSubjects[strings.ToLower(mood)]
	if !ok || len(subjects) == 0 {
		return 1
	}

	match := moodMatchFraction(rec.Book.Subjects, subjects)
	if match == 0 {
		return 1
	}

	factor := 1 + (moodBoost-1)*match
	if sentimentAligned(mood, rec.Book.SentimentScore) {
		factor *= sentimentBoost
	}

	rec.Reasons = append(rec.Reasons, "Matches '"+mood+"' mood")
	return factor
}

// moodMatchFraction is the share of mood subjects found as substrings
// of the book's subject tags.
func moodMatchFraction(bookSubjects, moodSubjects []string) float64 {
	if len(bookSubjects) == 0 {
		return 0
	}

	lowered := make([]string, len(bookSubjects))
	for i, s := range bookSubjects {
		lowered[i] = strings.ToLower(s)
	}

	matches := 0
	for _, ms := range moodSubjects {
		ms = strings.ToLower(ms)
		for _, bs := range lowered {
			if strings.Contains(bs, ms) {
				matches++
				break
			}
		}
	}
	return float64(matches) / float64(len(moodSubjects))
}

// sentimentAligned reports whether description polarity reinforces the
// requested mood.
func sentimentAligned(mood string, sentiment float64) bool {
	switch strings.ToLower(mood) {
	case "happy":
		return sentiment > 0
	case "sad":
		return sentiment < 0
	default:
		return false
	}
}

// timeOfDayFactor prefers shorter books at night. Books without a
// known page count are untouched.
func (f *contextFilter) timeOfDayFactor(rec *Recommendation, timeOfDay string) float64 {
	if strings.ToLower(timeOfDay) != "night" || rec.Book.PageCount <= 0 {
		return 1
	}
	if rec.Book.PageCount < shortReadMaxPages {
		return nightShortBoost
	}
	if rec.Book.PageCount > f.cfg.PageThreshold {
		return nightLongPenalty
	}
	return 1
}

// readingGoalFactor applies symmetric length-based boosts: quick_read
// favors books at or under the page threshold, deep_dive favors books
// over it.
func (f *contextFilter) readingGoalFactor(rec *Recommendation, goal string) float64 {
	if rec.Book.PageCount <= 0 {
		return 1
	}

	long := rec.Book.PageCount > f.cfg.PageThreshold
	switch strings.ToLower(goal) {
	case "quick_read":
		if long {
			return goalMismatchDrop
		}
		return goalMatchBoost
	case "deep_dive":
		if long {
			return goalMatchBoost
		}
		return goalMismatchDrop
	default:
		return 1
	}
}

// inTrendingWindow reports whether a publication year falls inside the
// requested trending window. Unknown years never match.
func (f *contextFilter) inTrendingWindow(year int, window string) bool {
	currentYear := f.now().Year()
	switch strings.ToLower(window) {
	case TrendingRecent:
		return year >= currentYear-trendingRecentYears
	case TrendingThisYear:
		return year == currentYear
	case TrendingClassic:
		return year > 0 && year < classicCutoffYear
	default:
		// Unrecognized window: treated as unset.
		return true
	}
}
