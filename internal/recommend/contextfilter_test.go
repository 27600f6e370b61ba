// Libraria - Book Discovery and Hybrid Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libraria

package recommend

import (
	"testing"
	"time"
)

func fixedFilter() *contextFilter {
	f := newContextFilter(testRecommendConfig())
	f.now = func() time.Time {
		return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	}
	return f
}

func rec(id, title string, score float64, subjects []string, pageCount, year int) Recommendation {
	b := book(id, title, nil, subjects, "")
	b.PageCount = pageCount
	b.Year = year
	return Recommendation{Book: b, Score: score}
}

func TestContextFilterMoodBoost(t *testing.T) {
	// Equal base scores; mood=adventurous must rank the adventure tag higher.
	results := []Recommendation{
		rec("r", "Romance Book", 0.5, []string{"romance"}, 0, 0),
		rec("a", "Adventure Book", 0.5, []string{"adventure"}, 0, 0),
	}

	out := fixedFilter().apply(results, Context{Mood: "adventurous"})

	if len(out) != 2 {
		t.Fatalf("got %d results, want 2 (mood re-weights, never removes)", len(out))
	}
	if out[0].Book.ID != "a" {
		t.Errorf("top result = %s, want adventure-tagged book", out[0].Book.ID)
	}
	if out[0].Score <= out[1].Score {
		t.Errorf("adventure score %v not above romance score %v", out[0].Score, out[1].Score)
	}
}

func TestContextFilterUnrecognizedValuesIgnored(t *testing.T) {
	results := []Recommendation{
		rec("a", "Alpha", 0.6, []string{"adventure"}, 200, 2020),
		rec("b", "Beta", 0.4, []string{"romance"}, 500, 1990),
	}

	out := fixedFilter().apply(results, Context{
		Mood:        "grumpy",  // not in the mood table
		TimeOfDay:   "dusk",    // not day/night
		ReadingGoal: "skim",    // not a known goal
		Trending:    "",        // unset
	})

	if len(out) != 2 {
		t.Fatalf("got %d results, want 2", len(out))
	}
	for i, want := range []float64{0.6, 0.4} {
		if out[i].Score != want {
			t.Errorf("score[%d] = %v, want unchanged %v", i, out[i].Score, want)
		}
	}
}

func TestContextFilterNightPrefersShortBooks(t *testing.T) {
	results := []Recommendation{
		rec("long", "Long Book", 0.5, nil, 800, 0),
		rec("short", "Short Book", 0.5, nil, 200, 0),
		rec("unknown", "No Pages", 0.5, nil, 0, 0),
	}

	out := fixedFilter().apply(results, Context{TimeOfDay: "night"})

	byID := map[string]float64{}
	for _, r := range out {
		byID[r.Book.ID] = r.Score
	}

	if byID["short"] <= byID["unknown"] {
		t.Errorf("short book %v not boosted above unknown %v", byID["short"], byID["unknown"])
	}
	if byID["long"] >= byID["unknown"] {
		t.Errorf("long book %v not penalized below unknown %v", byID["long"], byID["unknown"])
	}
}

func TestContextFilterReadingGoalSymmetry(t *testing.T) {
	results := []Recommendation{
		rec("long", "Long Book", 0.5, nil, 600, 0),
		rec("short", "Short Book", 0.5, nil, 200, 0),
	}

	quick := fixedFilter().apply(results, Context{ReadingGoal: "quick_read"})
	if quick[0].Book.ID != "short" {
		t.Errorf("quick_read top = %s, want short", quick[0].Book.ID)
	}

	deep := fixedFilter().apply(results, Context{ReadingGoal: "deep_dive"})
	if deep[0].Book.ID != "long" {
		t.Errorf("deep_dive top = %s, want long", deep[0].Book.ID)
	}
}

func TestContextFilterTrendingRemovesNonMatching(t *testing.T) {
	results := []Recommendation{
		rec("new", "New", 0.3, nil, 0, 2026),
		rec("recentish", "Recentish", 0.4, nil, 0, 2024),
		rec("old", "Old", 0.9, nil, 0, 1995),
		rec("noyear", "No Year", 0.8, nil, 0, 0),
	}

	tests := []struct {
		window  string
		wantIDs map[string]bool
	}{
		{window: TrendingRecent, wantIDs: map[string]bool{"new": true, "recentish": true}},
		{window: TrendingThisYear, wantIDs: map[string]bool{"new": true}},
		{window: TrendingClassic, wantIDs: map[string]bool{"old": true}},
	}

	for _, tt := range tests {
		t.Run(tt.window, func(t *testing.T) {
			out := fixedFilter().apply(results, Context{Trending: tt.window})
			if len(out) != len(tt.wantIDs) {
				t.Fatalf("got %d results, want %d", len(out), len(tt.wantIDs))
			}
			for _, r := range out {
				if !tt.wantIDs[r.Book.ID] {
					t.Errorf("unexpected book %s in %s window", r.Book.ID, tt.window)
				}
			}
		})
	}
}

func TestContextFilterScoreStaysClamped(t *testing.T) {
	results := []Recommendation{
		rec("a", "Alpha", 0.99, []string{"adventure", "action", "thriller", "fantasy"}, 200, 0),
	}

	out := fixedFilter().apply(results, Context{Mood: "adventurous", ReadingGoal: "quick_read"})
	if out[0].Score > 1.0 {
		t.Errorf("score %v exceeds 1.0 after composed boosts", out[0].Score)
	}
}

func TestContextFilterEmptyContextIsNoop(t *testing.T) {
	results := []Recommendation{
		rec("a", "Alpha", 0.6, nil, 0, 0),
		rec("b", "Beta", 0.4, nil, 0, 0),
	}

	out := fixedFilter().apply(results, Context{})
	if len(out) != 2 || out[0].Book.ID != "a" || out[0].Score != 0.6 {
		t.Errorf("empty context altered the ranking: %+v", out)
	}
}
