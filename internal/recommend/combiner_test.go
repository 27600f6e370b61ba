// Libraria - Book Discovery and Hybrid Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libraria

package recommend

import (
	"errors"
	"strings"
	"testing"

	"github.com/tomtom215/libraria/internal/catalog"
)

func TestCombineWeightedSum(t *testing.T) {
	candidates := []catalog.Book{
		book("a", "Alpha", nil, nil, ""),
		book("b", "Beta", nil, nil, ""),
	}
	content := scoreSet{
		"a": {value: 0.8, algorithm: AlgorithmContent},
		"b": {value: 0.05, algorithm: AlgorithmContent},
	}
	collab := scoreSet{
		"a": {value: 0.05, algorithm: AlgorithmCollaborative},
		"b": {value: 0.9, algorithm: AlgorithmCollaborative},
	}

	ranked := combine(candidates, content, nil, collab, nil, testRecommendConfig())
	if len(ranked) != 2 {
		t.Fatalf("got %d results, want 2", len(ranked))
	}

	// a: 0.6*0.8 + 0.4*0.05 = 0.50 (no consensus, collab below floor)
	// b: 0.6*0.05 + 0.4*0.9 = 0.39 (no consensus, content below floor)
	if ranked[0].Book.ID != "a" {
		t.Errorf("top result = %s, want a", ranked[0].Book.ID)
	}
	if diff := ranked[0].Score - 0.50; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("score for a = %v, want 0.50", ranked[0].Score)
	}
	if diff := ranked[1].Score - 0.39; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("score for b = %v, want 0.39", ranked[1].Score)
	}
}

func TestCombineConsensusBoostClamped(t *testing.T) {
	candidates := []catalog.Book{
		book("agree", "Agree", nil, nil, ""),
		book("high", "High", nil, nil, ""),
	}
	content := scoreSet{
		"agree": {value: 0.5, algorithm: AlgorithmContent},
		"high":  {value: 1.0, algorithm: AlgorithmContent},
	}
	collab := scoreSet{
		"agree": {value: 0.5, algorithm: AlgorithmCollaborative},
		"high":  {value: 1.0, algorithm: AlgorithmCollaborative},
	}

	ranked := combine(candidates, content, nil, collab, nil, testRecommendConfig())

	byID := map[string]Recommendation{}
	for _, r := range ranked {
		byID[r.Book.ID] = r
	}

	// agree: (0.6*0.5 + 0.4*0.5) * 1.2 = 0.6
	if diff := byID["agree"].Score - 0.6; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("consensus score = %v, want 0.6", byID["agree"].Score)
	}
	// high: 1.0 * 1.2 clamps to 1.0
	if byID["high"].Score != 1.0 {
		t.Errorf("clamped score = %v, want exactly 1.0", byID["high"].Score)
	}
	for _, r := range ranked {
		if r.Score > 1.0 {
			t.Errorf("score %v exceeds 1.0 after consensus boost", r.Score)
		}
	}
	if !strings.Contains(strings.Join(byID["agree"].Reasons, ";"), "multiple methods") {
		t.Error("consensus result missing multi-method reason")
	}
}

func TestCombineDeterministicOrdering(t *testing.T) {
	candidates := []catalog.Book{
		book("z", "Zeta", nil, nil, ""),
		book("a", "Alpha", nil, nil, ""),
		book("m", "Mu", nil, nil, ""),
	}
	// All tie on combined score and content score: title breaks the tie.
	content := scoreSet{
		"z": {value: 0.5, algorithm: AlgorithmContent},
		"a": {value: 0.5, algorithm: AlgorithmContent},
		"m": {value: 0.5, algorithm: AlgorithmContent},
	}
	collab := scoreSet{
		"z": {value: 0.5, algorithm: AlgorithmCollaborative},
		"a": {value: 0.5, algorithm: AlgorithmCollaborative},
		"m": {value: 0.5, algorithm: AlgorithmCollaborative},
	}

	cfg := testRecommendConfig()
	first := combine(candidates, content, nil, collab, nil, cfg)
	second := combine(candidates, content, nil, collab, nil, cfg)

	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("got %d and %d results, want 3 each", len(first), len(second))
	}
	for i := range first {
		if first[i].Book.ID != second[i].Book.ID {
			t.Fatalf("ordering differs between runs at %d: %s vs %s",
				i, first[i].Book.ID, second[i].Book.ID)
		}
	}
	wantOrder := []string{"a", "m", "z"}
	for i, want := range wantOrder {
		if first[i].Book.ID != want {
			t.Errorf("position %d = %s, want %s (title tie-break)", i, first[i].Book.ID, want)
		}
	}
}

func TestSortRankingContentTieBreakBeforeTitle(t *testing.T) {
	results := []Recommendation{
		{Book: book("low", "Aardvark", nil, nil, ""), Score: 0.5},
		{Book: book("high", "Zebra", nil, nil, ""), Score: 0.5},
	}
	contentRaw := map[string]float64{"low": 0.2, "high": 0.7}

	sortRanking(results, contentRaw)

	if results[0].Book.ID != "high" {
		t.Errorf("tie broken by %s, want higher raw content score first", results[0].Book.ID)
	}
}

func TestCombineSingleStrategyOnScorerFailure(t *testing.T) {
	candidates := []catalog.Book{book("a", "Alpha", nil, nil, "")}
	content := scoreSet{"a": {value: 0.7, reasons: []string{"Content similarity: 70%"}, algorithm: AlgorithmContent}}

	tests := []struct {
		name       string
		content    scoreSet
		contentErr error
		collab     scoreSet
		collabErr  error
		wantAlgo   string
		wantNote   string
	}{
		{
			name:      "collaborative error",
			content:   content,
			collabErr: errors.New("store down"),
			wantAlgo:  AlgorithmContent,
			wantNote:  "collaborative scoring unavailable",
		},
		{
			name:     "collaborative empty",
			content:  content,
			collab:   scoreSet{},
			wantAlgo: AlgorithmContent,
			wantNote: "collaborative scoring unavailable",
		},
		{
			name:       "content error",
			contentErr: errors.New("boom"),
			collab:     scoreSet{"a": {value: 0.4, algorithm: AlgorithmCollaborative}},
			wantAlgo:   AlgorithmCollaborative,
			wantNote:   "content scoring unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranked := combine(candidates, tt.content, tt.contentErr, tt.collab, tt.collabErr, testRecommendConfig())
			if len(ranked) != 1 {
				t.Fatalf("got %d results, want 1", len(ranked))
			}

			r := ranked[0]
			if len(r.Algorithms) != 1 || r.Algorithms[0] != tt.wantAlgo {
				t.Errorf("algorithms = %v, want [%s]", r.Algorithms, tt.wantAlgo)
			}
			if !strings.Contains(strings.ToLower(strings.Join(r.Reasons, ";")), tt.wantNote) {
				t.Errorf("reasons %v missing degradation note %q", r.Reasons, tt.wantNote)
			}
		})
	}
}

func TestCombineBothScorersDownReturnsEmpty(t *testing.T) {
	candidates := []catalog.Book{book("a", "Alpha", nil, nil, "")}

	ranked := combine(candidates, nil, errors.New("x"), nil, errors.New("y"), testRecommendConfig())
	if len(ranked) != 0 {
		t.Errorf("got %d results, want empty list", len(ranked))
	}
}
