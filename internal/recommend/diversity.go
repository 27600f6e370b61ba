// Libraria - Book Discovery and Hybrid Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libraria

package recommend

import "strings"

// subjectDiversityDepth is how many leading subject tags count toward
// the seen-subjects set.
const subjectDiversityDepth = 3

// enforceDiversity reorders a ranked list so repeated authors and
// subjects do not crowd the top of the result.
//
// First pass walks the list in score order and accepts a candidate
// only if it introduces an unseen author or an unseen subject;
// everything else is deferred. Remaining slots are then filled from
// the deferred pool in original order. The output is a permutation of
// a prefix-selection of the input with exactly topN items (fewer if
// the input is shorter) and no duplicates.
func enforceDiversity(results []Recommendation, topN int) []Recommendation {
	if topN <= 0 {
		return []Recommendation{}
	}
	if len(results) <= topN {
		return results
	}

	out := make([]Recommendation, 0, topN)
	deferred := make([]Recommendation, 0, len(results))
	seenAuthors := make(map[string]struct{})
	seenSubjects := make(map[string]struct{})

	for _, rec := range results {
		if len(out) >= topN {
			break
		}

		newAuthor := introducesNew(rec.Book.Authors, seenAuthors)
		newSubject := introducesNew(prefix(rec.Book.Subjects, subjectDiversityDepth), seenSubjects)

		if !newAuthor && !newSubject {
			deferred = append(deferred, rec)
			continue
		}

		out = append(out, rec)
		markSeen(rec.Book.Authors, seenAuthors)
		markSeen(prefix(rec.Book.Subjects, subjectDiversityDepth), seenSubjects)
	}

	for _, rec := range deferred {
		if len(out) >= topN {
			break
		}
		out = append(out, rec)
	}
	return out
}

// introducesNew reports whether any value is absent from the seen set.
// An empty list introduces nothing.
func introducesNew(values []string, seen map[string]struct{}) bool {
	for _, v := range values {
		if _, ok := seen[strings.ToLower(v)]; !ok {
			return true
		}
	}
	return false
}

func markSeen(values []string, seen map[string]struct{}) {
	for _, v := range values {
		seen[strings.ToLower(v)] = struct{}{}
	}
}
