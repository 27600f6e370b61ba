// Libraria - Book Discovery and Hybrid Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libraria

package recommend

import "strings"

// Lexicons for description polarity scoring. Deliberately small; the
// signal only nudges mood matching, it is not a classifier.
var positiveWords = wordSet(
	"excellent", "amazing", "wonderful", "brilliant", "outstanding", "fantastic",
	"great", "good", "best", "love", "beautiful", "perfect", "incredible",
	"masterpiece", "compelling", "engaging", "captivating", "thrilling",
	"inspiring", "powerful", "moving", "delightful", "entertaining",
)

var negativeWords = wordSet(
	"bad", "terrible", "awful", "horrible", "poor", "worst", "disappointing",
	"boring", "dull", "weak", "confusing", "tedious", "mediocre", "bland",
	"predictable", "slow", "frustrating",
)

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Sentiment scores text polarity in [-1, 1]: the balance of positive
// versus negative lexicon hits. Text with no lexicon hits scores 0.
func Sentiment(text string) float64 {
	if text == "" {
		return 0
	}

	var positive, negative int
	for _, word := range tokenizeWords(text) {
		if _, ok := positiveWords[word]; ok {
			positive++
		}
		if _, ok := negativeWords[word]; ok {
			negative++
		}
	}

	total := positive + negative
	if total == 0 {
		return 0
	}
	return float64(positive-negative) / float64(total)
}

// SentimentLabel maps a polarity score to a display label.
func SentimentLabel(score float64) string {
	switch {
	case score > 0.3:
		return "Positive"
	case score < -0.3:
		return "Negative"
	default:
		return "Neutral"
	}
}

// tokenizeWords splits text into lowercase alphanumeric words.
func tokenizeWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}
