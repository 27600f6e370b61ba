// Libraria - Book Discovery and Hybrid Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libraria

package api

import (
	"net/http"
	"strconv"

	"github.com/tomtom215/libraria/internal/validation"
)

// SearchRequest carries validated query parameters for book search.
type SearchRequest struct {
	Query     string  `validate:"required,min=1,max=200"`
	MinYear   int     `validate:"omitempty,gte=0,lte=3000"`
	MaxYear   int     `validate:"omitempty,gte=0,lte=3000"`
	MinRating float64 `validate:"omitempty,gte=0,lte=5"`
	Limit     int     `validate:"gte=0,lte=100"`
}

// RecommendRequest carries validated query parameters for the main
// recommendation endpoint. Context values (mood, time of day, reading
// goal, trending) are passed through unvalidated: unrecognized values
// are ignored by the engine, never rejected.
type RecommendRequest struct {
	BookID string `validate:"omitempty,max=200"`
	UserID string `validate:"omitempty,max=200"`
	TopN   int    `validate:"gte=0,lte=50"`
}

// TrendingRequest carries validated query parameters for the trending endpoint.
type TrendingRequest struct {
	Query  string `validate:"omitempty,max=200"`
	Window string `validate:"omitempty,oneof=recent this_year classic"`
	TopN   int    `validate:"gte=0,lte=50"`
}

// MoodRequest carries validated query parameters for the mood endpoint.
type MoodRequest struct {
	Query string `validate:"omitempty,max=200"`
	Mood  string `validate:"required,max=50"`
	TopN  int    `validate:"gte=0,lte=50"`
}

// validateRequest validates a request struct, writing a 400 response on
// failure. Returns true if the request is valid.
func validateRequest(rw *ResponseWriter, req interface{}) bool {
	validationErr := validation.ValidateStruct(req)
	if validationErr == nil {
		return true
	}

	apiErr := validationErr.ToAPIError()
	rw.ValidationError(apiErr.Message, apiErr.Details)
	return false
}

// getIntParam extracts an integer query parameter with a default value.
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// getFloatParam extracts a float query parameter with a default value.
func getFloatParam(r *http.Request, key string, defaultValue float64) float64 {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return floatValue
}
