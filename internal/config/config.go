// Libraria - Book Discovery and Hybrid Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libraria

// Package config provides layered configuration for Libraria.
//
// Configuration is loaded in three layers with increasing precedence:
// built-in defaults, an optional YAML config file, and environment
// variables. The recommendation weights are validated at startup; an
// invalid weight configuration is a fatal error, never a per-request one.
package config

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidWeights indicates the hybrid combiner weights do not sum to 1.0.
var ErrInvalidWeights = errors.New("recommend weights must sum to 1.0")

// weightEpsilon tolerates float rounding when validating weight sums.
const weightEpsilon = 1e-9

// Config is the root configuration for the Libraria server.
type Config struct {
	Server    ServerConfig    `koanf:"server" validate:"required"`
	Logging   LoggingConfig   `koanf:"logging"`
	Catalog   CatalogConfig   `koanf:"catalog" validate:"required"`
	Profiles  ProfilesConfig  `koanf:"profiles" validate:"required"`
	Recommend RecommendConfig `koanf:"recommend" validate:"required"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gt=0,lte=65535"`
	RequestTimeout  time.Duration `koanf:"request_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"gt=0"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn error fatal disabled"`
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// CatalogConfig contains the multi-provider catalog gateway settings.
type CatalogConfig struct {
	// Providers lists provider names in failover priority order.
	// Recognized names: openlibrary, googlebooks.
	Providers []string `koanf:"providers" validate:"min=1,dive,oneof=openlibrary googlebooks"`

	// MaxResults caps the limit parameter of search calls.
	MaxResults int `koanf:"max_results" validate:"gt=0,lte=100"`

	// RequestTimeout bounds a single provider HTTP attempt.
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"gt=0"`

	// MaxAttempts is the retry budget per provider, including the first try.
	MaxAttempts int `koanf:"max_attempts" validate:"gte=1,lte=10"`

	// BackoffInitial is the first retry delay; doubles per attempt.
	BackoffInitial time.Duration `koanf:"backoff_initial" validate:"gt=0"`

	// BackoffMax caps the retry delay.
	BackoffMax time.Duration `koanf:"backoff_max" validate:"gt=0"`

	// RateLimitPerSecond throttles outbound calls per provider.
	RateLimitPerSecond float64 `koanf:"rate_limit_per_second" validate:"gt=0"`

	// CacheTTL is how long search and detail results are served from
	// the in-memory cache. Zero disables caching.
	CacheTTL time.Duration `koanf:"cache_ttl" validate:"gte=0"`

	// OpenLibraryURL and GoogleBooksURL override provider endpoints,
	// primarily for tests.
	OpenLibraryURL string `koanf:"openlibrary_url"`
	GoogleBooksURL string `koanf:"googlebooks_url"`
}

// ProfilesConfig contains the profile store settings.
type ProfilesConfig struct {
	// Path is the badger database directory.
	Path string `koanf:"path" validate:"required"`

	// InMemory runs badger without disk persistence (tests only).
	InMemory bool `koanf:"in_memory"`

	// GCInterval is how often the badger value log GC runs.
	GCInterval time.Duration `koanf:"gc_interval" validate:"gt=0"`
}

// RecommendConfig contains the hybrid recommendation engine settings.
// The boost constants and the similarity floor are tunable defaults, not
// load-bearing invariants.
type RecommendConfig struct {
	// ContentWeight and CollaborativeWeight must sum to 1.0.
	ContentWeight       float64 `koanf:"content_weight" validate:"gte=0,lte=1"`
	CollaborativeWeight float64 `koanf:"collaborative_weight" validate:"gte=0,lte=1"`

	// SimilarityFloor excludes content matches below this cosine score
	// and gates the consensus boost.
	SimilarityFloor float64 `koanf:"similarity_floor" validate:"gte=0,lt=1"`

	// ConsensusBoost multiplies scores both strategies agree on.
	ConsensusBoost float64 `koanf:"consensus_boost" validate:"gte=1"`

	// AuthorBoost and GenreBoost multiply content scores matching the
	// user's favorite authors/genres.
	AuthorBoost float64 `koanf:"author_boost" validate:"gte=1"`
	GenreBoost  float64 `koanf:"genre_boost" validate:"gte=1"`

	// VocabularySize caps the TF-IDF vocabulary.
	VocabularySize int `koanf:"vocabulary_size" validate:"gt=0"`

	// MaxCandidates bounds the candidate set per request.
	MaxCandidates int `koanf:"max_candidates" validate:"gt=0,lte=200"`

	// DefaultTopN and MaxTopN bound result list sizes.
	DefaultTopN int `koanf:"default_top_n" validate:"gt=0"`
	MaxTopN     int `koanf:"max_top_n" validate:"gtefield=DefaultTopN"`

	// ScoreTimeout bounds a single scorer run.
	ScoreTimeout time.Duration `koanf:"score_timeout" validate:"gt=0"`

	// MoodSubjects maps moods to the subject tags they boost.
	// Overridable per deployment; defaults cover the closed mood set.
	MoodSubjects map[string][]string `koanf:"mood_subjects"`

	// PageThreshold splits quick reads from deep dives.
	PageThreshold int `koanf:"page_threshold" validate:"gt=0"`
}

// DefaultConfig returns a Config with production defaults applied.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8480,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Catalog: CatalogConfig{
			Providers:          []string{"openlibrary", "googlebooks"},
			MaxResults:         50,
			RequestTimeout:     10 * time.Second,
			MaxAttempts:        3,
			BackoffInitial:     500 * time.Millisecond,
			BackoffMax:         5 * time.Second,
			RateLimitPerSecond: 5,
			CacheTTL:           5 * time.Minute,
		},
		Profiles: ProfilesConfig{
			Path:       "/data/libraria/profiles",
			GCInterval: 10 * time.Minute,
		},
		Recommend: RecommendConfig{
			ContentWeight:       0.6,
			CollaborativeWeight: 0.4,
			SimilarityFloor:     0.1,
			ConsensusBoost:      1.2,
			AuthorBoost:         1.3,
			GenreBoost:          1.2,
			VocabularySize:      5000,
			MaxCandidates:       50,
			DefaultTopN:         10,
			MaxTopN:             50,
			ScoreTimeout:        5 * time.Second,
			MoodSubjects:        DefaultMoodSubjects(),
			PageThreshold:       350,
		},
	}
}

// DefaultMoodSubjects returns the built-in mood to subject-tag table.
func DefaultMoodSubjects() map[string][]string {
	return map[string][]string{
		"happy":       {"comedy", "romance", "humor", "feel-good"},
		"sad":         {"drama", "literary fiction", "poetry"},
		"adventurous": {"adventure", "action", "thriller", "fantasy"},
		"thoughtful":  {"philosophy", "non-fiction", "science", "history"},
		"relaxed":     {"mystery", "cozy", "light fiction", "travel"},
	}
}

// Validate checks the configuration for errors. Weight validation is
// performed here so that a bad weight split fails startup, not requests.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	sum := c.Recommend.ContentWeight + c.Recommend.CollaborativeWeight
	if math.Abs(sum-1.0) > weightEpsilon {
		return fmt.Errorf("%w: content=%g collaborative=%g sum=%g",
			ErrInvalidWeights, c.Recommend.ContentWeight, c.Recommend.CollaborativeWeight, sum)
	}

	if c.Catalog.BackoffMax < c.Catalog.BackoffInitial {
		return fmt.Errorf("catalog.backoff_max %v must be >= catalog.backoff_initial %v",
			c.Catalog.BackoffMax, c.Catalog.BackoffInitial)
	}

	return nil
}
