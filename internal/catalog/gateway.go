// Libraria - Book Discovery and Hybrid Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libraria

package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/libraria/internal/cache"
	"github.com/tomtom215/libraria/internal/config"
	"github.com/tomtom215/libraria/internal/logging"
	"github.com/tomtom215/libraria/internal/metrics"
)

// Gateway fronts all configured providers with per-provider rate
// limiting, bounded exponential retry, and circuit breaking. Providers
// are tried in configured priority order; the first useful answer wins.
//
// DETERMINISM NOTE: The circuit breaker uses real time (via
// sony/gobreaker) for its interval and timeout calculations. Tests
// should exercise failover through fake providers rather than by
// waiting out breaker state transitions.
type Gateway struct {
	providers []*guardedProvider
	cfg       *config.CatalogConfig

	// results is the search and detail result cache; nil when
	// cfg.CacheTTL is zero.
	results *cache.Cache
}

// guardedProvider is one provider plus its protective machinery.
type guardedProvider struct {
	provider Provider
	breaker  *gobreaker.CircuitBreaker[interface{}]
	limiter  *rate.Limiter
}

// NewGateway wires the configured providers into a gateway. Provider
// order in cfg.Providers is failover priority order.
func NewGateway(cfg *config.CatalogConfig) (*Gateway, error) {
	providers := make([]*guardedProvider, 0, len(cfg.Providers))

	for _, name := range cfg.Providers {
		var p Provider
		switch name {
		case "openlibrary":
			p = NewOpenLibraryProvider(cfg.OpenLibraryURL, cfg.RequestTimeout)
		case "googlebooks":
			p = NewGoogleBooksProvider(cfg.GoogleBooksURL, cfg.RequestTimeout)
		default:
			return nil, fmt.Errorf("unknown catalog provider %q", name)
		}
		providers = append(providers, newGuardedProvider(p, cfg))
	}

	logging.Info().
		Strs("providers", cfg.Providers).
		Int("max_attempts", cfg.MaxAttempts).
		Msg("Catalog gateway initialized")

	return &Gateway{providers: providers, cfg: cfg, results: newResultCache(cfg)}, nil
}

// NewGatewayWithProviders builds a gateway over pre-constructed
// providers, preserving their order as failover priority. Used by tests.
func NewGatewayWithProviders(cfg *config.CatalogConfig, providers ...Provider) *Gateway {
	guarded := make([]*guardedProvider, 0, len(providers))
	for _, p := range providers {
		guarded = append(guarded, newGuardedProvider(p, cfg))
	}
	return &Gateway{providers: guarded, cfg: cfg, results: newResultCache(cfg)}
}

// searchCacheParams is the cache key input for Search calls.
type searchCacheParams struct {
	Query   string
	Filters Filters
	Limit   int
}

func newResultCache(cfg *config.CatalogConfig) *cache.Cache {
	if cfg.CacheTTL <= 0 {
		return nil
	}
	return cache.New(cfg.CacheTTL)
}

func newGuardedProvider(p Provider, cfg *config.CatalogConfig) *guardedProvider {
	name := p.Name()
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		// Opens when failure rate >= 60% with minimum 10 requests.
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6

			if shouldTrip {
				logging.Warn().
					Str("provider", name).
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening circuit")
			}

			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("provider", name).
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &guardedProvider{
		provider: p,
		breaker:  cb,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), 1),
	}
}

// Search queries providers in priority order and returns the first
// non-empty result set, de-duplicated and capped at limit. A provider
// that errors or returns nothing triggers failover to the next one.
// Returns ErrUnavailable when every provider fails.
func (g *Gateway) Search(ctx context.Context, query string, filters Filters, limit int) ([]Book, error) {
	if limit <= 0 || limit > g.cfg.MaxResults {
		limit = g.cfg.MaxResults
	}

	cacheKey := cache.GenerateKey("search", searchCacheParams{
		Query:   query,
		Filters: filters,
		Limit:   limit,
	})
	if g.results != nil {
		if cached, ok := g.results.Get(cacheKey); ok {
			metrics.CacheLookups.WithLabelValues("search", "hit").Inc()
			return cached.([]Book), nil
		}
		metrics.CacheLookups.WithLabelValues("search", "miss").Inc()
	}

	var lastErr error

	for i, gp := range g.providers {
		result, err := g.call(ctx, gp, func(ctx context.Context) (interface{}, error) {
			return gp.provider.Search(ctx, query, filters, limit)
		})
		if err != nil {
			lastErr = err
			g.recordFailover(i, err)
			continue
		}

		books := result.([]Book)
		if len(books) == 0 {
			logging.Debug().
				Str("provider", gp.provider.Name()).
				Str("query", query).
				Msg("Provider returned no results, trying next")
			continue
		}

		deduped := dedupeBooks(books, limit)
		if g.results != nil {
			g.results.Set(cacheKey, deduped)
		}
		return deduped, nil
	}

	// Every provider answered but none had matches.
	if lastErr == nil {
		return []Book{}, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// Details fetches a full book record, failing over across providers.
// A provider reporting ErrNotFound is not a failure; the next provider
// may still know the ID.
func (g *Gateway) Details(ctx context.Context, bookID string) (*Book, error) {
	cacheKey := cache.GenerateKey("details", bookID)
	if g.results != nil {
		if cached, ok := g.results.Get(cacheKey); ok {
			metrics.CacheLookups.WithLabelValues("details", "hit").Inc()
			return cached.(*Book), nil
		}
		metrics.CacheLookups.WithLabelValues("details", "miss").Inc()
	}

	var lastErr error

	for i, gp := range g.providers {
		result, err := g.call(ctx, gp, func(ctx context.Context) (interface{}, error) {
			return gp.provider.Details(ctx, bookID)
		})
		if err != nil {
			lastErr = err
			if !errors.Is(err, ErrNotFound) {
				g.recordFailover(i, err)
			}
			continue
		}

		book := result.(*Book)
		if g.results != nil {
			g.results.Set(cacheKey, book)
		}
		return book, nil
	}

	if errors.Is(lastErr, ErrNotFound) {
		return nil, ErrNotFound
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// call runs fn against one provider through its rate limiter, circuit
// breaker, and retry policy, in that order. Retries happen inside the
// breaker so one exhausted retry budget counts as one breaker failure.
func (g *Gateway) call(ctx context.Context, gp *guardedProvider, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	name := gp.provider.Name()

	if err := gp.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	result, err := gp.breaker.Execute(func() (interface{}, error) {
		return g.retry(ctx, name, fn)
	})

	switch {
	case err == nil:
		metrics.ProviderRequests.WithLabelValues(name, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.ProviderRequests.WithLabelValues(name, "rejected").Inc()
		logging.Warn().Err(err).Str("provider", name).Msg("[CIRCUIT BREAKER] Request rejected")
	default:
		metrics.ProviderRequests.WithLabelValues(name, "failure").Inc()
	}

	return result, err
}

// retry runs fn with bounded exponential backoff. ErrNotFound and
// context cancellation are permanent; everything else is retried up to
// the configured attempt budget.
func (g *Gateway) retry(ctx context.Context, name string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	var result interface{}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = g.cfg.BackoffInitial
	policy.MaxInterval = g.cfg.BackoffMax
	policy.MaxElapsedTime = 0 // bounded by attempt count, not wall time

	attempt := 0
	operation := func() error {
		attempt++
		var err error
		result, err = fn(ctx)
		if err == nil {
			return nil
		}

		if errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return backoff.Permanent(err)
		}

		logging.Debug().
			Err(err).
			Str("provider", name).
			Int("attempt", attempt).
			Msg("Provider call failed, will retry")
		return err
	}

	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(policy, uint64(g.cfg.MaxAttempts-1)), ctx))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// recordFailover logs and counts a provider failure that hands the
// request to the next provider in priority order.
func (g *Gateway) recordFailover(failedIdx int, err error) {
	from := g.providers[failedIdx].provider.Name()
	to := "none"
	if failedIdx+1 < len(g.providers) {
		to = g.providers[failedIdx+1].provider.Name()
	}

	metrics.ProviderFailovers.WithLabelValues(from, to).Inc()
	logging.Warn().
		Err(err).
		Str("from", from).
		Str("to", to).
		Msg("Catalog provider failed, failing over")
}

// dedupeBooks drops duplicate works (same title and primary author,
// case-insensitive) keeping first occurrence, and caps the result.
func dedupeBooks(books []Book, limit int) []Book {
	seen := make(map[string]struct{}, len(books))
	out := make([]Book, 0, len(books))

	for i := range books {
		key := books[i].dedupeKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, books[i])
		if len(out) >= limit {
			break
		}
	}
	return out
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
