// Package search orchestrates the cache-first search flow: cache lookup,
// live scrape on miss, transactional write-through, and scrape event
// emission.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/litscout/scholar-search-service/internal/domain"
	"github.com/litscout/scholar-search-service/internal/events"
	"github.com/litscout/scholar-search-service/internal/observability"
	"github.com/litscout/scholar-search-service/internal/repository"
)

const (
	// defaultCacheTTL is how long a cache entry answers repeat queries.
	defaultCacheTTL = 24 * time.Hour

	// defaultMaxResults is applied when a query carries no quota.
	defaultMaxResults = 50
)

// Scraper runs one live pagination run against the scholar index.
type Scraper interface {
	Scrape(ctx context.Context, query domain.SearchQuery) (*domain.ScrapeResult, error)
}

// Enricher fills missing abstracts in place, best-effort.
type Enricher interface {
	Enrich(ctx context.Context, papers []domain.Paper)
}

// Config holds configuration for the search service.
type Config struct {
	// CacheTTL is the freshness window for cached results.
	CacheTTL time.Duration
}

// Service answers search queries cache-first. A hit returns stored papers
// without touching a browser; a miss runs the scraper, persists what it
// collected, and reports the run downstream.
type Service struct {
	store    repository.SearchStore
	scraper  Scraper
	enricher Enricher
	emitter  events.Emitter
	metrics  *observability.Metrics
	logger   zerolog.Logger
	ttl      time.Duration
	now      func() time.Time
}

// NewService creates the search service. A nil enricher disables abstract
// enrichment; a nil emitter falls back to the no-op emitter.
func NewService(
	cfg Config,
	store repository.SearchStore,
	scraper Scraper,
	enricher Enricher,
	emitter events.Emitter,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	return &Service{
		store:    store,
		scraper:  scraper,
		enricher: enricher,
		emitter:  emitter,
		metrics:  metrics,
		logger:   logger.With().Str("component", "search_service").Logger(),
		ttl:      cfg.CacheTTL,
		now:      time.Now,
	}
}

// Search answers the query from cache when a fresh entry exists and scrapes
// otherwise. Scraped results are returned even when persisting them fails;
// the result's StoreFailed flag carries the degradation.
func (s *Service) Search(ctx context.Context, query domain.SearchQuery, includeAbstracts bool) (*domain.SearchResult, error) {
	if query.Normalized() == "" {
		return nil, domain.NewValidationError("query", "query text is required")
	}
	if query.MaxResults <= 0 {
		query.MaxResults = defaultMaxResults
	}

	start := s.now()
	hash := query.CacheKey()
	logger := observability.WithSearchContext(s.logger, hash, query.MaxResults)

	entry, err := s.store.Cached(ctx, hash, s.ttl)
	switch {
	case err == nil:
		s.metrics.RecordCacheHit()
		s.metrics.RecordSearch("cache_hit", s.since(start))
		logger.Info().Int("papers", len(entry.Results)).Msg("search answered from cache")
		return &domain.SearchResult{Papers: entry.Results, FromCache: true}, nil
	case errors.Is(err, domain.ErrCacheMiss):
		s.metrics.RecordCacheMiss()
	default:
		// A broken store must not block the search path. Treat the read
		// failure as a miss; the write-through below reports the store's
		// state on the result.
		s.metrics.RecordCacheMiss()
		logger.Warn().Err(err).Msg("cache read failed, scraping instead")
	}

	scrape, err := s.scraper.Scrape(ctx, query)
	if err != nil {
		s.metrics.RecordSearch("error", s.since(start))
		return nil, fmt.Errorf("scrape: %w", err)
	}

	if includeAbstracts && s.enricher != nil {
		s.enricher.Enrich(ctx, scrape.Papers)
	}

	result := &domain.SearchResult{
		Papers:  scrape.Papers,
		Aborted: scrape.Aborted,
		Reason:  scrape.Reason,
	}

	if err := s.store.SaveScrape(ctx, &domain.CacheEntry{
		QueryHash:  hash,
		Query:      query.Text,
		MaxResults: query.MaxResults,
		Results:    scrape.Papers,
		CreatedAt:  s.now().UTC(),
	}); err != nil {
		result.StoreFailed = true
		logger.Error().Err(err).Msg("write-through failed, returning unpersisted results")
	}

	s.emitScrapeCompleted(ctx, hash, scrape)

	outcome := "scraped"
	if scrape.Aborted {
		outcome = "aborted"
	}
	s.metrics.RecordSearch(outcome, s.since(start))
	logger.Info().
		Int("papers", len(scrape.Papers)).
		Int("pages", scrape.Pages).
		Bool("aborted", scrape.Aborted).
		Msg("search completed from live scrape")
	return result, nil
}

// emitScrapeCompleted publishes the run downstream. Event delivery is
// telemetry; a failed emit never fails the search.
func (s *Service) emitScrapeCompleted(ctx context.Context, hash string, scrape *domain.ScrapeResult) {
	err := s.emitter.EmitScrapeCompleted(ctx, events.ScrapeCompleted{
		QueryHash:       hash,
		PapersCollected: len(scrape.Papers),
		PagesVisited:    scrape.Pages,
		Aborted:         scrape.Aborted,
		AbortReason:     string(scrape.Reason),
		CompletedAt:     s.now().UTC(),
	})
	if err != nil {
		s.metrics.RecordEventFailed()
		s.logger.Warn().Err(err).Str("query_hash", hash).Msg("scrape event emission failed")
		return
	}
	s.metrics.RecordEventPublished(events.EventTypeScrapeCompleted)
}

func (s *Service) since(start time.Time) float64 {
	return s.now().Sub(start).Seconds()
}
