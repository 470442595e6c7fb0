package search

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litscout/scholar-search-service/internal/domain"
	"github.com/litscout/scholar-search-service/internal/events"
	"github.com/litscout/scholar-search-service/internal/observability"
)

// metricsSeq keeps prometheus namespaces unique across tests; promauto
// panics on duplicate registration.
var metricsSeq atomic.Int64

func testMetrics() *observability.Metrics {
	return observability.NewMetrics(fmt.Sprintf("test_search_%d", metricsSeq.Add(1)))
}

type fakeStore struct {
	cachedFn func(hash string, ttl time.Duration) (*domain.CacheEntry, error)
	saveFn   func(entry *domain.CacheEntry) error
	saved    []*domain.CacheEntry
}

func (f *fakeStore) Cached(_ context.Context, hash string, ttl time.Duration) (*domain.CacheEntry, error) {
	if f.cachedFn != nil {
		return f.cachedFn(hash, ttl)
	}
	return nil, domain.ErrCacheMiss
}

func (f *fakeStore) SaveScrape(_ context.Context, entry *domain.CacheEntry) error {
	f.saved = append(f.saved, entry)
	if f.saveFn != nil {
		return f.saveFn(entry)
	}
	return nil
}

type fakeScraper struct {
	result   *domain.ScrapeResult
	err      error
	calls    int
	gotQuery domain.SearchQuery
}

func (f *fakeScraper) Scrape(_ context.Context, query domain.SearchQuery) (*domain.ScrapeResult, error) {
	f.calls++
	f.gotQuery = query
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeEnricher struct {
	calls int
}

func (f *fakeEnricher) Enrich(_ context.Context, papers []domain.Paper) {
	f.calls++
	for i := range papers {
		if papers[i].Abstract == "" {
			papers[i].Abstract = "enriched"
		}
	}
}

type fakeEmitter struct {
	events []events.ScrapeCompleted
	err    error
}

func (f *fakeEmitter) EmitScrapeCompleted(_ context.Context, event events.ScrapeCompleted) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEmitter) Close() error { return nil }

func scrapedPapers(n int) []domain.Paper {
	papers := make([]domain.Paper, n)
	for i := range papers {
		papers[i] = domain.Paper{
			ID:    fmt.Sprintf("paper-%d", i),
			Title: fmt.Sprintf("Paper %d", i),
			URL:   fmt.Sprintf("https://papers.example/%d", i),
		}
	}
	return papers
}

func newTestService(store *fakeStore, scraper *fakeScraper, enricher Enricher, emitter events.Emitter) *Service {
	return NewService(Config{CacheTTL: time.Hour}, store, scraper, enricher, emitter, testMetrics(), zerolog.Nop())
}

func TestService_Search_CacheHit(t *testing.T) {
	cached := &domain.CacheEntry{
		QueryHash: domain.SearchQuery{Text: "transformers", MaxResults: 20}.CacheKey(),
		Results:   scrapedPapers(3),
	}
	store := &fakeStore{cachedFn: func(hash string, ttl time.Duration) (*domain.CacheEntry, error) {
		assert.Equal(t, cached.QueryHash, hash)
		assert.Equal(t, time.Hour, ttl)
		return cached, nil
	}}
	scraper := &fakeScraper{}
	emitter := &fakeEmitter{}
	svc := newTestService(store, scraper, nil, emitter)

	result, err := svc.Search(context.Background(), domain.SearchQuery{Text: "transformers", MaxResults: 20}, false)
	require.NoError(t, err)

	assert.True(t, result.FromCache)
	assert.Len(t, result.Papers, 3)
	assert.Zero(t, scraper.calls, "a cache hit must not open a browser")
	assert.Empty(t, store.saved)
	assert.Empty(t, emitter.events, "cache hits are not scrape runs")
}

func TestService_Search_CacheMissScrapes(t *testing.T) {
	store := &fakeStore{}
	scraper := &fakeScraper{result: &domain.ScrapeResult{Papers: scrapedPapers(5), Pages: 2}}
	emitter := &fakeEmitter{}
	svc := newTestService(store, scraper, nil, emitter)

	query := domain.SearchQuery{Text: "Graph Neural Networks", MaxResults: 20}
	result, err := svc.Search(context.Background(), query, false)
	require.NoError(t, err)

	assert.False(t, result.FromCache)
	assert.False(t, result.StoreFailed)
	assert.Len(t, result.Papers, 5)
	assert.Equal(t, 1, scraper.calls)
	assert.Equal(t, 20, scraper.gotQuery.MaxResults)

	require.Len(t, store.saved, 1)
	entry := store.saved[0]
	assert.Equal(t, query.CacheKey(), entry.QueryHash)
	assert.Equal(t, "Graph Neural Networks", entry.Query)
	assert.Equal(t, 20, entry.MaxResults)
	assert.Len(t, entry.Results, 5)
	assert.False(t, entry.CreatedAt.IsZero())

	require.Len(t, emitter.events, 1)
	event := emitter.events[0]
	assert.Equal(t, query.CacheKey(), event.QueryHash)
	assert.Equal(t, 5, event.PapersCollected)
	assert.Equal(t, 2, event.PagesVisited)
	assert.False(t, event.Aborted)
}

func TestService_Search_DefaultsQuota(t *testing.T) {
	var gotHash string
	store := &fakeStore{cachedFn: func(hash string, _ time.Duration) (*domain.CacheEntry, error) {
		gotHash = hash
		return nil, domain.ErrCacheMiss
	}}
	scraper := &fakeScraper{result: &domain.ScrapeResult{}}
	svc := newTestService(store, scraper, nil, &fakeEmitter{})

	_, err := svc.Search(context.Background(), domain.SearchQuery{Text: "quantum error correction"}, false)
	require.NoError(t, err)

	assert.Equal(t, 50, scraper.gotQuery.MaxResults)
	want := domain.SearchQuery{Text: "quantum error correction", MaxResults: 50}.CacheKey()
	assert.Equal(t, want, gotHash, "the cache key is computed with the defaulted quota")
}

func TestService_Search_RejectsEmptyQuery(t *testing.T) {
	store := &fakeStore{}
	scraper := &fakeScraper{}
	svc := newTestService(store, scraper, nil, &fakeEmitter{})

	for _, text := range []string{"", "   ", "\t\n"} {
		_, err := svc.Search(context.Background(), domain.SearchQuery{Text: text}, false)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
	assert.Zero(t, scraper.calls)
}

func TestService_Search_ScrapeFailurePropagates(t *testing.T) {
	store := &fakeStore{}
	scraper := &fakeScraper{err: errors.New("acquire session: chrome exited")}
	emitter := &fakeEmitter{}
	svc := newTestService(store, scraper, nil, emitter)

	result, err := svc.Search(context.Background(), domain.SearchQuery{Text: "transformers"}, false)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "scrape:")
	assert.Empty(t, store.saved)
	assert.Empty(t, emitter.events)
}

func TestService_Search_StoreFailureStillReturnsPapers(t *testing.T) {
	store := &fakeStore{saveFn: func(*domain.CacheEntry) error {
		return domain.NewStoreError("save", errors.New("connection refused"))
	}}
	scraper := &fakeScraper{result: &domain.ScrapeResult{Papers: scrapedPapers(4), Pages: 1}}
	emitter := &fakeEmitter{}
	svc := newTestService(store, scraper, nil, emitter)

	result, err := svc.Search(context.Background(), domain.SearchQuery{Text: "diffusion models"}, false)
	require.NoError(t, err, "caching is a side effect, not a precondition of returning data")

	assert.True(t, result.StoreFailed)
	assert.Len(t, result.Papers, 4)
	assert.Len(t, emitter.events, 1, "the scrape still happened and is still reported")
}

func TestService_Search_CacheReadFailureFallsBackToScrape(t *testing.T) {
	store := &fakeStore{cachedFn: func(string, time.Duration) (*domain.CacheEntry, error) {
		return nil, errors.New("connection refused")
	}}
	scraper := &fakeScraper{result: &domain.ScrapeResult{Papers: scrapedPapers(2), Pages: 1}}
	svc := newTestService(store, scraper, nil, &fakeEmitter{})

	result, err := svc.Search(context.Background(), domain.SearchQuery{Text: "transformers"}, false)
	require.NoError(t, err)
	assert.Len(t, result.Papers, 2)
	assert.Equal(t, 1, scraper.calls)
}

func TestService_Search_AbortedScrapePersistsPartial(t *testing.T) {
	store := &fakeStore{}
	scraper := &fakeScraper{result: &domain.ScrapeResult{
		Papers:  scrapedPapers(10),
		Pages:   1,
		Aborted: true,
		Reason:  domain.AbortChallenge,
	}}
	emitter := &fakeEmitter{}
	svc := newTestService(store, scraper, nil, emitter)

	result, err := svc.Search(context.Background(), domain.SearchQuery{Text: "transformers", MaxResults: 40}, false)
	require.NoError(t, err)

	assert.True(t, result.Aborted)
	assert.Equal(t, domain.AbortChallenge, result.Reason)
	assert.Len(t, result.Papers, 10)

	require.Len(t, store.saved, 1, "partial results are still cached")
	require.Len(t, emitter.events, 1)
	assert.True(t, emitter.events[0].Aborted)
	assert.Equal(t, "challenge_detected", emitter.events[0].AbortReason)
}

func TestService_Search_EnrichmentOnlyWhenRequested(t *testing.T) {
	t.Run("enriches when asked", func(t *testing.T) {
		enricher := &fakeEnricher{}
		scraper := &fakeScraper{result: &domain.ScrapeResult{Papers: scrapedPapers(2)}}
		svc := newTestService(&fakeStore{}, scraper, enricher, &fakeEmitter{})

		result, err := svc.Search(context.Background(), domain.SearchQuery{Text: "transformers"}, true)
		require.NoError(t, err)
		assert.Equal(t, 1, enricher.calls)
		assert.Equal(t, "enriched", result.Papers[0].Abstract)
	})

	t.Run("skips the enricher otherwise", func(t *testing.T) {
		enricher := &fakeEnricher{}
		scraper := &fakeScraper{result: &domain.ScrapeResult{Papers: scrapedPapers(2)}}
		svc := newTestService(&fakeStore{}, scraper, enricher, &fakeEmitter{})

		result, err := svc.Search(context.Background(), domain.SearchQuery{Text: "transformers"}, false)
		require.NoError(t, err)
		assert.Zero(t, enricher.calls)
		assert.Empty(t, result.Papers[0].Abstract)
	})

	t.Run("tolerates a nil enricher", func(t *testing.T) {
		scraper := &fakeScraper{result: &domain.ScrapeResult{Papers: scrapedPapers(1)}}
		svc := newTestService(&fakeStore{}, scraper, nil, &fakeEmitter{})

		_, err := svc.Search(context.Background(), domain.SearchQuery{Text: "transformers"}, true)
		require.NoError(t, err)
	})
}

func TestService_Search_EmitFailureDoesNotFailSearch(t *testing.T) {
	scraper := &fakeScraper{result: &domain.ScrapeResult{Papers: scrapedPapers(1)}}
	svc := newTestService(&fakeStore{}, scraper, nil, &fakeEmitter{err: errors.New("broker down")})

	result, err := svc.Search(context.Background(), domain.SearchQuery{Text: "transformers"}, false)
	require.NoError(t, err)
	assert.Len(t, result.Papers, 1)
}

func TestService_Search_RepeatWithinTTLServedFromCache(t *testing.T) {
	store := &fakeStore{}
	store.cachedFn = func(hash string, _ time.Duration) (*domain.CacheEntry, error) {
		for _, entry := range store.saved {
			if entry.QueryHash == hash {
				return entry, nil
			}
		}
		return nil, domain.ErrCacheMiss
	}
	scraper := &fakeScraper{result: &domain.ScrapeResult{Papers: scrapedPapers(3), Pages: 1}}
	svc := newTestService(store, scraper, nil, &fakeEmitter{})

	query := domain.SearchQuery{Text: "transformers", MaxResults: 10}

	first, err := svc.Search(context.Background(), query, false)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := svc.Search(context.Background(), query, false)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, 1, scraper.calls, "the repeat call must not scrape again")
	assert.Equal(t, first.Papers, second.Papers)
}
