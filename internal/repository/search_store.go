package repository

import (
	"context"
	"time"

	"github.com/litscout/scholar-search-service/internal/domain"
)

// SearchStore bundles the read and write paths of the search flow.
// Reads go straight to the pool; writes wrap the paper upsert and the cache
// refresh in one transaction, so a crash cannot leave a cache entry pointing
// at papers that were never stored.
type SearchStore interface {
	// Cached returns the fresh cache entry for the query hash.
	// Returns domain.ErrCacheMiss when no fresh entry exists.
	Cached(ctx context.Context, queryHash string, ttl time.Duration) (*domain.CacheEntry, error)

	// SaveScrape upserts the entry's papers and stores the entry itself
	// atomically. An entry with no papers is still cached: a query that
	// legitimately found nothing should not trigger a fresh scrape on
	// every repeat call.
	SaveScrape(ctx context.Context, entry *domain.CacheEntry) error
}
