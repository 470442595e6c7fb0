package repository

import (
	"context"
	"time"

	"github.com/litscout/scholar-search-service/internal/domain"
)

// SearchCacheRepository manages the persisted query result cache.
// Entries are keyed by the query hash (SHA-256 of the normalized query text
// joined with the result quota) and expire lazily: nothing sweeps them except
// DeleteOlderThan, reads simply ignore stale rows.
type SearchCacheRepository interface {
	// Get returns the cache entry for the hash if one exists and its
	// created_at is within ttl of now.
	// Returns domain.ErrCacheMiss when no fresh entry exists.
	Get(ctx context.Context, queryHash string, ttl time.Duration) (*domain.CacheEntry, error)

	// Put stores the entry, overwriting any previous entry under the same
	// hash. Last write wins; the entry's freshness window restarts.
	// Returns domain.ErrInvalidInput if the entry is nil or has no hash.
	Put(ctx context.Context, entry *domain.CacheEntry) error

	// DeleteOlderThan removes entries created more than age ago and
	// returns how many rows were removed. This is the maintenance sweep
	// exposed by the janitor binary.
	DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error)

	// CountOlderThan reports how many entries DeleteOlderThan would remove
	// without touching them. The janitor's dry-run mode uses it.
	CountOlderThan(ctx context.Context, age time.Duration) (int64, error)
}
