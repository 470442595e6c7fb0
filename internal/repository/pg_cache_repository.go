package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/litscout/scholar-search-service/internal/domain"
)

// Compile-time interface verification.
var _ SearchCacheRepository = (*PgSearchCacheRepository)(nil)

// PgSearchCacheRepository is a PostgreSQL implementation of SearchCacheRepository.
type PgSearchCacheRepository struct {
	db DBTX
}

// NewPgSearchCacheRepository creates a new PostgreSQL search cache repository.
func NewPgSearchCacheRepository(db DBTX) *PgSearchCacheRepository {
	return &PgSearchCacheRepository{db: db}
}

// Get returns the fresh cache entry for the hash, or domain.ErrCacheMiss.
// Freshness is decided at read time: the row must have been created within
// ttl of now. Stale rows are left in place for the janitor.
func (r *PgSearchCacheRepository) Get(ctx context.Context, queryHash string, ttl time.Duration) (*domain.CacheEntry, error) {
	if queryHash == "" {
		return nil, domain.NewValidationError("query_hash", "query hash is required")
	}

	query := `
		SELECT query_hash, query, max_results, results, created_at
		FROM search_cache
		WHERE query_hash = $1 AND created_at > $2`

	cutoff := time.Now().UTC().Add(-ttl)

	var (
		entry       domain.CacheEntry
		resultsJSON []byte
	)
	err := r.db.QueryRow(ctx, query, queryHash, cutoff).Scan(
		&entry.QueryHash,
		&entry.Query,
		&entry.MaxResults,
		&resultsJSON,
		&entry.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}

	if len(resultsJSON) > 0 {
		if err := json.Unmarshal(resultsJSON, &entry.Results); err != nil {
			return nil, fmt.Errorf("failed to unmarshal cached results: %w", err)
		}
	}

	return &entry, nil
}

// Put upserts the entry under its query hash. The whole result set is
// replaced, never merged, and created_at restarts the freshness window.
func (r *PgSearchCacheRepository) Put(ctx context.Context, entry *domain.CacheEntry) error {
	if entry == nil {
		return domain.NewValidationError("entry", "entry cannot be nil")
	}
	if entry.QueryHash == "" {
		return domain.NewValidationError("query_hash", "query hash is required")
	}

	resultsJSON, err := json.Marshal(entry.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO search_cache (query_hash, query, max_results, results, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (query_hash) DO UPDATE SET
			query = EXCLUDED.query,
			max_results = EXCLUDED.max_results,
			results = EXCLUDED.results,
			created_at = EXCLUDED.created_at`

	if _, err := r.db.Exec(ctx, query,
		entry.QueryHash,
		entry.Query,
		entry.MaxResults,
		resultsJSON,
		createdAt,
	); err != nil {
		return fmt.Errorf("failed to put cache entry: %w", err)
	}

	return nil
}

// DeleteOlderThan removes entries whose created_at is more than age ago.
func (r *PgSearchCacheRepository) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	query := `DELETE FROM search_cache WHERE created_at < $1`

	cutoff := time.Now().UTC().Add(-age)
	tag, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale cache entries: %w", err)
	}

	return tag.RowsAffected(), nil
}

// CountOlderThan reports how many entries are older than age without
// removing them.
func (r *PgSearchCacheRepository) CountOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	query := `SELECT COUNT(*) FROM search_cache WHERE created_at < $1`

	cutoff := time.Now().UTC().Add(-age)
	var count int64
	if err := r.db.QueryRow(ctx, query, cutoff).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count stale cache entries: %w", err)
	}

	return count, nil
}
