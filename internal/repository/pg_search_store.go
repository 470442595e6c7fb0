package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/litscout/scholar-search-service/internal/domain"
)

// TxRunner is the transactional slice of *database.DB.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// PgSearchStore implements SearchStore over PostgreSQL. It reads through the
// pool and funnels the scrape write-through into a single transaction built
// from tx-bound repositories.
type PgSearchStore struct {
	cache  *PgSearchCacheRepository
	runner TxRunner
}

var _ SearchStore = (*PgSearchStore)(nil)

// NewPgSearchStore creates a search store. In production both arguments are
// the same *database.DB; tests may split them.
func NewPgSearchStore(db DBTX, runner TxRunner) *PgSearchStore {
	return &PgSearchStore{
		cache:  NewPgSearchCacheRepository(db),
		runner: runner,
	}
}

// Cached implements SearchStore.
func (s *PgSearchStore) Cached(ctx context.Context, queryHash string, ttl time.Duration) (*domain.CacheEntry, error) {
	return s.cache.Get(ctx, queryHash, ttl)
}

// SaveScrape implements SearchStore.
func (s *PgSearchStore) SaveScrape(ctx context.Context, entry *domain.CacheEntry) error {
	if entry == nil || entry.QueryHash == "" {
		return fmt.Errorf("%w: cache entry must have a query hash", domain.ErrInvalidInput)
	}

	err := s.runner.WithTransaction(ctx, func(tx pgx.Tx) error {
		if err := NewPgPaperRepository(tx).UpsertBatch(ctx, entry.Results); err != nil {
			return err
		}
		return NewPgSearchCacheRepository(tx).Put(ctx, entry)
	})
	if err != nil {
		return domain.NewStoreError(fmt.Sprintf("save scrape %s", entry.QueryHash), err)
	}
	return nil
}
