package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litscout/scholar-search-service/internal/domain"
)

// mockTxRunner satisfies TxRunner by starting transactions on a pgxmock
// pool, so tx-bound repository calls hit the same expectation queue.
type mockTxRunner struct {
	mock pgxmock.PgxPoolIface
}

func (r mockTxRunner) WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.mock.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func newSearchStoreCacheEntry() *domain.CacheEntry {
	return &domain.CacheEntry{
		QueryHash:  "d0a3c561d6d1a62f9f7e8c5b4f3a2e1d0c9b8a7f6e5d4c3b2a190817263f4e5d",
		Query:      "transformer architectures",
		MaxResults: 20,
		Results: []domain.Paper{
			*newTestScrapedPaper(),
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestPgSearchStore_Cached(t *testing.T) {
	ctx := context.Background()

	t.Run("returns fresh entry", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		entry := newSearchStoreCacheEntry()
		resultsJSON, err := json.Marshal(entry.Results)
		require.NoError(t, err)

		mock.ExpectQuery("SELECT query_hash, query, max_results, results, created_at").
			WithArgs(entry.QueryHash, pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows(
				[]string{"query_hash", "query", "max_results", "results", "created_at"},
			).AddRow(entry.QueryHash, entry.Query, entry.MaxResults, resultsJSON, entry.CreatedAt))

		store := NewPgSearchStore(mock, mockTxRunner{mock})
		got, err := store.Cached(ctx, entry.QueryHash, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, entry.Query, got.Query)
		require.Len(t, got.Results, 1)
		assert.Equal(t, entry.Results[0].ID, got.Results[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("propagates cache miss", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery("SELECT query_hash, query, max_results, results, created_at").
			WithArgs("missing", pgxmock.AnyArg()).
			WillReturnError(pgx.ErrNoRows)

		store := NewPgSearchStore(mock, mockTxRunner{mock})
		_, err = store.Cached(ctx, "missing", time.Hour)
		assert.ErrorIs(t, err, domain.ErrCacheMiss)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgSearchStore_SaveScrape(t *testing.T) {
	ctx := context.Background()

	t.Run("upserts papers and cache entry in one transaction", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		entry := newSearchStoreCacheEntry()
		paper := entry.Results[0]

		mock.ExpectBegin()
		batch := mock.ExpectBatch()
		batch.ExpectExec("INSERT INTO papers").
			WithArgs(
				paper.ID, paper.Title, paper.Authors, paper.Year,
				paper.Snippet, paper.URL, paper.PDFURL,
				paper.Citations, paper.Abstract, pgxmock.AnyArg(), pgxmock.AnyArg(),
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec("INSERT INTO search_cache").
			WithArgs(entry.QueryHash, entry.Query, entry.MaxResults, pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		store := NewPgSearchStore(mock, mockTxRunner{mock})
		require.NoError(t, store.SaveScrape(ctx, entry))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("caches an empty result set", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		entry := newSearchStoreCacheEntry()
		entry.Results = nil

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO search_cache").
			WithArgs(entry.QueryHash, entry.Query, entry.MaxResults, pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		store := NewPgSearchStore(mock, mockTxRunner{mock})
		require.NoError(t, store.SaveScrape(ctx, entry))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when the paper upsert fails", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		entry := newSearchStoreCacheEntry()
		paper := entry.Results[0]

		mock.ExpectBegin()
		batch := mock.ExpectBatch()
		batch.ExpectExec("INSERT INTO papers").
			WithArgs(
				paper.ID, paper.Title, paper.Authors, paper.Year,
				paper.Snippet, paper.URL, paper.PDFURL,
				paper.Citations, paper.Abstract, pgxmock.AnyArg(), pgxmock.AnyArg(),
			).
			WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		store := NewPgSearchStore(mock, mockTxRunner{mock})
		err = store.SaveScrape(ctx, entry)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
		assert.Contains(t, err.Error(), entry.QueryHash)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects entries without a query hash", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := NewPgSearchStore(mock, mockTxRunner{mock})

		assert.ErrorIs(t, store.SaveScrape(ctx, nil), domain.ErrInvalidInput)
		assert.ErrorIs(t, store.SaveScrape(ctx, &domain.CacheEntry{Query: "no hash"}), domain.ErrInvalidInput)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
