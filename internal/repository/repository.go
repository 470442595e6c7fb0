// Package repository provides data access interfaces and implementations
// for the Scholar Search Service.
//
// # Overview
//
// This package defines repository interfaces and their PostgreSQL implementations
// following the repository pattern to abstract data persistence from business logic.
//
// # Repository Interfaces
//
// The package provides the following repository interfaces:
//
//   - SearchCacheRepository: Manages the query result cache with lazy TTL expiry
//   - PaperRepository: Manages scraped paper persistence and cross-run deduplication
//   - TopicRepository: Records topic generation runs
//   - PDFRepository: Records stored PDF artifacts
//   - StatsRepository: Read model aggregating store-wide counters
//
// # Thread Safety
//
// All repository implementations are safe for concurrent use by multiple goroutines.
// The underlying pgxpool handles connection pooling and synchronization.
//
// # Error Handling
//
// All methods return domain-specific errors from the domain package.
// Wrap database errors with context using fmt.Errorf with %w verb.
// Common errors include:
//
//   - domain.ErrCacheMiss: No fresh cache entry for a query hash
//   - domain.ErrPaperNotFound: Paper id does not exist
//   - domain.ErrInvalidInput: Invalid parameters provided
//
// # Transactions
//
// Use the DBTX interface to support both pool and transaction contexts.
// Pass a transaction from database.DB.WithTransaction for atomic operations,
// e.g. the search write-through which upserts papers and refreshes the cache
// entry as one unit.
//
// # Usage Pattern
//
// Repositories are typically created at application startup and passed to services:
//
//	db, _ := database.New(ctx, cfg, logger)
//	cacheRepo := repository.NewPgSearchCacheRepository(db)
//	paperRepo := repository.NewPgPaperRepository(db)
package repository

import (
	"github.com/litscout/scholar-search-service/internal/database"
)

// DBTX is the database interface supporting both pool and transaction contexts.
// This allows repositories to work with both direct pool connections and transactions.
//
// Repository implementations follow a constructor pattern that accepts DBTX:
//
//	type PgPaperRepository struct {
//	    db DBTX
//	}
//
//	func NewPgPaperRepository(db DBTX) *PgPaperRepository {
//	    return &PgPaperRepository{db: db}
//	}
//
// This design enables:
//   - Direct usage with a connection pool for standard operations
//   - Transaction support by passing a transaction (pgx.Tx) instead
//   - Easy testing with mock implementations of DBTX
type DBTX = database.DBTX
