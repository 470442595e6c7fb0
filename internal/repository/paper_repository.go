package repository

import (
	"context"

	"github.com/litscout/scholar-search-service/internal/domain"
)

// PaperRepository handles scraped paper persistence. The paper id is the
// SHA-256 of the normalized title, so the papers table is the deduplication
// boundary across scrapes: re-scraping a known paper replaces its row.
type PaperRepository interface {
	// Upsert inserts the paper or replaces the existing row with the same
	// id. Latest scrape wins for every field except a previously resolved
	// abstract, which an empty incoming abstract does not erase.
	// Returns domain.ErrInvalidInput if the paper is nil or has no id.
	Upsert(ctx context.Context, paper *domain.Paper) error

	// UpsertBatch upserts all papers in one network roundtrip using a
	// batched statement. Semantics per paper match Upsert.
	// A nil or empty slice is a no-op.
	UpsertBatch(ctx context.Context, papers []domain.Paper) error

	// GetByID retrieves a paper by its id.
	// Returns domain.ErrPaperNotFound if no matching paper exists.
	GetByID(ctx context.Context, id string) (*domain.Paper, error)
}
