package repository

import (
	"context"

	"github.com/litscout/scholar-search-service/internal/domain"
)

// PDFRepository records stored PDF artifacts, both uploads and fetches.
type PDFRepository interface {
	// Save persists one artifact record. A missing ID is assigned; a zero
	// CreatedAt is stamped.
	// Returns domain.ErrInvalidInput if the file is nil or has no filename.
	Save(ctx context.Context, file *domain.PDFFile) error
}
