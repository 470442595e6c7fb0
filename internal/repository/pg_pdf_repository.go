package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/litscout/scholar-search-service/internal/domain"
)

// Compile-time interface verification.
var _ PDFRepository = (*PgPDFRepository)(nil)

// PgPDFRepository is a PostgreSQL implementation of PDFRepository.
type PgPDFRepository struct {
	db DBTX
}

// NewPgPDFRepository creates a new PostgreSQL PDF artifact repository.
func NewPgPDFRepository(db DBTX) *PgPDFRepository {
	return &PgPDFRepository{db: db}
}

// Save persists one artifact record.
func (r *PgPDFRepository) Save(ctx context.Context, file *domain.PDFFile) error {
	if file == nil {
		return domain.NewValidationError("file", "file cannot be nil")
	}
	if file.Filename == "" {
		return domain.NewValidationError("filename", "filename is required")
	}

	if file.ID == "" {
		file.ID = uuid.New().String()
	}
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO pdf_files (id, paper_id, filename, filepath, abstract, size_bytes, content_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if _, err := r.db.Exec(ctx, query,
		file.ID,
		file.PaperID,
		file.Filename,
		file.Filepath,
		file.Abstract,
		file.SizeBytes,
		file.ContentHash,
		file.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to save pdf record: %w", err)
	}

	return nil
}
