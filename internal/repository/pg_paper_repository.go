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
var _ PaperRepository = (*PgPaperRepository)(nil)

// PgPaperRepository is a PostgreSQL implementation of PaperRepository.
type PgPaperRepository struct {
	db DBTX
}

// NewPgPaperRepository creates a new PostgreSQL paper repository.
func NewPgPaperRepository(db DBTX) *PgPaperRepository {
	return &PgPaperRepository{db: db}
}

// upsertPaperQuery replaces every column with the latest scrape except
// abstract, where an empty incoming value keeps the stored one. Abstracts
// come from a separate best-effort resolution pass, so most scrapes carry
// none and must not erase earlier work.
const upsertPaperQuery = `
	INSERT INTO papers (
		id, title, authors, year, snippet, url, pdf_url,
		citations, abstract, metadata, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11
	)
	ON CONFLICT (id) DO UPDATE SET
		title = EXCLUDED.title,
		authors = EXCLUDED.authors,
		year = EXCLUDED.year,
		snippet = EXCLUDED.snippet,
		url = EXCLUDED.url,
		pdf_url = EXCLUDED.pdf_url,
		citations = EXCLUDED.citations,
		abstract = CASE WHEN EXCLUDED.abstract <> '' THEN EXCLUDED.abstract ELSE papers.abstract END,
		metadata = EXCLUDED.metadata,
		updated_at = NOW()`

// paperMetadata is the extraction-extras blob stored in the metadata column.
type paperMetadata struct {
	ScrapedAt time.Time `json:"scraped_at"`
}

// Upsert inserts the paper or replaces the existing row with the same id.
func (r *PgPaperRepository) Upsert(ctx context.Context, paper *domain.Paper) error {
	if paper == nil {
		return domain.NewValidationError("paper", "paper cannot be nil")
	}
	if paper.ID == "" {
		return domain.NewValidationError("id", "paper id is required")
	}

	metadataJSON, err := json.Marshal(paperMetadata{ScrapedAt: paper.ScrapedAt})
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if _, err := r.db.Exec(ctx, upsertPaperQuery,
		paper.ID,
		paper.Title,
		paper.Authors,
		paper.Year,
		paper.Snippet,
		paper.URL,
		paper.PDFURL,
		paper.Citations,
		paper.Abstract,
		metadataJSON,
		time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to upsert paper: %w", err)
	}

	return nil
}

// UpsertBatch upserts all papers in a single network roundtrip using
// pgx.Batch, dramatically reducing latency compared to individual queries.
func (r *PgPaperRepository) UpsertBatch(ctx context.Context, papers []domain.Paper) error {
	if len(papers) == 0 {
		return nil
	}

	for i := range papers {
		if papers[i].ID == "" {
			return domain.NewValidationError("id", fmt.Sprintf("paper at index %d has no id", i))
		}
	}

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for i := range papers {
		paper := &papers[i]
		metadataJSON, err := json.Marshal(paperMetadata{ScrapedAt: paper.ScrapedAt})
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		batch.Queue(upsertPaperQuery,
			paper.ID,
			paper.Title,
			paper.Authors,
			paper.Year,
			paper.Snippet,
			paper.URL,
			paper.PDFURL,
			paper.Citations,
			paper.Abstract,
			metadataJSON,
			now,
		)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	for i := range papers {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to upsert paper at index %d: %w", i, err)
		}
	}

	return nil
}

// GetByID retrieves a paper by its id.
func (r *PgPaperRepository) GetByID(ctx context.Context, id string) (*domain.Paper, error) {
	if id == "" {
		return nil, domain.NewValidationError("id", "paper id is required")
	}

	query := `
		SELECT id, title, authors, year, snippet, url, pdf_url,
			citations, abstract, metadata
		FROM papers
		WHERE id = $1`

	paper, err := scanPaper(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrPaperNotFound, id)
		}
		return nil, fmt.Errorf("failed to get paper by id: %w", err)
	}

	return paper, nil
}

// paperScanDest holds the destination pointers for scanning a Paper row.
type paperScanDest struct {
	paper        domain.Paper
	metadataJSON []byte
}

// destinations returns the slice of pointers for Scan operations.
func (d *paperScanDest) destinations() []interface{} {
	return []interface{}{
		&d.paper.ID, &d.paper.Title, &d.paper.Authors, &d.paper.Year,
		&d.paper.Snippet, &d.paper.URL, &d.paper.PDFURL,
		&d.paper.Citations, &d.paper.Abstract, &d.metadataJSON,
	}
}

// finalize performs post-scan processing: unmarshals the metadata blob.
func (d *paperScanDest) finalize() (*domain.Paper, error) {
	if len(d.metadataJSON) > 0 {
		var meta paperMetadata
		if err := json.Unmarshal(d.metadataJSON, &meta); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
		d.paper.ScrapedAt = meta.ScrapedAt
	}
	return &d.paper, nil
}

// scanPaper scans a single row into a Paper.
func scanPaper(row pgx.Row) (*domain.Paper, error) {
	var dest paperScanDest
	if err := row.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}
