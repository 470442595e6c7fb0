package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/litscout/scholar-search-service/internal/domain"
)

// Compile-time interface verification.
var _ TopicRepository = (*PgTopicRepository)(nil)

// PgTopicRepository is a PostgreSQL implementation of TopicRepository.
type PgTopicRepository struct {
	db DBTX
}

// NewPgTopicRepository creates a new PostgreSQL topic repository.
func NewPgTopicRepository(db DBTX) *PgTopicRepository {
	return &PgTopicRepository{db: db}
}

// Save persists one topic generation run.
func (r *PgTopicRepository) Save(ctx context.Context, record *domain.TopicRecord) error {
	if record == nil {
		return domain.NewValidationError("record", "record cannot be nil")
	}
	if len(record.Topics.Topics) == 0 {
		return domain.NewValidationError("topics", "at least one topic is required")
	}

	paperIDsJSON, err := json.Marshal(record.PaperIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal paper ids: %w", err)
	}
	topicsJSON, err := json.Marshal(record.Topics)
	if err != nil {
		return fmt.Errorf("failed to marshal topics: %w", err)
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO generated_topics (paper_ids, topics, method, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	if err := r.db.QueryRow(ctx, query,
		paperIDsJSON,
		topicsJSON,
		record.Method,
		record.CreatedAt,
	).Scan(&record.ID); err != nil {
		return fmt.Errorf("failed to save topic record: %w", err)
	}

	return nil
}
