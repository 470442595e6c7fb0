package repository

import (
	"context"

	"github.com/litscout/scholar-search-service/internal/domain"
)

// TopicRepository records topic generation runs. Records are append-only;
// the stats read model counts them.
type TopicRepository interface {
	// Save persists one generation run and fills in the record's
	// database-assigned ID and CreatedAt.
	// Returns domain.ErrInvalidInput if the record is nil or carries no topics.
	Save(ctx context.Context, record *domain.TopicRecord) error
}
