package repository

import (
	"context"

	"github.com/litscout/scholar-search-service/internal/domain"
)

// StatsRepository is the read model behind the stats endpoint. It cuts
// across the other aggregates on purpose: stats are a reporting surface,
// not part of any one aggregate's lifecycle.
type StatsRepository interface {
	// Collect gathers store-wide counters: table totals, the count of
	// searches in the recent window, the most repeated queries, and paper
	// counts for the most recent publication years.
	Collect(ctx context.Context) (*domain.AppStats, error)
}
