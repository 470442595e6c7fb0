package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/litscout/scholar-search-service/internal/domain"
)

// Stats read model windows and limits.
const (
	// recentSearchWindow is the lookback for the recent_searches counter.
	recentSearchWindow = 7 * 24 * time.Hour
	// topQueryLimit caps the top_queries list.
	topQueryLimit = 5
	// yearBucketLimit caps papers_by_year to the most recent years.
	yearBucketLimit = 10
)

// Compile-time interface verification.
var _ StatsRepository = (*PgStatsRepository)(nil)

// PgStatsRepository is a PostgreSQL implementation of StatsRepository.
type PgStatsRepository struct {
	db DBTX
}

// NewPgStatsRepository creates a new PostgreSQL stats repository.
func NewPgStatsRepository(db DBTX) *PgStatsRepository {
	return &PgStatsRepository{db: db}
}

// Collect gathers store-wide counters in three roundtrips: one combined
// counts query and one query per ranked list.
func (r *PgStatsRepository) Collect(ctx context.Context) (*domain.AppStats, error) {
	stats := &domain.AppStats{
		TopQueries:   []domain.QueryCount{},
		PapersByYear: []domain.YearCount{},
	}

	countsQuery := `
		SELECT
			(SELECT COUNT(*) FROM search_cache),
			(SELECT COUNT(*) FROM papers),
			(SELECT COUNT(*) FROM generated_topics),
			(SELECT COUNT(*) FROM pdf_files),
			(SELECT COUNT(*) FROM search_cache WHERE created_at > $1)`

	recentCutoff := time.Now().UTC().Add(-recentSearchWindow)
	if err := r.db.QueryRow(ctx, countsQuery, recentCutoff).Scan(
		&stats.TotalSearches,
		&stats.TotalPapers,
		&stats.TotalTopicsGenerated,
		&stats.TotalPDFsProcessed,
		&stats.RecentSearches,
	); err != nil {
		return nil, fmt.Errorf("failed to collect store counts: %w", err)
	}

	topQueriesQuery := `
		SELECT query, COUNT(*) AS count
		FROM search_cache
		GROUP BY query
		ORDER BY count DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, topQueriesQuery, topQueryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to collect top queries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var qc domain.QueryCount
		if err := rows.Scan(&qc.Query, &qc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan top query: %w", err)
		}
		stats.TopQueries = append(stats.TopQueries, qc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating top queries: %w", err)
	}

	byYearQuery := `
		SELECT year, COUNT(*) AS count
		FROM papers
		WHERE year IS NOT NULL
		GROUP BY year
		ORDER BY year DESC
		LIMIT $1`

	yearRows, err := r.db.Query(ctx, byYearQuery, yearBucketLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to collect papers by year: %w", err)
	}
	defer yearRows.Close()
	for yearRows.Next() {
		var yc domain.YearCount
		if err := yearRows.Scan(&yc.Year, &yc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan year bucket: %w", err)
		}
		stats.PapersByYear = append(stats.PapersByYear, yc)
	}
	if err := yearRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating year buckets: %w", err)
	}

	return stats, nil
}
