// Package observability provides logging and metrics support for the
// scholar search service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for searches, scrapes, detection, and PDF fetches
//   - Context helpers for propagating request data
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    Output:    "stdout",
//	    AddSource: true,
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("request_id", reqID).Msg("search started")
//
// Add search context to a logger:
//
//	logger = observability.WithSearchContext(logger, queryHash, maxResults)
//
// # Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics("scholar")
//
// Record metrics:
//
//	metrics.RecordSearch("scraped", elapsed.Seconds())
//	metrics.RecordCacheHit()
//	metrics.RecordDetectionEvent("challenge_present")
//
// # Context Helpers
//
// Store and retrieve request context:
//
//	ctx = observability.WithRequestID(ctx, requestID)
//	ctx = observability.WithQueryHash(ctx, queryHash)
//
//	reqID := observability.RequestIDFromContext(ctx)
//	hash := observability.QueryHashFromContext(ctx)
//
// # Standard Fields
//
// Common fields used across the service:
//
//   - request_id: HTTP request correlation identifier
//   - query_hash: Cache key of the search being served
//   - paper_id: Stable paper identifier
//   - page: Result page number during a scrape
//   - event: Detection event kind (challenge_present, rate_limited)
//   - pdf_url: Source URL of a PDF fetch
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
