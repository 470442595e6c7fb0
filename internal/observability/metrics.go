package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the scholar search service.
// Metrics are organized by subsystem: searches, cache, scraping, detection,
// PDF fetching, topics, and the HTTP surface. All counters and histograms are
// registered via promauto for automatic registration with the default
// Prometheus registry.
type Metrics struct {
	// SearchesTotal counts search requests, labeled by outcome
	// (e.g., "cache_hit", "scraped", "aborted", "failed").
	SearchesTotal *prometheus.CounterVec

	// SearchDuration observes the end-to-end duration of searches in seconds.
	SearchDuration prometheus.Histogram

	// CacheHits counts searches answered entirely from the result cache.
	CacheHits prometheus.Counter

	// CacheMisses counts searches that required a live scrape.
	CacheMisses prometheus.Counter

	// PagesScraped counts result pages fetched and parsed across all scrapes.
	PagesScraped prometheus.Counter

	// PapersExtracted counts papers successfully extracted from result pages.
	PapersExtracted prometheus.Counter

	// ExtractionFailures counts result blocks that could not be parsed,
	// labeled by the field that failed (e.g., "title").
	ExtractionFailures *prometheus.CounterVec

	// PapersPerScrape observes the distribution of papers returned per scrape.
	PapersPerScrape prometheus.Histogram

	// ScrapeDuration observes scrape duration in seconds, including
	// politeness delays between pages.
	ScrapeDuration prometheus.Histogram

	// ScrapesAborted counts scrapes cut short, labeled by abort reason.
	ScrapesAborted *prometheus.CounterVec

	// DetectionEvents counts anti-bot signals observed on fetched pages,
	// labeled by event kind ("challenge", "rate_limited").
	DetectionEvents *prometheus.CounterVec

	// BackoffsApplied counts backoff pauses taken after a detection event.
	BackoffsApplied prometheus.Counter

	// PDFFetchesTotal counts PDF fetch attempts, labeled by outcome.
	PDFFetchesTotal *prometheus.CounterVec

	// PDFFetchBytes counts bytes written to disk by successful PDF fetches.
	PDFFetchBytes prometheus.Counter

	// PDFFetchDuration observes PDF fetch duration in seconds.
	PDFFetchDuration prometheus.Histogram

	// TopicsGenerated counts topic sets generated from paper collections.
	TopicsGenerated prometheus.Counter

	// EventsPublished counts scrape events published to the broker,
	// labeled by event type.
	EventsPublished *prometheus.CounterVec

	// EventsFailed counts scrape events that could not be published.
	EventsFailed prometheus.Counter

	// HTTPRequestsTotal counts HTTP API requests, labeled by endpoint and status class.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration observes HTTP request duration in seconds by endpoint.
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Searches
		SearchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Total number of search requests by outcome",
		}, []string{"outcome"}),
		SearchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "End-to-end duration of search requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.25, 1, 5, 15, 30, 60, 120, 300},
		}),

		// Cache
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of searches served from the result cache",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of searches that required a live scrape",
		}),

		// Scraping
		PagesScraped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_scraped_total",
			Help:      "Total number of result pages fetched and parsed",
		}),
		PapersExtracted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_extracted_total",
			Help:      "Total number of papers extracted from result pages",
		}),
		ExtractionFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_failures_total",
			Help:      "Total number of result blocks that could not be parsed by field",
		}, []string{"field"}),
		PapersPerScrape: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "papers_per_scrape",
			Help:      "Number of papers returned per scrape",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		}),
		ScrapeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scrape_duration_seconds",
			Help:      "Duration of live scrapes in seconds including politeness delays",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		ScrapesAborted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scrapes_aborted_total",
			Help:      "Total number of scrapes cut short by reason",
		}, []string{"reason"}),

		// Detection
		DetectionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detection_events_total",
			Help:      "Total number of anti-bot signals observed by event kind",
		}, []string{"event"}),
		BackoffsApplied: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backoffs_applied_total",
			Help:      "Total number of backoff pauses taken after detection events",
		}),

		// PDF fetching
		PDFFetchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pdf_fetches_total",
			Help:      "Total number of PDF fetch attempts by outcome",
		}, []string{"outcome"}),
		PDFFetchBytes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pdf_fetch_bytes_total",
			Help:      "Total bytes written to disk by successful PDF fetches",
		}),
		PDFFetchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pdf_fetch_duration_seconds",
			Help:      "Duration of PDF fetches in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),

		// Topics
		TopicsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "topics_generated_total",
			Help:      "Total number of topic sets generated from paper collections",
		}),

		// Events
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of scrape events published by type",
		}, []string{"type"}),
		EventsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_failed_total",
			Help:      "Total number of scrape events that failed to publish",
		}),

		// HTTP
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP API requests by endpoint and status class",
		}, []string{"endpoint", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP API requests in seconds by endpoint",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}, []string{"endpoint"}),
	}
}

// RecordSearch records a completed search request with its outcome.
func (m *Metrics) RecordSearch(outcome string, durationSeconds float64) {
	m.SearchesTotal.WithLabelValues(outcome).Inc()
	m.SearchDuration.Observe(durationSeconds)
}

// RecordCacheHit records a search answered from the cache.
func (m *Metrics) RecordCacheHit() {
	m.CacheHits.Inc()
}

// RecordCacheMiss records a search that missed the cache.
func (m *Metrics) RecordCacheMiss() {
	m.CacheMisses.Inc()
}

// RecordPageScraped records a result page fetched and parsed.
func (m *Metrics) RecordPageScraped() {
	m.PagesScraped.Inc()
}

// RecordPapersExtracted records papers extracted from a result page.
func (m *Metrics) RecordPapersExtracted(count int) {
	m.PapersExtracted.Add(float64(count))
}

// RecordExtractionFailure records a result block that could not be parsed.
func (m *Metrics) RecordExtractionFailure(field string) {
	m.ExtractionFailures.WithLabelValues(field).Inc()
}

// RecordScrapeCompleted records a finished scrape with its paper count.
func (m *Metrics) RecordScrapeCompleted(paperCount int, durationSeconds float64) {
	m.PapersPerScrape.Observe(float64(paperCount))
	m.ScrapeDuration.Observe(durationSeconds)
}

// RecordScrapeAborted records a scrape cut short by the given reason.
func (m *Metrics) RecordScrapeAborted(reason string) {
	m.ScrapesAborted.WithLabelValues(reason).Inc()
}

// RecordDetectionEvent records an anti-bot signal observed on a fetched page.
func (m *Metrics) RecordDetectionEvent(event string) {
	m.DetectionEvents.WithLabelValues(event).Inc()
}

// RecordBackoffApplied records a backoff pause taken after a detection event.
func (m *Metrics) RecordBackoffApplied() {
	m.BackoffsApplied.Inc()
}

// RecordPDFFetch records a PDF fetch attempt and, on success, its size.
func (m *Metrics) RecordPDFFetch(outcome string, bytes int64, durationSeconds float64) {
	m.PDFFetchesTotal.WithLabelValues(outcome).Inc()
	m.PDFFetchDuration.Observe(durationSeconds)
	if bytes > 0 {
		m.PDFFetchBytes.Add(float64(bytes))
	}
}

// RecordTopicsGenerated records a topic set generated from papers.
func (m *Metrics) RecordTopicsGenerated() {
	m.TopicsGenerated.Inc()
}

// RecordEventPublished records a scrape event published to the broker.
func (m *Metrics) RecordEventPublished(eventType string) {
	m.EventsPublished.WithLabelValues(eventType).Inc()
}

// RecordEventFailed records a scrape event that could not be published.
func (m *Metrics) RecordEventFailed() {
	m.EventsFailed.Inc()
}

// RecordHTTPRequest records an HTTP API request with its status class.
func (m *Metrics) RecordHTTPRequest(endpoint, status string, durationSeconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(endpoint, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(endpoint).Observe(durationSeconds)
}
