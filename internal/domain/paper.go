// Package domain provides domain models and business logic for the scholar search service.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// NormalizeTitle lowercases a title, strips everything that is not a letter,
// digit, or space, and collapses runs of whitespace. Two scrapes of the same
// paper produce the same normalized title even when punctuation or casing
// differ.
func NormalizeTitle(title string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			sb.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

// PaperID returns the deterministic identifier for a paper title: the
// lowercase hex SHA-256 digest of the normalized title. It is the dedup key
// for both in-run collection and the papers table.
func PaperID(title string) string {
	sum := sha256.Sum256([]byte(NormalizeTitle(title)))
	return hex.EncodeToString(sum[:])
}

// Paper is one scraped bibliographic record.
type Paper struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Authors   string    `json:"authors"`
	Year      *int      `json:"year"`
	Snippet   string    `json:"snippet"`
	URL       string    `json:"url"`
	PDFURL    string    `json:"pdf_url,omitempty"`
	Citations int       `json:"citations"`
	Abstract  string    `json:"abstract,omitempty"`
	ScrapedAt time.Time `json:"scraped_at"`
}

// HasPDF reports whether a direct PDF link was found for the paper.
func (p *Paper) HasPDF() bool {
	return p.PDFURL != ""
}

// YearRange restricts a search to papers published within [From, To].
type YearRange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// SearchQuery is a request to discover papers.
type SearchQuery struct {
	Text       string
	MaxResults int
	YearRange  *YearRange
}

// Normalized returns the query text lowercased and trimmed, the form used
// for cache hashing.
func (q SearchQuery) Normalized() string {
	return strings.ToLower(strings.TrimSpace(q.Text))
}

// CacheKey returns the cache hash key for the query: the hex SHA-256 of the
// normalized text joined with the result quota. Identical queries with
// different quotas cache independently.
func (q SearchQuery) CacheKey() string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s_%d", q.Normalized(), q.MaxResults)))
	return hex.EncodeToString(sum[:])
}

// Qualified returns the query text with year-range qualifiers appended when
// a range is set, e.g. `deep learning after:2019 before:2023`.
func (q SearchQuery) Qualified() string {
	text := strings.TrimSpace(q.Text)
	if q.YearRange == nil {
		return text
	}
	return fmt.Sprintf("%s after:%d before:%d", text, q.YearRange.From, q.YearRange.To)
}

// CacheEntry is one persisted query result set. Entries are write-once and
// expire lazily: reads compare CreatedAt against the store TTL, nothing
// sweeps them except the janitor.
type CacheEntry struct {
	QueryHash  string
	Query      string
	MaxResults int
	Results    []Paper
	CreatedAt  time.Time
}

// AbortReason says why a scrape stopped before meeting its quota.
type AbortReason string

// Abort reasons attached to partial scrape results.
const (
	AbortNone           AbortReason = ""
	AbortResultsTimeout AbortReason = "results_timeout"
	AbortChallenge      AbortReason = "challenge_detected"
	AbortRateLimited    AbortReason = "rate_limited"
	AbortCancelled      AbortReason = "cancelled"
)

// ScrapeResult is what one pagination run returns. Papers holds everything
// collected up to the stop condition; Aborted with a Reason distinguishes a
// cut-short run from a genuinely empty result set.
type ScrapeResult struct {
	Papers  []Paper
	Pages   int
	Aborted bool
	Reason  AbortReason
}

// SearchResult is the service-level answer to a search: the papers plus
// provenance flags the API surfaces.
type SearchResult struct {
	Papers    []Paper
	FromCache bool
	Aborted   bool
	Reason    AbortReason

	// StoreFailed reports that the post-scrape write-through failed.
	// The papers were scraped but never persisted; caching is a side
	// effect, not a precondition of returning data.
	StoreFailed bool
}

// DetectionEvent classifies a loaded page with respect to bot defenses.
type DetectionEvent int

// Detection outcomes, in escalating order of trouble.
const (
	DetectionNone DetectionEvent = iota
	DetectionChallenge
	DetectionRateLimited
)

// String implements fmt.Stringer for log and metric labels.
func (e DetectionEvent) String() string {
	switch e {
	case DetectionChallenge:
		return "challenge_present"
	case DetectionRateLimited:
		return "rate_limited"
	default:
		return "none"
	}
}

// Topic is one suggested research direction derived from a paper subset.
type Topic struct {
	ID          int      `json:"id"`
	Terms       []string `json:"terms"`
	Description string   `json:"description"`
}

// TopicSummary condenses one generation run for display.
type TopicSummary struct {
	TotalPapers int        `json:"total_papers"`
	TextSources int        `json:"text_sources"`
	TopKeywords []string   `json:"top_keywords"`
	MainThemes  [][]string `json:"main_themes"`
}

// TopicSet bundles everything the topic collaborator derives in one pass.
type TopicSet struct {
	Keywords          []string     `json:"keywords"`
	Topics            []Topic      `json:"topics"`
	ResearchQuestions []string     `json:"research_questions"`
	Summary           TopicSummary `json:"summary"`
}

// TopicRecord is one persisted topic generation run.
type TopicRecord struct {
	ID        int64
	PaperIDs  []string
	Topics    TopicSet
	Method    string
	CreatedAt time.Time
}

// PDFFile records one stored PDF artifact, uploaded or fetched.
type PDFFile struct {
	ID          string
	PaperID     string
	Filename    string
	Filepath    string
	Abstract    string
	SizeBytes   int64
	ContentHash string
	CreatedAt   time.Time
}

// QueryCount is a query string with its occurrence count, used in stats.
type QueryCount struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

// YearCount is a publication year with its paper count, used in stats.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// AppStats aggregates store-wide counters for the stats endpoint.
type AppStats struct {
	TotalSearches        int          `json:"total_searches"`
	TotalPapers          int          `json:"total_papers"`
	TotalTopicsGenerated int          `json:"total_topics_generated"`
	TotalPDFsProcessed   int          `json:"total_pdfs_processed"`
	RecentSearches       int          `json:"recent_searches"`
	TopQueries           []QueryCount `json:"top_queries"`
	PapersByYear         []YearCount  `json:"papers_by_year"`
}
