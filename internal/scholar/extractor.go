package scholar

import (
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/litscout/scholar-search-service/internal/domain"
)

// Selectors within one result block. The detail line carries
// authors, venue, and year separated by " - ".
const (
	titleSelector   = ".gs_rt a"
	detailSelector  = ".gs_a"
	snippetSelector = ".gs_rs"
	pdfLinkSelector = ".gs_or_ggsm a"

	citedByPrefix = "Cited by"
)

// Extractor maps one raw result block to a typed Paper. Title and the detail
// line are required; every other field degrades gracefully to its zero value.
// No field is ever resolved over the network.
type Extractor struct {
	logger zerolog.Logger

	// now stamps ScrapedAt; replaced in tests.
	now func() time.Time
}

// NewExtractor creates a result extractor.
func NewExtractor(logger zerolog.Logger) *Extractor {
	return &Extractor{
		logger: logger.With().Str("component", "result_extractor").Logger(),
		now:    time.Now,
	}
}

// Extract parses a single result block into a Paper. A missing title or
// detail line returns an ExtractionError; the caller skips the block and
// moves on.
func (e *Extractor) Extract(block *goquery.Selection) (domain.Paper, error) {
	titleLink := block.Find(titleSelector).First()
	title := strings.TrimSpace(titleLink.Text())
	if title == "" {
		return domain.Paper{}, domain.NewExtractionError("title", "title link missing or empty")
	}
	pageURL := titleLink.AttrOr("href", "")

	detail := strings.TrimSpace(block.Find(detailSelector).First().Text())
	if detail == "" {
		return domain.Paper{}, domain.NewExtractionError("detail", "detail line missing")
	}

	paper := domain.Paper{
		ID:        domain.PaperID(title),
		Title:     title,
		Authors:   authorsFromDetail(detail),
		Year:      yearFromDetail(detail),
		Snippet:   strings.TrimSpace(block.Find(snippetSelector).First().Text()),
		URL:       pageURL,
		PDFURL:    block.Find(pdfLinkSelector).First().AttrOr("href", ""),
		Citations: citationsFromBlock(block),
		ScrapedAt: e.now().UTC(),
	}
	return paper, nil
}

// authorsFromDetail returns the author segment of the detail line: everything
// before the first " - " separator.
func authorsFromDetail(detail string) string {
	if idx := strings.Index(detail, " - "); idx >= 0 {
		return strings.TrimSpace(detail[:idx])
	}
	return detail
}

// yearFromDetail scans the detail line's " - " separated segments for the
// first 4-digit token starting with "19" or "20". Returns nil when none is
// found.
func yearFromDetail(detail string) *int {
	for _, part := range strings.Split(detail, " - ") {
		for _, token := range strings.Fields(part) {
			token = strings.Trim(token, ",.;()")
			if len(token) != 4 {
				continue
			}
			if !strings.HasPrefix(token, "19") && !strings.HasPrefix(token, "20") {
				continue
			}
			year, err := strconv.Atoi(token)
			if err != nil {
				continue
			}
			return &year
		}
	}
	return nil
}

// citationsFromBlock finds the "Cited by N" link inside a block and parses
// the count, ignoring digit grouping. Absent or unparsable counts degrade to
// zero.
func citationsFromBlock(block *goquery.Selection) int {
	count := 0
	block.Find("a").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		text := strings.TrimSpace(link.Text())
		if !strings.HasPrefix(text, citedByPrefix) {
			return true
		}
		var digits strings.Builder
		for _, r := range text {
			if r >= '0' && r <= '9' {
				digits.WriteRune(r)
			}
		}
		if n, err := strconv.Atoi(digits.String()); err == nil {
			count = n
		}
		return false
	})
	return count
}
