package scholar

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/litscout/scholar-search-service/internal/domain"
	"github.com/litscout/scholar-search-service/internal/observability"
)

// Page-level selectors. The results container and the result blocks share a
// selector; the next control is the footer pagination link.
const (
	resultsReadySelector = ".gs_ri"
	resultBlockSelector  = ".gs_ri"
	nextControlSelector  = `a[aria-label="Next"]`

	// DefaultMaxResults is applied when a query carries no quota.
	DefaultMaxResults = 50
)

// DriverConfig holds the pagination driver settings.
type DriverConfig struct {
	// BaseURL is the scholar search landing page.
	BaseURL string

	// PageSize is the number of results the target renders per page. It
	// bounds the page walk when duplicate-heavy pages keep the quota out
	// of reach.
	PageSize int

	// ResultsTimeout bounds the wait for the results container, per attempt.
	ResultsTimeout time.Duration

	// RetryBudget is the number of extra wait attempts per page after a
	// results timeout.
	RetryBudget int
}

// applyDefaults sets default values for unset configuration fields.
func (c *DriverConfig) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://scholar.google.com"
	}
	if c.PageSize <= 0 {
		c.PageSize = 10
	}
	if c.ResultsTimeout == 0 {
		c.ResultsTimeout = 10 * time.Second
	}
	if c.RetryBudget == 0 {
		c.RetryBudget = 1
	}
}

// Driver orchestrates one scrape: submit query, await results, extract the
// page, advance, until the quota is met or a termination condition fires.
// Terminal outcomes never discard partial progress; an aborted run returns
// everything collected plus an explicit reason.
type Driver struct {
	cfg       DriverConfig
	sessions  SessionFactory
	governor  *Governor
	monitor   *Monitor
	extractor *Extractor
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

// NewDriver creates a pagination driver.
func NewDriver(
	cfg DriverConfig,
	sessions SessionFactory,
	governor *Governor,
	monitor *Monitor,
	extractor *Extractor,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Driver {
	cfg.applyDefaults()
	return &Driver{
		cfg:       cfg,
		sessions:  sessions,
		governor:  governor,
		monitor:   monitor,
		extractor: extractor,
		metrics:   metrics,
		logger:    logger.With().Str("component", "pagination_driver").Logger(),
	}
}

// paginationState is owned exclusively by one in-flight Scrape call. It is
// destroyed when the call returns and never persisted.
type paginationState struct {
	page      int
	collected []domain.Paper
	seen      map[string]struct{}
}

// Scrape runs the pagination state machine for one query. The returned
// result carries whatever was collected even when the run aborts; the error
// return is reserved for failures before the first page (session acquisition,
// opening the search form).
//
// External cancellation is honored at the awaiting-results and
// checking-next-page boundaries, the only points where state is consistent.
func (d *Driver) Scrape(ctx context.Context, query domain.SearchQuery) (*domain.ScrapeResult, error) {
	if query.MaxResults <= 0 {
		query.MaxResults = DefaultMaxResults
	}
	start := time.Now()
	logger := observability.WithSearchContext(d.logger, query.CacheKey(), query.MaxResults)

	sess, err := d.sessions.NewSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire session: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			logger.Warn().Err(cerr).Msg("session teardown failed")
		}
	}()

	st := &paginationState{
		collected: make([]domain.Paper, 0, query.MaxResults),
		seen:      make(map[string]struct{}, query.MaxResults),
	}

	if err := sess.Navigate(ctx, d.cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("open search page: %w", err)
	}
	if err := d.governor.Delay(ctx); err != nil {
		return d.abort(logger, st, domain.AbortCancelled, start), nil
	}

	// The landing page itself can carry a challenge.
	if _, ev, err := d.classify(ctx, sess); err != nil {
		return d.abortOnErr(logger, st, err, start), nil
	} else if ev != domain.DetectionNone {
		return d.abort(logger, st, abortReasonFor(ev), start), nil
	}

	if err := sess.SubmitForm(ctx, query.Qualified()); err != nil {
		return nil, fmt.Errorf("submit query: %w", err)
	}
	if err := d.governor.Delay(ctx); err != nil {
		return d.abort(logger, st, domain.AbortCancelled, start), nil
	}

	// Enough pages to meet the quota at the target's render size, with
	// slack for pages that extract short. Guarantees termination even
	// against an endless supply of duplicate-only pages.
	pageBudget := query.MaxResults/d.cfg.PageSize + 3

	for st.page < pageBudget {
		// AwaitingResults: safe interruption point.
		if ctx.Err() != nil {
			return d.abort(logger, st, domain.AbortCancelled, start), nil
		}
		if err := d.awaitResults(ctx, sess); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return d.abort(logger, st, domain.AbortCancelled, start), nil
			}
			logger.Warn().Err(err).Int("page", st.page+1).Msg("results container never rendered")
			return d.abort(logger, st, domain.AbortResultsTimeout, start), nil
		}

		// Extracting: poll the monitor before touching result blocks.
		doc, ev, err := d.classify(ctx, sess)
		if err != nil {
			return d.abortOnErr(logger, st, err, start), nil
		}
		if ev != domain.DetectionNone {
			return d.abort(logger, st, abortReasonFor(ev), start), nil
		}

		blocks := doc.Find(resultBlockSelector)
		if blocks.Length() == 0 {
			logger.Info().Int("page", st.page+1).Msg("no result blocks, stopping")
			break
		}
		added := d.extractPage(logger, st, blocks, query.MaxResults)
		st.page++
		d.metrics.RecordPageScraped()
		d.metrics.RecordPapersExtracted(added)
		logger.Info().
			Int("page", st.page).
			Int("page_papers", added).
			Int("collected", len(st.collected)).
			Msg("page extracted")

		// CheckingNextPage: the second safe interruption point.
		if len(st.collected) >= query.MaxResults {
			break
		}
		next, ok := d.nextPageRef(doc)
		if !ok {
			logger.Info().Msg("no further pages")
			break
		}
		if ctx.Err() != nil {
			return d.abort(logger, st, domain.AbortCancelled, start), nil
		}
		if err := d.governor.Delay(ctx); err != nil {
			return d.abort(logger, st, domain.AbortCancelled, start), nil
		}
		if err := sess.Navigate(ctx, next); err != nil {
			logger.Warn().Err(err).Msg("advancing to next page failed")
			return d.abort(logger, st, domain.AbortResultsTimeout, start), nil
		}
	}

	if len(st.collected) > query.MaxResults {
		st.collected = st.collected[:query.MaxResults]
	}
	d.metrics.RecordScrapeCompleted(len(st.collected), time.Since(start).Seconds())
	logger.Info().Int("papers", len(st.collected)).Int("pages", st.page).Msg("scrape complete")
	return &domain.ScrapeResult{Papers: st.collected, Pages: st.page}, nil
}

// awaitResults blocks until the results container renders, spending the
// per-page retry budget on repeated waits before giving up.
func (d *Driver) awaitResults(ctx context.Context, sess Session) error {
	var lastErr error
	for attempt := 0; attempt <= d.cfg.RetryBudget; attempt++ {
		lastErr = sess.WaitFor(ctx, resultsReadySelector, d.cfg.ResultsTimeout)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		d.logger.Debug().Err(lastErr).Int("attempt", attempt+1).Msg("waiting for results container")
	}
	return fmt.Errorf("%w: %v", domain.ErrResultsTimeout, lastErr)
}

// classify snapshots the current page and polls the monitor. On a detection
// event it applies the single long backoff, then re-polls once; the returned
// event is the final verdict for this page.
func (d *Driver) classify(ctx context.Context, sess Session) (*goquery.Document, domain.DetectionEvent, error) {
	doc, err := sess.Snapshot(ctx)
	if err != nil {
		return nil, domain.DetectionNone, fmt.Errorf("snapshot page: %w", err)
	}
	ev := d.monitor.Inspect(doc)
	if ev == domain.DetectionNone {
		return doc, ev, nil
	}

	d.metrics.RecordDetectionEvent(ev.String())
	d.logger.Warn().Str("event", ev.String()).Msg("detection event, backing off")
	d.metrics.RecordBackoffApplied()
	if err := d.governor.Backoff(ctx); err != nil {
		return nil, ev, err
	}

	doc, err = sess.Snapshot(ctx)
	if err != nil {
		return nil, ev, fmt.Errorf("snapshot page: %w", err)
	}
	ev = d.monitor.Inspect(doc)
	if ev != domain.DetectionNone {
		d.metrics.RecordDetectionEvent(ev.String())
	}
	return doc, ev, nil
}

// extractPage maps every block to a paper, skipping malformed blocks and
// duplicates of ids already collected in this run. Returns how many papers
// the page contributed.
func (d *Driver) extractPage(logger zerolog.Logger, st *paginationState, blocks *goquery.Selection, quota int) int {
	added := 0
	blocks.EachWithBreak(func(_ int, block *goquery.Selection) bool {
		if len(st.collected) >= quota {
			return false
		}
		paper, err := d.extractor.Extract(block)
		if err != nil {
			field := "block"
			var xerr *domain.ExtractionError
			if errors.As(err, &xerr) {
				field = xerr.Field
			}
			d.metrics.RecordExtractionFailure(field)
			logger.Debug().Err(err).Msg("skipping malformed result block")
			return true
		}
		if _, dup := st.seen[paper.ID]; dup {
			return true
		}
		st.seen[paper.ID] = struct{}{}
		st.collected = append(st.collected, paper)
		added++
		return true
	})
	return added
}

// nextPageRef finds the enabled next-page control and resolves its href
// against the search base URL.
func (d *Driver) nextPageRef(doc *goquery.Document) (string, bool) {
	link := doc.Find(nextControlSelector).First()
	if link.Length() == 0 {
		return "", false
	}
	if cls, _ := link.Attr("class"); strings.Contains(cls, "disabled") {
		return "", false
	}
	href, ok := link.Attr("href")
	if !ok || href == "" {
		return "", false
	}
	base, err := url.Parse(d.cfg.BaseURL)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	return base.ResolveReference(ref).String(), true
}

// abort closes out a cut-short run: partial results are kept and tagged with
// the reason so callers can tell them from an empty result set.
func (d *Driver) abort(logger zerolog.Logger, st *paginationState, reason domain.AbortReason, start time.Time) *domain.ScrapeResult {
	d.metrics.RecordScrapeAborted(string(reason))
	d.metrics.RecordScrapeCompleted(len(st.collected), time.Since(start).Seconds())
	logger.Warn().
		Str("reason", string(reason)).
		Int("papers", len(st.collected)).
		Int("pages", st.page).
		Msg("scrape aborted, returning partial results")
	return &domain.ScrapeResult{
		Papers:  st.collected,
		Pages:   st.page,
		Aborted: true,
		Reason:  reason,
	}
}

// abortOnErr buckets a mid-run infrastructure error into an abort reason.
func (d *Driver) abortOnErr(logger zerolog.Logger, st *paginationState, err error, start time.Time) *domain.ScrapeResult {
	reason := domain.AbortResultsTimeout
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		reason = domain.AbortCancelled
	}
	logger.Warn().Err(err).Msg("page inspection failed")
	return d.abort(logger, st, reason, start)
}

// abortReasonFor maps a final detection verdict to the abort reason carried
// on the partial result.
func abortReasonFor(ev domain.DetectionEvent) domain.AbortReason {
	if ev == domain.DetectionRateLimited {
		return domain.AbortRateLimited
	}
	return domain.AbortChallenge
}
