package scholar

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/litscout/scholar-search-service/internal/domain"
)

// Publisher abstract containers, tried in order on a paper's landing page.
var abstractSelectors = []string{
	".abstract",
	"#abstract",
	"[data-testid='abstract']",
	".c-article-section__content",
	".abstract-content",
}

// AbstractResolver follows a paper's landing page and pulls the abstract out
// of known publisher markup. Resolution is best-effort; a paper that cannot
// be resolved simply keeps an empty abstract.
type AbstractResolver struct {
	sessions SessionFactory
	governor *Governor
	logger   zerolog.Logger

	// limit caps resolution attempts per Enrich call. Every attempt costs
	// a full browser session.
	limit int
}

// NewAbstractResolver creates a landing-page abstract resolver.
func NewAbstractResolver(sessions SessionFactory, governor *Governor, limit int, logger zerolog.Logger) *AbstractResolver {
	if limit <= 0 {
		limit = 5
	}
	return &AbstractResolver{
		sessions: sessions,
		governor: governor,
		logger:   logger.With().Str("component", "abstract_resolver").Logger(),
		limit:    limit,
	}
}

// Resolve opens the paper's landing page in a fresh session and returns the
// first non-empty publisher abstract container. An empty string with nil
// error means the page rendered but no known container matched.
func (r *AbstractResolver) Resolve(ctx context.Context, pageURL string) (string, error) {
	sess, err := r.sessions.NewSession(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire session: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			r.logger.Warn().Err(cerr).Msg("session teardown failed")
		}
	}()

	if err := sess.Navigate(ctx, pageURL); err != nil {
		return "", fmt.Errorf("open paper page: %w", err)
	}
	if err := r.governor.Delay(ctx); err != nil {
		return "", err
	}

	doc, err := sess.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	for _, sel := range abstractSelectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text, nil
		}
	}
	return "", nil
}

// Enrich resolves abstracts in place for papers that have neither a snippet
// nor an abstract, spending at most the configured attempt budget. Failures
// are logged and skipped; the paper set is never reduced.
func (r *AbstractResolver) Enrich(ctx context.Context, papers []domain.Paper) {
	attempts := 0
	for i := range papers {
		if attempts >= r.limit {
			return
		}
		if papers[i].Abstract != "" || papers[i].Snippet != "" || papers[i].URL == "" {
			continue
		}
		if ctx.Err() != nil {
			return
		}

		attempts++
		abstract, err := r.Resolve(ctx, papers[i].URL)
		if err != nil {
			r.logger.Warn().Err(err).
				Str("paper_id", papers[i].ID).
				Str("url", papers[i].URL).
				Msg("abstract resolution failed")
			continue
		}
		if abstract != "" {
			papers[i].Abstract = abstract
		}
	}
}
