package scholar

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Session is one live browser automation context. Each Scrape call owns one
// session end-to-end; sessions are not safe for concurrent pagination.
//
// Snapshot is the read side of the contract: the driver, monitor, and
// extractor all work on the parsed snapshot rather than querying the live DOM
// element by element, so a single fetch serves detection and extraction.
type Session interface {
	// Navigate loads rawURL in the automation context and waits for the
	// load to settle.
	Navigate(ctx context.Context, rawURL string) error

	// WaitFor blocks until selector is present in the DOM or timeout
	// elapses. A timeout is an error; the caller decides whether budget
	// remains to retry.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error

	// SubmitForm types text into the search form on the current page and
	// submits it.
	SubmitForm(ctx context.Context, text string) error

	// Snapshot parses the current DOM into a queryable document.
	Snapshot(ctx context.Context) (*goquery.Document, error)

	// Close tears down the automation context and its browser process.
	// Safe to call on every exit path.
	Close() error
}

// SessionFactory opens fresh automation contexts. The driver acquires one
// session per search; spawning sessions is expensive, so callers bound
// concurrency externally.
type SessionFactory interface {
	// NewSession starts a browser context with a fresh fingerprint. The
	// session inherits cancellation from ctx.
	NewSession(ctx context.Context) (Session, error)
}
