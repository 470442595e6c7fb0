package scholar

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// searchBoxSelector is the query input on the search landing page.
const searchBoxSelector = `input[name="q"]`

// SessionConfig holds the browser session settings.
type SessionConfig struct {
	// Headless runs the browser without a visible window.
	Headless bool

	// WindowWidth and WindowHeight size the viewport. Unusual sizes are a
	// fingerprint, so the defaults match a common desktop.
	WindowWidth  int
	WindowHeight int

	// NavigationTimeout bounds a single page load or form submit.
	NavigationTimeout time.Duration
}

// applyDefaults sets default values for unset configuration fields.
func (c *SessionConfig) applyDefaults() {
	if c.WindowWidth <= 0 {
		c.WindowWidth = 1920
	}
	if c.WindowHeight <= 0 {
		c.WindowHeight = 1080
	}
	if c.NavigationTimeout == 0 {
		c.NavigationTimeout = 30 * time.Second
	}
}

// ChromeSessionFactory starts chromedp-backed sessions, one browser process
// per session, each with a fresh fingerprint from the rotator.
type ChromeSessionFactory struct {
	cfg     SessionConfig
	rotator *Rotator
	logger  zerolog.Logger
}

// Ensure the factory satisfies the SessionFactory interface.
var _ SessionFactory = (*ChromeSessionFactory)(nil)

// NewChromeSessionFactory creates a session factory.
func NewChromeSessionFactory(cfg SessionConfig, rotator *Rotator, logger zerolog.Logger) *ChromeSessionFactory {
	cfg.applyDefaults()
	return &ChromeSessionFactory{
		cfg:     cfg,
		rotator: rotator,
		logger:  logger.With().Str("component", "browser_session").Logger(),
	}
}

// NewSession starts a browser context bound to ctx: cancelling ctx tears the
// browser down. The session presents the next fingerprint in rotation and
// masks the most common automation signals.
func (f *ChromeSessionFactory) NewSession(ctx context.Context) (Session, error) {
	fp := f.rotator.Next()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.WindowSize(f.cfg.WindowWidth, f.cfg.WindowHeight),
		chromedp.UserAgent(fp.UserAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	taskCtx, cancelTask := chromedp.NewContext(allocCtx)

	// The first Run starts the browser; set the identity headers before any
	// navigation happens.
	if err := chromedp.Run(taskCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers(fp.Headers())),
	); err != nil {
		cancelTask()
		cancelAlloc()
		return nil, fmt.Errorf("start browser session: %w", err)
	}

	f.logger.Debug().Str("user_agent", fp.UserAgent).Msg("session started")

	return &chromeSession{
		ctx:         taskCtx,
		cancelTask:  cancelTask,
		cancelAlloc: cancelAlloc,
		navTimeout:  f.cfg.NavigationTimeout,
		logger:      f.logger,
	}, nil
}

// chromeSession is the production Session over a chromedp browser context.
// The session is bound to the context it was created from; per-call contexts
// gate entry and the configured timeouts bound each operation.
type chromeSession struct {
	ctx         context.Context
	cancelTask  context.CancelFunc
	cancelAlloc context.CancelFunc
	navTimeout  time.Duration
	logger      zerolog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Ensure the session satisfies the Session interface.
var _ Session = (*chromeSession)(nil)

// Navigate loads rawURL and nudges the viewport the way a reading human
// would; a perfectly still page is an automation signal.
func (s *chromeSession) Navigate(ctx context.Context, rawURL string) error {
	return s.run(ctx, s.navTimeout,
		chromedp.Navigate(rawURL),
		humanScroll(),
	)
}

// WaitFor blocks until selector is present in the DOM or timeout elapses.
func (s *chromeSession) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	return s.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery))
}

// SubmitForm types text into the search box and submits the form.
func (s *chromeSession) SubmitForm(ctx context.Context, text string) error {
	return s.run(ctx, s.navTimeout,
		chromedp.WaitVisible(searchBoxSelector, chromedp.ByQuery),
		chromedp.Clear(searchBoxSelector, chromedp.ByQuery),
		chromedp.SendKeys(searchBoxSelector, text, chromedp.ByQuery),
		chromedp.Submit(searchBoxSelector, chromedp.ByQuery),
	)
}

// Snapshot captures the rendered DOM and parses it for querying.
func (s *chromeSession) Snapshot(ctx context.Context) (*goquery.Document, error) {
	var html string
	if err := s.run(ctx, s.navTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("capture page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, nil
}

// Close shuts the browser down gracefully, then releases the contexts.
// Safe to call more than once.
func (s *chromeSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = chromedp.Cancel(s.ctx)
		s.cancelTask()
		s.cancelAlloc()
	})
	return s.closeErr
}

// run executes actions against the browser context with a bounded timeout.
func (s *chromeSession) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	opCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(opCtx, actions...)
}

// humanScroll scrolls the viewport by a small random amount.
func humanScroll() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		_, exp, err := runtime.Evaluate(`window.scrollBy(0, Math.floor(Math.random() * 400) + 100);`).Do(ctx)
		if err != nil {
			return err
		}
		if exp != nil {
			return exp
		}
		return nil
	})
}
