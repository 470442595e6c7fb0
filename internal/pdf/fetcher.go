// Package pdf downloads, stores, and mines scholarly PDF artifacts.
package pdf

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/litscout/scholar-search-service/internal/domain"
	"github.com/litscout/scholar-search-service/internal/observability"
)

// ErrSSRF is returned when a URL resolves to a private or internal network
// address. PDF links come from scraped markup, so every target is untrusted.
var ErrSSRF = errors.New("pdf: request to private network denied")

// FetchResult holds a fetched artifact and where it was persisted.
type FetchResult struct {
	// Path is the on-disk location, <dir>/<paperID>.pdf.
	Path string
	// Content is the PDF bytes.
	Content []byte
	// ContentHash is the SHA-256 hex digest of the content.
	ContentHash string
	// SizeBytes is the size of the content in bytes.
	SizeBytes int64
	// ContentType is the Content-Type header the origin declared.
	ContentType string
}

// FetcherConfig holds artifact fetcher settings.
type FetcherConfig struct {
	// Dir is the directory artifacts are persisted to. Default: data/papers.
	Dir string
	// Timeout is the HTTP request timeout. Default: 30 seconds.
	Timeout time.Duration
	// MaxSize is the maximum artifact size in bytes. Default: 50MB.
	MaxSize int64
	// RatePerSecond spaces outbound artifact requests. Default: 1.
	RatePerSecond float64
	// UserAgent is the User-Agent header. Default: a desktop browser identity.
	UserAgent string
	// AllowPrivateNetworks disables SSRF private-IP checks. This MUST only be
	// set to true in test environments. Production code must never set this.
	AllowPrivateNetworks bool
}

// defaultFetchUserAgent is sent when no identity is configured. Several
// publishers serve error pages to anything that does not look like a browser.
const defaultFetchUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Fetcher downloads PDF artifacts and persists them content-addressed by
// paper id: repeated fetches for the same paper overwrite in place. One GET
// per call; failures are classified, never retried.
type Fetcher struct {
	client               *http.Client
	limiter              *rate.Limiter
	dir                  string
	maxSize              int64
	userAgent            string
	allowPrivateNetworks bool // For testing only; never enable in production.
	metrics              *observability.Metrics
	logger               zerolog.Logger
}

// NewFetcher creates a new Fetcher with the given configuration.
func NewFetcher(cfg FetcherConfig, metrics *observability.Metrics, logger zerolog.Logger) *Fetcher {
	if cfg.Dir == "" {
		cfg.Dir = "data/papers"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxSize == 0 {
		cfg.MaxSize = 50 * 1024 * 1024 // 50MB
	}
	if cfg.RatePerSecond == 0 {
		cfg.RatePerSecond = 1
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultFetchUserAgent
	}

	f := &Fetcher{
		limiter:              rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
		dir:                  cfg.Dir,
		maxSize:              cfg.MaxSize,
		userAgent:            cfg.UserAgent,
		allowPrivateNetworks: cfg.AllowPrivateNetworks,
		metrics:              metrics,
		logger:               logger.With().Str("component", "pdf_fetcher").Logger(),
	}

	f.client = &http.Client{
		Timeout: cfg.Timeout,
		// Validate each redirect URL against private IP checks to prevent
		// SSRF via open redirects that land on internal network addresses.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("%w: too many redirects", ErrSSRF)
			}
			if !f.allowPrivateNetworks {
				if err := validateURLNotPrivate(req.URL.String()); err != nil {
					return err
				}
			}
			return nil
		},
	}

	return f
}

// Fetch downloads the PDF at pdfURL and persists it to <dir>/<paperID>.pdf.
// Returns a *domain.FetchError classified by cause: ErrNotPDF when the
// Content-Type does not contain "pdf", timeout, bad status, or network
// error otherwise. Returns ErrSSRF when the URL resolves to a private
// address. No automatic retry.
func (f *Fetcher) Fetch(ctx context.Context, pdfURL, paperID string) (*FetchResult, error) {
	start := time.Now()
	result, err := f.fetch(ctx, pdfURL, paperID)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		f.metrics.RecordPDFFetch(fetchOutcome(err), 0, elapsed)
		f.logger.Warn().
			Err(err).
			Str("paper_id", paperID).
			Str("url", pdfURL).
			Msg("pdf fetch failed")
		return nil, err
	}

	f.metrics.RecordPDFFetch("success", result.SizeBytes, elapsed)
	f.logger.Info().
		Str("paper_id", paperID).
		Str("path", result.Path).
		Int64("size_bytes", result.SizeBytes).
		Msg("pdf fetched")
	return result, nil
}

func (f *Fetcher) fetch(ctx context.Context, pdfURL, paperID string) (*FetchResult, error) {
	// Paper ids arrive from the HTTP path; reject anything that could
	// escape the artifact directory.
	if paperID == "" || strings.ContainsAny(paperID, `/\`) || strings.Contains(paperID, "..") {
		return nil, fmt.Errorf("invalid paper id %q", paperID)
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, domain.NewFetchError(pdfURL, classifyTransport(err), err)
	}

	if !f.allowPrivateNetworks {
		if err := validateURLNotPrivate(pdfURL); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return nil, domain.NewFetchError(pdfURL, domain.FetchNetworkError, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/pdf,*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, ErrSSRF) {
			return nil, err
		}
		return nil, domain.NewFetchError(pdfURL, classifyTransport(err), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, domain.NewFetchError(pdfURL, domain.FetchBadStatus, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	// The original check is deliberately loose: publishers serve
	// application/pdf, application/x-pdf, and stranger things.
	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "pdf") {
		return nil, domain.NewFetchError(pdfURL, domain.FetchNotAPdf, fmt.Errorf("Content-Type is %q", contentType))
	}

	// Read one extra byte to detect oversized artifacts.
	content, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, domain.NewFetchError(pdfURL, classifyTransport(err), err)
	}
	if int64(len(content)) > f.maxSize {
		return nil, domain.NewFetchError(pdfURL, domain.FetchTooLarge, fmt.Errorf("exceeded %d bytes", f.maxSize))
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	path := filepath.Join(f.dir, paperID+".pdf")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return nil, fmt.Errorf("write artifact: %w", err)
	}

	hash := sha256.Sum256(content)
	return &FetchResult{
		Path:        path,
		Content:     content,
		ContentHash: hex.EncodeToString(hash[:]),
		SizeBytes:   int64(len(content)),
		ContentType: contentType,
	}, nil
}

// classifyTransport distinguishes deadline expiry from other transport
// failures so the two surface as distinct fetch outcomes.
func classifyTransport(err error) domain.FetchReason {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.FetchTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.FetchTimeout
	}
	return domain.FetchNetworkError
}

// fetchOutcome maps a fetch failure to its metrics label.
func fetchOutcome(err error) string {
	var fetchErr *domain.FetchError
	if errors.As(err, &fetchErr) {
		return string(fetchErr.Reason)
	}
	if errors.Is(err, ErrSSRF) {
		return "denied"
	}
	return "error"
}

// isPrivateIP returns true if the IP address is in a private, loopback, or
// otherwise non-routable range. Covers both IPv4 and IPv6 private ranges.
func isPrivateIP(ip net.IP) bool {
	// IPv4 private ranges.
	privateRanges := []struct{ start, end net.IP }{
		{net.ParseIP("10.0.0.0"), net.ParseIP("10.255.255.255")},
		{net.ParseIP("172.16.0.0"), net.ParseIP("172.31.255.255")},
		{net.ParseIP("192.168.0.0"), net.ParseIP("192.168.255.255")},
		{net.ParseIP("169.254.0.0"), net.ParseIP("169.254.255.255")},
		// IPv6 Unique Local Addresses (fc00::/7).
		{net.ParseIP("fc00::"), net.ParseIP("fdff:ffff:ffff:ffff:ffff:ffff:ffff:ffff")},
		// IPv6 link-local (fe80::/10).
		{net.ParseIP("fe80::"), net.ParseIP("febf:ffff:ffff:ffff:ffff:ffff:ffff:ffff")},
	}
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}
	// IPv6 loopback (::1) is already covered by ip.IsLoopback() above.
	for _, r := range privateRanges {
		if bytesInRange(ip.To16(), r.start.To16(), r.end.To16()) {
			return true
		}
	}
	return false
}

func bytesInRange(ip, lo, hi []byte) bool {
	for i := range ip {
		if ip[i] < lo[i] {
			return false
		}
		if ip[i] > hi[i] {
			return false
		}
	}
	return true
}

// validateURLNotPrivate resolves the hostname and rejects private IPs.
func validateURLNotPrivate(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSSRF, err)
	}

	// Reject non-HTTP(S) schemes to prevent file://, gopher://, etc.
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
		// allowed
	default:
		return fmt.Errorf("%w: scheme %q is not allowed", ErrSSRF, parsed.Scheme)
	}

	host := parsed.Hostname()
	ips, err := net.LookupHost(host)
	if err != nil {
		return domain.NewFetchError(rawURL, domain.FetchNetworkError, fmt.Errorf("DNS lookup failed for %s: %w", host, err))
	}
	for _, ipStr := range ips {
		ip := net.ParseIP(ipStr)
		if ip != nil && isPrivateIP(ip) {
			return fmt.Errorf("%w: %s resolves to private address %s", ErrSSRF, host, ipStr)
		}
	}
	return nil
}
