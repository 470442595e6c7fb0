package scholar

import "sync"

// defaultUserAgents is the built-in rotation pool: current desktop Chrome,
// Firefox, and Safari identities. Mobile agents are excluded because the
// result markup differs on mobile.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:123.0) Gecko/20100101 Firefox/123.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:123.0) Gecko/20100101 Firefox/123.0",
}

// Fingerprint is one believable browser identity presented to the target:
// the user-agent plus the request headers a real browser of that family
// would send.
type Fingerprint struct {
	UserAgent      string
	AcceptLanguage string
}

// Headers returns the extra HTTP headers for this identity, shaped for the
// automation engine's network layer.
func (f Fingerprint) Headers() map[string]interface{} {
	return map[string]interface{}{
		"Accept-Language": f.AcceptLanguage,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8",
		"Cache-Control":   "max-age=0",
		"Connection":      "keep-alive",
		"DNT":             "1",
	}
}

// Rotator hands out fingerprints round-robin from a pool. It is stateless
// apart from the rotation cursor and safe for concurrent use.
type Rotator struct {
	mu             sync.Mutex
	agents         []string
	next           int
	acceptLanguage string
}

// NewRotator creates a rotator over the given user-agent pool. An empty pool
// falls back to the built-in agents.
func NewRotator(agents []string, acceptLanguage string) *Rotator {
	if len(agents) == 0 {
		agents = defaultUserAgents
	}
	if acceptLanguage == "" {
		acceptLanguage = "en-US,en;q=0.9"
	}
	return &Rotator{
		agents:         agents,
		acceptLanguage: acceptLanguage,
	}
}

// Next returns the next fingerprint in rotation.
func (r *Rotator) Next() Fingerprint {
	r.mu.Lock()
	defer r.mu.Unlock()

	ua := r.agents[r.next%len(r.agents)]
	r.next++
	return Fingerprint{
		UserAgent:      ua,
		AcceptLanguage: r.acceptLanguage,
	}
}

// PoolSize returns the number of identities in rotation.
func (r *Rotator) PoolSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.agents)
}
