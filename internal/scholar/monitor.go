package scholar

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/litscout/scholar-search-service/internal/domain"
)

// Markup markers checked before any text heuristics. Order matters: the
// first match wins.
var challengeSelectors = []string{
	"#gs_captcha_ccl",
	"div.g-recaptcha",
	"form#captcha-form",
	"iframe[src*='recaptcha']",
}

// Rendered-text phrases, matched case-insensitively against the body.
var (
	challengePhrases = []string{
		"unusual traffic",
		"not a robot",
	}
	rateLimitPhrases = []string{
		"sending requests too quickly",
		"too many requests",
	}
)

// Monitor classifies fetched pages with respect to bot defenses. Inspect is
// pure: it reads an already-parsed snapshot and never navigates.
type Monitor struct {
	logger zerolog.Logger
}

// NewMonitor creates a detection monitor.
func NewMonitor(logger zerolog.Logger) *Monitor {
	return &Monitor{
		logger: logger.With().Str("component", "detection_monitor").Logger(),
	}
}

// Inspect checks the snapshot for bot-challenge signals: known challenge
// widget and iframe markers first, then literal challenge phrasing, then
// throttling phrasing. The first match wins.
func (m *Monitor) Inspect(doc *goquery.Document) domain.DetectionEvent {
	if doc == nil {
		return domain.DetectionNone
	}

	for _, sel := range challengeSelectors {
		if doc.Find(sel).Length() > 0 {
			m.logger.Debug().Str("selector", sel).Msg("challenge marker present")
			return domain.DetectionChallenge
		}
	}

	body := strings.ToLower(doc.Find("body").Text())
	for _, phrase := range challengePhrases {
		if strings.Contains(body, phrase) {
			m.logger.Debug().Str("phrase", phrase).Msg("challenge phrasing present")
			return domain.DetectionChallenge
		}
	}
	for _, phrase := range rateLimitPhrases {
		if strings.Contains(body, phrase) {
			m.logger.Debug().Str("phrase", phrase).Msg("throttling phrasing present")
			return domain.DetectionRateLimited
		}
	}

	return domain.DetectionNone
}
