// Package scholar implements the scraping pipeline for scholar search result
// pages: a pagination state machine over a browser automation session, with
// fingerprint rotation, randomized politeness delays, bot-challenge detection,
// and tolerant result-block extraction.
//
// The pipeline is built from small parts, leaves first:
//
//   - Rotator produces believable browser identities per session.
//   - Governor enforces randomized inter-action delays and the long backoff
//     after a detection event.
//   - Extractor maps one result block to a domain.Paper, tolerating missing
//     optional fields.
//   - Monitor classifies a fetched page for bot-challenge signals.
//   - Driver owns the submit → await → extract → advance loop, bounded by a
//     result quota and a per-page retry budget.
//
// The browser engine is abstracted behind the Session interface; the chromedp
// implementation lives in this package, and tests drive the state machine
// against fakes.
//
// Example usage:
//
//	rotator := scholar.NewRotator(nil, "en-US,en;q=0.9")
//	factory := scholar.NewChromeSessionFactory(sessCfg, rotator, logger)
//	driver := scholar.NewDriver(cfg, factory, governor, monitor, extractor, metrics, logger)
//	result, err := driver.Scrape(ctx, domain.SearchQuery{Text: "CRISPR", MaxResults: 20})
package scholar
