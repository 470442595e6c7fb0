package pdf

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"
)

// NoAbstractMessage is returned when no abstract-like passage could be
// recovered from a document.
const NoAbstractMessage = "Unable to extract abstract from this PDF. The document may not contain a clear abstract section or may be in an unsupported format."

// AbstractExtractor derives an abstract from raw PDF bytes. Implementations
// are best-effort black boxes: they always return prose, falling back to
// NoAbstractMessage when nothing that looks like an abstract can be found.
type AbstractExtractor interface {
	ExtractAbstract(content []byte) string
}

const (
	// abstractPageLimit bounds how much of a document the heuristics read;
	// abstracts live on the opening pages.
	abstractPageLimit = 3

	// minAbstractLen rejects label matches too short to be real abstracts.
	minAbstractLen = 50

	// Paragraph-candidate bounds for the fallback scan.
	minParagraphLen = 100
	maxParagraphLen = 2000
)

// abstractPatterns capture the passage between a section label and the
// heading that usually follows an abstract. The terminator is consumed
// rather than looked ahead (RE2 has no lookahead); only the captured group
// is used.
var abstractPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)\babstract\s*[:.]?\s*(.+?)\s(?:keywords?\b|index terms\b|introduction\b|1\.|i\.|background\b|methods?\b|conclusions?\b)`),
	regexp.MustCompile(`(?is)\bsummary\s*[:.]?\s*(.+?)\s(?:keywords?\b|index terms\b|introduction\b|1\.|i\.|background\b|methods?\b|conclusions?\b)`),
	regexp.MustCompile(`(?is)\boverview\s*[:.]?\s*(.+?)\s(?:keywords?\b|index terms\b|introduction\b|1\.|i\.|background\b|methods?\b|conclusions?\b)`),
}

// noiseTokens mark paragraphs that are captions, references, or front
// matter rather than abstracts.
var noiseTokens = []string{"figure", "table", "reference", "citation", "doi:", "isbn"}

// HeuristicExtractor recovers abstracts from PDF text. It tries a labeled
// section match first and falls back to the first substantial paragraph of
// the opening pages.
type HeuristicExtractor struct {
	pageText func(content []byte, maxPages int) (string, error) // replaced in tests
	logger   zerolog.Logger
}

// Compile-time check that *HeuristicExtractor implements AbstractExtractor.
var _ AbstractExtractor = (*HeuristicExtractor)(nil)

// NewHeuristicExtractor creates an extractor backed by a real PDF text parser.
func NewHeuristicExtractor(logger zerolog.Logger) *HeuristicExtractor {
	return &HeuristicExtractor{
		pageText: pdfPageText,
		logger:   logger.With().Str("component", "abstract_extractor").Logger(),
	}
}

// ExtractAbstract implements AbstractExtractor. It never fails: documents
// that cannot be parsed or carry no recognizable abstract yield
// NoAbstractMessage.
func (e *HeuristicExtractor) ExtractAbstract(content []byte) string {
	text, err := e.pageText(content, abstractPageLimit)
	if err != nil {
		e.logger.Warn().Err(err).Msg("pdf text extraction failed")
		return NoAbstractMessage
	}

	if abstract, ok := labeledAbstract(text); ok {
		return abstract
	}
	if abstract, ok := leadingParagraph(text); ok {
		return abstract
	}
	return NoAbstractMessage
}

// labeledAbstract looks for an explicit Abstract/Summary/Overview section.
func labeledAbstract(text string) (string, bool) {
	for _, pattern := range abstractPatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			abstract := cleanText(match[1])
			if len(abstract) > minAbstractLen {
				return abstract, true
			}
		}
	}
	return "", false
}

// leadingParagraph returns the first paragraph that is long enough to be an
// abstract and free of caption/reference noise.
func leadingParagraph(text string) (string, bool) {
	for _, paragraph := range strings.Split(text, "\n\n") {
		cleaned := cleanText(paragraph)
		if len(cleaned) < minParagraphLen || len(cleaned) > maxParagraphLen {
			continue
		}
		lower := strings.ToLower(cleaned)
		noisy := false
		for _, token := range noiseTokens {
			if strings.Contains(lower, token) {
				noisy = true
				break
			}
		}
		if !noisy {
			return cleaned, true
		}
	}
	return "", false
}

// cleanText collapses whitespace and strips the control and symbol
// characters PDF text streams tend to carry.
func cleanText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsControl(r):
			b.WriteRune(' ')
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r):
			b.WriteRune(r)
		case strings.ContainsRune(".,;:!?()-", r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// pdfPageText extracts plain text from the first maxPages pages.
func pdfPageText(content []byte, maxPages int) (text string, err error) {
	// The parser panics on some malformed documents; contain it here so a
	// hostile upload cannot take a handler down.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	pages := reader.NumPage()
	if maxPages > 0 && pages > maxPages {
		pages = maxPages
	}

	var sb strings.Builder
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageStr, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(pageStr)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
