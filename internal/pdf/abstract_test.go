package pdf

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// textExtractor returns a HeuristicExtractor whose PDF parsing is replaced
// by a fixed text payload, so the heuristics can be exercised directly.
func textExtractor(text string) *HeuristicExtractor {
	e := NewHeuristicExtractor(zerolog.Nop())
	e.pageText = func(content []byte, maxPages int) (string, error) {
		return text, nil
	}
	return e
}

const samplePassage = "We study the effect of randomized inter-action delays on detection rates " +
	"in large-scale scraping systems and show that uniform jitter halves the challenge frequency " +
	"without reducing throughput below one page per five seconds."

func TestExtractAbstract_LabeledSection(t *testing.T) {
	t.Run("abstract heading", func(t *testing.T) {
		text := "Some Title\nA. Author, B. Author\nAbstract: " + samplePassage + "\nIntroduction\nThe rest of the paper."
		got := textExtractor(text).ExtractAbstract(nil)
		assert.Equal(t, cleanText(samplePassage), got)
	})

	t.Run("summary heading", func(t *testing.T) {
		text := "Summary. " + samplePassage + " Keywords: scraping, delays"
		got := textExtractor(text).ExtractAbstract(nil)
		assert.Equal(t, cleanText(samplePassage), got)
	})

	t.Run("overview heading", func(t *testing.T) {
		text := "Overview " + samplePassage + " 1. Setting\nDetails follow."
		got := textExtractor(text).ExtractAbstract(nil)
		assert.Equal(t, cleanText(samplePassage), got)
	})

	t.Run("heading case is ignored", func(t *testing.T) {
		text := "ABSTRACT: " + samplePassage + " INTRODUCTION more text"
		got := textExtractor(text).ExtractAbstract(nil)
		assert.Equal(t, cleanText(samplePassage), got)
	})
}

func TestExtractAbstract_ShortLabelMatchIsRejected(t *testing.T) {
	// The labeled match is under the length floor, and no paragraph
	// qualifies either.
	text := "Abstract: too short. Introduction\nBody."
	got := textExtractor(text).ExtractAbstract(nil)
	assert.Equal(t, NoAbstractMessage, got)
}

func TestExtractAbstract_LeadingParagraphFallback(t *testing.T) {
	t.Run("first substantial paragraph wins", func(t *testing.T) {
		text := "Short header\n\n" + samplePassage + "\n\nAnother long paragraph that should not be reached because the first one qualifies."
		got := textExtractor(text).ExtractAbstract(nil)
		assert.Equal(t, cleanText(samplePassage), got)
	})

	t.Run("noisy paragraphs are skipped", func(t *testing.T) {
		noisy := "Figure 1 shows the full pipeline architecture with every component of the system labeled for reference purposes and discussion."
		text := noisy + "\n\n" + samplePassage
		got := textExtractor(text).ExtractAbstract(nil)
		assert.Equal(t, cleanText(samplePassage), got)
	})

	t.Run("overlong paragraphs are skipped", func(t *testing.T) {
		wall := strings.Repeat("all work and no play makes a dull page ", 80)
		text := wall + "\n\n" + samplePassage
		got := textExtractor(text).ExtractAbstract(nil)
		assert.Equal(t, cleanText(samplePassage), got)
	})
}

func TestExtractAbstract_NothingFound(t *testing.T) {
	got := textExtractor("just a few words").ExtractAbstract(nil)
	assert.Equal(t, NoAbstractMessage, got)
}

func TestExtractAbstract_ParserFailure(t *testing.T) {
	t.Run("garbage bytes", func(t *testing.T) {
		e := NewHeuristicExtractor(zerolog.Nop())
		got := e.ExtractAbstract([]byte("this is not a pdf at all"))
		assert.Equal(t, NoAbstractMessage, got)
	})

	t.Run("truncated pdf", func(t *testing.T) {
		e := NewHeuristicExtractor(zerolog.Nop())
		got := e.ExtractAbstract([]byte("%PDF-1.4\n1 0 obj\n<<"))
		assert.Equal(t, NoAbstractMessage, got)
	})

	t.Run("empty input", func(t *testing.T) {
		e := NewHeuristicExtractor(zerolog.Nop())
		got := e.ExtractAbstract(nil)
		assert.Equal(t, NoAbstractMessage, got)
	})
}

func TestCleanText(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{"collapses whitespace", "a  b\t\tc\n\nd", "a b c d"},
		{"strips control characters", "a\x00b\x1fc", "a b c"},
		{"keeps prose punctuation", "Results: 95% (n=3)!", "Results: 95 (n 3)!"},
		{"replaces symbols with spaces", "cost@scale#now", "cost scale now"},
		{"empty", "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, cleanText(tc.in))
		})
	}
}

func TestLabeledAbstract_FirstQualifyingPatternWins(t *testing.T) {
	text := "Overview " + samplePassage + " Introduction\n\nAbstract: a different passage long enough to qualify as an abstract for the purposes of this check. Conclusion"
	got, ok := labeledAbstract(text)
	require.True(t, ok)
	// Pattern order is abstract, summary, overview.
	assert.Contains(t, got, "a different passage")
}
