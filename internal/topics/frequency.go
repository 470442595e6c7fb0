package topics

import (
	"sort"
	"strings"

	"github.com/litscout/scholar-search-service/internal/domain"
)

const (
	// termsPerTopic is how many ranked terms each topic consumes.
	termsPerTopic = 10
	// displayTermsPerTopic is how many of those the topic surfaces.
	displayTermsPerTopic = 5
	// descriptionTerms is how many terms the description names.
	descriptionTerms = 3
)

// defaultStopwords is the built-in exclusion list: English function words
// plus academic boilerplate that says nothing about a paper's subject.
var defaultStopwords = []string{
	"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for",
	"of", "with", "by", "this", "that", "these", "those", "is", "are",
	"was", "were", "be", "been", "being", "have", "has", "had", "do",
	"does", "did", "will", "would", "could", "should", "may", "might",
	"study", "research", "paper", "article", "analysis", "using", "based",
}

// FrequencyClusterer is the reference Clusterer: it ranks terms by corpus
// frequency and deals them out in bands, topic 0 taking the most frequent
// band. It stands in where a statistical model would normally sit and is
// fully deterministic, which the tests lean on.
type FrequencyClusterer struct {
	stopwords map[string]struct{}
}

var _ Clusterer = (*FrequencyClusterer)(nil)

// NewFrequencyClusterer creates the reference clusterer. An empty stopword
// list selects the built-in one.
func NewFrequencyClusterer(stopwords []string) *FrequencyClusterer {
	return &FrequencyClusterer{stopwords: stopwordSet(stopwords)}
}

// Cluster implements Clusterer. k is clamped to [1, len(texts)]; fewer
// topics come back when the corpus has too few distinct terms to fill them.
func (c *FrequencyClusterer) Cluster(texts []string, k int) []domain.Topic {
	if len(texts) == 0 {
		return nil
	}
	if k < 1 {
		k = 1
	}
	if k > len(texts) {
		k = len(texts)
	}

	ranked := rankTerms(texts, c.stopwords)
	topics := make([]domain.Topic, 0, k)
	for i := 0; i < k; i++ {
		lo := i * termsPerTopic
		if lo >= len(ranked) {
			break
		}
		band := ranked[lo:min(lo+termsPerTopic, len(ranked))]
		topics = append(topics, domain.Topic{
			ID:          i,
			Terms:       band[:min(displayTermsPerTopic, len(band))],
			Description: "Research focusing on " + strings.Join(band[:min(descriptionTerms, len(band))], ", "),
		})
	}
	return topics
}

// Method implements Clusterer.
func (c *FrequencyClusterer) Method() string { return "frequency_analysis" }

func stopwordSet(words []string) map[string]struct{} {
	if len(words) == 0 {
		words = defaultStopwords
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}

// normalizeText lowercases, strips everything outside ASCII alphanumerics,
// and collapses whitespace. This is the shared preprocessing for keyword
// counting and clustering.
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// rankTerms counts unigrams and adjacent bigrams across the normalized
// texts, skipping stopwords and single-character tokens, and returns terms
// ordered by count. Ties break alphabetically so the ranking is stable.
func rankTerms(texts []string, stopwords map[string]struct{}) []string {
	counts := make(map[string]int)
	for _, text := range texts {
		kept := make([]string, 0, 16)
		for _, tok := range strings.Fields(text) {
			if len(tok) < 2 {
				continue
			}
			if _, stop := stopwords[tok]; stop {
				continue
			}
			kept = append(kept, tok)
		}
		for _, tok := range kept {
			counts[tok]++
		}
		for i := 0; i+1 < len(kept); i++ {
			counts[kept[i]+" "+kept[i+1]]++
		}
	}

	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})
	return terms
}
