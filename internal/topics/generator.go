// Package topics derives candidate research topics from a set of scraped
// papers: ranked keywords, banded topic clusters, and templated research
// questions. The statistical modeling itself sits behind the Clusterer
// interface; this package ships a deterministic frequency-based reference.
package topics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/litscout/scholar-search-service/internal/domain"
	"github.com/litscout/scholar-search-service/internal/observability"
	"github.com/litscout/scholar-search-service/internal/repository"
)

const (
	// defaultTopicCount is applied when a request carries no topic count.
	defaultTopicCount = 5
	// defaultMaxKeywords caps the keyword list surfaced per generation.
	defaultMaxKeywords = 15
	// questionTemplateBudget caps how many templates are expanded per run.
	questionTemplateBudget = 4
	// maxQuestions caps the research questions surfaced per generation.
	maxQuestions = 5
	// summaryKeywords is how many keywords the summary repeats.
	summaryKeywords = 5
	// summaryThemes is how many topics contribute their lead terms as themes.
	summaryThemes = 3
)

// defaultQuestionTemplates are expanded with the top three keywords.
var defaultQuestionTemplates = []string{
	"How does %s impact %s in the context of %s?",
	"What are the effects of %s on %s performance?",
	"Can %s be used to improve %s systems?",
	"What is the relationship between %s and %s in %s?",
	"How can %s techniques enhance %s applications?",
	"What are the challenges of implementing %s in %s?",
	"How do %s methods compare to traditional %s approaches?",
	"What factors influence %s adoption in %s environments?",
}

// Clusterer is the topic-modeling collaborator boundary. Cluster groups the
// normalized texts into at most k topics; Method names the algorithm for
// the persisted record.
type Clusterer interface {
	Cluster(texts []string, k int) []domain.Topic
	Method() string
}

// Config holds configuration for the topic generator.
type Config struct {
	// MaxKeywords is the number of keywords surfaced per generation.
	MaxKeywords int
	// Stopwords are excluded from keyword counting. Empty uses the
	// built-in list.
	Stopwords []string
	// QuestionTemplates are fmt templates with up to three %s slots for
	// the top keywords. Empty uses the built-in list.
	QuestionTemplates []string
}

// Generator turns paper titles and snippets into a TopicSet and records
// every run for the stats read model.
type Generator struct {
	cfg       Config
	clusterer Clusterer
	repo      repository.TopicRepository
	stopwords map[string]struct{}
	metrics   *observability.Metrics
	logger    zerolog.Logger
	now       func() time.Time
}

// NewGenerator creates a topic generator. A nil clusterer selects the
// frequency-based reference implementation.
func NewGenerator(
	cfg Config,
	clusterer Clusterer,
	repo repository.TopicRepository,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Generator {
	if cfg.MaxKeywords <= 0 {
		cfg.MaxKeywords = defaultMaxKeywords
	}
	if len(cfg.QuestionTemplates) == 0 {
		cfg.QuestionTemplates = defaultQuestionTemplates
	}
	if clusterer == nil {
		clusterer = NewFrequencyClusterer(cfg.Stopwords)
	}
	return &Generator{
		cfg:       cfg,
		clusterer: clusterer,
		repo:      repo,
		stopwords: stopwordSet(cfg.Stopwords),
		metrics:   metrics,
		logger:    logger.With().Str("component", "topic_generator").Logger(),
		now:       time.Now,
	}
}

// Generate derives a TopicSet from the papers' titles and snippets. The run
// is persisted best-effort: a store failure is logged but the generated set
// is still returned.
func (g *Generator) Generate(ctx context.Context, papers []domain.Paper, topicCount int) (*domain.TopicSet, error) {
	if len(papers) == 0 {
		return nil, domain.NewValidationError("papers", "papers are required")
	}
	if topicCount <= 0 {
		topicCount = defaultTopicCount
	}

	texts := make([]string, 0, len(papers))
	for i := range papers {
		if text := normalizeText(papers[i].Title + " " + papers[i].Snippet); text != "" {
			texts = append(texts, text)
		}
	}
	if len(texts) == 0 {
		return nil, domain.NewValidationError("papers", "no usable text in papers")
	}

	keywords := rankTerms(texts, g.stopwords)
	if len(keywords) > g.cfg.MaxKeywords {
		keywords = keywords[:g.cfg.MaxKeywords]
	}

	clusters := g.clusterer.Cluster(texts, topicCount)

	set := &domain.TopicSet{
		Keywords:          keywords,
		Topics:            clusters,
		ResearchQuestions: g.researchQuestions(keywords),
		Summary: domain.TopicSummary{
			TotalPapers: len(papers),
			TextSources: len(texts),
			TopKeywords: keywords[:min(summaryKeywords, len(keywords))],
			MainThemes:  mainThemes(clusters),
		},
	}

	g.persist(ctx, papers, set)
	g.metrics.RecordTopicsGenerated()
	g.logger.Info().
		Int("papers", len(papers)).
		Int("topics", len(clusters)).
		Int("keywords", len(keywords)).
		Msg("topics generated")
	return set, nil
}

// persist records the run. Persistence is bookkeeping for the stats read
// model; its failure never fails the generation.
func (g *Generator) persist(ctx context.Context, papers []domain.Paper, set *domain.TopicSet) {
	ids := make([]string, len(papers))
	for i := range papers {
		ids[i] = papers[i].ID
	}
	record := &domain.TopicRecord{
		PaperIDs:  ids,
		Topics:    *set,
		Method:    g.clusterer.Method(),
		CreatedAt: g.now().UTC(),
	}
	if err := g.repo.Save(ctx, record); err != nil {
		g.logger.Error().Err(err).Msg("topic record not persisted")
	}
}

// researchQuestions expands the first few templates with the top keywords.
// Templates take between one and three %s slots; fewer than three keywords
// yields no questions rather than half-filled templates.
func (g *Generator) researchQuestions(keywords []string) []string {
	if len(keywords) < 3 {
		return nil
	}
	templates := g.cfg.QuestionTemplates
	if len(templates) > questionTemplateBudget {
		templates = templates[:questionTemplateBudget]
	}
	args := []any{keywords[0], keywords[1], keywords[2]}
	questions := make([]string, 0, len(templates))
	for _, tpl := range templates {
		slots := strings.Count(tpl, "%s")
		if slots < 1 || slots > len(args) {
			continue
		}
		questions = append(questions, fmt.Sprintf(tpl, args[:slots]...))
	}
	if len(questions) > maxQuestions {
		questions = questions[:maxQuestions]
	}
	return questions
}

func mainThemes(clusters []domain.Topic) [][]string {
	themes := make([][]string, 0, summaryThemes)
	for i := 0; i < len(clusters) && i < summaryThemes; i++ {
		terms := clusters[i].Terms
		themes = append(themes, terms[:min(descriptionTerms, len(terms))])
	}
	return themes
}
