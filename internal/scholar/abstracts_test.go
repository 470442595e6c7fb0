package scholar

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litscout/scholar-search-service/internal/domain"
)

func abstractPage(html string) func(int, int) string {
	return func(int, int) string { return `<html><body>` + html + `</body></html>` }
}

func TestAbstractResolver_ResolveFindsContainer(t *testing.T) {
	sess := &fakeSession{pageFor: abstractPage(`<div class="abstract"> We propose a method. </div>`)}
	r := NewAbstractResolver(singleSessionFactory(sess), testGovernor(), 5, zerolog.Nop())

	abstract, err := r.Resolve(context.Background(), "https://papers.example/1")

	require.NoError(t, err)
	assert.Equal(t, "We propose a method.", abstract)
	assert.Equal(t, 1, sess.closed, "resolution sessions are single-use")
}

func TestAbstractResolver_SelectorOrder(t *testing.T) {
	sess := &fakeSession{pageFor: abstractPage(
		`<div class="c-article-section__content">springer text</div><div id="abstract">canonical text</div>`,
	)}
	r := NewAbstractResolver(singleSessionFactory(sess), testGovernor(), 5, zerolog.Nop())

	abstract, err := r.Resolve(context.Background(), "https://papers.example/1")

	require.NoError(t, err)
	assert.Equal(t, "canonical text", abstract, "earlier selectors win")
}

func TestAbstractResolver_NoContainerMeansEmpty(t *testing.T) {
	sess := &fakeSession{pageFor: abstractPage(`<article><p>full text, no abstract markup</p></article>`)}
	r := NewAbstractResolver(singleSessionFactory(sess), testGovernor(), 5, zerolog.Nop())

	abstract, err := r.Resolve(context.Background(), "https://papers.example/1")

	require.NoError(t, err)
	assert.Empty(t, abstract)
}

func TestAbstractResolver_SessionFailure(t *testing.T) {
	factory := &fakeFactory{err: errors.New("pool drained")}
	r := NewAbstractResolver(factory, testGovernor(), 5, zerolog.Nop())

	_, err := r.Resolve(context.Background(), "https://papers.example/1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "acquire session")
}

func TestAbstractResolver_EnrichSpendsBudgetInOrder(t *testing.T) {
	factory := &fakeFactory{newSess: func() *fakeSession {
		return &fakeSession{pageFor: abstractPage(`<div class="abstract">resolved</div>`)}
	}}
	r := NewAbstractResolver(factory, testGovernor(), 1, zerolog.Nop())

	papers := []domain.Paper{
		{ID: "a", URL: "https://papers.example/a", Abstract: "already set"},
		{ID: "b", URL: "https://papers.example/b"},
		{ID: "c", URL: "https://papers.example/c"},
		{ID: "d"},
	}
	r.Enrich(context.Background(), papers)

	assert.Equal(t, "already set", papers[0].Abstract, "existing abstracts are never overwritten")
	assert.Equal(t, "resolved", papers[1].Abstract)
	assert.Empty(t, papers[2].Abstract, "budget of one stops after the first candidate")
	assert.Empty(t, papers[3].Abstract)
	assert.Len(t, factory.sessions, 1)
}

func TestAbstractResolver_EnrichSkipsPapersWithoutURL(t *testing.T) {
	factory := &fakeFactory{newSess: func() *fakeSession {
		return &fakeSession{pageFor: abstractPage(`<div class="abstract">resolved</div>`)}
	}}
	r := NewAbstractResolver(factory, testGovernor(), 5, zerolog.Nop())

	papers := []domain.Paper{{ID: "a"}, {ID: "b"}}
	r.Enrich(context.Background(), papers)

	assert.Empty(t, papers[0].Abstract)
	assert.Empty(t, papers[1].Abstract)
	assert.Empty(t, factory.sessions, "papers without a landing page cost no attempts")
}

func TestAbstractResolver_EnrichSkipsPapersWithSnippet(t *testing.T) {
	factory := &fakeFactory{newSess: func() *fakeSession {
		return &fakeSession{pageFor: abstractPage(`<div class="abstract">resolved</div>`)}
	}}
	r := NewAbstractResolver(factory, testGovernor(), 5, zerolog.Nop())

	papers := []domain.Paper{
		{ID: "a", URL: "https://papers.example/a", Snippet: "preview text on the result card"},
		{ID: "b", URL: "https://papers.example/b"},
	}
	r.Enrich(context.Background(), papers)

	assert.Empty(t, papers[0].Abstract, "a snippet already previews the paper")
	assert.Equal(t, "resolved", papers[1].Abstract)
	assert.Len(t, factory.sessions, 1)
}

func TestAbstractResolver_EnrichFailuresLeavePapersIntact(t *testing.T) {
	factory := &fakeFactory{err: errors.New("pool drained")}
	r := NewAbstractResolver(factory, testGovernor(), 2, zerolog.Nop())

	papers := []domain.Paper{
		{ID: "a", URL: "https://papers.example/a"},
		{ID: "b", URL: "https://papers.example/b"},
	}
	r.Enrich(context.Background(), papers)

	assert.Empty(t, papers[0].Abstract)
	assert.Empty(t, papers[1].Abstract)
}

func TestAbstractResolver_EnrichStopsOnCancelledContext(t *testing.T) {
	factory := &fakeFactory{newSess: func() *fakeSession {
		return &fakeSession{pageFor: abstractPage(`<div class="abstract">resolved</div>`)}
	}}
	r := NewAbstractResolver(factory, testGovernor(), 5, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	papers := []domain.Paper{{ID: "a", URL: "https://papers.example/a"}}
	r.Enrich(ctx, papers)

	assert.Empty(t, papers[0].Abstract)
	assert.Empty(t, factory.sessions)
}
