package scholar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var errWaitTimeout = errors.New("selector never appeared")

// fakeSession serves scripted result pages to the code under test. The
// session tracks a step counter: step 0 is the page reached by the first
// Navigate call, SubmitForm and every later Navigate advance it by one.
// pageFor decides the HTML served at each step; visit counts how many
// snapshots were already taken at the current step, so a test can serve a
// challenge page first and a clean page after the backoff re-poll.
type fakeSession struct {
	pageFor func(step, visit int) string

	// waitFailures[step] is how many WaitFor calls fail at that step
	// before succeeding.
	waitFailures map[int]int
	navErrAt     map[int]error
	submitErr    error
	snapshotErr  error

	step      int
	navs      int
	waits     int
	snapshots map[int]int
	submitted []string
	closed    int
}

func (s *fakeSession) Navigate(_ context.Context, _ string) error {
	s.navs++
	if s.navs > 1 {
		s.step++
	}
	if err := s.navErrAt[s.step]; err != nil {
		return err
	}
	return nil
}

func (s *fakeSession) WaitFor(_ context.Context, _ string, _ time.Duration) error {
	s.waits++
	if s.waitFailures[s.step] > 0 {
		s.waitFailures[s.step]--
		return errWaitTimeout
	}
	return nil
}

func (s *fakeSession) SubmitForm(_ context.Context, text string) error {
	if s.submitErr != nil {
		return s.submitErr
	}
	s.submitted = append(s.submitted, text)
	s.step++
	return nil
}

func (s *fakeSession) Snapshot(_ context.Context) (*goquery.Document, error) {
	if s.snapshotErr != nil {
		return nil, s.snapshotErr
	}
	if s.snapshots == nil {
		s.snapshots = make(map[int]int)
	}
	visit := s.snapshots[s.step]
	s.snapshots[s.step]++
	return goquery.NewDocumentFromReader(strings.NewReader(s.pageFor(s.step, visit)))
}

func (s *fakeSession) Close() error {
	s.closed++
	return nil
}

// fakeFactory hands out one fake session per NewSession call and remembers
// them so tests can inspect each session afterwards.
type fakeFactory struct {
	newSess  func() *fakeSession
	err      error
	sessions []*fakeSession
}

func (f *fakeFactory) NewSession(_ context.Context) (Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := f.newSess()
	f.sessions = append(f.sessions, s)
	return s, nil
}

func singleSessionFactory(s *fakeSession) *fakeFactory {
	return &fakeFactory{newSess: func() *fakeSession { return s }}
}

func testGovernor() *Governor {
	return NewGovernor(GovernorConfig{
		MinDelay: time.Millisecond,
		MaxDelay: 2 * time.Millisecond,
		Backoff:  time.Millisecond,
	})
}

// resultBlock renders one organic result in the markup the extractor
// understands. Empty arguments leave the corresponding element out.
func resultBlock(title, href, detail, snippet, pdfHref string, citedBy int) string {
	var b strings.Builder
	b.WriteString(`<div class="gs_r"><div class="gs_ri">`)
	if title != "" {
		fmt.Fprintf(&b, `<h3 class="gs_rt"><a href="%s">%s</a></h3>`, href, title)
	}
	if detail != "" {
		fmt.Fprintf(&b, `<div class="gs_a">%s</div>`, detail)
	}
	if snippet != "" {
		fmt.Fprintf(&b, `<div class="gs_rs">%s</div>`, snippet)
	}
	if citedBy > 0 {
		fmt.Fprintf(&b, `<div class="gs_fl"><a href="/scholar?cites=1">Cited by %d</a></div>`, citedBy)
	}
	if pdfHref != "" {
		fmt.Fprintf(&b, `<div class="gs_or_ggsm"><a href="%s">[PDF] host.example</a></div>`, pdfHref)
	}
	b.WriteString(`</div></div>`)
	return b.String()
}

func numberedBlock(idx int) string {
	return resultBlock(
		fmt.Sprintf("Paper %d", idx),
		fmt.Sprintf("https://papers.example/%d", idx),
		fmt.Sprintf("A Author, B Author - Journal of Tests, %d - papers.example", 2015+idx%10),
		fmt.Sprintf("Snippet for paper %d.", idx),
		"",
		idx,
	)
}

// resultsPage renders a page of numbered result blocks starting at start.
func resultsPage(start, count int, withNext, nextDisabled bool) string {
	var b strings.Builder
	b.WriteString(`<html><body><div id="gs_res_ccl_mid">`)
	for i := 0; i < count; i++ {
		b.WriteString(numberedBlock(start + i))
	}
	b.WriteString(`</div>`)
	if withNext {
		class := ""
		if nextDisabled {
			class = ` class="gs_disabled"`
		}
		fmt.Fprintf(&b, `<div id="gs_n"><a href="/scholar?start=%d" aria-label="Next"%s>Next</a></div>`, start+count, class)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func landingPage() string {
	return `<html><body><form action="/scholar"><input name="q" type="text"></form></body></html>`
}

func challengePage() string {
	return `<html><body><form id="captcha-form">Our systems have detected unusual traffic from your computer network.</form></body></html>`
}

func rateLimitPage() string {
	return `<html><body><p>You are sending requests too quickly. Please try again later.</p></body></html>`
}
