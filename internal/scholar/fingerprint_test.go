package scholar

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRotator_FallsBackToBuiltinPool(t *testing.T) {
	r := NewRotator(nil, "")

	assert.Equal(t, len(defaultUserAgents), r.PoolSize())
	fp := r.Next()
	assert.Equal(t, defaultUserAgents[0], fp.UserAgent)
	assert.Equal(t, "en-US,en;q=0.9", fp.AcceptLanguage)
}

func TestRotator_RoundRobinWraps(t *testing.T) {
	r := NewRotator([]string{"agent-a", "agent-b"}, "de-DE")

	assert.Equal(t, "agent-a", r.Next().UserAgent)
	assert.Equal(t, "agent-b", r.Next().UserAgent)
	assert.Equal(t, "agent-a", r.Next().UserAgent)
	assert.Equal(t, 2, r.PoolSize())
}

func TestRotator_ConcurrentDraws(t *testing.T) {
	r := NewRotator([]string{"a", "b", "c"}, "en")

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fp := r.Next()
			assert.NotEmpty(t, fp.UserAgent)
		}()
	}
	wg.Wait()

	// 30 draws over a pool of three wrap back to the first agent.
	assert.Equal(t, "a", r.Next().UserAgent)
}

func TestFingerprint_Headers(t *testing.T) {
	fp := Fingerprint{UserAgent: "ua", AcceptLanguage: "fr-FR,fr;q=0.8"}

	headers := fp.Headers()

	require.Contains(t, headers, "Accept-Language")
	assert.Equal(t, "fr-FR,fr;q=0.8", headers["Accept-Language"])
	assert.Equal(t, "1", headers["DNT"])
	assert.Contains(t, headers["Accept"], "text/html")
	assert.Equal(t, "keep-alive", headers["Connection"])
}

func TestDefaultUserAgents_AreDesktopOnly(t *testing.T) {
	for _, ua := range defaultUserAgents {
		assert.NotContains(t, ua, "Mobile")
		assert.NotContains(t, ua, "Android")
		assert.NotContains(t, ua, "iPhone")
	}
}
