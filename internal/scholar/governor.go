package scholar

import (
	"context"
	"math/rand"
	"time"
)

// GovernorConfig holds the timing windows for the rate governor.
type GovernorConfig struct {
	// MinDelay and MaxDelay bound the uniformly-random pause before every
	// driver-initiated navigation. Fixed delays are a detectable
	// fingerprint, so MinDelay == MaxDelay is legal but discouraged.
	MinDelay time.Duration
	MaxDelay time.Duration

	// Backoff is the long pause after a detection event, applied at most
	// once per page.
	Backoff time.Duration
}

// applyDefaults sets default values for unset configuration fields.
func (c *GovernorConfig) applyDefaults() {
	if c.MinDelay == 0 {
		c.MinDelay = 2 * time.Second
	}
	if c.MaxDelay < c.MinDelay {
		c.MaxDelay = c.MinDelay + 3*time.Second
	}
	if c.Backoff == 0 {
		c.Backoff = 30 * time.Second
	}
}

// Governor spaces the driver's actions: a randomized delay before every
// navigation and a long fixed backoff after detection events. Both sleeps
// honor context cancellation. Safe for concurrent use.
type Governor struct {
	cfg GovernorConfig

	// randFloat returns a value in [0,1); replaced in tests.
	randFloat func() float64
}

// NewGovernor creates a governor with the given timing windows.
func NewGovernor(cfg GovernorConfig) *Governor {
	cfg.applyDefaults()
	return &Governor{
		cfg:       cfg,
		randFloat: rand.Float64,
	}
}

// Delay sleeps a uniformly-random duration within [MinDelay, MaxDelay].
// Returns the context error if cancelled mid-sleep.
func (g *Governor) Delay(ctx context.Context) error {
	window := g.cfg.MaxDelay - g.cfg.MinDelay
	d := g.cfg.MinDelay + time.Duration(g.randFloat()*float64(window))
	return g.sleep(ctx, d)
}

// Backoff sleeps the long fixed pause used after a detection event.
// Returns the context error if cancelled mid-sleep.
func (g *Governor) Backoff(ctx context.Context) error {
	return g.sleep(ctx, g.cfg.Backoff)
}

func (g *Governor) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
