// Package quietswap silences the audible output while a soundfont is being
// (re)loaded and restores it after a fixed settle delay.
//
// The settle delay is a plain wait. It is not tied to any completion signal
// from the engine: a load slower than the delay can still be heard, and a
// faster one keeps the output muted longer than needed.
package quietswap

import (
	"context"
	"sync"
	"time"

	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// Restore un-mutes the output after the settle delay. It blocks for the
// delay unless ctx ends first, in which case the level is restored at once.
// Calling it more than once has no further effect.
type Restore func(ctx context.Context)

// Controller mutes a shared output. Mutes nest: the level is captured by the
// first Mute and put back by the last Restore, so overlapping loads on
// different instances never restore a level that was already muted.
type Controller struct {
	out    contracts.OutputLevel
	settle time.Duration
	logger contracts.Logger

	mu    sync.Mutex
	depth int
	saved float64

	// after is time.After, replaceable in tests.
	after func(time.Duration) <-chan time.Time
}

// New creates a controller over out. A nil out makes Mute a no-op.
func New(out contracts.OutputLevel, settle time.Duration, logger contracts.Logger) *Controller {
	return &Controller{out: out, settle: settle, logger: logger, after: time.After}
}

// Muted reports whether at least one load currently holds the output muted.
func (c *Controller) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.depth > 0
}

// Mute forces the output to silence and returns its Restore.
func (c *Controller) Mute() Restore {
	if c.out == nil {
		return func(context.Context) {}
	}

	c.mu.Lock()
	if c.depth == 0 {
		c.saved = c.out.Level()
		c.out.SetLevel(0)
		c.logger.Debug("output muted for soundfont load", c.logger.Field().Float64("level", c.saved))
	}
	c.depth++
	c.mu.Unlock()

	var once sync.Once
	return func(ctx context.Context) {
		once.Do(func() {
			c.wait(ctx)
			c.release()
		})
	}
}

func (c *Controller) wait(ctx context.Context) {
	if c.settle <= 0 {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-c.after(c.settle):
	case <-ctx.Done():
	}
}

func (c *Controller) release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.depth--
	if c.depth > 0 {
		return
	}
	c.depth = 0
	c.out.SetLevel(c.saved)
	c.logger.Debug("output restored", c.logger.Field().Float64("level", c.saved))
}
