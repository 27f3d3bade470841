package crawler

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/jonesrussell/cafecrawl/internal/browser"
)

// Pacer inserts a randomized delay between page loads. Fixed intervals look
// mechanical to the target site; the jitter keeps request timing humane.
type Pacer struct {
	minDelay time.Duration
	maxDelay time.Duration
}

// NewPacer creates a pacer with the given delay bounds.
func NewPacer(minDelay, maxDelay time.Duration) *Pacer {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Pacer{minDelay: minDelay, maxDelay: maxDelay}
}

// Wait sleeps for a random duration within the configured bounds, or until
// the context is cancelled.
func (p *Pacer) Wait(ctx context.Context) error {
	d := p.minDelay
	if p.maxDelay > p.minDelay {
		d += time.Duration(rand.Int63n(int64(p.maxDelay - p.minDelay)))
	}
	return sleepCtx(ctx, d)
}

// Backoff computes capped exponential retry delays.
type Backoff struct {
	baseDelay time.Duration
	maxDelay  time.Duration
}

// NewBackoff creates a backoff schedule.
func NewBackoff(baseDelay, maxDelay time.Duration) *Backoff {
	return &Backoff{baseDelay: baseDelay, maxDelay: maxDelay}
}

// Delay returns the delay before the given attempt, starting at zero.
func (b *Backoff) Delay(attempt int) time.Duration {
	d := b.baseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= b.maxDelay {
			return b.maxDelay
		}
	}
	return d
}

// Wait sleeps for the attempt's delay, or until the context is cancelled.
func (b *Backoff) Wait(ctx context.Context, attempt int) error {
	return sleepCtx(ctx, b.Delay(attempt))
}

// IsTransient reports whether an error is worth retrying. Timeouts and
// navigation failures are; extraction misses and auth problems are not,
// since reloading the same page cannot change its structure or the
// account's standing.
func IsTransient(err error) bool {
	return errors.Is(err, browser.ErrNavigationTimeout) ||
		errors.Is(err, browser.ErrNavigation)
}

// sleepCtx sleeps for d unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
