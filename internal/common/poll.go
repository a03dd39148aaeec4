package common

import (
	"context"
	"time"

	"github.com/ternarybob/crudcheck/internal/models"
)

// Backoff describes the growing interval between condition checks
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// DefaultBackoff is used when no [poll] configuration is supplied
var DefaultBackoff = Backoff{
	Initial:    50 * time.Millisecond,
	Max:        500 * time.Millisecond,
	Multiplier: 1.5,
}

// BackoffFromConfig converts the [poll] section
func BackoffFromConfig(c PollConfig) Backoff {
	return Backoff{
		Initial:    c.InitialInterval.D(),
		Max:        c.MaxInterval.D(),
		Multiplier: c.Multiplier,
	}
}

// Next returns the interval following current, capped at Max
func (b Backoff) Next(current time.Duration) time.Duration {
	if current <= 0 {
		current = b.Initial
	}
	mult := b.Multiplier
	if mult < 1 {
		mult = 1
	}
	next := time.Duration(float64(current) * mult)
	if b.Max > 0 && next > b.Max {
		next = b.Max
	}
	if next <= 0 {
		next = time.Millisecond
	}
	return next
}

// Condition reports whether the awaited state has been reached.
// A non-nil error aborts polling immediately.
type Condition func(ctx context.Context) (bool, error)

// Poll evaluates cond until it is satisfied or timeout elapses. The condition is
// always evaluated at least once, so a zero timeout is a single-shot check.
// Expiry of the timeout or of ctx yields *models.TimeoutError naming operation.
func Poll(ctx context.Context, b Backoff, timeout time.Duration, operation string, cond Condition) error {
	deadline := time.Now().Add(timeout)
	interval := b.Initial
	if interval <= 0 {
		interval = DefaultBackoff.Initial
	}

	for {
		if err := ctx.Err(); err != nil {
			return &models.TimeoutError{Operation: operation, After: timeout, Err: err}
		}

		done, err := cond(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return &models.TimeoutError{Operation: operation, After: timeout}
		}

		wait := interval
		if wait > remaining {
			wait = remaining
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return &models.TimeoutError{Operation: operation, After: timeout, Err: ctx.Err()}
		case <-timer.C:
		}

		interval = b.Next(interval)
	}
}
