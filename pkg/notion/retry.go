package notion

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"
)

// RetryConfig is the opt-in backoff policy layered around the façade for
// rate-limit and server errors. The engine core never retries: without a
// RetryConfig every call is attempted exactly once. Auth, not-found, and
// validation failures are never retried regardless of policy.
type RetryConfig struct {
	// InitialInterval is the first backoff delay (default: 500ms).
	InitialInterval time.Duration

	// MaxInterval caps the delay between attempts (default: 10s).
	MaxInterval time.Duration

	// MaxElapsedTime bounds the total time spent retrying one call
	// (default: 1 minute). Zero keeps the default; use the context
	// deadline for an overall bound instead.
	MaxElapsedTime time.Duration

	// Multiplier is the exponential growth factor (default: 2).
	Multiplier float64
}

// DefaultRetryConfig returns the retry policy used when a config enables
// retries without tuning them.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		MaxElapsedTime:  1 * time.Minute,
		Multiplier:      2.0,
	}
}

func (r *RetryConfig) withDefaults() RetryConfig {
	out := *r
	def := DefaultRetryConfig()
	if out.InitialInterval <= 0 {
		out.InitialInterval = def.InitialInterval
	}
	if out.MaxInterval <= 0 {
		out.MaxInterval = def.MaxInterval
	}
	if out.MaxElapsedTime <= 0 {
		out.MaxElapsedTime = def.MaxElapsedTime
	}
	if out.Multiplier <= 0 {
		out.Multiplier = def.Multiplier
	}
	return out
}

// serverHintBackOff raises the next delay to the server's Retry-After
// request when one was seen, then falls back to the exponential schedule.
type serverHintBackOff struct {
	backoff.BackOff
	hint time.Duration
}

func (b *serverHintBackOff) NextBackOff() time.Duration {
	d := b.BackOff.NextBackOff()
	if d != backoff.Stop && b.hint > d {
		d = b.hint
	}
	b.hint = 0
	return d
}

// run executes op under the policy, retrying only errors the taxonomy
// marks retryable and honoring Retry-After hints from 429 responses.
func (r *RetryConfig) run(ctx context.Context, logger hclog.Logger, op func() error) error {
	cfg := r.withDefaults()

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = cfg.InitialInterval
	exp.MaxInterval = cfg.MaxInterval
	exp.MaxElapsedTime = cfg.MaxElapsedTime
	exp.Multiplier = cfg.Multiplier

	bo := &serverHintBackOff{BackOff: exp}

	attempt := 0
	return backoff.RetryNotify(
		func() error {
			attempt++
			err := op()
			if err == nil {
				return nil
			}
			var apiErr *Error
			if errors.As(err, &apiErr) && apiErr.retryable() {
				bo.hint = apiErr.RetryAfter
				return err
			}
			return backoff.Permanent(err)
		},
		backoff.WithContext(bo, ctx),
		func(err error, next time.Duration) {
			logger.Warn("retrying request", "attempt", attempt, "wait", next, "error", err)
		},
	)
}
