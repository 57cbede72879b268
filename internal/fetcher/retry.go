package fetcher

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy describes how often and how patiently a download is repeated.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int
	// Delay is the fixed pause between attempts.
	Delay time.Duration
}

// DefaultRetryPolicy returns three attempts spaced three seconds apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Delay:       3 * time.Second,
	}
}

// newBackOff builds a constant backoff that stops after MaxAttempts-1 retries.
//
//nolint:ireturn // backoff composes through its interface.
func (p RetryPolicy) newBackOff(ctx context.Context) backoff.BackOff {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := p.Delay
	if delay < 0 {
		delay = 0
	}

	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), uint64(attempts-1))

	return backoff.WithContext(b, ctx)
}

// run executes operation until it succeeds or the policy gives up.
// The error of the last attempt is returned.
func (p RetryPolicy) run(ctx context.Context, operation func(attempt int) error, notify func(err error, wait time.Duration)) error {
	attempt := 0

	return backoff.RetryNotify(func() error {
		attempt++

		return operation(attempt)
	}, p.newBackOff(ctx), notify)
}
