package platform

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy retries transient failures with exponential backoff.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   int
}

// DefaultRetryPolicy is 3 attempts at 1s, 3s between them.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:  3,
	InitialDelay: 1 * time.Second,
	Multiplier:   3,
}

// Do runs fn until it succeeds, fails permanently, or attempts run out.
// Only failures classified as transient are retried; everything else is
// returned immediately. The last error is returned when attempts run out.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	delay := p.InitialDelay

	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}

		var perr *Error
		if !errors.As(err, &perr) || !perr.Retryable() {
			return err
		}

		if attempt == p.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= time.Duration(p.Multiplier)
	}

	return err
}
