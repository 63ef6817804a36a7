package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	pkgerrors "github.com/turtacn/riskpulse/pkg/errors"
)

// RetryPolicy bounds retries of transient failures with exponential backoff.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy suits provider calls: short, bounded.
func DefaultRetryPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries:      maxRetries,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     1 * time.Second,
	}
}

// Do runs op, retrying transient errors per the policy. Non-retryable errors
// (validation, auth, unsupported horizon) abort immediately. Context
// cancellation stops the retry loop.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialInterval
	bo.MaxInterval = p.MaxInterval

	var policy backoff.BackOff = backoff.WithMaxRetries(bo, uint64(p.MaxRetries))
	policy = backoff.WithContext(policy, ctx)

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !pkgerrors.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}
