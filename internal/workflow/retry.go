package workflow

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy controls how a failed unit attempt is retried. All retries
// happen inside the unit's timeout; a unit never outlives it.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	InitialInterval    time.Duration
	BackoffCoefficient float64
	MaxInterval        time.Duration
}

// DefaultRetryPolicy returns the policy used when a unit specifies none.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:        3,
		InitialInterval:    time.Second,
		BackoffCoefficient: 2,
		MaxInterval:        5 * time.Second,
	}
}

// NoRetry runs a unit exactly once.
func NoRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1}
}

func (p RetryPolicy) isZero() bool {
	return p == RetryPolicy{}
}

// newBackOff returns the wait schedule between attempts. It yields
// backoff.Stop once MaxAttempts is used up or ctx is done. Intervals are
// not jittered.
func (p RetryPolicy) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = max(p.InitialInterval, 0)
	b.Multiplier = max(p.BackoffCoefficient, 1)
	b.MaxInterval = p.MaxInterval
	if b.MaxInterval <= 0 {
		b.MaxInterval = time.Duration(math.MaxInt64)
	}
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	retries := uint64(0)
	if p.MaxAttempts > 1 {
		retries = uint64(p.MaxAttempts - 1)
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx)
}

// NonRetryable marks err so the engine fails the unit without retrying.
// A nil err stays nil.
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// IsNonRetryable reports whether err, or anything it wraps, was marked
// with NonRetryable.
func IsNonRetryable(err error) bool {
	var permanent *backoff.PermanentError
	return errors.As(err, &permanent)
}
