package backup

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/edvin/opsportal/internal/metrics"
)

// RetryPolicy bounds retries of transient failures: Attempts tries in total,
// with a jittered delay starting at BaseDelay and doubling up to MaxDelay.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 10 * time.Second}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOffContext {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.BaseDelay
	eb.Multiplier = 2
	eb.RandomizationFactor = 0.5
	if p.MaxDelay > 0 {
		eb.MaxInterval = p.MaxDelay
	}
	eb.MaxElapsedTime = 0
	eb.Reset()

	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(attempts-1)), ctx)
}

// withRetry runs fn until it succeeds, returns an error for which permanent
// reports true, the attempts are used up or ctx is done.
func withRetry[T any](ctx context.Context, p RetryPolicy, logger zerolog.Logger, op string,
	permanent func(error) bool, fn func(context.Context) (T, error)) (T, error) {
	attempt := 0
	return backoff.RetryNotifyWithData(func() (T, error) {
		attempt++
		v, err := fn(ctx)
		if err != nil && (permanent(err) || ctx.Err() != nil) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, p.backOff(ctx), func(err error, next time.Duration) {
		metrics.ExternalRetries.WithLabelValues(op).Inc()
		logger.Warn().Err(err).
			Str("operation", op).
			Int("attempt", attempt).
			Dur("retry_in", next).
			Msg("transient failure, retrying")
	})
}
