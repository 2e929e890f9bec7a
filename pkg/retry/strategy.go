package retry

import (
	"context"
	"time"

	"github.com/solagent/solagent-go/pkg/retry/backoff"
)

// Strategy decides whether an action should be attempted again. Strategies
// may delay or cause other side effects.
type Strategy func(attempts uint, err error) bool

// Limit caps the total number of attempts, including the first.
func Limit(maxAttempts uint) Strategy {
	return func(attempts uint, _ error) bool {
		return attempts < maxAttempts
	}
}

// If only retries errors accepted by the predicate.
func If(retriable func(error) bool) Strategy {
	return func(_ uint, err error) bool {
		return retriable(err)
	}
}

// Context stops retrying once ctx is done.
func Context(ctx context.Context) Strategy {
	return func(uint, error) bool {
		return ctx.Err() == nil
	}
}

// ContextBackoff sleeps for the delay given by strategy, capped at maxBackoff,
// before the next attempt. The sleep is abandoned as soon as ctx is done, in
// which case no further attempts are made.
func ContextBackoff(ctx context.Context, strategy backoff.Strategy, maxBackoff time.Duration) Strategy {
	return func(attempts uint, _ error) bool {
		delay := strategy(attempts)
		if delay > maxBackoff {
			delay = maxBackoff
		}
		return sleeperImpl.SleepContext(ctx, delay)
	}
}

type sleeper interface {
	// SleepContext returns false if ctx was done before d elapsed.
	SleepContext(ctx context.Context, d time.Duration) bool
}

type realSleeper struct{}

func (realSleeper) SleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return ctx.Err() == nil
	}
}

var sleeperImpl sleeper = realSleeper{}
