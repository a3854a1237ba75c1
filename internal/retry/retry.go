// Package retry wraps a single network operation in a per-attempt timeout
// race and a bounded retry loop with flat or exponential backoff. It knows
// nothing about what the operation does.
package retry

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/berckan/tldscout/internal/models"
)

// ErrTimeout is produced when an attempt loses the race against its timer.
var ErrTimeout = errors.New("Operation timed out") //nolint:staticcheck // user-visible message

const defaultMultiplier = 2

// Policy is a resolved retry budget.
type Policy struct {
	MaxRetries   int
	InitialDelay time.Duration
	Exponential  bool
	Multiplier   float64
	MaxDelay     time.Duration
	// Timeout bounds each attempt separately; zero disables the race.
	Timeout time.Duration
}

// FromRetryConfig converts a command retry config. Commands have no attempt
// timeout of their own; their probes carry one.
func FromRetryConfig(c models.RetryConfig) Policy {
	return Policy{
		MaxRetries:   max(c.MaxRetries, 0),
		InitialDelay: ms(c.InitialDelayMs),
		Exponential:  c.UseExponentialBackoff,
		Multiplier:   c.BackoffMultiplier,
		MaxDelay:     ms(c.MaxDelayMs),
	}
}

// FromQueryConfig converts a probe query config.
func FromQueryConfig(c models.QueryConfig) Policy {
	return Policy{
		MaxRetries:   max(c.MaxRetries, 0),
		InitialDelay: ms(c.RetryDelayMs),
		Exponential:  c.UseExponentialBackoff,
		Multiplier:   defaultMultiplier,
		MaxDelay:     30 * time.Second,
		Timeout:      ms(c.TimeoutMs),
	}
}

// Delay returns the wait before retry n (0 for the first retry).
func (p Policy) Delay(n int) time.Duration {
	if !p.Exponential {
		return p.InitialDelay
	}
	m := p.Multiplier
	if m <= 1 {
		m = defaultMultiplier
	}
	d := float64(p.InitialDelay) * math.Pow(m, float64(n))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	if d > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// Do calls fn until it succeeds, fails with a non-retryable error, or the
// retry budget is spent. It returns the number of retries performed and, on
// failure, the last error.
func Do[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, int, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := Sleep(ctx, p.Delay(attempt-1)); err != nil {
				return zero, attempt - 1, err
			}
		}

		v, err := race(ctx, p.Timeout, fn)
		if err == nil {
			return v, attempt, nil
		}
		lastErr = err

		if !Retryable(err) || ctx.Err() != nil {
			return zero, attempt, err
		}
	}
	return zero, p.MaxRetries, lastErr
}

// race runs fn against a timer. On timeout the call is no longer awaited;
// its context is cancelled but nothing waits for it to return.
func race[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}

	type outcome struct {
		v   T
		err error
	}

	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		v, err := fn(actx)
		done <- outcome{v: v, err: err}
	}()

	var zero T
	select {
	case o := <-done:
		if o.err != nil && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
			return zero, ErrTimeout
		}
		return o.v, o.err
	case <-actx.Done():
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, ErrTimeout
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func ms(v int) time.Duration {
	if v <= 0 {
		return 0
	}
	return time.Duration(v) * time.Millisecond
}
