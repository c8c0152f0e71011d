package app

import (
	"context"
	"fmt"
	"time"

	"github.com/bft-labs/mdsync/internal/domain"
	"github.com/bft-labs/mdsync/internal/ports"
)

// DefaultRetryDelays is the upload retry schedule: one immediate retry, then
// increasingly spaced ones.
var DefaultRetryDelays = []time.Duration{0, 1 * time.Second, 3 * time.Second, 5 * time.Second}

// RetrySchedule retries transient failures with a fixed list of delays.
// The number of retries equals the number of delays.
type RetrySchedule struct {
	delays []time.Duration
	logger ports.Logger
}

// NewRetrySchedule creates a schedule. A nil slice disables retries.
func NewRetrySchedule(delays []time.Duration, logger ports.Logger) *RetrySchedule {
	return &RetrySchedule{
		delays: append([]time.Duration(nil), delays...),
		logger: logger,
	}
}

// Attempts returns the maximum number of calls Do makes.
func (r *RetrySchedule) Attempts() int {
	return len(r.delays) + 1
}

// Do calls fn until it succeeds, fails permanently, or the schedule is exhausted.
func (r *RetrySchedule) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	_, err := retryValue(ctx, r, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func retryValue[T any](ctx context.Context, r *RetrySchedule, op string, fn func(context.Context) (T, error)) (T, error) {
	for attempt := 0; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if !domain.IsTransient(err) {
			return v, err
		}
		if attempt >= len(r.delays) {
			return v, fmt.Errorf("%s: giving up after %d attempts: %w", op, attempt+1, err)
		}

		delay := r.delays[attempt]
		r.logger.Warn("transient failure, retrying",
			ports.String("op", op),
			ports.Int("attempt", attempt+1),
			ports.Duration("delay", delay),
			ports.Err(err),
		)

		if delay > 0 {
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return v, ctx.Err()
			case <-t.C:
			}
		} else if ctx.Err() != nil {
			return v, ctx.Err()
		}
	}
}
