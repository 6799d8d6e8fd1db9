package indexer

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const maxRetryDelay = 30 * time.Second

// retrier repeats RPC calls with doubling backoff, capped at maxRetryDelay.
type retrier struct {
	maxRetries int
	baseDelay  time.Duration
	logger     *zap.Logger
}

func (r retrier) do(ctx context.Context, op string, fn func(context.Context) error, fields ...zap.Field) error {
	maxRetries := r.maxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	delay := r.baseDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	logger := r.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		logger.Warn(op+" failed", append(fields, zap.Int("attempt", attempt+1), zap.Error(err))...)
		if attempt >= maxRetries {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}
