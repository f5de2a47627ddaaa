package storage

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy controls how often a single sink is retried.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.Backoff <= 0 {
		p.Backoff = 100 * time.Millisecond
	}
	return p
}

// recordWithRetry calls fn until it succeeds, the attempts run out or ctx ends.
// Delays double after every failure.
func recordWithRetry(ctx context.Context, policy RetryPolicy, logger *zap.Logger, sink string, fn func(context.Context) error) error {
	policy = policy.normalized()

	delay := policy.Backoff
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info("sink recovered", zap.String("sink", sink), zap.Int("attempt", attempt))
			}
			return nil
		}
		if attempt > policy.MaxRetries {
			logger.Warn("sink gave up",
				zap.String("sink", sink),
				zap.Int("attempts", attempt),
				zap.Error(err),
			)
			return err
		}

		logger.Warn("sink record failed",
			zap.String("sink", sink),
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
}
