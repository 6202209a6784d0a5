package ai

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultMaxRetries   = 3
	DefaultInitialDelay = 1500 * time.Millisecond
)

// Retrier re-invokes transient failures with a doubling delay, one call per attempt.
type Retrier struct {
	maxRetries   int
	initialDelay time.Duration
	sleep        func(context.Context, time.Duration) error
	log          *zap.Logger
}

func NewRetrier(maxRetries int, initialDelay time.Duration, log *zap.Logger) *Retrier {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if initialDelay <= 0 {
		initialDelay = DefaultInitialDelay
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Retrier{
		maxRetries:   maxRetries,
		initialDelay: initialDelay,
		sleep:        sleepWithContext,
		log:          log,
	}
}

// Do runs fn at most maxRetries+1 times. Non-transient errors return immediately.
func (r *Retrier) Do(ctx context.Context, op string, fn func(context.Context) (string, error)) (string, error) {
	delay := r.initialDelay
	for attempt := 0; ; attempt++ {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		if attempt >= r.maxRetries || !IsTransient(err) {
			return "", err
		}
		r.log.Warn("transient provider failure, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))
		if err := r.sleep(ctx, delay); err != nil {
			return "", err
		}
		delay *= 2
	}
}

func sleepWithContext(ctx context.Context, wait time.Duration) error {
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
