// Package retry bounds repeated provider calls with jittered exponential back-off.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// ErrAttemptsExhausted wraps the last error once every attempt has failed.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

const (
	DefaultMaxAttempts     = 5
	DefaultInitialInterval = 2 * time.Second
	DefaultMaxInterval     = 30 * time.Second
	DefaultMultiplier      = 2.0
	DefaultJitter          = 0.5
)

type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	Jitter          float64
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     DefaultMaxAttempts,
		InitialInterval: DefaultInitialInterval,
		MaxInterval:     DefaultMaxInterval,
		Multiplier:      DefaultMultiplier,
		Jitter:          DefaultJitter,
	}
}

// Single is a policy that makes exactly one attempt.
func Single() Policy { return Policy{MaxAttempts: 1} }

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p Policy) backOff() *backoff.ExponentialBackOff {
	exponential := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		exponential.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		exponential.MaxInterval = p.MaxInterval
	}
	if p.Multiplier >= 1 {
		exponential.Multiplier = p.Multiplier
	}
	if p.Jitter >= 0 && p.Jitter < 1 {
		exponential.RandomizationFactor = p.Jitter
	}
	return exponential
}

// Do runs operation until it succeeds, returns a non-retriable error, the
// context ends, or the policy's attempts are used up.
func Do[T any](ctx context.Context, policy Policy, logger *zap.Logger, operation func(context.Context) (T, error)) (T, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxAttempts := policy.attempts()
	attempt := 0
	var lastErr error

	result, err := backoff.Retry(ctx, func() (T, error) {
		attempt++
		value, opErr := operation(ctx)
		if opErr == nil {
			return value, nil
		}
		lastErr = opErr
		if !Retriable(opErr) {
			return value, backoff.Permanent(opErr)
		}
		return value, opErr
	},
		backoff.WithBackOff(policy.backOff()),
		backoff.WithMaxTries(uint(maxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(notifyErr error, delay time.Duration) {
			logger.Warn("provider call failed, retrying",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", maxAttempts),
				zap.Duration("delay", delay),
				zap.Error(notifyErr),
			)
		}),
	)
	if err == nil {
		return result, nil
	}
	exhausted := maxAttempts > 1 && attempt >= maxAttempts && ctx.Err() == nil && Retriable(lastErr)
	if exhausted {
		return result, fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, attempt, lastErr)
	}
	if lastErr != nil && errors.Is(err, lastErr) {
		return result, lastErr
	}
	return result, err
}
