package utils

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy 重试策略: exponential backoff between attempts
type RetryPolicy struct {
	MaxAttempts int
	Initial     time.Duration
	Max         time.Duration
	Multiplier  float64

	// sleep is replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryPolicy 创建重试策略
func NewRetryPolicy(maxAttempts int, initial, max time.Duration) RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		Initial:     initial,
		Max:         max,
		Multiplier:  2,
	}
}

// Delay returns the wait before the given retry (attempt starts at 1)
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.Initial
	mult := p.Multiplier
	if mult < 1 {
		mult = 2
	}
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * mult)
		if p.Max > 0 && d >= p.Max {
			return p.Max
		}
	}
	if p.Max > 0 && d > p.Max {
		return p.Max
	}
	return d
}

// Do 带上下文的重试逻辑. Only recoverable errors are retried; the last
// error is returned once attempts are exhausted.
func (p RetryPolicy) Do(ctx context.Context, fn func(attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		// 检查上下文是否已取消
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		err := fn(attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRecoverable(err) {
			return err // 不可重试
		}
		if attempt == attempts {
			break
		}

		if err := p.wait(ctx, p.Delay(attempt)); err != nil {
			return lastErr
		}
	}

	return WrapError(lastErr, "", fmt.Sprintf("gave up after %d attempts", attempts))
}

func (p RetryPolicy) wait(ctx context.Context, d time.Duration) error {
	if p.sleep != nil {
		return p.sleep(ctx, d)
	}
	if d <= 0 {
		return nil
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

// WithSleep returns a copy of p that waits through fn instead of a timer
func (p RetryPolicy) WithSleep(fn func(ctx context.Context, d time.Duration) error) RetryPolicy {
	p.sleep = fn
	return p
}
