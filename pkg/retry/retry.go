// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package retry runs an operation under a bounded attempt count with a
// per-attempt backoff schedule and error classification.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/AccelByte/extend-relay-match/pkg/metrics"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// Operation is one attempt. attempt starts at 1. ctx is cancelled when the
// attempt returns, so nothing started by a failed attempt outlives it.
type Operation func(ctx context.Context, attempt int) error

// Policy describes how an operation is retried.
type Policy struct {
	// Name labels log lines and the retry metric.
	Name string

	// MaxAttempts bounds the total number of attempts. Zero means unbounded.
	MaxAttempts int

	// Delay returns the wait after the given failed attempt.
	Delay func(attempt int) time.Duration

	// Retryable classifies an error. A nil func retries everything.
	Retryable func(err error) bool

	// AttemptTimeout bounds each attempt. Zero leaves only the parent deadline.
	AttemptTimeout time.Duration

	OnRetry func(attempt int, err error, next time.Duration)
}

// ExhaustedError is returned when every allowed attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Linear returns base * attempt.
func Linear(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return base * time.Duration(attempt)
	}
}

// Constant waits d between attempts.
func Constant(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

// Do runs op until it succeeds, returns a non-retryable error, the attempts
// run out, or ctx is done. A cancelled ctx is reported as ctx.Err().
func Do(ctx context.Context, p Policy, op Operation) error {
	schedule := &attemptBackOff{delay: p.Delay}

	var b backoff.BackOff = schedule
	if p.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))
	}
	b = backoff.WithContext(b, ctx)

	var lastErr error
	exhausted := true

	operation := func() error {
		schedule.attempt++
		attempt := schedule.attempt

		var attemptCtx context.Context
		var cancel context.CancelFunc
		if p.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
		} else {
			attemptCtx, cancel = context.WithCancel(ctx)
		}
		defer cancel()

		err := op(attemptCtx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			exhausted = false
			return backoff.Permanent(ctx.Err())
		}
		if p.Retryable != nil && !p.Retryable(err) {
			exhausted = false
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, next time.Duration) {
		metrics.RetryAttemptsTotal.WithLabelValues(p.Name).Inc()
		logrus.Warnf("%s attempt %d failed: %v, retrying in %v", p.Name, schedule.attempt, err, next)
		if p.OnRetry != nil {
			p.OnRetry(schedule.attempt, err, next)
		}
	}

	err := backoff.RetryNotify(operation, b, notify)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if exhausted && lastErr != nil {
		return &ExhaustedError{Attempts: schedule.attempt, Err: lastErr}
	}
	return err
}

// attemptBackOff adapts a per-attempt delay func to backoff.BackOff.
type attemptBackOff struct {
	delay   func(int) time.Duration
	attempt int
}

func (b *attemptBackOff) NextBackOff() time.Duration {
	if b.delay == nil {
		return 0
	}
	return b.delay(b.attempt)
}

func (b *attemptBackOff) Reset() { b.attempt = 0 }
