package provider

import (
	"context"
	"math/rand"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// RetryPolicy bounds the remote retry loop.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy matches the original service: up to 5 attempts,
// 1s initial backoff doubling to a 60s ceiling.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    5,
		InitialBackoff: time.Second,
		MaxBackoff:     60 * time.Second,
	}
}

// Retrier wraps a Generator with retry-with-backoff. Quota failures are
// terminal and surface immediately; every other failure is retried until the
// attempt ceiling, then wrapped in ErrRetriesExhausted.
type Retrier struct {
	inner  Generator
	policy RetryPolicy
	log    *zap.SugaredLogger

	// sleep and jitter are injectable so tests can simulate elapsed time.
	sleep  func(time.Duration)
	jitter func() float64
}

type RetrierOption func(*Retrier)

// WithSleep replaces the blocking sleep between attempts.
func WithSleep(f func(time.Duration)) RetrierOption {
	return func(r *Retrier) { r.sleep = f }
}

// WithJitter replaces the jitter source. The value is expected in [0,1);
// 0.5 means no jitter.
func WithJitter(f func() float64) RetrierOption {
	return func(r *Retrier) { r.jitter = f }
}

func NewRetrier(inner Generator, policy RetryPolicy, log *zap.SugaredLogger, opts ...RetrierOption) *Retrier {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	r := &Retrier{
		inner:  inner,
		policy: policy,
		log:    log,
		sleep:  time.Sleep,
		jitter: rand.Float64,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Retrier) Name() string { return r.inner.Name() }

// Generate calls the wrapped generator, sleeping between failed attempts.
// The backoff doubles per attempt, is capped at MaxBackoff, and carries up to
// +-5% jitter.
func (r *Retrier) Generate(ctx context.Context, prompt string, params Params) (Result, error) {
	attempt := 0
	for {
		res, err := r.inner.Generate(ctx, prompt, params)
		if err == nil {
			return res, nil
		}
		attempt++

		if IsQuota(err) {
			return Result{}, errors.Wrapf(err,
				"%s quota exhausted: check your plan/billing or set a different provider", r.inner.Name())
		}
		if attempt >= r.policy.MaxAttempts {
			return Result{}, errors.Mark(
				errors.Wrapf(err, "%s request failed after %d attempts", r.inner.Name(), attempt),
				ErrRetriesExhausted)
		}
		if ctx.Err() != nil {
			return Result{}, errors.Wrap(ctx.Err(), "generation cancelled")
		}

		wait := r.backoff(attempt)
		r.log.Warnw("generation attempt failed, retrying",
			"provider", r.inner.Name(),
			"attempt", attempt,
			"max_attempts", r.policy.MaxAttempts,
			"backoff", wait,
			"error", err)
		r.sleep(wait)
	}
}

// backoff computes the wait before retry number attempt+1 (attempt >= 1).
func (r *Retrier) backoff(attempt int) time.Duration {
	base := r.policy.InitialBackoff << (attempt - 1)
	if base > r.policy.MaxBackoff || base <= 0 {
		base = r.policy.MaxBackoff
	}
	jitter := time.Duration(float64(base) * 0.1 * (r.jitter() - 0.5))
	return base + jitter
}
