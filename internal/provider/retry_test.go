package provider

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedGenerator fails its first N calls, then succeeds.
type scriptedGenerator struct {
	failures int
	err      error
	calls    int
}

func (s *scriptedGenerator) Name() string { return "scripted" }

func (s *scriptedGenerator) Generate(context.Context, string, Params) (Result, error) {
	s.calls++
	if s.calls <= s.failures {
		err := s.err
		if err == nil {
			err = errors.New("transient backend failure")
		}
		return Result{}, err
	}
	return Result{Text: "def test_x():\n    assert 1 == 1\n", Model: "scripted"}, nil
}

func newTestRetrier(inner Generator, policy RetryPolicy, sleeps *[]time.Duration) *Retrier {
	return NewRetrier(inner, policy, zap.NewNop().Sugar(),
		WithSleep(func(d time.Duration) { *sleeps = append(*sleeps, d) }),
		WithJitter(func() float64 { return 0.5 }),
	)
}

func TestRetrierSucceedsAfterTransientFailures(t *testing.T) {
	gen := &scriptedGenerator{failures: 3}
	var sleeps []time.Duration
	r := newTestRetrier(gen, RetryPolicy{MaxAttempts: 5, InitialBackoff: time.Second, MaxBackoff: time.Minute}, &sleeps)

	res, err := r.Generate(context.Background(), "prompt", Params{})

	require.NoError(t, err)
	assert.Equal(t, 4, gen.calls)
	assert.NotEmpty(t, res.Text)

	require.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, sleeps)
	for i := 1; i < len(sleeps); i++ {
		assert.Greater(t, sleeps[i], sleeps[i-1], "backoff must grow between attempts")
	}
}

func TestRetrierBackoffIsCapped(t *testing.T) {
	gen := &scriptedGenerator{failures: 4}
	var sleeps []time.Duration
	r := newTestRetrier(gen, RetryPolicy{MaxAttempts: 6, InitialBackoff: time.Second, MaxBackoff: 4 * time.Second}, &sleeps)

	_, err := r.Generate(context.Background(), "prompt", Params{})

	require.NoError(t, err)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 4 * time.Second}, sleeps)
}

func TestRetrierAppliesJitter(t *testing.T) {
	gen := &scriptedGenerator{failures: 1}
	var sleeps []time.Duration
	r := NewRetrier(gen, RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Second, MaxBackoff: time.Minute},
		zap.NewNop().Sugar(),
		WithSleep(func(d time.Duration) { sleeps = append(sleeps, d) }),
		WithJitter(func() float64 { return 1.0 }),
	)

	_, err := r.Generate(context.Background(), "prompt", Params{})

	require.NoError(t, err)
	require.Len(t, sleeps, 1)
	// jitter at the top of the range adds 5% of the base wait
	assert.Equal(t, time.Second+50*time.Millisecond, sleeps[0])
}

func TestRetrierQuotaIsTerminal(t *testing.T) {
	gen := &scriptedGenerator{
		failures: 100,
		err:      markIfQuota(errors.New("error code 429: insufficient_quota")),
	}
	var sleeps []time.Duration
	r := newTestRetrier(gen, DefaultRetryPolicy(), &sleeps)

	_, err := r.Generate(context.Background(), "prompt", Params{})

	require.Error(t, err)
	assert.True(t, IsQuota(err))
	assert.Equal(t, 1, gen.calls, "quota failures must not be retried")
	assert.Empty(t, sleeps)
	assert.Contains(t, err.Error(), "quota exhausted")
}

func TestRetrierExhaustsAttempts(t *testing.T) {
	gen := &scriptedGenerator{failures: 100}
	var sleeps []time.Duration
	r := newTestRetrier(gen, RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Second, MaxBackoff: time.Minute}, &sleeps)

	_, err := r.Generate(context.Background(), "prompt", Params{})

	require.Error(t, err)
	assert.True(t, IsRetriesExhausted(err))
	assert.False(t, IsQuota(err))
	assert.Equal(t, 3, gen.calls)
	assert.Len(t, sleeps, 2)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestRetrierStopsOnCancelledContext(t *testing.T) {
	gen := &scriptedGenerator{failures: 100}
	var sleeps []time.Duration
	r := newTestRetrier(gen, DefaultRetryPolicy(), &sleeps)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Generate(ctx, "prompt", Params{})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, gen.calls)
}
