package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
)

func TestBreaker_OpensOnBlockedStreak(t *testing.T) {
	clock := newFakeClock()
	var transitions []string
	b := NewBreaker(BreakerConfig{
		Threshold: 3,
		Cooldown:  time.Minute,
		Clock:     clock,
		OnStateChange: func(from, to CircuitState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	blocked := NewTransientError(errors.New("http 429"), 429)
	for i := 0; i < 3; i++ {
		require.NoError(t, b.Allow())
		b.Record(blocked)
	}
	assert.Equal(t, CircuitOpen, b.State())

	err := b.Allow()
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.ErrorIs(t, err, model.ErrUpstreamBlocked)

	clock.Advance(time.Minute)
	assert.Equal(t, CircuitHalfOpen, b.State())
	require.NoError(t, b.Allow())
	b.Record(nil)
	assert.Equal(t, CircuitClosed, b.State())

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestBreaker_OtherErrorsResetStreak(t *testing.T) {
	b := NewBreaker(BreakerConfig{Threshold: 2, Clock: newFakeClock()})
	b.Record(NewTransientError(errors.New("http 403"), 403))
	b.Record(model.ErrNotFound)
	b.Record(NewTransientError(errors.New("http 403"), 403))
	assert.Equal(t, CircuitClosed, b.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := newFakeClock()
	b := NewBreaker(BreakerConfig{Threshold: 1, Cooldown: time.Second, Clock: clock})
	b.Record(model.ErrUpstreamBlocked)
	clock.Advance(time.Second)
	require.NoError(t, b.Allow())
	b.Record(model.ErrUpstreamBlocked)
	assert.Equal(t, CircuitOpen, b.State())
}

func TestBreaker_NilIsNoop(t *testing.T) {
	var b *Breaker
	assert.NoError(t, b.Allow())
	b.Record(model.ErrUpstreamBlocked)
}

func TestFromBreakerConfig(t *testing.T) {
	cfg := FromBreakerConfig(0, 0)
	assert.Equal(t, 5, cfg.Threshold)
	cfg = FromBreakerConfig(2, 10)
	assert.Equal(t, 2, cfg.Threshold)
	assert.Equal(t, 10*time.Second, cfg.Cooldown)
}
