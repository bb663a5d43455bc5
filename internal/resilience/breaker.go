// Package resilience provides retry and circuit breaker patterns for calls to
// the catalog hosts.
package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// CircuitClosed is the normal operating state.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects calls until the cooldown elapses.
	CircuitOpen
	// CircuitHalfOpen lets one probe through.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when a call is rejected because the host keeps
// blocking us. It matches model.ErrUpstreamBlocked.
var ErrCircuitOpen = eris.Wrap(model.ErrUpstreamBlocked, "circuit breaker is open")

// BreakerConfig controls when a host is considered to be blocking us.
type BreakerConfig struct {
	// Threshold is the number of consecutive blocked responses (403/429)
	// that opens the circuit. Default: 5.
	Threshold int

	// Cooldown is how long the circuit stays open before a probe. Default: 60s.
	Cooldown time.Duration

	// OnStateChange is called when the circuit transitions between states.
	OnStateChange func(from, to CircuitState)

	// Clock defaults to SystemClock.
	Clock Clock
}

// DefaultBreakerConfig returns sensible defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Threshold: 5,
		Cooldown:  60 * time.Second,
		Clock:     SystemClock,
	}
}

// Breaker counts consecutive blocked responses from one host. Only errors
// matching model.ErrUpstreamBlocked count as failures; anything else,
// including terminal 404s, resets the streak.
type Breaker struct {
	cfg BreakerConfig

	mu       sync.Mutex
	state    CircuitState
	streak   int
	openedAt time.Time
}

// NewBreaker creates a breaker with the given config.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 60 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	return &Breaker{cfg: cfg}
}

// Allow returns ErrCircuitOpen while the cooldown is running. After the
// cooldown it moves to half-open and allows a probe.
func (b *Breaker) Allow() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitOpen {
		if b.cfg.Clock.Now().Sub(b.openedAt) < b.cfg.Cooldown {
			return ErrCircuitOpen
		}
		b.transition(CircuitHalfOpen)
	}
	return nil
}

// Record feeds the result of one attempt into the breaker.
func (b *Breaker) Record(err error) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil || !errors.Is(err, model.ErrUpstreamBlocked) {
		b.streak = 0
		if b.state != CircuitClosed {
			b.transition(CircuitClosed)
		}
		return
	}

	b.streak++
	if b.state == CircuitHalfOpen || b.streak >= b.cfg.Threshold {
		b.openedAt = b.cfg.Clock.Now()
		if b.state != CircuitOpen {
			b.transition(CircuitOpen)
		}
	}
}

// State returns the current circuit state.
func (b *Breaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == CircuitOpen && b.cfg.Clock.Now().Sub(b.openedAt) >= b.cfg.Cooldown {
		return CircuitHalfOpen
	}
	return b.state
}

func (b *Breaker) transition(to CircuitState) {
	from := b.state
	b.state = to
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(from, to)
	}
}
