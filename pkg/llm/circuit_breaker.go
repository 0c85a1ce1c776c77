package llm

import (
	"fmt"
	"sync"
	"time"
)

// CircuitState represents the current state of the circuit breaker.
type CircuitState int

const (
	// CircuitClosed means requests flow through.
	CircuitClosed CircuitState = iota
	// CircuitOpen means the provider failed repeatedly and requests are blocked.
	CircuitOpen
	// CircuitHalfOpen means one trial request is in flight.
	CircuitHalfOpen
)

// String returns a human-readable string for the circuit state.
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

// CircuitBreakerConfig holds configuration for the circuit breaker.
type CircuitBreakerConfig struct {
	// Threshold is the number of consecutive failures before the circuit trips.
	Threshold int
	// ResetAfter is how long an open circuit waits before letting a trial request through.
	ResetAfter time.Duration
}

// DefaultCircuitBreakerConfig returns the defaults used when config leaves them unset.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Threshold:  5,
		ResetAfter: 30 * time.Second,
	}
}

// CircuitBreaker trips open after N consecutive failures of one provider and
// lets a single trial request through once ResetAfter has elapsed.
type CircuitBreaker struct {
	mu               sync.RWMutex
	provider         Provider
	consecutiveFails int
	threshold        int
	resetAfter       time.Duration
	lastFailure      time.Time
	state            CircuitState
	now              func() time.Time
}

// NewCircuitBreaker creates a closed circuit breaker for one provider.
func NewCircuitBreaker(provider Provider, config CircuitBreakerConfig) *CircuitBreaker {
	if config.Threshold <= 0 {
		config.Threshold = DefaultCircuitBreakerConfig().Threshold
	}
	if config.ResetAfter <= 0 {
		config.ResetAfter = DefaultCircuitBreakerConfig().ResetAfter
	}
	return &CircuitBreaker{
		provider:   provider,
		threshold:  config.Threshold,
		resetAfter: config.ResetAfter,
		state:      CircuitClosed,
		now:        time.Now,
	}
}

// Allow returns nil if a request may proceed, or a retryable *Error of type
// ErrorTypeCircuit when the circuit is open.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return nil
	case CircuitOpen:
		since := cb.now().Sub(cb.lastFailure)
		if since > cb.resetAfter {
			cb.state = CircuitHalfOpen
			return nil
		}
		e := NewError(ErrorTypeCircuit,
			fmt.Sprintf("circuit breaker open (failed %d times, last failure %v ago)",
				cb.consecutiveFails, since.Round(time.Second)), true, nil)
		e.Provider = cb.provider
		return e
	default:
		e := NewError(ErrorTypeCircuit, "circuit breaker half-open: probing provider", true, nil)
		e.Provider = cb.provider
		return e
	}
}

// RecordSuccess resets the failure count and closes the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFails = 0
	cb.state = CircuitClosed
}

// RecordFailure increments the failure count and trips the circuit at the threshold.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFails++
	cb.lastFailure = cb.now()

	if cb.state == CircuitHalfOpen || cb.consecutiveFails >= cb.threshold {
		cb.state = CircuitOpen
	}
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// ConsecutiveFailures returns the current count of consecutive failures.
func (cb *CircuitBreaker) ConsecutiveFailures() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.consecutiveFails
}

// BreakerSet holds one circuit breaker per provider, shared by every client
// the factory creates so that all organizations see a provider outage.
type BreakerSet struct {
	mu       sync.Mutex
	config   CircuitBreakerConfig
	breakers map[Provider]*CircuitBreaker
}

// NewBreakerSet returns an empty set using config for each new breaker.
func NewBreakerSet(config CircuitBreakerConfig) *BreakerSet {
	return &BreakerSet{
		config:   config,
		breakers: make(map[Provider]*CircuitBreaker),
	}
}

// For returns the breaker for p, creating it on first use.
func (s *BreakerSet) For(p Provider) *CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	cb, ok := s.breakers[p]
	if !ok {
		cb = NewCircuitBreaker(p, s.config)
		s.breakers[p] = cb
	}
	return cb
}
