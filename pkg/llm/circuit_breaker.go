package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitState represents the current state of the circuit breaker.
type CircuitState int

const (
	// CircuitClosed means calls flow through.
	CircuitClosed CircuitState = iota
	// CircuitOpen means calls are rejected until ResetAfter elapses.
	CircuitOpen
	// CircuitHalfOpen means a single probe call is allowed.
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
	// ResetAfter is how long the circuit stays open before probing again.
	ResetAfter time.Duration
}

// DefaultCircuitBreakerConfig returns sensible defaults for the circuit breaker.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Threshold:  5,
		ResetAfter: 30 * time.Second,
	}
}

// CircuitBreaker guards calls to the assisting model so a failing provider
// is skipped quickly instead of costing a full timeout per call.
type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
}

// NewCircuitBreaker creates a breaker backed by gobreaker.
func NewCircuitBreaker(config CircuitBreakerConfig, logger *zap.Logger) *CircuitBreaker {
	if config.Threshold < 1 {
		config.Threshold = DefaultCircuitBreakerConfig().Threshold
	}
	if config.ResetAfter <= 0 {
		config.ResetAfter = DefaultCircuitBreakerConfig().ResetAfter
	}
	threshold := uint32(config.Threshold)
	log := logger.Named("llm-breaker")

	return &CircuitBreaker{
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "assistant",
			MaxRequests: 1,
			Timeout:     config.ResetAfter,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			OnStateChange: func(_ string, from, to gobreaker.State) {
				log.Info("Circuit breaker state changed",
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		}),
	}
}

// Execute runs fn unless the circuit is open. Context cancellation counts
// as a failure so a hanging provider eventually trips the circuit.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) (*GenerateResponseResult, error)) (*GenerateResponseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := cb.breaker.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCircuitOpen
	}
	if err != nil {
		return nil, err
	}
	result, _ := out.(*GenerateResponseResult)
	return result, nil
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	switch cb.breaker.State() {
	case gobreaker.StateOpen:
		return CircuitOpen
	case gobreaker.StateHalfOpen:
		return CircuitHalfOpen
	default:
		return CircuitClosed
	}
}
