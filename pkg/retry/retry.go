// Package retry retries startup connections with exponential backoff.
// Request-time calls to the entity store and the assisting model never retry;
// only establishing the engine's own connections does.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Config defines retry behavior with exponential backoff.
type Config struct {
	MaxRetries       int
	InitialDelay     time.Duration
	MaxDelay         time.Duration
	Multiplier       float64
	JitterFactor     float64 // 0.0-1.0; +/- share of the delay
	MaxSameErrorType int     // after N consecutive errors of one type, give up
}

// StartupConfig suits a database or cache that is still booting next to the
// engine: 6 retries from 250ms, capped at 5s, doubling, 10% jitter.
func StartupConfig() *Config {
	return &Config{
		MaxRetries:       6,
		InitialDelay:     250 * time.Millisecond,
		MaxDelay:         5 * time.Second,
		Multiplier:       2.0,
		JitterFactor:     0.1,
		MaxSameErrorType: 5,
	}
}

func applyJitter(delay time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return delay
	}
	jitter := float64(delay) * jitterFactor * (rand.Float64()*2 - 1)
	return time.Duration(float64(delay) + jitter)
}

// DoWithResult runs fn until it succeeds, fails with a permanent error, or the
// retries run out. Permanent errors (bad credentials, unknown database) return
// immediately. After MaxSameErrorType consecutive errors of one type the last
// error is returned wrapped. Waiting respects ctx.
func DoWithResult[T any](ctx context.Context, cfg *Config, fn func() (T, error)) (T, error) {
	if cfg == nil {
		cfg = StartupConfig()
	}

	var (
		result         T
		lastErr        error
		lastErrorType  string
		sameErrorCount int
	)
	delay := cfg.InitialDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		r, err := fn()
		if err == nil {
			return r, nil
		}
		result, lastErr = r, err

		if !IsRetryable(err) {
			return result, err
		}

		errorType := classifyErrorType(err)
		if errorType == lastErrorType {
			sameErrorCount++
			if cfg.MaxSameErrorType > 0 && sameErrorCount >= cfg.MaxSameErrorType {
				return result, fmt.Errorf("repeated error (%d times, type=%s): %w", sameErrorCount, errorType, err)
			}
		} else {
			sameErrorCount = 1
			lastErrorType = errorType
		}

		if attempt < cfg.MaxRetries {
			select {
			case <-time.After(applyJitter(delay, cfg.JitterFactor)):
				delay = time.Duration(float64(delay) * cfg.Multiplier)
				if delay > cfg.MaxDelay {
					delay = cfg.MaxDelay
				}
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}
	}

	return result, lastErr
}

// Do is DoWithResult for functions without a result.
func Do(ctx context.Context, cfg *Config, fn func() error) error {
	_, err := DoWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// IsRetryable reports whether err looks transient: the server is not up yet,
// the network is flaky, or the server is overloaded.
// Errors implementing IsRetryable() bool decide for themselves.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	type retryable interface {
		IsRetryable() bool
	}
	if r, ok := err.(retryable); ok {
		return r.IsRetryable()
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"timeout",
		"timed out",
		"temporary failure",
		"network is unreachable",
		"too many connections",
		"too many clients",
		// PostgreSQL while booting or in recovery.
		"the database system is starting up",
		"the database system is in recovery mode",
		// Redis while loading its dataset.
		"loading redis is loading the dataset in memory",
		"unexpected eof",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// classifyErrorType groups errors so a repeated failure can be detected.
func classifyErrorType(err error) string {
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "connection refused"), strings.Contains(errStr, "connection reset"):
		return "connection"
	case strings.Contains(errStr, "timeout"), strings.Contains(errStr, "timed out"):
		return "timeout"
	case strings.Contains(errStr, "no such host"), strings.Contains(errStr, "temporary failure"):
		return "dns"
	case strings.Contains(errStr, "starting up"), strings.Contains(errStr, "recovery mode"), strings.Contains(errStr, "loading"):
		return "booting"
	case strings.Contains(errStr, "too many"):
		return "capacity"
	}
	return "unknown"
}
