package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/apperrors"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/logging"
)

// Request is one exchange with the assisting model.
type Request struct {
	Purpose     string // For logging, e.g. "binding_match"
	System      string
	Prompt      string
	Temperature float64
	Timeout     time.Duration
}

// Assistant is the only way the engine consults a model. Every failure,
// including timeouts and a disabled provider, is reported as
// apperrors.ErrAssistingServiceUnavailable so callers take their
// deterministic path.
type Assistant interface {
	Generate(ctx context.Context, req Request) (string, error)
	Available() bool
}

// AssistantFunc adapts a function to Assistant. It is always available.
type AssistantFunc func(ctx context.Context, req Request) (string, error)

func (f AssistantFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

func (f AssistantFunc) Available() bool { return true }

// AssistantConfig bounds calls to the model.
type AssistantConfig struct {
	DefaultTimeout    time.Duration
	RequestsPerSecond float64
	Breaker           CircuitBreakerConfig
}

type guardedAssistant struct {
	client  LLMClient
	breaker *CircuitBreaker
	limiter *rate.Limiter
	timeout time.Duration
	logger  *zap.Logger
}

var _ Assistant = (*guardedAssistant)(nil)

// NewAssistant wraps client with a deadline, a rate limiter and a circuit
// breaker. A nil client yields an assistant that is never available.
func NewAssistant(client LLMClient, cfg AssistantConfig, logger *zap.Logger) Assistant {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 20 * time.Second
	}
	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		burst = max(1, int(cfg.RequestsPerSecond))
	}
	return &guardedAssistant{
		client:  client,
		breaker: NewCircuitBreaker(cfg.Breaker, logger),
		limiter: rate.NewLimiter(limit, burst),
		timeout: cfg.DefaultTimeout,
		logger:  logger.Named("assistant"),
	}
}

func (a *guardedAssistant) Available() bool {
	return a.client != nil && a.breaker.State() != CircuitOpen
}

// Generate returns once the model answers or the deadline passes,
// whichever is first. A client that ignores ctx is abandoned, not awaited.
func (a *guardedAssistant) Generate(ctx context.Context, req Request) (string, error) {
	if a.client == nil {
		return "", apperrors.ErrAssistingServiceUnavailable
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = a.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := a.limiter.Wait(ctx); err != nil {
		return "", a.unavailable(req, err)
	}

	type outcome struct {
		result *GenerateResponseResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := a.breaker.Execute(ctx, func(ctx context.Context) (*GenerateResponseResult, error) {
			return a.client.GenerateResponse(ctx, req.Prompt, req.System, req.Temperature)
		})
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return "", a.unavailable(req, out.err)
		}
		if out.result == nil {
			return "", a.unavailable(req, NewError(ErrorTypeUnknown, "empty result", false, nil))
		}
		a.logger.Debug("Assistant answered",
			zap.String("purpose", req.Purpose),
			zap.Int("total_tokens", out.result.TotalTokens))
		return out.result.Content, nil
	case <-ctx.Done():
		return "", a.unavailable(req, ctx.Err())
	}
}

func (a *guardedAssistant) unavailable(req Request, err error) error {
	classified := ClassifyError(err)
	fields := []zap.Field{
		zap.String("purpose", req.Purpose),
		zap.String("error_type", string(classified.Type)),
		zap.String("error", logging.SanitizeError(err)),
	}
	if classified.Transient {
		a.logger.Warn("Assisting service unavailable, using fallback", fields...)
	} else {
		// Auth and model errors persist until the provider settings change.
		a.logger.Error("Assisting service misconfigured, using fallback", fields...)
	}
	return fmt.Errorf("%w: %s", apperrors.ErrAssistingServiceUnavailable, classified.Type)
}
