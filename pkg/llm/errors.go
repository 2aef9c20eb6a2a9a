package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ErrorType indicates which part of the provider setup an error points at.
type ErrorType string

const (
	ErrorTypeNone      ErrorType = ""
	ErrorTypeEndpoint  ErrorType = "endpoint"
	ErrorTypeAuth      ErrorType = "auth"
	ErrorTypeModel     ErrorType = "model"
	ErrorTypeTimeout   ErrorType = "timeout"
	ErrorTypeRateLimit ErrorType = "rate_limited"
	ErrorTypeServer    ErrorType = "server"
	ErrorTypeCircuit   ErrorType = "circuit_open"
	ErrorTypeUnknown   ErrorType = "unknown"
)

// Error is a classified assisting-model failure. Transient failures may clear
// on their own; the others need an operator to fix configuration.
type Error struct {
	Type       ErrorType
	Message    string
	Transient  bool
	Cause      error
	StatusCode int
	Model      string
	Endpoint   string
}

func (e *Error) Error() string {
	parts := []string{string(e.Type)}
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	if e.Model != "" {
		parts = append(parts, "model="+e.Model)
	}
	parts = append(parts, e.Message)

	msg := strings.Join(parts, " ")
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a classified error.
func NewError(errType ErrorType, message string, transient bool, cause error) *Error {
	return &Error{
		Type:      errType,
		Message:   message,
		Transient: transient,
		Cause:     cause,
	}
}

type classifyRule struct {
	match     func(status int, lower string) bool
	errType   ErrorType
	message   string
	transient bool
}

func statusIs(codes ...int) func(int, string) bool {
	return func(status int, _ string) bool {
		for _, c := range codes {
			if status == c {
				return true
			}
		}
		return false
	}
}

func textHas(needles ...string) func(int, string) bool {
	return func(_ int, lower string) bool {
		for _, n := range needles {
			if strings.Contains(lower, n) {
				return true
			}
		}
		return false
	}
}

// First match wins.
var classifyRules = []classifyRule{
	{statusIs(401, 403), ErrorTypeAuth, "authentication failed", false},
	{textHas("unauthorized", "invalid api key", "invalid x-api-key"), ErrorTypeAuth, "authentication failed", false},
	{func(_ int, l string) bool {
		return strings.Contains(l, "model") && (strings.Contains(l, "not found") || strings.Contains(l, "does not exist"))
	}, ErrorTypeModel, "model not found", false},
	{statusIs(404), ErrorTypeEndpoint, "endpoint not found", false},
	{statusIs(429), ErrorTypeRateLimit, "rate limited", true},
	{textHas("rate limit"), ErrorTypeRateLimit, "rate limited", true},
	{textHas("connection refused", "no such host", "connection reset"), ErrorTypeEndpoint, "connection failed", true},
	{textHas("timeout", "deadline exceeded"), ErrorTypeTimeout, "request timeout", true},
	{func(status int, _ string) bool { return status >= 500 }, ErrorTypeServer, "server error", true},
}

var statusTextPattern = regexp.MustCompile(`status code: (\d{3})`)

// ClassifyError turns a provider or transport error into an *Error.
// An *Error already in the chain is returned as is.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	switch {
	case errors.Is(err, ErrCircuitOpen):
		return NewError(ErrorTypeCircuit, "circuit open", true, err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(ErrorTypeTimeout, "request timeout", true, err)
	case errors.Is(err, context.Canceled):
		return NewError(ErrorTypeTimeout, "request canceled", false, err)
	}

	status := statusCodeOf(err)
	lower := strings.ToLower(err.Error())
	for _, rule := range classifyRules {
		if rule.match(status, lower) {
			classified := NewError(rule.errType, rule.message, rule.transient, err)
			classified.StatusCode = status
			return classified
		}
	}

	classified := NewError(ErrorTypeUnknown, "llm error", false, err)
	classified.StatusCode = status
	return classified
}

// statusCodeOf prefers the typed errors of the OpenAI client and falls back
// to the "status code: NNN" text other providers emit.
func statusCodeOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return reqErr.HTTPStatusCode
	}
	if m := statusTextPattern.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		return code
	}
	return 0
}

// IsTransient reports whether err is a classified failure that may clear on its own.
func IsTransient(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Transient
	}
	return false
}

// GetErrorType extracts the ErrorType from an error.
func GetErrorType(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}
