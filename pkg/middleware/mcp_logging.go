package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const maxLoggedArgLen = 200

// Argument names containing one of these are never logged. "key" alone is not
// sensitive here: placeholder keys and dataset keys are ordinary tool arguments.
var sensitiveArgKeywords = []string{"password", "secret", "token", "credential", "api_key", "apikey"}

// MCPRequestLogger returns middleware that logs MCP JSON-RPC tool calls.
// It reads the request body for the tool name and arguments and the response
// body for protocol errors and tool-level error results.
// Pass nil logger to disable logging.
func MCPRequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logger == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, err := io.ReadAll(r.Body)
			if err != nil {
				logger.Error("Failed to read MCP request body", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

			var rpcReq jsonRPCRequest
			if err := json.Unmarshal(bodyBytes, &rpcReq); err != nil {
				// Not every MCP request is a JSON-RPC body (GET, DELETE).
				logger.Debug("Failed to parse MCP request JSON", zap.Error(err))
			}

			toolName := rpcReq.Params.Name
			requestID := RequestID(r.Context())

			logger.Debug("MCP request",
				zap.String("request_id", requestID),
				zap.String("method", rpcReq.Method),
				zap.String("tool", toolName),
				zap.Any("arguments", sanitizeArguments(rpcReq.Params.Arguments)),
			)

			recorder := &mcpResponseRecorder{
				ResponseWriter: w,
				body:           &bytes.Buffer{},
			}
			start := time.Now()

			next.ServeHTTP(recorder, r)

			duration := time.Since(start)

			var rpcResp jsonRPCResponse
			if err := json.Unmarshal(recorder.body.Bytes(), &rpcResp); err != nil {
				logger.Debug("Failed to parse MCP response JSON", zap.Error(err))
				return
			}

			switch {
			case rpcResp.Error != nil:
				logger.Warn("MCP response error",
					zap.String("request_id", requestID),
					zap.String("tool", toolName),
					zap.Int("error_code", rpcResp.Error.Code),
					zap.String("error_message", rpcResp.Error.Message),
					zap.Duration("duration", duration),
				)
			case rpcResp.Result.IsError:
				logger.Info("MCP tool returned error result",
					zap.String("request_id", requestID),
					zap.String("tool", toolName),
					zap.Duration("duration", duration),
				)
			default:
				logger.Debug("MCP response success",
					zap.String("request_id", requestID),
					zap.String("tool", toolName),
					zap.Duration("duration", duration),
				)
			}
		})
	}
}

// jsonRPCRequest is the part of a tools/call request the logger reads.
type jsonRPCRequest struct {
	Method string `json:"method"`
	Params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"params"`
}

// jsonRPCResponse is the part of a JSON-RPC response the logger reads.
type jsonRPCResponse struct {
	Result struct {
		IsError bool `json:"isError"`
	} `json:"result"`
	Error *jsonRPCError `json:"error"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// mcpResponseRecorder copies the response body while writing it through.
type mcpResponseRecorder struct {
	http.ResponseWriter
	body *bytes.Buffer
}

func (r *mcpResponseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// sanitizeArguments redacts sensitive arguments and truncates long strings.
// Nested objects such as the identifiers map are sanitized the same way.
func sanitizeArguments(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}

	result := make(map[string]any, len(args))
	for k, v := range args {
		if isSensitiveArg(k) {
			result[k] = "[REDACTED]"
			continue
		}
		switch val := v.(type) {
		case string:
			if len(val) > maxLoggedArgLen {
				val = val[:maxLoggedArgLen] + "..."
			}
			result[k] = val
		case map[string]any:
			result[k] = sanitizeArguments(val)
		default:
			result[k] = v
		}
	}
	return result
}

func isSensitiveArg(name string) bool {
	lower := strings.ToLower(name)
	for _, keyword := range sensitiveArgKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
