package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Reasoning models may open with a <think> block before the answer.
var thinkTagPattern = regexp.MustCompile(`(?s)^\s*<think>.*?</think>\s*`)

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// maxJSONCandidates bounds how many '{' or '[' positions are tried before giving up.
const maxJSONCandidates = 64

// ExtractJSON returns the first complete JSON object or array in a model answer.
// Leading <think> blocks are dropped, a fenced block is preferred when present,
// and surrounding prose is ignored.
func ExtractJSON(response string) (string, error) {
	cleaned := thinkTagPattern.ReplaceAllString(response, "")
	if m := fencePattern.FindStringSubmatch(cleaned); len(m) == 2 && strings.TrimSpace(m[1]) != "" {
		cleaned = m[1]
	}

	tried := 0
	for i := 0; i < len(cleaned) && tried < maxJSONCandidates; i++ {
		if cleaned[i] != '{' && cleaned[i] != '[' {
			continue
		}
		tried++
		var raw json.RawMessage
		if err := json.NewDecoder(strings.NewReader(cleaned[i:])).Decode(&raw); err == nil {
			return string(raw), nil
		}
	}
	return "", fmt.Errorf("no valid JSON found in response")
}

// ParseJSONResponse extracts JSON from a response and unmarshals it into the target.
// When T is a slice and the model wrapped the list in an object with a single
// array field (e.g. {"matches": [...]}), the inner array is used.
func ParseJSONResponse[T any](response string) (T, error) {
	var result T

	jsonStr, err := ExtractJSON(response)
	if err != nil {
		return result, err
	}

	err = json.Unmarshal([]byte(jsonStr), &result)
	if err == nil {
		return result, nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		if inner, ok := singleArrayField([]byte(jsonStr)); ok {
			var unwrapped T
			if json.Unmarshal(inner, &unwrapped) == nil {
				return unwrapped, nil
			}
		}
	}
	return result, fmt.Errorf("unmarshal JSON: %w", err)
}

func singleArrayField(data []byte) (json.RawMessage, bool) {
	var obj map[string]json.RawMessage
	if json.Unmarshal(data, &obj) != nil || len(obj) != 1 {
		return nil, false
	}
	for _, v := range obj {
		if trimmed := bytes.TrimSpace(v); len(trimmed) > 0 && trimmed[0] == '[' {
			return trimmed, true
		}
	}
	return nil, false
}
