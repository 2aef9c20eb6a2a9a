// Package logging holds helpers that keep secrets and bulky payloads out of logs.
package logging

import (
	"regexp"
	"unicode/utf8"
)

const (
	// MaxPayloadLogLength caps prompt and model output excerpts in logs.
	MaxPayloadLogLength = 200
	RedactedText        = "[REDACTED]"
)

var (
	// password=xxx, pwd=xxx, pass=xxx up to the next delimiter
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// user:pass@host in URL-style DSNs
	dsnCredentialPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@`)

	// provider keys: "sk-..." (OpenAI style) and "sk-ant-..." (Anthropic)
	providerKeyPattern = regexp.MustCompile(`sk-(ant-)?[A-Za-z0-9_-]{16,}`)

	// api_key=..., x-api-key: ..., Authorization: Bearer ...
	headerKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|x-api-key|authorization)(\s*[:=]\s*)(bearer\s+)?[A-Za-z0-9._-]{8,}`)
)

// SanitizeConnectionString masks credentials in a database DSN.
func SanitizeConnectionString(dsn string) string {
	if dsn == "" {
		return ""
	}
	s := passwordPattern.ReplaceAllString(dsn, "${1}="+RedactedText)
	return dsnCredentialPattern.ReplaceAllString(s, "://"+RedactedText+"@")
}

// SanitizeError renders err with DSN credentials and model API keys masked.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	s := SanitizeConnectionString(err.Error())
	s = providerKeyPattern.ReplaceAllString(s, RedactedText)
	return headerKeyPattern.ReplaceAllString(s, "${1}${2}"+RedactedText)
}

// TruncateString shortens s to at most maxLen bytes without splitting a rune.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// Excerpt is TruncateString at MaxPayloadLogLength, for prompts and model output.
func Excerpt(s string) string {
	return TruncateString(s, MaxPayloadLogLength)
}
