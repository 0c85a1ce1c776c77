package logging

import (
	"regexp"
)

const (
	// MaxErrorMessageLength bounds error messages persisted on analysis rows.
	MaxErrorMessageLength = 1000
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// password=xxx, pwd=xxx, pass=xxx up to the next delimiter
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	jwtPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_]+\.[A-Za-z0-9-_]+\.[A-Za-z0-9-_]*`)

	// api_key=..., x-api-key: ..., key=... query parameters
	apiKeyParamPattern = regexp.MustCompile(`(?i)(api[_-]?key|x-api-key|key)([=:]\s*)[A-Za-z0-9-_]{16,}`)

	// Provider key shapes: Anthropic sk-ant-..., OpenAI sk-..., Google AIza...
	providerKeyPattern = regexp.MustCompile(`\b(sk-ant-[A-Za-z0-9-_]{8,}|sk-[A-Za-z0-9-_]{16,}|AIza[0-9A-Za-z-_]{30,})`)

	// user:pass@host in URLs
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)
)

// SanitizeMessage removes credentials from free text.
func SanitizeMessage(msg string) string {
	if msg == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(msg, "${1}="+RedactedText)
	sanitized = jwtPattern.ReplaceAllString(sanitized, "Bearer "+RedactedText)
	sanitized = apiKeyParamPattern.ReplaceAllString(sanitized, "${1}${2}"+RedactedText)
	sanitized = providerKeyPattern.ReplaceAllString(sanitized, RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
	return sanitized
}

// SanitizeError returns err's message with credentials removed.
// Use it before logging provider errors or storing them on an analysis.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeMessage(err.Error())
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
