// Package logutil holds helpers for keeping secrets and oversized values out
// of log lines.
package logutil

import (
	"fmt"
	"net/url"
	"strings"
)

// IsSensitiveLogField returns true when a key likely contains sensitive data.
func IsSensitiveLogField(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	normalized = strings.ReplaceAll(normalized, "-", "")
	normalized = strings.ReplaceAll(normalized, "_", "")

	switch {
	case normalized == "authorization":
		return true
	case strings.Contains(normalized, "token"):
		return true
	case strings.Contains(normalized, "secret"):
		return true
	case strings.Contains(normalized, "password"):
		return true
	case strings.Contains(normalized, "uri"):
		return true
	case strings.Contains(normalized, "key"):
		return true
	default:
		return false
	}
}

// DescribeSecret reports only derived facts about a secret value: whether it
// is set and how long it is.
func DescribeSecret(value string) string {
	if value == "" {
		return "missing"
	}
	return fmt.Sprintf("set (len=%d)", len(value))
}

// ScrubSecret removes every occurrence of secret from text. For URL-shaped
// secrets the userinfo part is scrubbed on its own too, since drivers often
// echo host and credentials separately.
func ScrubSecret(text, secret string) string {
	if secret == "" || text == "" {
		return text
	}
	text = strings.ReplaceAll(text, secret, "[REDACTED]")
	if u, err := url.Parse(secret); err == nil && u.User != nil {
		if userinfo := u.User.String(); userinfo != "" {
			text = strings.ReplaceAll(text, userinfo, "[REDACTED]")
		}
		if pw, ok := u.User.Password(); ok && pw != "" {
			text = strings.ReplaceAll(text, pw, "[REDACTED]")
		}
	}
	return text
}

// RedactValue returns "[REDACTED]" when key looks sensitive.
func RedactValue(key, value string) string {
	if IsSensitiveLogField(key) {
		return "[REDACTED]"
	}
	return value
}

// TruncateForLog returns a single-line truncated preview for unstructured values.
func TruncateForLog(value string, maxChars int) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	normalized := strings.ReplaceAll(trimmed, "\n", "\\n")
	if maxChars <= 0 || len(normalized) <= maxChars {
		return normalized
	}
	return normalized[:maxChars] + "... [truncated]"
}
