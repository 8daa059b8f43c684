// Package redact strips personal and secret values from log lines and audit
// payloads.
//
// Mail addresses are masked to their first character and domain
// ("j***@example.com"). Parameters whose names suggest bodies or credentials
// are replaced entirely. Redaction is best-effort and does not replace
// keeping secrets out of log call sites.
package redact

import (
	"regexp"
	"strings"
)

const placeholder = "[REDACTED]"

var emailRe = regexp.MustCompile(`([A-Za-z0-9._%+\-])[A-Za-z0-9._%+\-]*@([A-Za-z0-9.\-]+\.[A-Za-z]{2,})`)

// String replaces each sensitive value (four characters or longer) in s with
// [REDACTED], then masks any mail addresses that remain.
func String(s string, sensitiveValues ...string) string {
	for _, v := range sensitiveValues {
		if len(v) < 4 {
			continue
		}
		s = strings.ReplaceAll(s, v, placeholder)
	}
	return Emails(s)
}

// Emails masks every mail address in s.
func Emails(s string) string {
	return emailRe.ReplaceAllString(s, "$1***@$2")
}

// Params returns a copy of an action parameter map that is safe to log.
// Nil in, nil out.
func Params(params map[string]string) map[string]string {
	if params == nil {
		return nil
	}
	out := make(map[string]string, len(params))
	for k, v := range params {
		switch {
		case isSensitiveKey(k):
			if v != "" {
				v = placeholder
			}
		default:
			v = Emails(v)
		}
		out[k] = v
	}
	return out
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, word := range []string{"body", "password", "token", "secret", "apikey", "api_key", "credential"} {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
