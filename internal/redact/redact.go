// Package redact removes credentials and personal data from strings before
// they are logged or returned in error responses. Task failures carry
// upstream error text (database drivers, the Gemini SDK, HTTP transports)
// which can embed connection strings, API keys or bearer tokens.
package redact

import "regexp"

// Placeholders substituted for redacted fragments.
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedJWTPlaceholder        = "[REDACTED_JWT]"
	RedactedEmailPlaceholder      = "[REDACTED_EMAIL]"
	RedactedStackPlaceholder      = "[STACK_TRACE_REDACTED]"
)

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Rules run in order; JWTs are matched before the generic bearer rule so the
// more specific placeholder wins.
var rules = []rule{
	{
		pattern:     regexp.MustCompile(`(?i)(postgres|postgresql|redis|mysql|mongodb)://[^@\s]+@`),
		replacement: "${1}://" + RedactedCredentialPlaceholder + "@",
	},
	{
		pattern:     regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`),
		replacement: RedactedJWTPlaceholder,
	},
	{
		pattern:     regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9_\-.~+/]{8,}=*`),
		replacement: "${1}" + RedactedKeyPlaceholder,
	},
	{
		pattern:     regexp.MustCompile(`AIza[0-9A-Za-z_\-]{35}`),
		replacement: RedactedKeyPlaceholder,
	},
	{
		pattern:     regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password)(\s*[=:]\s*)[^&\s"',]{3,}`),
		replacement: "${1}${2}" + RedactionPlaceholder,
	},
	{
		pattern:     regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
		replacement: RedactedEmailPlaceholder,
	},
	{
		pattern:     regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`),
		replacement: RedactedStackPlaceholder,
	},
}

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}
	result := input
	for _, r := range rules {
		result = r.pattern.ReplaceAllString(result, r.replacement)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
