// Package redact provides utilities for redacting sensitive information from strings
// before they are logged, audited or returned in error responses. It covers the
// usual credential and infrastructure leaks plus IBM i specifics such as
// PASSWORD(...) keywords in CL commands.
package redact

import (
	"regexp"
)

// Constants for redaction placeholders
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedHostPlaceholder       = "[REDACTED_HOST]"
)

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Credential rules are applied first, by both String and Credentials.
var credentialRules = []rule{
	// CL keyword parameters: PASSWORD(x), PWD(x), NEWPWD(x), CURPWD(x). A quoted
	// value may contain ')' and doubled quotes; an unterminated value runs to
	// the end of the input.
	{regexp.MustCompile(`(?i)\b(PASSWORD|PWD|NEWPWD|CURPWD)\(\s*(?:'(?:[^']|'')*'?|[^)]*)\s*\)?`), "${1}(" + RedactionPlaceholder + ")"},
	{regexp.MustCompile(`(?i)\b(postgres|postgresql|mysql|mongodb|db|database|connection|ssh)://[^@\s]+@`), RedactedCredentialPlaceholder},
	{regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----[\s\S]*?-----END [A-Z ]*PRIVATE KEY-----`), RedactedKeyPlaceholder},
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`), "[REDACTED_JWT]"},
	{regexp.MustCompile(`(?i)\b(password|passwd|pwd)\s*[=:]\s*['"]?[^'"&\s]{3,}`), RedactedCredentialPlaceholder},
	{regexp.MustCompile(`(?i)\b(api[_-]?key|token|secret)\s*[=:]\s*['"]?[A-Za-z0-9_\-.~+/]{8,}`), RedactedKeyPlaceholder},
	{regexp.MustCompile(`\b(AKIA|AccessKey(Id)?)([^a-zA-Z0-9])?[A-Z0-9]{8,}`), RedactedKeyPlaceholder},
}

// Infrastructure rules hide the shape of the deployment; only String applies them.
var infrastructureRules = []rule{
	{regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`), "[STACK_TRACE_REDACTED]"},
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "[REDACTED_EMAIL]"},
	{regexp.MustCompile(`(?i)\b(SELECT|INSERT|UPDATE|DELETE|MERGE|CREATE|ALTER|DROP|GRANT)\b[\s\w,*().]+?\b(FROM|INTO|SET|TABLE|VIEW|SCHEMA)\b[^;\n]*`), "[REDACTED_SQL]"},
	{regexp.MustCompile(`[A-Za-z]:\\[^\\\s]+(\\[^\\\s]+)+`), RedactedPathPlaceholder},
	{regexp.MustCompile(`(?:/[\w.$#@-]+){2,}`), RedactedPathPlaceholder},
	{regexp.MustCompile(`\b\d{1,3}(?:\.\d{1,3}){3}(?::\d{1,5})?\b`), RedactedHostPlaceholder},
	{regexp.MustCompile(`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}(?::\d{1,5})?\b`), RedactedHostPlaceholder},
}

func apply(input string, rules []rule) string {
	for _, r := range rules {
		input = r.pattern.ReplaceAllString(input, r.replacement)
	}
	return input
}

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}
	return apply(apply(input, credentialRules), infrastructureRules)
}

// Credentials redacts only secrets (passwords, keys, tokens, connection
// credentials), leaving object names, SQL and paths readable. It is meant
// for audit records where the operation itself must stay legible.
func Credentials(input string) string {
	if input == "" {
		return input
	}
	return apply(input, credentialRules)
}

// Error redacts sensitive information from an error's Error() output
func Error(err error) string {
	if err == nil {
		return ""
	}

	return String(err.Error())
}
