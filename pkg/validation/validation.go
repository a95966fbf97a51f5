// Package validation holds the syntax gates applied to registration input.
//
// The same checks run twice on purpose: once at admission and again inside the
// directory client immediately before any directory write, so a bypass of one
// call site cannot reach the directory.
package validation

import (
	"fmt"
	"strings"

	dErrors "regdesk/pkg/domain-errors"
)

const (
	minUsernameLen = 2
	maxUsernameLen = 64
	maxEmailLen    = 255
	maxNameLen     = 100
)

// Username checks the account name syntax: 2-64 characters, first character a
// letter, remaining characters lowercase ASCII letters, digits, or underscore.
func Username(s string) error {
	if len(s) < minUsernameLen || len(s) > maxUsernameLen {
		return dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("username must be %d-%d characters", minUsernameLen, maxUsernameLen))
	}
	if s[0] < 'a' || s[0] > 'z' {
		return dErrors.New(dErrors.CodeValidation, "username must start with a lowercase letter")
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' {
			continue
		}
		return dErrors.New(dErrors.CodeValidation,
			"username may only contain lowercase letters, digits, and underscores")
	}
	return nil
}

// Email applies a deliberately coarse format check: exactly one @, non-empty
// local and domain parts, a dot in the domain, at most 255 characters.
// Full RFC 5322 conformance is a non-goal; the directory is the arbiter.
func Email(s string) error {
	if s == "" || len(s) > maxEmailLen {
		return dErrors.New(dErrors.CodeValidation, "email must be 1-255 characters")
	}
	at := strings.IndexByte(s, '@')
	if at <= 0 || at != strings.LastIndexByte(s, '@') {
		return dErrors.New(dErrors.CodeValidation, "email must contain exactly one @")
	}
	local, domain := s[:at], s[at+1:]
	if local == "" || domain == "" || !strings.Contains(domain, ".") {
		return dErrors.New(dErrors.CodeValidation, "email domain is invalid")
	}
	return nil
}

// NameField checks a first or last name: non-empty and at most 100 characters.
// The field name is included in the error message.
func NameField(field, s string) error {
	if s == "" {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s is required", field))
	}
	if len(s) > maxNameLen {
		return dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("%s must be at most %d characters", field, maxNameLen))
	}
	return nil
}

// EscapeDN escapes RFC 4514 DN special characters so user-controlled strings
// cannot alter the structure of a distinguished name built from them.
// Backslash is escaped first so earlier replacements are not double-escaped.
func EscapeDN(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	for _, c := range []string{",", "#", "+", "<", ">", ";", `"`, "="} {
		value = strings.ReplaceAll(value, c, `\`+c)
	}
	if strings.HasPrefix(value, " ") {
		value = `\` + value
	}
	if strings.HasSuffix(value, " ") {
		value = value[:len(value)-1] + `\ `
	}
	return value
}
