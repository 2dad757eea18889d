package validation

// Package validation contains pure input-format checks. Nothing here
// performs I/O or logging; callers decide what to do with a failure.

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// Consular reference numbers look like ICS2025000123: the ICS prefix, a
// four digit year, then a six digit sequence number.
var applicationIDPattern = regexp.MustCompile(`^ICS(19|20)\d{2}\d{6}$`)

// IsValidApplicationID reports whether id matches the reference-number
// shape. Empty strings and anything outside the fixed shape are rejected.
func IsValidApplicationID(id string) bool {
	return applicationIDPattern.MatchString(id)
}

// SanitizeFileName returns a safe display name for a client-supplied file
// name. Path separators, traversal segments, and control characters are
// stripped. The result is used for display and audit records only, never
// for storage paths.
func SanitizeFileName(name string) string {
	// Normalize Windows separators before taking the base name.
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")

	var b strings.Builder
	for _, r := range name {
		if unicode.IsControl(r) {
			continue
		}
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			continue
		}
		b.WriteRune(r)
	}

	out := strings.TrimSpace(b.String())
	if out == "" || out == "." {
		return "file"
	}
	return out
}

const passwordMinLength = 8

// Common tokens rejected anywhere inside a password, case-insensitive.
var passwordDenylist = []string{
	"password",
	"123456",
	"qwerty",
	"letmein",
	"welcome",
	"admin",
	"passport",
	"consular",
}

// PasswordCheck lists every violated rule so the caller can render a
// complete checklist rather than the first failure only.
type PasswordCheck struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// ValidatePasswordStrength applies the portal password policy: minimum
// length, all four character classes, and no common token as a substring.
func ValidatePasswordStrength(password string) PasswordCheck {
	var errs []string

	if len(password) < passwordMinLength {
		errs = append(errs, "must be at least 8 characters long")
	}

	var hasUpper, hasLower, hasDigit, hasPunct bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasPunct = true
		}
	}
	if !hasUpper {
		errs = append(errs, "must contain an upper-case letter")
	}
	if !hasLower {
		errs = append(errs, "must contain a lower-case letter")
	}
	if !hasDigit {
		errs = append(errs, "must contain a digit")
	}
	if !hasPunct {
		errs = append(errs, "must contain a punctuation character")
	}

	lower := strings.ToLower(password)
	for _, token := range passwordDenylist {
		if strings.Contains(lower, token) {
			errs = append(errs, `must not contain the common token "`+token+`"`)
			break
		}
	}

	return PasswordCheck{Valid: len(errs) == 0, Errors: errs}
}
