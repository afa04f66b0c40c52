package validation

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Same shape the web forms check client-side: /^[^\s@]+@[^\s@]+\.[^\s@]+$/
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Letters, spaces, hyphens, apostrophes only.
var fullnameRe = regexp.MustCompile(`^[A-Za-z\s\-']+$`)

// Digits with optional leading +, spaces, dashes and parentheses; 7 to 20 chars.
var phoneRe = regexp.MustCompile(`^\+?[0-9\s\-()]{7,20}$`)

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

func IsValidPhone(phone string) bool {
	return phoneRe.MatchString(strings.TrimSpace(phone))
}

// IsValidPassword requires at least 8 characters with a letter, a digit and a symbol.
func IsValidPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	hasLetter, hasDigit, hasSpecial := false, false, false
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	return hasLetter && hasDigit && hasSpecial
}

func IsValidFullname(fullname string) bool {
	return fullname != "" && fullnameRe.MatchString(fullname)
}

// FieldErrors collects per-field validation messages. A nil or empty value is no error.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Required records a "is required" message for every blank value in fields.
func (fe FieldErrors) Required(fields map[string]string) FieldErrors {
	for name, v := range fields {
		if strings.TrimSpace(v) == "" {
			fe[name] = "is required"
		}
	}
	return fe
}

// Email records an error when email is present but malformed.
func (fe FieldErrors) Email(name, email string) FieldErrors {
	if strings.TrimSpace(email) != "" && !IsValidEmail(email) {
		fe[name] = "must be a valid email address"
	}
	return fe
}

// Err returns fe as an error, or nil when nothing was recorded.
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}
