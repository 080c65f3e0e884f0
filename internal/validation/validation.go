package validation

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// SanitizeString strips control characters (keeping newlines and tabs) and
// trims surrounding whitespace.
func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}

// SanitizeParams sanitizes every key and value of an inbound parameter set.
// Keys that sanitize to empty are dropped.
func SanitizeParams(params map[string]string) map[string]string {
	cleaned := make(map[string]string, len(params))
	for name, value := range params {
		name = SanitizeString(name)
		if name == "" {
			continue
		}
		cleaned[name] = SanitizeString(value)
	}
	return cleaned
}

// ValidateLimit parses a listing limit, clamped to [1, max]. An empty string
// yields the default.
func ValidateLimit(raw string, def, max int) (int, error) {
	if raw == "" {
		return def, nil
	}

	limit, err := strconv.Atoi(SanitizeString(raw))
	if err != nil {
		return 0, &ValidationError{
			Field:   "limit",
			Message: "must be an integer",
		}
	}

	if limit < 1 {
		return 0, &ValidationError{
			Field:   "limit",
			Message: "must be positive",
		}
	}

	if limit > max {
		limit = max
	}

	return limit, nil
}
