package normalize

import (
	"regexp"
	"strings"
)

// payoutRegex accepts one or more digits optionally followed by a period and
// one or more digits. No sign, no thousands separators, no scientific
// notation: the target column is numeric and a malformed value is dropped
// rather than guessed at.
var payoutRegex = regexp.MustCompile(`^\d+(\.\d+)?$`)

// Resolve returns the value of the first candidate parameter whose trimmed
// value is non-empty, or "" when none qualify. Parameter names are matched
// case-insensitively against the candidate list.
func Resolve(params map[string]string, candidates []string) string {
	if len(params) == 0 || len(candidates) == 0 {
		return ""
	}

	lowered := make(map[string]string, len(params))
	for name, value := range params {
		key := strings.ToLower(name)
		if _, exists := lowered[key]; !exists || strings.TrimSpace(value) != "" {
			lowered[key] = value
		}
	}

	for _, candidate := range candidates {
		if value := strings.TrimSpace(lowered[strings.ToLower(candidate)]); value != "" {
			return value
		}
	}

	return ""
}

// Payout converts a raw payout string to its canonical decimal form.
// A comma decimal separator is rewritten to a period; anything that does not
// match the strict decimal pattern afterwards comes back as "".
func Payout(raw string) string {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if cleaned == "" || !payoutRegex.MatchString(cleaned) {
		return ""
	}
	return cleaned
}

// Code trims and upper-cases a currency or country code. No ISO validation
// is performed; any non-empty string is accepted. Idempotent.
func Code(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
