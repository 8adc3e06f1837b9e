// Package phone turns free-text phone numbers into E.164-style strings.
package phone

import "strings"

const (
	MinLength = 12
	MaxLength = 15
)

// Result splits raw input into accepted E.164 numbers and rejected raw entries.
// Both slices preserve input order; duplicates are kept.
type Result struct {
	Valid   []string `json:"valid"`
	Invalid []string `json:"invalid"`
}

// Normalizer applies a single default-country policy.
type Normalizer struct {
	// CountryCode is the default country calling code without "+", e.g. "60".
	CountryCode string
}

func NewNormalizer(countryCode string) Normalizer {
	return Normalizer{CountryCode: strings.TrimPrefix(strings.TrimSpace(countryCode), "+")}
}

// Normalize classifies every raw entry.
func (n Normalizer) Normalize(raw []string) Result {
	out := Result{Valid: make([]string, 0, len(raw)), Invalid: make([]string, 0)}
	for _, r := range raw {
		if e164, ok := n.One(r); ok {
			out.Valid = append(out.Valid, e164)
			continue
		}
		out.Invalid = append(out.Invalid, r)
	}
	return out
}

// One normalizes a single entry. ok is false when the result is empty or out of length bounds.
func (n Normalizer) One(raw string) (string, bool) {
	clean := strip(raw)
	if clean == "" {
		return "", false
	}

	var formatted string
	switch {
	case strings.HasPrefix(clean, "+"):
		formatted = clean
	case n.CountryCode != "" && strings.HasPrefix(clean, n.CountryCode):
		formatted = "+" + clean
	case strings.HasPrefix(clean, "0"):
		formatted = "+" + n.CountryCode + clean[1:]
	default:
		formatted = "+" + n.CountryCode + clean
	}

	if len(formatted) < MinLength || len(formatted) > MaxLength {
		return "", false
	}
	return formatted, true
}

// strip keeps digits and "+" characters. A "+" anywhere but the first position is dropped
// so inputs like "60+123" cannot yield an embedded plus sign.
func strip(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "+" {
		return ""
	}
	return s
}
