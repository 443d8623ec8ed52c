// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "GB"

// minDigits rejects fragments such as house numbers or partial numbers.
const minDigits = 10

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns the trimmed input.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// Accept reports whether a digit-grouped candidate is plausibly a complete
// phone number and returns its normalised form. Candidates with fewer than
// ten digits or with a length no numbering plan allows are rejected.
func Accept(candidate string) (string, bool) {
	digits := CountDigits(candidate)
	if digits < minDigits || digits > 15 {
		return "", false
	}

	number, err := phonenumbers.Parse(strings.TrimSpace(candidate), defaultRegion)
	if err != nil || !phonenumbers.IsPossibleNumber(number) {
		return "", false
	}

	if phonenumbers.IsValidNumber(number) {
		return phonenumbers.Format(number, phonenumbers.E164), true
	}
	return compact(candidate), true
}

// CountDigits returns the number of ASCII digits in s.
func CountDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func compact(value string) string {
	return strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '+' {
			return r
		}
		return -1
	}, value)
}
