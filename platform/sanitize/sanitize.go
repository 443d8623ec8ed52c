// Package sanitize provides text sanitization utilities for user-supplied chat input.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// htmlTagRegex matches HTML tags
	htmlTagRegex = regexp.MustCompile(`<[^>]*>`)
	spaceRegex   = regexp.MustCompile(`\s+`)
)

// StripHTML removes all HTML tags from a string, making it safe for text-only display.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = strings.ReplaceAll(result, "&lt;", "<")
	result = strings.ReplaceAll(result, "&gt;", ">")
	result = strings.ReplaceAll(result, "&amp;", "&")
	result = strings.ReplaceAll(result, "&quot;", "\"")
	result = strings.ReplaceAll(result, "&#39;", "'")
	// Re-strip after entity decode to catch encoded tags
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Utterance cleans one chat message: HTML and control characters are
// removed, whitespace is collapsed and the result is cut to maxRunes.
func Utterance(s string, maxRunes int) string {
	var sb strings.Builder
	for _, r := range StripHTML(s) {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sb.WriteRune(r)
	}
	result := strings.TrimSpace(spaceRegex.ReplaceAllString(sb.String(), " "))
	if maxRunes > 0 && utf8.RuneCountInString(result) > maxRunes {
		result = string([]rune(result)[:maxRunes])
	}
	return result
}
