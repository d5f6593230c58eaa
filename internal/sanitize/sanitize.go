// Package sanitize cleans free-text fields read from population files before
// they reach the database, tooltips, DOT labels or MCP output.
package sanitize

import (
	"regexp"
	"strings"
)

// MaxFieldLength is the maximum allowed length for a free-text field.
const MaxFieldLength = 64

// MaxLabelLength is the maximum allowed length for an identifier label.
const MaxLabelLength = 40

var (
	// reXMLTag matches XML/HTML tags including those with attributes and self-closing tags.
	// It also matches XML processing instructions like <?xml ...?>.
	reXMLTag = regexp.MustCompile(`<[/?!]?[a-zA-Z][a-zA-Z0-9]*(?:\s+[^>]*)?/?>|<\?[^?]*\?>`)

	reWhitespace = regexp.MustCompile(`\s+`)

	reRepeatedHyphens     = regexp.MustCompile(`-{2,}`)
	reRepeatedUnderscores = regexp.MustCompile(`_{2,}`)
)

// Field sanitizes a free-text value such as a location. It strips control
// characters and markup, folds runs of whitespace to one space, trims, and
// truncates to MaxFieldLength runes.
func Field(input string) string {
	if input == "" {
		return ""
	}
	s := stripControlChars(input)
	s = reXMLTag.ReplaceAllString(s, "")
	s = reWhitespace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return truncate(s, MaxFieldLength)
}

// Label sanitizes an identifier such as an external agent id, keeping only
// [a-zA-Z0-9-_.:] and enforcing MaxLabelLength. Repeated hyphens and
// underscores are collapsed.
func Label(input string) string {
	if input == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.' || r == ':' {
			b.WriteRune(r)
		}
	}
	s := reRepeatedHyphens.ReplaceAllString(b.String(), "-")
	s = reRepeatedUnderscores.ReplaceAllString(s, "_")
	return truncate(s, MaxLabelLength)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// stripControlChars removes ASCII control characters (0x00-0x1F) and DEL.
// Tabs and newlines become spaces so words stay separated.
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\t' || r == '\r':
			b.WriteByte(' ')
		case r < 0x20 || r == 0x7f:
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
