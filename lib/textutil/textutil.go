package textutil

import (
	"regexp"
	"strings"
	"unicode"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

var quoteReplacer = strings.NewReplacer(
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
)

// Collapse removes non-printable characters, folds typographic quotes into
// their ascii forms and squeezes every run of whitespace into a single space.
func Collapse(text string) string {
	text = strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, text)
	text = quoteReplacer.Replace(text)
	text = whitespaceRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Normalize is Collapse followed by lowercasing, for case-insensitive matching.
func Normalize(text string) string {
	return strings.ToLower(Collapse(text))
}

// ContainsAny reports whether text contains any of the given (already normalized) phrases.
func ContainsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
