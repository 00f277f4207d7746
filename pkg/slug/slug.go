// Package slug normalizes company names into filesystem and URL safe
// identifiers. The slug is the stable key for a company's on-disk state.
package slug

import (
	"regexp"
	"strings"
)

var (
	separators  = regexp.MustCompile(`[\s_]+`)
	invalid     = regexp.MustCompile(`[^a-z0-9-]`)
	multiHyphen = regexp.MustCompile(`-+`)
)

// Make converts text to a lowercase hyphenated slug containing only
// [a-z0-9-]. It is deterministic and idempotent; fully invalid input
// yields an empty string.
func Make(text string) string {
	s := strings.ToLower(text)
	s = separators.ReplaceAllString(s, "-")
	s = invalid.ReplaceAllString(s, "")
	s = multiHyphen.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
