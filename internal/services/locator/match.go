package locator

import (
	"strings"

	"golang.org/x/text/cases"
)

// MatchesAll reports whether text contains every token, ignoring case.
// An empty token list never matches.
func MatchesAll(text string, tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	fold := cases.Fold()
	haystack := fold.String(text)
	for _, token := range tokens {
		if !strings.Contains(haystack, fold.String(token)) {
			return false
		}
	}
	return true
}
