package browser

import (
	"strings"

	"github.com/ternarybob/crudcheck/internal/models"
)

// Expression converts a locator into the (kind, expression, needle) triple the
// page script evaluates. Text locators select by CSS (the tag, or every element)
// and filter on a lower-cased, whitespace-collapsed needle.
func Expression(loc models.Locator) (kind, expr, needle string) {
	switch loc.Kind {
	case models.LocateXPath:
		return "xpath", loc.Value, ""
	case models.LocateText:
		tag := loc.Tag
		if tag == "" {
			tag = "*"
		}
		return "text", tag, NormalizeText(loc.Value)
	default:
		return "css", loc.Value, ""
	}
}

// NormalizeText lower-cases s and collapses runs of whitespace
func NormalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
