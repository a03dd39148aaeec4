package fake

import (
	"context"
	"slices"

	"github.com/ternarybob/crudcheck/internal/interfaces"
	"github.com/ternarybob/crudcheck/internal/models"
)

// PendingOutcome wraps a Browser to behave like a real layout engine right
// after a submit: the empty #error span keeps a line box while the next view
// mounts. Once Trigger is clicked, the next Hold queries see only that span.
type PendingOutcome struct {
	interfaces.Browser
	Trigger models.SelectorStrategy
	Hold    int

	armed bool
}

// Click arms the hold when loc belongs to Trigger
func (p *PendingOutcome) Click(ctx context.Context, loc models.Locator, index int) error {
	if slices.Contains(p.Trigger.Locators, loc) {
		p.armed = true
	}
	return p.Browser.Click(ctx, loc, index)
}

// Query reports a visible, empty #error and nothing else while the hold lasts
func (p *PendingOutcome) Query(ctx context.Context, loc models.Locator) ([]models.ElementState, error) {
	if p.armed && p.Hold > 0 {
		p.Hold--
		if loc == models.CSS("#error") {
			return []models.ElementState{{Visible: true}}, nil
		}
		return nil, nil
	}
	return p.Browser.Query(ctx, loc)
}
