package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/crudcheck/internal/models"
)

// ElementLocator finds logical UI elements through ordered selector strategies
type ElementLocator interface {
	// Locate returns the first visible match, polling until timeout
	Locate(ctx context.Context, strategy models.SelectorStrategy, timeout time.Duration) (models.Element, error)

	// Probe checks once, without waiting
	Probe(ctx context.Context, strategy models.SelectorStrategy) (models.Element, bool, error)

	// Race returns the index of the first strategy to become visible
	Race(ctx context.Context, timeout time.Duration, strategies ...models.SelectorStrategy) (int, models.Element, error)

	// FindRows returns visible rows matching every identity token, from the first locator that has any
	FindRows(ctx context.Context, strategy models.SelectorStrategy, tokens []string) ([]models.Element, error)

	// CountRows counts rows (visible or not) matching every identity token, maximum over locators
	CountRows(ctx context.Context, strategy models.SelectorStrategy, tokens []string) (int, error)
}

// ContactsAPI is the independent REST channel used to seed and cross-check state
type ContactsAPI interface {
	Authenticate(ctx context.Context, creds models.Credentials) (models.APIToken, error)
	Create(ctx context.Context, token models.APIToken, contact models.Contact) (models.StoredContact, error)
	List(ctx context.Context, token models.APIToken) ([]models.StoredContact, error)
	Delete(ctx context.Context, token models.APIToken, id string) error
}
