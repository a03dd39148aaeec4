package interfaces

import (
	"context"

	"github.com/ternarybob/crudcheck/internal/models"
)

// Browser is the automation capability consumed by the interaction layer.
// Query must not block: it reports what is in the DOM right now.
type Browser interface {
	// Navigate loads url; relative paths resolve against the application base URL
	Navigate(ctx context.Context, url string) error

	// WaitForNetworkIdle blocks until no requests are in flight for a quiet window
	WaitForNetworkIdle(ctx context.Context) error

	// Query snapshots every element matched by loc (existence, visibility, text, value)
	Query(ctx context.Context, loc models.Locator) ([]models.ElementState, error)

	// Click clicks the index-th element matched by loc
	Click(ctx context.Context, loc models.Locator, index int) error

	// Fill replaces the value of the index-th input matched by loc
	Fill(ctx context.Context, loc models.Locator, index int, value string) error

	// CurrentURL returns the page location
	CurrentURL(ctx context.Context) (string, error)
}

// PageInspector exposes page state for failure diagnostics
type PageInspector interface {
	HTML(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
}

// BrowserSession is an isolated browser owned by exactly one scenario
type BrowserSession interface {
	Browser
	Close() error
}

// SessionFactory opens isolated browser sessions
type SessionFactory interface {
	NewSession(ctx context.Context) (BrowserSession, error)
}
