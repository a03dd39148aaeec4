package fake

import (
	"context"
	"sync"

	"github.com/ternarybob/crudcheck/internal/interfaces"
)

// Factory opens fake pages that share one backend
type Factory struct {
	Backend *Backend
	BaseURL string

	mu    sync.Mutex
	pages []*Page
}

var _ interfaces.SessionFactory = (*Factory)(nil)

// NewFactory creates a factory over backend
func NewFactory(backend *Backend, baseURL string) *Factory {
	return &Factory{Backend: backend, BaseURL: baseURL}
}

// NewSession implements interfaces.SessionFactory
func (f *Factory) NewSession(ctx context.Context) (interfaces.BrowserSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page := f.Backend.NewPage(f.BaseURL)
	f.mu.Lock()
	f.pages = append(f.pages, page)
	f.mu.Unlock()
	return page, nil
}

// Pages returns every page opened so far
func (f *Factory) Pages() []*Page {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Page(nil), f.pages...)
}
