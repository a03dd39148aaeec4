package session

import (
	"context"

	"github.com/ternarybob/crudcheck/internal/interfaces"
	"github.com/ternarybob/crudcheck/internal/models"
)

// stuckSubmit swallows the login submit so neither outcome ever appears
type stuckSubmit struct {
	interfaces.Browser
}

func (s *stuckSubmit) Click(ctx context.Context, loc models.Locator, index int) error {
	return nil
}
