// Package verify asserts contact presence and absence in the list view, and
// cross-checks stored contacts through the REST surface.
package verify

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/crudcheck/internal/common"
	"github.com/ternarybob/crudcheck/internal/interfaces"
	"github.com/ternarybob/crudcheck/internal/models"
	"github.com/ternarybob/crudcheck/internal/services/locator"
	"github.com/ternarybob/crudcheck/internal/services/viewstate"
)

// ListNormalizer brings the browser to the contact list
type ListNormalizer interface {
	EnsureListView(ctx context.Context) (viewstate.Result, error)
}

// Service is the verification engine
type Service struct {
	browser  interfaces.Browser
	locator  interfaces.ElementLocator
	views    ListNormalizer
	api      interfaces.ContactsAPI
	timeouts common.TimeoutsConfig
	backoff  common.Backoff
	logger   arbor.ILogger
}

// NewService creates a verification engine. api may be nil when no
// cross-validation is wanted.
func NewService(browser interfaces.Browser, loc interfaces.ElementLocator, views ListNormalizer, api interfaces.ContactsAPI, timeouts common.TimeoutsConfig, backoff common.Backoff, logger arbor.ILogger) *Service {
	return &Service{
		browser:  browser,
		locator:  loc,
		views:    views,
		api:      api,
		timeouts: timeouts,
		backoff:  backoff,
		logger:   logger,
	}
}

// AssertPresent succeeds once a visible row contains every token.
// Table body rows are tried first; looser row markup is accepted after the
// grace window. Both windows together are bounded by the verify timeout.
func (s *Service) AssertPresent(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return errors.New("assert present: empty contact identity")
	}
	if err := s.prepare(ctx); err != nil {
		return err
	}

	start := time.Now()
	grace := min(s.timeouts.Grace.D(), s.timeouts.Verify.D())
	found, err := s.pollRows(ctx, locator.Rows, tokens, grace)
	if err != nil {
		return err
	}
	if found {
		s.logger.Debug().Strs("identity", tokens).Msg("Contact row present")
		return nil
	}

	s.logger.Debug().Strs("identity", tokens).Msg("No table row yet, widening to any row markup")
	remaining := max(s.timeouts.Verify.D()-time.Since(start), 0)
	found, err = s.pollRows(ctx, locator.AnyRows, tokens, remaining)
	if err != nil {
		return err
	}
	if !found {
		return &models.VerificationFailureError{Identity: tokens, Expected: "present", Observed: 0}
	}
	return nil
}

// AssertAbsent succeeds once no row, visible or not, contains every token
func (s *Service) AssertAbsent(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return errors.New("assert absent: empty contact identity")
	}
	if err := s.prepare(ctx); err != nil {
		return err
	}

	observed := 0
	err := common.Poll(ctx, s.backoff, s.timeouts.Verify.D(), "assert absent", func(ctx context.Context) (bool, error) {
		n, err := s.locator.CountRows(ctx, locator.AnyRows, tokens)
		if err != nil {
			return false, err
		}
		observed = n
		return n == 0, nil
	})
	if err != nil {
		if isTimeout(ctx, err) {
			return &models.VerificationFailureError{Identity: tokens, Expected: "absent", Observed: observed}
		}
		return err
	}

	s.logger.Debug().Strs("identity", tokens).Msg("Contact row absent")
	return nil
}

// AssertStored checks through the API that a contact with the identity of c
// was persisted with email
func (s *Service) AssertStored(ctx context.Context, token models.APIToken, c models.Contact, email string) error {
	if s.api == nil {
		return errors.New("assert stored: no api client configured")
	}
	tokens := c.IdentityTokens()
	if len(tokens) == 0 {
		return errors.New("assert stored: empty contact identity")
	}

	observed := 0
	err := common.Poll(ctx, s.backoff, s.timeouts.Verify.D(), "assert stored", func(ctx context.Context) (bool, error) {
		stored, err := s.api.List(ctx, token)
		if err != nil {
			return false, err
		}
		observed = 0
		for _, sc := range stored {
			if !locator.MatchesAll(sc.DisplayName(), tokens) {
				continue
			}
			observed++
			if email == "" || strings.EqualFold(sc.Email, email) {
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		if isTimeout(ctx, err) {
			s.logger.Warn().Strs("identity", tokens).Str("email", email).Int("same_name", observed).Msg("Contact not stored")
			return &models.VerificationFailureError{Identity: tokens, Expected: "stored", Observed: observed}
		}
		return err
	}
	return nil
}

func (s *Service) prepare(ctx context.Context) error {
	if _, err := s.views.EnsureListView(ctx); err != nil {
		return err
	}
	if err := s.browser.WaitForNetworkIdle(ctx); err != nil {
		s.logger.Debug().Err(err).Msg("Network did not go idle, continuing")
	}
	return nil
}

// pollRows reports whether matching rows appeared within timeout
func (s *Service) pollRows(ctx context.Context, strategy models.SelectorStrategy, tokens []string, timeout time.Duration) (bool, error) {
	err := common.Poll(ctx, s.backoff, timeout, "find "+strategy.Name, func(ctx context.Context) (bool, error) {
		rows, err := s.locator.FindRows(ctx, strategy, tokens)
		return len(rows) > 0, err
	})
	if err != nil {
		if isTimeout(ctx, err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func isTimeout(ctx context.Context, err error) bool {
	var timeout *models.TimeoutError
	return errors.As(err, &timeout) && ctx.Err() == nil
}
