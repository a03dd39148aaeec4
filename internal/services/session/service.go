package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/crudcheck/internal/common"
	"github.com/ternarybob/crudcheck/internal/interfaces"
	"github.com/ternarybob/crudcheck/internal/models"
	"github.com/ternarybob/crudcheck/internal/services/locator"
)

// Service authenticates a browser session through the login form
type Service struct {
	browser  interfaces.Browser
	locator  interfaces.ElementLocator
	timeouts common.TimeoutsConfig
	logger   arbor.ILogger
}

// NewService creates a session controller
func NewService(browser interfaces.Browser, loc interfaces.ElementLocator, timeouts common.TimeoutsConfig, logger arbor.ILogger) *Service {
	return &Service{
		browser:  browser,
		locator:  loc,
		timeouts: timeouts,
		logger:   logger,
	}
}

// Login submits creds and reports whether the application accepted them.
// A rejection is an outcome, not an error; errors mean the login could not be judged.
func (s *Service) Login(ctx context.Context, creds models.Credentials) (models.SessionOutcome, error) {
	if err := s.browser.Navigate(ctx, "/"); err != nil {
		return models.SessionOutcome{}, fmt.Errorf("open login page: %w", err)
	}
	s.settle(ctx)

	if err := s.fill(ctx, locator.LoginEmail, creds.Username); err != nil {
		return models.SessionOutcome{}, err
	}
	if err := s.fill(ctx, locator.LoginPassword, creds.Password); err != nil {
		return models.SessionOutcome{}, err
	}

	submit, err := s.locator.Locate(ctx, locator.LoginSubmit, s.timeouts.Locate.D())
	if err != nil {
		return models.SessionOutcome{}, err
	}
	if err := s.browser.Click(ctx, submit.Locator, submit.Index); err != nil {
		return models.SessionOutcome{}, fmt.Errorf("submit login: %w", err)
	}

	winner, el, err := s.locator.Race(ctx, s.timeouts.Login.D(), locator.Logout, locator.LoginError)
	if err != nil {
		var timeout *models.TimeoutError
		if errors.As(err, &timeout) {
			return models.SessionOutcome{}, &models.TimeoutError{Operation: "login", After: s.timeouts.Login.D(), Err: timeout.Err}
		}
		return models.SessionOutcome{}, err
	}

	if winner == 1 {
		reason := strings.TrimSpace(el.Text)
		s.logger.Info().Str("user", creds.Username).Str("reason", reason).Msg("Login rejected")
		return models.Rejected(reason), nil
	}

	s.logger.Info().Str("user", creds.Username).Msg("Login accepted")
	return models.Authenticated(), nil
}

// LoginOrFail logs in and converts a rejection into AuthenticationRejectedError
func (s *Service) LoginOrFail(ctx context.Context, creds models.Credentials) error {
	outcome, err := s.Login(ctx, creds)
	if err != nil {
		return err
	}
	return RequireAuthenticated(outcome)
}

// RequireAuthenticated turns a rejected outcome into an error
func RequireAuthenticated(outcome models.SessionOutcome) error {
	if outcome.Authenticated {
		return nil
	}
	return &models.AuthenticationRejectedError{Message: outcome.Reason}
}

// VerifyListLanding checks that login landed on the contact list: the helper
// text, or the add control on builds that dropped it
func (s *Service) VerifyListLanding(ctx context.Context) error {
	_, _, err := s.locator.Race(ctx, s.timeouts.Locate.D(), locator.ListHelperText, locator.AddContact)
	if err != nil {
		var timeout *models.TimeoutError
		if errors.As(err, &timeout) && ctx.Err() == nil {
			tried := append(append([]models.Locator{}, locator.ListHelperText.Locators...), locator.AddContact.Locators...)
			return &models.ElementNotFoundError{Strategy: "contact-list-landing", Tried: tried, Timeout: s.timeouts.Locate.D()}
		}
		return err
	}
	return nil
}

// Logout signs out and waits for the login form
func (s *Service) Logout(ctx context.Context) error {
	el, err := s.locator.Locate(ctx, locator.Logout, s.timeouts.Locate.D())
	if err != nil {
		return err
	}
	if err := s.browser.Click(ctx, el.Locator, el.Index); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	_, err = s.locator.Locate(ctx, locator.LoginSubmit, s.timeouts.Locate.D())
	return err
}

func (s *Service) fill(ctx context.Context, strategy models.SelectorStrategy, value string) error {
	el, err := s.locator.Locate(ctx, strategy, s.timeouts.Locate.D())
	if err != nil {
		return err
	}
	if err := s.browser.Fill(ctx, el.Locator, el.Index, value); err != nil {
		return fmt.Errorf("fill %s: %w", strategy.Name, err)
	}
	return nil
}

func (s *Service) settle(ctx context.Context) {
	if err := s.browser.WaitForNetworkIdle(ctx); err != nil {
		s.logger.Debug().Err(err).Msg("Network did not go idle, continuing")
	}
}
