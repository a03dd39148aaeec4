package contacts

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
	"github.com/ternarybob/crudcheck/internal/services/viewstate"
)

// Outcome tells whether the application confirmed a save
type Outcome string

const (
	// OutcomeConfirmed means the details view appeared after submit
	OutcomeConfirmed Outcome = "confirmed"
	// OutcomeUnconfirmed means neither success nor error appeared in time;
	// the caller must verify the contact itself
	OutcomeUnconfirmed Outcome = "unconfirmed"
)

// CreateResult describes a submitted contact
type CreateResult struct {
	Email   string // email actually submitted, after uniquifying
	Outcome Outcome
}

// ViewNormalizer is the part of the view state service the executor needs
type ViewNormalizer interface {
	EnsureListView(ctx context.Context) (viewstate.Result, error)
	NavigateToList(ctx context.Context) error
}

// Service performs create, edit and delete through the contact UI
type Service struct {
	browser  interfaces.Browser
	locator  interfaces.ElementLocator
	views    ViewNormalizer
	unique   *Uniquifier
	timeouts common.TimeoutsConfig
	backoff  common.Backoff
	logger   arbor.ILogger
}

// NewService creates an action executor
func NewService(browser interfaces.Browser, loc interfaces.ElementLocator, views ViewNormalizer, unique *Uniquifier, timeouts common.TimeoutsConfig, backoff common.Backoff, logger arbor.ILogger) *Service {
	return &Service{
		browser:  browser,
		locator:  loc,
		views:    views,
		unique:   unique,
		timeouts: timeouts,
		backoff:  backoff,
		logger:   logger,
	}
}

// Create adds contact through the add form
func (s *Service) Create(ctx context.Context, contact models.Contact) (CreateResult, error) {
	if _, err := s.views.EnsureListView(ctx); err != nil {
		return CreateResult{}, fmt.Errorf("create contact: %w", err)
	}
	s.settle(ctx)

	if err := s.click(ctx, locator.AddContact); err != nil {
		return CreateResult{}, fmt.Errorf("create contact: %w", err)
	}
	if _, err := s.locator.Locate(ctx, locator.FirstNameInput, s.timeouts.Locate.D()); err != nil {
		return CreateResult{}, fmt.Errorf("create contact: form did not open: %w", err)
	}

	submitted := contact
	submitted.Email = s.unique.Apply(contact.Email)

	if err := s.fillForm(ctx, submitted); err != nil {
		return CreateResult{}, fmt.Errorf("create contact: %w", err)
	}
	if err := s.click(ctx, locator.Submit); err != nil {
		return CreateResult{}, fmt.Errorf("create contact: %w", err)
	}

	outcome, err := s.awaitSave(ctx)
	if err != nil {
		return CreateResult{Email: submitted.Email}, err
	}

	s.logger.Info().
		Str("contact", submitted.DisplayName()).
		Str("email", submitted.Email).
		Str("outcome", string(outcome)).
		Msg("Contact submitted")

	return CreateResult{Email: submitted.Email, Outcome: outcome}, nil
}

// Delete removes the first visible contact row matching every token
func (s *Service) Delete(ctx context.Context, tokens []string) error {
	if err := s.openRow(ctx, tokens); err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}

	// The confirm() dialog is accepted by the browser driver
	if err := s.click(ctx, locator.DeleteContact); err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	s.settle(ctx)

	if _, err := s.views.EnsureListView(ctx); err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}

	s.logger.Info().Strs("identity", tokens).Msg("Contact deleted")
	return nil
}

// Edit overwrites every field of the first contact matching tokens
func (s *Service) Edit(ctx context.Context, tokens []string, updated models.Contact) error {
	if err := s.openRow(ctx, tokens); err != nil {
		return fmt.Errorf("edit contact: %w", err)
	}
	if err := s.click(ctx, locator.EditContact); err != nil {
		return fmt.Errorf("edit contact: %w", err)
	}

	first, err := s.locator.Locate(ctx, locator.FirstNameInput, s.timeouts.Locate.D())
	if err != nil {
		return fmt.Errorf("edit contact: form did not open: %w", err)
	}
	s.awaitPopulated(ctx, first)

	if err := s.fillForm(ctx, updated); err != nil {
		return fmt.Errorf("edit contact: %w", err)
	}
	if err := s.click(ctx, locator.Submit); err != nil {
		return fmt.Errorf("edit contact: %w", err)
	}

	outcome, err := s.awaitSave(ctx)
	if err != nil {
		return err
	}

	s.logger.Info().
		Strs("identity", tokens).
		Str("contact", updated.DisplayName()).
		Str("outcome", string(outcome)).
		Msg("Contact updated")
	return nil
}

// openRow normalizes to the list and opens the details of the matching row
func (s *Service) openRow(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return errors.New("empty contact identity")
	}
	if _, err := s.views.EnsureListView(ctx); err != nil {
		return err
	}
	s.settle(ctx)

	var rows []models.Element
	err := common.Poll(ctx, s.backoff, s.timeouts.Locate.D(), "find contact row", func(ctx context.Context) (bool, error) {
		var err error
		rows, err = s.locator.FindRows(ctx, locator.AnyRows, tokens)
		return len(rows) > 0, err
	})
	if err != nil {
		var timeout *models.TimeoutError
		if errors.As(err, &timeout) && ctx.Err() == nil {
			return &models.ElementNotFoundError{
				Strategy: "contact-row(" + strings.Join(tokens, " ") + ")",
				Tried:    locator.AnyRows.Locators,
				Timeout:  s.timeouts.Locate.D(),
			}
		}
		return err
	}

	if len(rows) > 1 {
		s.logger.Warn().Strs("identity", tokens).Int("matches", len(rows)).Msg("Several rows match, using the first")
	}

	row := rows[0]
	if err := s.browser.Click(ctx, row.Locator, row.Index); err != nil {
		return fmt.Errorf("open contact row: %w", err)
	}
	s.settle(ctx)
	return nil
}

// awaitSave races the details view against the error banner after submit
func (s *Service) awaitSave(ctx context.Context) (Outcome, error) {
	winner, el, err := s.locator.Race(ctx, s.timeouts.Save.D(), locator.ErrorBanner, locator.Return)
	if err != nil {
		var timeout *models.TimeoutError
		if !errors.As(err, &timeout) || ctx.Err() != nil {
			return "", err
		}
		s.logger.Warn().Dur("timeout", s.timeouts.Save.D()).Msg("Save not confirmed, navigating to list")
		if err := s.views.NavigateToList(ctx); err != nil {
			return "", err
		}
		return OutcomeUnconfirmed, nil
	}

	if winner == 0 {
		return "", &models.SaveError{Message: strings.TrimSpace(el.Text)}
	}

	s.settle(ctx)
	if _, err := s.views.EnsureListView(ctx); err != nil {
		return "", err
	}
	return OutcomeConfirmed, nil
}

// awaitPopulated waits, bounded, for the edit form to show stored values.
// Filling proceeds either way since every field is overwritten.
func (s *Service) awaitPopulated(ctx context.Context, first models.Element) {
	err := common.Poll(ctx, s.backoff, s.timeouts.Locate.D(), "edit form populated", func(ctx context.Context) (bool, error) {
		states, err := s.browser.Query(ctx, first.Locator)
		if err != nil {
			return false, err
		}
		return first.Index < len(states) && states[first.Index].Value != "", nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Edit form values did not populate, overwriting anyway")
	}
}

func (s *Service) fillForm(ctx context.Context, c models.Contact) error {
	for _, field := range locator.ContactForm {
		el, err := s.locator.Locate(ctx, field.Strategy, s.timeouts.Locate.D())
		if err != nil {
			return err
		}
		if err := s.browser.Fill(ctx, el.Locator, el.Index, field.Value(c)); err != nil {
			return fmt.Errorf("fill %s: %w", field.Name, err)
		}
	}
	return nil
}

func (s *Service) click(ctx context.Context, strategy models.SelectorStrategy) error {
	el, err := s.locator.Locate(ctx, strategy, s.timeouts.Locate.D())
	if err != nil {
		return err
	}
	if err := s.browser.Click(ctx, el.Locator, el.Index); err != nil {
		return fmt.Errorf("click %s: %w", strategy.Name, err)
	}
	return nil
}

func (s *Service) settle(ctx context.Context) {
	if err := s.browser.WaitForNetworkIdle(ctx); err != nil {
		s.logger.Debug().Err(err).Msg("Network did not go idle, continuing")
	}
}
