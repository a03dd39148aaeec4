package viewstate

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/crudcheck/internal/common"
	"github.com/ternarybob/crudcheck/internal/interfaces"
	"github.com/ternarybob/crudcheck/internal/models"
	"github.com/ternarybob/crudcheck/internal/services/locator"
)

// Action is what EnsureListView had to do to reach the list
type Action string

const (
	ActionNone     Action = "none"
	ActionReturn   Action = "return"
	ActionNavigate Action = "navigate"
)

// Result reports the view normalization started from and the action taken
type Result struct {
	From   models.ViewState
	Action Action
}

// Service drives the browser back to the contact list from wherever it is
type Service struct {
	browser  interfaces.Browser
	locator  interfaces.ElementLocator
	timeouts common.TimeoutsConfig
	backoff  common.Backoff
	listPath string
	logger   arbor.ILogger
}

// NewService creates a view state normalizer
func NewService(browser interfaces.Browser, loc interfaces.ElementLocator, timeouts common.TimeoutsConfig, backoff common.Backoff, listPath string, logger arbor.ILogger) *Service {
	return &Service{
		browser:  browser,
		locator:  loc,
		timeouts: timeouts,
		backoff:  backoff,
		listPath: listPath,
		logger:   logger,
	}
}

// Probe classifies the current page from its markers. An open form wins over
// everything else, then the details view, then the list.
func (s *Service) Probe(ctx context.Context) (models.ViewState, error) {
	checks := []struct {
		strategy models.SelectorStrategy
		state    models.ViewState
	}{
		{locator.FirstNameInput, models.FormView},
		{locator.Return, models.DetailView},
		{locator.AddContact, models.ListView},
		{locator.Logout, models.ListView},
	}

	for _, c := range checks {
		_, ok, err := s.locator.Probe(ctx, c.strategy)
		if err != nil {
			return models.Unknown, err
		}
		if ok {
			return c.state, nil
		}
	}
	return models.Unknown, nil
}

// EnsureListView brings the browser to the list view. It is safe to call from
// any state and performs no navigation when the list is already showing.
func (s *Service) EnsureListView(ctx context.Context) (Result, error) {
	state, err := s.Probe(ctx)
	if err != nil {
		return Result{}, err
	}

	if state == models.Unknown {
		state, err = s.awaitKnown(ctx)
		if err != nil {
			return Result{}, err
		}
	}

	switch state {
	case models.ListView:
		return Result{From: models.ListView, Action: ActionNone}, nil

	case models.FormView:
		return Result{From: models.FormView}, &models.NavigationFailureError{From: models.FormView, Reason: "unsaved form is open"}

	case models.DetailView:
		s.logger.Debug().Msg("Returning from contact details to list")
		el, err := s.locator.Locate(ctx, locator.Return, s.timeouts.Locate.D())
		if err != nil {
			return Result{From: models.DetailView}, &models.NavigationFailureError{From: models.DetailView, Reason: "return control vanished", Err: err}
		}
		if err := s.browser.Click(ctx, el.Locator, el.Index); err != nil {
			return Result{From: models.DetailView}, &models.NavigationFailureError{From: models.DetailView, Reason: "return click failed", Err: err}
		}
		s.settle(ctx)
		if err := s.waitFor(ctx, models.ListView); err != nil {
			return Result{From: models.DetailView}, &models.NavigationFailureError{From: models.DetailView, Reason: "list did not appear after return", Err: err}
		}
		return Result{From: models.DetailView, Action: ActionReturn}, nil

	default:
		if err := s.NavigateToList(ctx); err != nil {
			return Result{From: models.Unknown}, err
		}
		return Result{From: models.Unknown, Action: ActionNavigate}, nil
	}
}

// NavigateToList loads the list route directly and waits for the list markers
func (s *Service) NavigateToList(ctx context.Context) error {
	s.logger.Debug().Str("path", s.listPath).Msg("Navigating to contact list")
	if err := s.browser.Navigate(ctx, s.listPath); err != nil {
		return &models.NavigationFailureError{From: models.Unknown, Reason: "navigation to " + s.listPath + " failed", Err: err}
	}
	s.settle(ctx)

	if err := s.waitFor(ctx, models.ListView); err != nil {
		reason := fmt.Sprintf("%s did not show the contact list", s.listPath)
		if _, onLogin, probeErr := s.locator.Probe(ctx, locator.LoginSubmit); probeErr == nil && onLogin {
			reason = "login page shown, session is not authenticated"
		}
		return &models.NavigationFailureError{From: models.Unknown, Reason: reason, Err: err}
	}
	return nil
}

// awaitKnown gives a page that is still mounting a short grace window
func (s *Service) awaitKnown(ctx context.Context) (models.ViewState, error) {
	state := models.Unknown
	err := common.Poll(ctx, s.backoff, s.timeouts.Grace.D(), "view settle", func(ctx context.Context) (bool, error) {
		var err error
		state, err = s.Probe(ctx)
		return state != models.Unknown, err
	})
	var timeout *models.TimeoutError
	if err != nil && (!errors.As(err, &timeout) || ctx.Err() != nil) {
		return models.Unknown, err
	}
	if state == models.Unknown {
		s.logger.Debug().Dur("grace", s.timeouts.Grace.D()).Msg("View still unknown after grace window")
	}
	return state, nil
}

func (s *Service) waitFor(ctx context.Context, target models.ViewState) error {
	return common.Poll(ctx, s.backoff, s.timeouts.Settle.D(), "wait for "+target.String()+" view", func(ctx context.Context) (bool, error) {
		state, err := s.Probe(ctx)
		return state == target, err
	})
}

func (s *Service) settle(ctx context.Context) {
	if err := s.browser.WaitForNetworkIdle(ctx); err != nil {
		s.logger.Debug().Err(err).Msg("Network did not go idle, continuing")
	}
}
