package locator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/crudcheck/internal/common"
	"github.com/ternarybob/crudcheck/internal/interfaces"
	"github.com/ternarybob/crudcheck/internal/models"
)

// Service resolves selector strategies against the live page
type Service struct {
	browser      interfaces.Browser
	backoff      common.Backoff
	probeTimeout time.Duration
	logger       arbor.ILogger
}

var _ interfaces.ElementLocator = (*Service)(nil)

// NewService creates a locator. probeTimeout bounds each single Query.
func NewService(browser interfaces.Browser, backoff common.Backoff, probeTimeout time.Duration, logger arbor.ILogger) *Service {
	return &Service{
		browser:      browser,
		backoff:      backoff,
		probeTimeout: probeTimeout,
		logger:       logger,
	}
}

// query runs one bounded Query; a probe that runs out of time is a miss
func (s *Service) query(ctx context.Context, loc models.Locator) ([]models.ElementState, error) {
	qctx := ctx
	if s.probeTimeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(ctx, s.probeTimeout)
		defer cancel()
	}

	states, err := s.browser.Query(qctx, loc)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, err
	}
	return states, nil
}

// Probe checks each locator once, in order, and returns the first visible match
func (s *Service) Probe(ctx context.Context, strategy models.SelectorStrategy) (models.Element, bool, error) {
	for _, loc := range strategy.Locators {
		states, err := s.query(ctx, loc)
		if err != nil {
			return models.Element{}, false, err
		}
		for _, st := range states {
			if st.Visible && (!strategy.RequireText || strings.TrimSpace(st.Text) != "") {
				return models.Element{Strategy: strategy.Name, Locator: loc, Index: st.Index, Text: st.Text}, true, nil
			}
		}
	}
	return models.Element{}, false, nil
}

// Locate polls the strategy until a locator yields a visible element
func (s *Service) Locate(ctx context.Context, strategy models.SelectorStrategy, timeout time.Duration) (models.Element, error) {
	var found models.Element
	err := common.Poll(ctx, s.backoff, timeout, "locate "+strategy.Name, func(ctx context.Context) (bool, error) {
		el, ok, err := s.Probe(ctx, strategy)
		if ok {
			found = el
		}
		return ok, err
	})
	if err != nil {
		var timeoutErr *models.TimeoutError
		if errors.As(err, &timeoutErr) && ctx.Err() == nil {
			s.logger.Debug().Str("strategy", strategy.String()).Dur("timeout", timeout).Msg("Element not found")
			return models.Element{}, &models.ElementNotFoundError{Strategy: strategy.Name, Tried: strategy.Locators, Timeout: timeout}
		}
		return models.Element{}, err
	}

	if len(strategy.Locators) > 1 && found.Locator != strategy.Locators[0] {
		s.logger.Debug().Str("strategy", strategy.Name).Str("locator", found.Locator.String()).Msg("Matched fallback locator")
	}
	return found, nil
}

// Race returns the index of the first strategy to produce a visible element.
// Strategies are probed in argument order each round, so earlier ones win ties.
func (s *Service) Race(ctx context.Context, timeout time.Duration, strategies ...models.SelectorStrategy) (int, models.Element, error) {
	names := make([]string, len(strategies))
	for i, st := range strategies {
		names[i] = st.Name
	}

	winner := -1
	var found models.Element
	err := common.Poll(ctx, s.backoff, timeout, "race "+strings.Join(names, " vs "), func(ctx context.Context) (bool, error) {
		for i, strategy := range strategies {
			el, ok, err := s.Probe(ctx, strategy)
			if err != nil {
				return false, err
			}
			if ok {
				winner, found = i, el
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		return -1, models.Element{}, err
	}
	return winner, found, nil
}

// FindRows returns visible rows matching every token, from the first locator
// of strategy that has any such row
func (s *Service) FindRows(ctx context.Context, strategy models.SelectorStrategy, tokens []string) ([]models.Element, error) {
	for _, loc := range strategy.Locators {
		states, err := s.query(ctx, loc)
		if err != nil {
			return nil, err
		}

		var rows []models.Element
		for _, st := range states {
			if st.Visible && MatchesAll(st.Text, tokens) {
				rows = append(rows, models.Element{Strategy: strategy.Name, Locator: loc, Index: st.Index, Text: st.Text})
			}
		}
		if len(rows) > 0 {
			return rows, nil
		}
	}
	return nil, nil
}

// CountRows counts rows matching every token whether visible or not,
// taking the largest count across locators
func (s *Service) CountRows(ctx context.Context, strategy models.SelectorStrategy, tokens []string) (int, error) {
	best := 0
	for _, loc := range strategy.Locators {
		states, err := s.query(ctx, loc)
		if err != nil {
			return 0, err
		}
		n := 0
		for _, st := range states {
			if MatchesAll(st.Text, tokens) {
				n++
			}
		}
		if n > best {
			best = n
		}
	}
	return best, nil
}
