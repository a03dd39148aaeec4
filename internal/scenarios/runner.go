// Package scenarios runs login and contact CRUD scenarios, each in its own
// browser session, and collects their results.
package scenarios

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/crudcheck/internal/common"
	"github.com/ternarybob/crudcheck/internal/fixtures"
	"github.com/ternarybob/crudcheck/internal/interfaces"
	"github.com/ternarybob/crudcheck/internal/models"
	"github.com/ternarybob/crudcheck/internal/services/contacts"
	"github.com/ternarybob/crudcheck/internal/services/locator"
	"github.com/ternarybob/crudcheck/internal/services/session"
	"github.com/ternarybob/crudcheck/internal/services/verify"
	"github.com/ternarybob/crudcheck/internal/services/viewstate"
)

// Suite names
const (
	SuiteLogin    = "login"
	SuiteContacts = "contacts"
)

// Scenario is one independent check
type Scenario struct {
	Name       string
	Suite      string
	NeedsLogin bool // log in with the valid user before Run
	NeedsAPI   bool // Env.Token must hold an API token
	Run        func(ctx context.Context, env *Env) error
}

// Env is everything a scenario may use. Services are bound to the
// scenario's own browser session.
type Env struct {
	RunID    string
	Browser  interfaces.Browser
	Locator  *locator.Service
	Session  *session.Service
	Views    *viewstate.Service
	Contacts *contacts.Service
	Verify   *verify.Service
	Unique   *contacts.Uniquifier
	API      interfaces.ContactsAPI
	Token    models.APIToken
	Timeouts common.TimeoutsConfig
	Login    *fixtures.Login
	Fixtures *fixtures.Contacts
	Logger   arbor.ILogger
}

// Result is the outcome of one scenario
type Result struct {
	Name       string
	Suite      string
	Err        error
	Kind       string // error taxonomy kind, empty on success
	Message    string // application text carried by the error, if any
	Duration   time.Duration
	Screenshot string
	CrashFile  string
}

// Passed reports whether the scenario succeeded
func (r Result) Passed() bool {
	return r.Err == nil
}

// Runner executes scenarios sequentially
type Runner struct {
	factory  interfaces.SessionFactory
	config   *common.Config
	api      interfaces.ContactsAPI
	login    *fixtures.Login
	fixtures *fixtures.Contacts
	runID    string
	unique   *contacts.Uniquifier
	logger   arbor.ILogger

	tokenMu sync.Mutex
	token   models.APIToken
}

// NewRunner creates a runner. api may be nil, which fails scenarios that need it.
func NewRunner(factory interfaces.SessionFactory, config *common.Config, api interfaces.ContactsAPI, login *fixtures.Login, contactFixtures *fixtures.Contacts, logger arbor.ILogger) *Runner {
	runID := common.NewRunID()
	return &Runner{
		factory:  factory,
		config:   config,
		api:      api,
		login:    login,
		fixtures: contactFixtures,
		runID:    runID,
		unique:   contacts.NewUniquifier(runID),
		logger:   logger,
	}
}

// RunID identifies this run in uniquified emails and artifact names
func (r *Runner) RunID() string {
	return r.runID
}

// Run executes every scenario in order and returns one result per scenario
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) []Result {
	r.logger.Info().Str("run_id", r.runID).Int("scenarios", len(scenarios)).Msg("Starting run")

	results := make([]Result, 0, len(scenarios))
	for _, sc := range scenarios {
		if ctx.Err() != nil {
			results = append(results, Result{Name: sc.Name, Suite: sc.Suite, Err: ctx.Err(), Kind: models.KindInternal})
			continue
		}
		res := r.runOne(ctx, sc)
		results = append(results, res)

		event := r.logger.Info()
		if !res.Passed() {
			event = r.logger.Error().Err(res.Err).Str("kind", res.Kind)
		}
		event.Str("suite", res.Suite).
			Str("scenario", res.Name).
			Dur("duration", res.Duration).
			Bool("passed", res.Passed()).
			Msg("Scenario finished")
	}
	return results
}

func (r *Runner) runOne(parent context.Context, sc Scenario) (res Result) {
	res = Result{Name: sc.Name, Suite: sc.Suite}
	start := time.Now()

	ctx, cancel := context.WithTimeout(parent, r.config.Timeouts.Scenario.D())
	defer cancel()

	browser, err := r.factory.NewSession(ctx)
	if err != nil {
		res.Err = fmt.Errorf("open browser session: %w", err)
		res.Kind = models.KindInternal
		res.Duration = time.Since(start)
		return res
	}
	defer func() {
		if err := browser.Close(); err != nil {
			r.logger.Warn().Err(err).Str("scenario", sc.Name).Msg("Failed to close browser session")
		}
	}()

	defer func() {
		if p := recover(); p != nil {
			res.Err = fmt.Errorf("scenario panicked: %v", p)
			res.Kind = models.KindInternal
			path, err := common.WriteCrashFile(filepath.Join(r.config.Output.ResultsDir, "crashes"), sc.Name, p, string(debug.Stack()))
			if err != nil {
				r.logger.Error().Err(err).Msg("Failed to write crash file")
			}
			res.CrashFile = path
			res.Duration = time.Since(start)
		}
	}()

	env := r.newEnv(browser)
	err = r.execute(ctx, sc, env)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
			err = &models.TimeoutError{Operation: "scenario " + sc.Name, After: r.config.Timeouts.Scenario.D(), Err: err}
		}
		res.Err = err
		res.Kind = models.ErrorKind(err)
		res.Message = models.ApplicationMessage(err)
		res.Screenshot = r.captureDiagnostics(ctx, sc, browser)
	}
	res.Duration = time.Since(start)
	return res
}

func (r *Runner) execute(ctx context.Context, sc Scenario, env *Env) error {
	if sc.NeedsAPI {
		token, err := r.apiToken(ctx)
		if err != nil {
			return fmt.Errorf("api authentication: %w", err)
		}
		env.Token = token
	}
	if sc.NeedsLogin {
		if r.login == nil {
			return errors.New("scenario needs a login fixture")
		}
		if err := env.Session.LoginOrFail(ctx, r.login.ValidUser); err != nil {
			return fmt.Errorf("login: %w", err)
		}
	}

	err := sc.Run(ctx, env)
	// A failed scenario keeps its page as is for diagnostics
	if err == nil && sc.NeedsLogin {
		if logoutErr := env.Session.Logout(ctx); logoutErr != nil {
			r.logger.Warn().Err(logoutErr).Str("scenario", sc.Name).Msg("Logout after scenario failed")
		}
	}
	return err
}

// apiToken authenticates the API client once per run. Failures are not cached.
func (r *Runner) apiToken(ctx context.Context) (models.APIToken, error) {
	if r.api == nil {
		return "", errors.New("no api client configured")
	}
	if r.login == nil {
		return "", errors.New("no login fixture configured")
	}

	r.tokenMu.Lock()
	defer r.tokenMu.Unlock()
	if r.token != "" {
		return r.token, nil
	}
	token, err := r.api.Authenticate(ctx, r.login.ValidUser)
	if err != nil {
		return "", err
	}
	r.token = token
	return token, nil
}

func (r *Runner) newEnv(browser interfaces.BrowserSession) *Env {
	cfg := r.config
	backoff := common.BackoffFromConfig(cfg.Poll)
	logger := r.logger

	loc := locator.NewService(browser, backoff, cfg.Timeouts.Probe.D(), logger)
	views := viewstate.NewService(browser, loc, cfg.Timeouts, backoff, cfg.App.ListPath, logger)

	return &Env{
		RunID:    r.runID,
		Browser:  browser,
		Locator:  loc,
		Session:  session.NewService(browser, loc, cfg.Timeouts, logger),
		Views:    views,
		Contacts: contacts.NewService(browser, loc, views, r.unique, cfg.Timeouts, backoff, logger),
		Verify:   verify.NewService(browser, loc, views, r.api, cfg.Timeouts, backoff, logger),
		Unique:   r.unique,
		API:      r.api,
		Timeouts: cfg.Timeouts,
		Login:    r.login,
		Fixtures: r.fixtures,
		Logger:   logger,
	}
}
