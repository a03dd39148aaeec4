package scenarios

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/crudcheck/internal/browser/fake"
	"github.com/ternarybob/crudcheck/internal/common"
	"github.com/ternarybob/crudcheck/internal/fixtures"
	"github.com/ternarybob/crudcheck/internal/interfaces"
	"github.com/ternarybob/crudcheck/internal/models"
)

var testLogin = &fixtures.Login{
	ValidUser:   models.Credentials{Username: "tester@example.com", Password: "secret"},
	InvalidUser: models.Credentials{Username: "invalid@example.com", Password: "invalidpassword"},
}

var testContacts = &fixtures.Contacts{
	NewContact: models.Contact{
		FirstName: "John", LastName: "Doe", DateOfBirth: "1990-01-01", Email: "john.doe@example.com",
		Phone: "1234567890", Address: "123 Main St", City: "Anytown", State: "CA", PostalCode: "12345",
	},
	ContactToDelete: models.Contact{
		FirstName: "Jane", LastName: "Smith", DateOfBirth: "1985-05-15", Email: "jane.smith@example.com",
	},
	UpdateContact: &models.Contact{
		FirstName: "Johnny", LastName: "Updated", DateOfBirth: "1991-02-02", Email: "johnny.doe@example.com",
		City: "Elsewhere",
	},
}

func testConfig(t *testing.T) *common.Config {
	t.Helper()
	config := common.NewDefaultConfig()
	config.App.BaseURL = "http://app.local"
	config.Timeouts = common.TimeoutsConfig{
		Probe:            common.Duration(20 * time.Millisecond),
		Locate:           common.Duration(300 * time.Millisecond),
		Login:            common.Duration(300 * time.Millisecond),
		Save:             common.Duration(200 * time.Millisecond),
		Settle:           common.Duration(300 * time.Millisecond),
		Grace:            common.Duration(20 * time.Millisecond),
		Verify:           common.Duration(200 * time.Millisecond),
		NetworkIdleQuiet: common.Duration(time.Millisecond),
		NetworkIdle:      common.Duration(10 * time.Millisecond),
		Scenario:         common.Duration(5 * time.Second),
	}
	config.Poll = common.PollConfig{
		InitialInterval: common.Duration(time.Millisecond),
		MaxInterval:     common.Duration(5 * time.Millisecond),
		Multiplier:      2,
	}
	config.Output.ResultsDir = t.TempDir()
	return config
}

func newTestRunner(t *testing.T, quirks fake.Quirks) (*Runner, *fake.Backend, *common.Config) {
	t.Helper()
	backend := fake.NewBackend(quirks)
	backend.AddUser(testLogin.ValidUser.Username, testLogin.ValidUser.Password)
	config := testConfig(t)
	runner := NewRunner(fake.NewFactory(backend, config.App.BaseURL), config, backend, testLogin, testContacts, arbor.NewNoOpLogger())
	return runner, backend, config
}

func requireAllPassed(t *testing.T, results []Result) {
	t.Helper()
	for _, res := range results {
		assert.True(t, res.Passed(), "%s/%s failed: %v", res.Suite, res.Name, res.Err)
	}
}

func TestLoginSuite(t *testing.T) {
	runner, _, _ := newTestRunner(t, fake.Quirks{})

	results := runner.Run(context.Background(), LoginSuite(testLogin))
	require.Len(t, results, 8)
	requireAllPassed(t, results)
}

func TestContactSuite(t *testing.T) {
	tests := []struct {
		name   string
		quirks fake.Quirks
	}{
		{"standard markup", fake.Quirks{}},
		{"slow mount", fake.Quirks{MountDelay: 2, PopulateDelay: 2}},
		{"legacy markup", fake.Quirks{LegacyMarkup: true, NoHelperText: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner, backend, _ := newTestRunner(t, tt.quirks)

			results := runner.Run(context.Background(), ContactSuite(testContacts))
			require.Len(t, results, 7)
			requireAllPassed(t, results)

			var names []string
			for _, c := range backend.Contacts() {
				names = append(names, c.DisplayName())
			}
			runID := runner.RunID()
			assert.Contains(t, names, "John Doe")
			assert.Contains(t, names, "Johnny Updated-"+runID)
			assert.NotContains(t, names, "Jane Smith-"+runID)
			assert.NotContains(t, names, "Jane Smith-api-"+runID)
			assert.NotContains(t, names, "John Doe-invalid-"+runID)
		})
	}
}

// hidingFactory opens fake sessions whose queries drop elements containing hide
type hidingFactory struct {
	inner *fake.Factory
	hide  string
}

func (f *hidingFactory) NewSession(ctx context.Context) (interfaces.BrowserSession, error) {
	session, err := f.inner.NewSession(ctx)
	if err != nil {
		return nil, err
	}
	return &hidingSession{BrowserSession: session, hide: strings.ToLower(f.hide)}, nil
}

type hidingSession struct {
	interfaces.BrowserSession
	hide string
}

func (s *hidingSession) Query(ctx context.Context, loc models.Locator) ([]models.ElementState, error) {
	states, err := s.BrowserSession.Query(ctx, loc)
	if err != nil {
		return nil, err
	}
	var kept []models.ElementState
	for _, st := range states {
		if !strings.Contains(strings.ToLower(st.Text), s.hide) {
			kept = append(kept, st)
		}
	}
	return kept, nil
}

func scenarioNamed(t *testing.T, suite []Scenario, name string) Scenario {
	t.Helper()
	for _, sc := range suite {
		if sc.Name == name {
			return sc
		}
	}
	t.Fatalf("no scenario %q", name)
	return Scenario{}
}

func TestSameBaseEmailRequiresARowPerContact(t *testing.T) {
	backend := fake.NewBackend(fake.Quirks{})
	backend.AddUser(testLogin.ValidUser.Username, testLogin.ValidUser.Password)
	config := testConfig(t)
	factory := &hidingFactory{inner: fake.NewFactory(backend, config.App.BaseURL)}
	runner := NewRunner(factory, config, backend, testLogin, testContacts, arbor.NewNoOpLogger())
	factory.hide = "+" + runner.RunID() + "2@"

	results := runner.Run(context.Background(), []Scenario{scenarioNamed(t, ContactSuite(testContacts), "same base email twice")})
	require.Len(t, results, 1)
	assert.Equal(t, models.KindVerificationFailure, results[0].Kind)
	assert.Len(t, backend.Contacts(), 2, "both contacts were stored")
}

func TestLoggedInScenarioLogsOutAfterwards(t *testing.T) {
	backend := fake.NewBackend(fake.Quirks{})
	backend.AddUser(testLogin.ValidUser.Username, testLogin.ValidUser.Password)
	config := testConfig(t)
	factory := fake.NewFactory(backend, config.App.BaseURL)
	runner := NewRunner(factory, config, backend, testLogin, testContacts, arbor.NewNoOpLogger())

	results := runner.Run(context.Background(), []Scenario{
		scenarioNamed(t, ContactSuite(testContacts), "view contacts"),
		{Name: "fails", NeedsLogin: true, Run: func(ctx context.Context, env *Env) error { return errors.New("boom") }},
	})
	require.Len(t, results, 2)
	assert.True(t, results[0].Passed(), "%v", results[0].Err)

	pages := factory.Pages()
	require.Len(t, pages, 2)
	assert.False(t, pages[0].LoggedIn())
	assert.Equal(t, fake.ViewLogin, pages[0].View())
	assert.True(t, pages[1].LoggedIn(), "a failed scenario keeps its page")
}

func TestContactScenarioRequiresLogin(t *testing.T) {
	backend := fake.NewBackend(fake.Quirks{})
	config := testConfig(t)
	runner := NewRunner(fake.NewFactory(backend, config.App.BaseURL), config, backend, testLogin, testContacts, arbor.NewNoOpLogger())

	results := runner.Run(context.Background(), ContactSuite(testContacts)[:1])
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed())
	assert.Equal(t, models.KindAuthenticationRejected, results[0].Kind)
	assert.Equal(t, "Incorrect username or password", results[0].Message)
}

func TestFailedScenarioSavesScreenshot(t *testing.T) {
	runner, _, config := newTestRunner(t, fake.Quirks{})

	results := runner.Run(context.Background(), []Scenario{{
		Name:       "missing contact",
		Suite:      SuiteContacts,
		NeedsLogin: true,
		Run: func(ctx context.Context, env *Env) error {
			return env.Verify.AssertPresent(ctx, []string{"Nobody", "Here"})
		},
	}})
	require.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, models.KindVerificationFailure, res.Kind)
	require.NotEmpty(t, res.Screenshot)
	assert.True(t, strings.HasPrefix(res.Screenshot, filepath.Join(config.Output.ResultsDir, "screenshots")))
	_, err := os.Stat(res.Screenshot)
	assert.NoError(t, err)
}

func TestScreenshotsCanBeDisabled(t *testing.T) {
	runner, _, config := newTestRunner(t, fake.Quirks{})
	config.Output.ScreenshotsOnFailure = false

	results := runner.Run(context.Background(), []Scenario{{
		Name: "fails",
		Run:  func(ctx context.Context, env *Env) error { return errors.New("boom") },
	}})
	require.Len(t, results, 1)
	assert.Equal(t, models.KindInternal, results[0].Kind)
	assert.Empty(t, results[0].Screenshot)
}

func TestPanicWritesCrashFile(t *testing.T) {
	runner, _, config := newTestRunner(t, fake.Quirks{})

	results := runner.Run(context.Background(), []Scenario{
		{Name: "panics", Run: func(ctx context.Context, env *Env) error { panic("unexpected state") }},
		{Name: "runs after", Run: func(ctx context.Context, env *Env) error { return nil }},
	})
	require.Len(t, results, 2)

	res := results[0]
	assert.Equal(t, models.KindInternal, res.Kind)
	assert.ErrorContains(t, res.Err, "unexpected state")
	require.NotEmpty(t, res.CrashFile)
	assert.Equal(t, filepath.Join(config.Output.ResultsDir, "crashes"), filepath.Dir(res.CrashFile))

	report, err := os.ReadFile(res.CrashFile)
	require.NoError(t, err)
	assert.Contains(t, string(report), "Scenario: panics")

	assert.True(t, results[1].Passed())
}

func TestScenarioDeadline(t *testing.T) {
	runner, _, config := newTestRunner(t, fake.Quirks{})
	config.Timeouts.Scenario = common.Duration(30 * time.Millisecond)

	results := runner.Run(context.Background(), []Scenario{{
		Name: "hangs",
		Run: func(ctx context.Context, env *Env) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}})
	require.Len(t, results, 1)
	assert.Equal(t, models.KindTimeout, results[0].Kind)
	assert.ErrorIs(t, results[0].Err, context.DeadlineExceeded)
}

func TestCancelledRunSkipsRemainingScenarios(t *testing.T) {
	runner, _, _ := newTestRunner(t, fake.Quirks{})
	ctx, cancel := context.WithCancel(context.Background())

	ran := 0
	results := runner.Run(ctx, []Scenario{
		{Name: "cancels", Run: func(ctx context.Context, env *Env) error { ran++; cancel(); return nil }},
		{Name: "skipped", Run: func(ctx context.Context, env *Env) error { ran++; return nil }},
	})
	require.Len(t, results, 2)
	assert.Equal(t, 1, ran)
	assert.True(t, results[0].Passed())
	assert.ErrorIs(t, results[1].Err, context.Canceled)
}

func TestAPIScenarioWithoutClient(t *testing.T) {
	backend := fake.NewBackend(fake.Quirks{})
	backend.AddUser(testLogin.ValidUser.Username, testLogin.ValidUser.Password)
	config := testConfig(t)
	runner := NewRunner(fake.NewFactory(backend, config.App.BaseURL), config, nil, testLogin, testContacts, arbor.NewNoOpLogger())

	results := runner.Run(context.Background(), []Scenario{{
		Name:     "needs api",
		NeedsAPI: true,
		Run:      func(ctx context.Context, env *Env) error { return nil },
	}})
	require.Len(t, results, 1)
	assert.ErrorContains(t, results[0].Err, "no api client configured")
}

// flakyAuth fails the first Authenticate call the way a cancelled scenario would
type flakyAuth struct {
	interfaces.ContactsAPI
	calls int
}

func (f *flakyAuth) Authenticate(ctx context.Context, creds models.Credentials) (models.APIToken, error) {
	f.calls++
	if f.calls == 1 {
		return "", context.DeadlineExceeded
	}
	return f.ContactsAPI.Authenticate(ctx, creds)
}

func TestAPITokenFailureIsNotCached(t *testing.T) {
	backend := fake.NewBackend(fake.Quirks{})
	backend.AddUser(testLogin.ValidUser.Username, testLogin.ValidUser.Password)
	config := testConfig(t)
	api := &flakyAuth{ContactsAPI: backend}
	runner := NewRunner(fake.NewFactory(backend, config.App.BaseURL), config, api, testLogin, testContacts, arbor.NewNoOpLogger())

	usesToken := func(ctx context.Context, env *Env) error {
		if env.Token == "" {
			return errors.New("no token")
		}
		_, err := env.API.List(ctx, env.Token)
		return err
	}
	results := runner.Run(context.Background(), []Scenario{
		{Name: "first", NeedsAPI: true, Run: usesToken},
		{Name: "second", NeedsAPI: true, Run: usesToken},
		{Name: "third", NeedsAPI: true, Run: usesToken},
	})
	require.Len(t, results, 3)
	assert.ErrorIs(t, results[0].Err, context.DeadlineExceeded)
	assert.True(t, results[1].Passed(), "%v", results[1].Err)
	assert.True(t, results[2].Passed(), "%v", results[2].Err)
	assert.Equal(t, 2, api.calls)
}
