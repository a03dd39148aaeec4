// Package ui drives a real Chrome through the scenario runner. Tests run
// against CRUDCHECK_BASE_URL when set, otherwise against the bundled test
// application, and skip when Chrome cannot be started.
package ui

import (
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/crudcheck/internal/browser"
	"github.com/ternarybob/crudcheck/internal/common"
	"github.com/ternarybob/crudcheck/internal/fixtures"
	"github.com/ternarybob/crudcheck/internal/models"
	"github.com/ternarybob/crudcheck/internal/services/contactsapi"
	"github.com/ternarybob/crudcheck/internal/testapp"
)

// environment is one application plus one Chrome process
type environment struct {
	config  *common.Config
	factory *browser.Factory
	api     *contactsapi.Client
	login   *fixtures.Login
	logger  arbor.ILogger
}

func newEnvironment(t *testing.T) *environment {
	t.Helper()
	if testing.Short() {
		t.Skip("browser tests skipped in short mode")
	}

	logger := arbor.NewNoOpLogger()
	config := common.NewDefaultConfig()
	config.Output.ResultsDir = t.TempDir()
	if dir := os.Getenv("CRUDCHECK_RESULTS_DIR"); dir != "" {
		config.Output.ResultsDir = dir
	}
	if path := os.Getenv("CRUDCHECK_CHROME_PATH"); path != "" {
		config.Browser.ExecPath = path
	}
	config.Browser.NoSandbox = os.Getenv("CRUDCHECK_NO_SANDBOX") == "true"

	login := &fixtures.Login{
		ValidUser:   models.Credentials{Username: "tester@example.com", Password: "test-password"},
		InvalidUser: models.Credentials{Username: "invalid@example.com", Password: "invalidpassword"},
	}

	if baseURL := os.Getenv("CRUDCHECK_BASE_URL"); baseURL != "" {
		config.App.BaseURL = baseURL
		login.ValidUser = models.Credentials{
			Username: os.Getenv("CRUDCHECK_TEST_USER"),
			Password: os.Getenv("CRUDCHECK_TEST_PASSWORD"),
		}
		require.NotEmpty(t, login.ValidUser.Username, "CRUDCHECK_TEST_USER must be set with CRUDCHECK_BASE_URL")
	} else {
		store := testapp.NewStore()
		_, err := store.AddUser("Test", "User", login.ValidUser.Username, login.ValidUser.Password)
		require.NoError(t, err)
		srv := httptest.NewServer(testapp.New(store, logger).Handler())
		t.Cleanup(srv.Close)
		config.App.BaseURL = srv.URL
	}

	factory, err := browser.NewFactory(browser.OptionsFromConfig(config), 30*time.Second, logger)
	if err != nil {
		t.Skipf("Chrome not available: %v", err)
	}
	t.Cleanup(func() { _ = factory.Close() })

	api := contactsapi.NewClient(config.ResolvedAPIURL(), contactsapi.WithRateLimit(0), contactsapi.WithLogger(logger))

	return &environment{
		config:  config,
		factory: factory,
		api:     api,
		login:   login,
		logger:  logger,
	}
}
