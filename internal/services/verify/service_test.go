package verify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/crudcheck/internal/browser/fake"
	"github.com/ternarybob/crudcheck/internal/common"
	"github.com/ternarybob/crudcheck/internal/models"
	"github.com/ternarybob/crudcheck/internal/services/locator"
	"github.com/ternarybob/crudcheck/internal/services/viewstate"
)

func newTestVerifier(quirks fake.Quirks) (*Service, *fake.Page, *fake.Backend) {
	backend := fake.NewBackend(quirks)
	page := backend.NewPage("http://app.local")
	logger := arbor.NewNoOpLogger()
	backoff := common.Backoff{Initial: time.Millisecond, Max: 5 * time.Millisecond, Multiplier: 2}

	timeouts := common.NewDefaultConfig().Timeouts
	timeouts.Locate = common.Duration(200 * time.Millisecond)
	timeouts.Settle = common.Duration(200 * time.Millisecond)
	timeouts.Grace = common.Duration(20 * time.Millisecond)
	timeouts.Verify = common.Duration(100 * time.Millisecond)

	loc := locator.NewService(page, backoff, 50*time.Millisecond, logger)
	views := viewstate.NewService(page, loc, timeouts, backoff, "/", logger)
	return NewService(page, loc, views, backend, timeouts, backoff, logger), page, backend
}

func TestAssertPresent(t *testing.T) {
	tests := []struct {
		name   string
		quirks fake.Quirks
		seed   []models.Contact
		tokens []string
		found  bool
	}{
		{"table row", fake.Quirks{}, []models.Contact{{FirstName: "John", LastName: "Doe"}}, []string{"John", "Doe"}, true},
		{"case folded", fake.Quirks{}, []models.Contact{{FirstName: "John", LastName: "Doe"}}, []string{"JOHN", "doe"}, true},
		{"aria rows", fake.Quirks{LegacyMarkup: true}, []models.Contact{{FirstName: "John", LastName: "Doe"}}, []string{"John", "Doe"}, true},
		{"slow mount", fake.Quirks{MountDelay: 3}, []models.Contact{{FirstName: "John", LastName: "Doe"}}, []string{"John", "Doe"}, true},
		{"every token required", fake.Quirks{}, []models.Contact{{FirstName: "John", LastName: "Smith"}}, []string{"John", "Doe"}, false},
		{"empty list", fake.Quirks{}, nil, []string{"John", "Doe"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, page, backend := newTestVerifier(tt.quirks)
			for _, c := range tt.seed {
				backend.Seed(c)
			}
			page.SignIn()

			err := svc.AssertPresent(context.Background(), tt.tokens)
			if tt.found {
				assert.NoError(t, err)
				return
			}
			var failure *models.VerificationFailureError
			require.ErrorAs(t, err, &failure)
			assert.Equal(t, "present", failure.Expected)
			assert.Equal(t, tt.tokens, failure.Identity)
		})
	}
}

func TestAssertPresentStaysWithinVerifyTimeout(t *testing.T) {
	svc, page, _ := newTestVerifier(fake.Quirks{})
	svc.timeouts.Grace = common.Duration(300 * time.Millisecond)
	svc.timeouts.Verify = common.Duration(300 * time.Millisecond)
	page.SignIn()

	start := time.Now()
	err := svc.AssertPresent(context.Background(), []string{"Nobody"})
	elapsed := time.Since(start)

	var failure *models.VerificationFailureError
	require.ErrorAs(t, err, &failure)
	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond)
	assert.Less(t, elapsed, 500*time.Millisecond, "grace window must count against the verify timeout")
}

func TestAssertPresentFromDetails(t *testing.T) {
	svc, page, backend := newTestVerifier(fake.Quirks{})
	stored := backend.Seed(models.Contact{FirstName: "John", LastName: "Doe"})
	page.SignIn()
	page.Open(stored.ID)

	require.NoError(t, svc.AssertPresent(context.Background(), []string{"John", "Doe"}))
	assert.Equal(t, fake.ViewList, page.View())
	assert.Equal(t, 0, page.Navigations())
}

func TestAssertPresentRejectsOpenForm(t *testing.T) {
	svc, page, _ := newTestVerifier(fake.Quirks{})
	page.SignIn()
	page.OpenAddForm()

	err := svc.AssertPresent(context.Background(), []string{"John"})
	assert.Equal(t, models.KindNavigationFailure, models.ErrorKind(err))
}

func TestAssertAbsent(t *testing.T) {
	svc, page, backend := newTestVerifier(fake.Quirks{})
	backend.Seed(models.Contact{FirstName: "John", LastName: "Smith"})
	page.SignIn()

	assert.NoError(t, svc.AssertAbsent(context.Background(), []string{"John", "Doe"}))
}

func TestAssertAbsentReportsObservedRows(t *testing.T) {
	svc, page, backend := newTestVerifier(fake.Quirks{})
	backend.Seed(models.Contact{FirstName: "John", LastName: "Doe"})
	backend.Seed(models.Contact{FirstName: "John", LastName: "Doe", Email: "second@example.com"})
	page.SignIn()

	err := svc.AssertAbsent(context.Background(), []string{"John", "Doe"})

	var failure *models.VerificationFailureError
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "absent", failure.Expected)
	assert.Equal(t, 2, failure.Observed)
}

func TestAssertEmptyIdentity(t *testing.T) {
	svc, page, _ := newTestVerifier(fake.Quirks{})
	page.SignIn()

	assert.Error(t, svc.AssertPresent(context.Background(), nil))
	assert.Error(t, svc.AssertAbsent(context.Background(), []string{}))
}

func TestAssertStored(t *testing.T) {
	svc, _, backend := newTestVerifier(fake.Quirks{})
	backend.AddUser("tester@example.com", "secret")
	backend.Seed(models.Contact{FirstName: "John", LastName: "Doe", Email: "john.doe+abc1@example.com"})
	ctx := context.Background()

	token, err := backend.Authenticate(ctx, models.Credentials{Username: "tester@example.com", Password: "secret"})
	require.NoError(t, err)

	contact := models.Contact{FirstName: "John", LastName: "Doe"}
	assert.NoError(t, svc.AssertStored(ctx, token, contact, "JOHN.DOE+abc1@example.com"))
	assert.NoError(t, svc.AssertStored(ctx, token, contact, ""), "empty email matches identity only")

	err = svc.AssertStored(ctx, token, contact, "other@example.com")
	var failure *models.VerificationFailureError
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "stored", failure.Expected)
	assert.Equal(t, 1, failure.Observed)
}

func TestAssertStoredPropagatesAPIErrors(t *testing.T) {
	svc, _, _ := newTestVerifier(fake.Quirks{})

	err := svc.AssertStored(context.Background(), "bogus", models.Contact{FirstName: "John", LastName: "Doe"}, "")
	require.Error(t, err)
	assert.Equal(t, models.KindInternal, models.ErrorKind(err))
}
