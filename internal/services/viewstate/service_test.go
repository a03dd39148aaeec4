package viewstate

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
)

func newTestNormalizer(quirks fake.Quirks) (*Service, *fake.Page, *fake.Backend) {
	backend := fake.NewBackend(quirks)
	page := backend.NewPage("http://app.local")
	logger := arbor.NewNoOpLogger()
	backoff := common.Backoff{Initial: time.Millisecond, Max: 5 * time.Millisecond, Multiplier: 2}

	timeouts := common.NewDefaultConfig().Timeouts
	timeouts.Locate = common.Duration(200 * time.Millisecond)
	timeouts.Settle = common.Duration(200 * time.Millisecond)
	timeouts.Grace = common.Duration(30 * time.Millisecond)

	loc := locator.NewService(page, backoff, 50*time.Millisecond, logger)
	return NewService(page, loc, timeouts, backoff, "/", logger), page, backend
}

func TestProbe(t *testing.T) {
	svc, page, backend := newTestNormalizer(fake.Quirks{})
	ctx := context.Background()
	stored := backend.Seed(models.Contact{FirstName: "John", LastName: "Doe"})

	state, err := svc.Probe(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Unknown, state, "blank tab")

	page.SignIn()
	state, err = svc.Probe(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ListView, state)

	page.Open(stored.ID)
	state, err = svc.Probe(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DetailView, state, "read-only spans do not count as a form")

	page.OpenAddForm()
	state, err = svc.Probe(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.FormView, state)
}

func TestEnsureListViewIsIdempotent(t *testing.T) {
	svc, page, _ := newTestNormalizer(fake.Quirks{})
	page.SignIn()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := svc.EnsureListView(ctx)
		require.NoError(t, err)
		assert.Equal(t, Result{From: models.ListView, Action: ActionNone}, result)
	}
	assert.Equal(t, 0, page.Navigations())
	assert.Empty(t, page.Actions())
}

func TestEnsureListViewFromDetails(t *testing.T) {
	svc, page, backend := newTestNormalizer(fake.Quirks{MountDelay: 2})
	stored := backend.Seed(models.Contact{FirstName: "John", LastName: "Doe"})
	page.SignIn()
	page.Open(stored.ID)

	result, err := svc.EnsureListView(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{From: models.DetailView, Action: ActionReturn}, result)
	assert.Equal(t, fake.ViewList, page.View())
	assert.Equal(t, 0, page.Navigations())
	assert.Equal(t, []string{"return"}, page.Actions())
}

func TestEnsureListViewFromUnknownNavigates(t *testing.T) {
	svc, page, _ := newTestNormalizer(fake.Quirks{})
	page.SignIn()
	require.NoError(t, page.Navigate(context.Background(), "/somewhere-else"))

	result, err := svc.EnsureListView(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{From: models.Unknown, Action: ActionNavigate}, result)
	assert.Equal(t, fake.ViewList, page.View())
	assert.Equal(t, 2, page.Navigations())
}

func TestEnsureListViewWaitsOutMounting(t *testing.T) {
	svc, page, _ := newTestNormalizer(fake.Quirks{MountDelay: 4})
	page.SignIn()

	result, err := svc.EnsureListView(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ActionNone, result.Action, "a slow mount is not an unknown page")
	assert.Equal(t, 0, page.Navigations())
}

func TestEnsureListViewRefusesOpenForm(t *testing.T) {
	svc, page, _ := newTestNormalizer(fake.Quirks{})
	page.SignIn()
	page.OpenAddForm()

	result, err := svc.EnsureListView(context.Background())

	var nav *models.NavigationFailureError
	require.ErrorAs(t, err, &nav)
	assert.Equal(t, models.FormView, nav.From)
	assert.Equal(t, models.FormView, result.From)
	assert.Equal(t, fake.ViewForm, page.View(), "form left untouched")
}

func TestEnsureListViewFailsWhenLoggedOut(t *testing.T) {
	svc, page, _ := newTestNormalizer(fake.Quirks{})
	require.NoError(t, page.Navigate(context.Background(), "/"))

	_, err := svc.EnsureListView(context.Background())

	var nav *models.NavigationFailureError
	require.ErrorAs(t, err, &nav)
	assert.Equal(t, models.Unknown, nav.From)
	assert.Contains(t, nav.Reason, "not authenticated")
	assert.Equal(t, models.KindNavigationFailure, models.ErrorKind(err))
}
