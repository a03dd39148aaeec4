package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/crudcheck/internal/common"
	"github.com/ternarybob/crudcheck/internal/models"
)

const pageHTML = `<!DOCTYPE html>
<html><head><title>Contacts</title></head>
<body>
  <p><span id="error"></span></p>
  <p><span id="message">Saved</span></p>
  <button id="logout">Logout</button>
</body></html>`

// newChromeFactory starts Chrome against a one-page site, skipping when no
// browser can be started
func newChromeFactory(t *testing.T) *Factory {
	t.Helper()
	if testing.Short() {
		t.Skip("browser tests skipped in short mode")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(pageHTML))
	}))
	t.Cleanup(srv.Close)

	config := common.NewDefaultConfig()
	config.App.BaseURL = srv.URL
	config.Browser.ExecPath = os.Getenv("CRUDCHECK_CHROME_PATH")
	config.Browser.NoSandbox = os.Getenv("CRUDCHECK_NO_SANDBOX") == "true"

	factory, err := NewFactory(OptionsFromConfig(config), 30*time.Second, arbor.NewNoOpLogger())
	if err != nil {
		t.Skipf("Chrome not available: %v", err)
	}
	t.Cleanup(func() { _ = factory.Close() })
	return factory
}

func TestFactoryServesSequentialSessions(t *testing.T) {
	factory := newChromeFactory(t)

	for i := 0; i < 2; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		session, err := factory.NewSession(ctx)
		require.NoError(t, err, "session %d", i)

		require.NoError(t, session.Navigate(ctx, "/"), "session %d", i)
		states, err := session.Query(ctx, models.CSS("#logout"))
		require.NoError(t, err)
		require.Len(t, states, 1, "session %d lost its tab", i)
		assert.True(t, states[0].Visible)

		require.NoError(t, session.Close())
		cancel()
	}
}

func TestQueryTreatsEmptySpanAsInvisible(t *testing.T) {
	factory := newChromeFactory(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	session, err := factory.NewSession(ctx)
	require.NoError(t, err)
	defer session.Close()
	require.NoError(t, session.Navigate(ctx, "/"))

	empty, err := session.Query(ctx, models.CSS("#error"))
	require.NoError(t, err)
	require.Len(t, empty, 1)
	assert.False(t, empty[0].Visible, "a span with no text has no width")

	filled, err := session.Query(ctx, models.CSS("#message"))
	require.NoError(t, err)
	require.Len(t, filled, 1)
	assert.True(t, filled[0].Visible)
	assert.Equal(t, "Saved", filled[0].Text)
}
