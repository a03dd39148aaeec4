package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contactListPage = `<html><head><title>My Contacts</title><script>var x = "hidden";</script></head>
<body>
  <header><h1>Contact List</h1><button id="logout">Logout</button></header>
  <p>Click on any contact to view the Contact Details</p>
  <button id="add-contact">Add a New Contact</button>
  <span id="error"> </span>
  <table id="myTable"><tbody><tr class="contactTableBodyRow"><td>John   Doe</td></tr></tbody></table>
  <input type="submit" value="Submit">
</body></html>`

func TestParseSnapshot(t *testing.T) {
	snap, err := ParseSnapshot("http://app.local/contactList", contactListPage)
	require.NoError(t, err)

	assert.Equal(t, "My Contacts", snap.Title)
	assert.Equal(t, []string{"Logout", "Add a New Contact", "Submit"}, snap.Buttons)
	assert.Equal(t, []string{"logout", "add-contact", "error", "myTable"}, snap.IDs)
	assert.Empty(t, snap.Errors)
	assert.Contains(t, snap.BodyText, "Click on any contact to view the Contact Details")
	assert.Contains(t, snap.BodyText, "John Doe")
	assert.NotContains(t, snap.BodyText, "hidden")
}

func TestParseSnapshotCapturesErrors(t *testing.T) {
	snap, err := ParseSnapshot("u", `<body><span id="error">Incorrect username or password</span></body>`)
	require.NoError(t, err)

	assert.Equal(t, []string{"Incorrect username or password"}, snap.Errors)
	assert.Contains(t, snap.String(), "Errors: Incorrect username or password")
}
