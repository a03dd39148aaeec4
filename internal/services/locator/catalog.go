package locator

import "github.com/ternarybob/crudcheck/internal/models"

// Strategies for the contact list application, in priority order.
// Later locators cover older or restyled builds of the app.
var (
	AddContact = models.NewStrategy("add-contact",
		models.CSS("#add-contact"),
		models.CSS(`button[id="add-contact"]`),
		models.Text("button", "Add a New Contact"),
		models.Text("button", "Add Contact"),
		models.Text(`[role="button"]`, "Add"),
		models.CSS(`input[type="submit"][value*="Add"]`),
	)

	Return = models.NewStrategy("return",
		models.CSS("#return"),
		models.Text("button", "Return to Contact List"),
	)

	Logout = models.NewStrategy("logout",
		models.CSS("#logout"),
		models.Text("button", "Logout"),
	)

	EditContact = models.NewStrategy("edit-contact",
		models.CSS("#edit"),
		models.Text("button", "Edit Contact"),
	)

	DeleteContact = models.NewStrategy("delete-contact",
		models.CSS("#delete"),
		models.Text("button", "Delete Contact"),
	)

	// ErrorBanner is present but empty until a save fails
	ErrorBanner = models.NewStrategy("error-banner",
		models.CSS("#error"),
	).WithText()

	Submit = models.NewStrategy("submit",
		models.CSS(`button[type="submit"]`),
		models.CSS("#submit"),
	)

	ListHelperText = models.NewStrategy("list-helper-text",
		models.Text("p", "Click on any contact to view the Contact Details"),
		models.Text("", "Click on any contact to view the Contact Details"),
	)

	ContactsTable = models.NewStrategy("contacts-table",
		models.CSS("table"),
		models.CSS(`[role="table"]`),
	)
)

// Login form
var (
	LoginEmail = models.NewStrategy("login-email",
		models.CSS("#email"),
		models.CSS(`input[placeholder="Email"]`),
	)

	LoginPassword = models.NewStrategy("login-password",
		models.CSS(`input[placeholder="Password"]`),
		models.CSS("#password"),
	)

	LoginSubmit = models.NewStrategy("login-submit",
		models.CSS("button#submit"),
		models.Text("button", "Submit"),
	)

	LoginError = models.NewStrategy("login-error",
		models.CSS("#error"),
	).WithText()
)

// Contact list rows
var (
	// Rows is the primary row filter
	Rows = models.NewStrategy("contact-rows",
		models.CSS("tbody tr"),
	)

	// LooseRows also accepts rows outside a tbody and ARIA grids
	LooseRows = models.NewStrategy("contact-rows-loose",
		models.CSS("tr"),
		models.CSS(`[role="row"]`),
	)

	// AnyRows is used to pick a row to open, primary markup first
	AnyRows = models.NewStrategy("contact-rows-any",
		models.CSS("tbody tr"),
		models.CSS("tr"),
		models.CSS(`[role="row"]`),
	)
)

// FormField binds one contact attribute to the input that edits it
type FormField struct {
	Name     string
	Strategy models.SelectorStrategy
	Value    func(models.Contact) string
}

// FirstNameInput identifies the contact form. The details view shows the same
// ids on read-only spans, so inputs are matched explicitly.
var FirstNameInput = models.NewStrategy("first-name", models.CSS("input#firstName"))

// ContactForm lists every contact input in fill order
var ContactForm = []FormField{
	{"firstName", FirstNameInput, func(c models.Contact) string { return c.FirstName }},
	{"lastName", models.NewStrategy("last-name", models.CSS("input#lastName")), func(c models.Contact) string { return c.LastName }},
	{"birthdate", models.NewStrategy("birthdate",
		models.CSS(`input[placeholder="yyyy-MM-dd"]`),
		models.CSS("#birthdate"),
	), func(c models.Contact) string { return c.DateOfBirth }},
	{"email", models.NewStrategy("email", models.CSS("input#email")), func(c models.Contact) string { return c.Email }},
	{"phone", models.NewStrategy("phone", models.CSS("input#phone")), func(c models.Contact) string { return c.Phone }},
	{"street1", models.NewStrategy("street1",
		models.CSS(`input[placeholder="Address 1"]`),
		models.CSS("#street1"),
	), func(c models.Contact) string { return c.Address }},
	{"city", models.NewStrategy("city",
		models.CSS(`input[placeholder="City"]`),
		models.CSS("#city"),
	), func(c models.Contact) string { return c.City }},
	{"stateProvince", models.NewStrategy("state-province",
		models.CSS(`input[placeholder="State or Province"]`),
		models.CSS("#stateProvince"),
	), func(c models.Contact) string { return c.State }},
	{"postalCode", models.NewStrategy("postal-code",
		models.CSS(`input[placeholder="Postal Code"]`),
		models.CSS("#postalCode"),
	), func(c models.Contact) string { return c.PostalCode }},
}
