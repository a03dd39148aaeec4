// Package fake is an in-memory stand-in for a browser pointed at the contact
// list application. Pages render the current view to HTML and answer queries
// with goquery, so selector strategies run against realistic markup.
package fake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/crudcheck/internal/common"
	"github.com/ternarybob/crudcheck/internal/interfaces"
	"github.com/ternarybob/crudcheck/internal/models"
)

// LoginErrorText is the banner shown for any rejected login
const LoginErrorText = "Incorrect username or password"

// DuplicateEmailText is the save error for an email already stored
const DuplicateEmailText = "Contact validation failed: email: Email is already in use"

// Quirks perturb the application the way slow networks and other builds do
type Quirks struct {
	MountDelay    int  // Query calls that see an empty page after each transition
	PopulateDelay int  // Query calls before the edit form shows stored values
	SilentSave    bool // a successful save shows a spinner instead of the details view
	LegacyMarkup  bool // add control without an id, rows as ARIA divs
	NoHelperText  bool // list view without the helper paragraph
}

// Backend holds users and contacts shared by every page and the API
type Backend struct {
	mu       sync.Mutex
	quirks   Quirks
	users    map[string]string
	contacts []models.StoredContact
}

var _ interfaces.ContactsAPI = (*Backend)(nil)

// NewBackend creates an empty application
func NewBackend(quirks Quirks) *Backend {
	return &Backend{
		quirks: quirks,
		users:  make(map[string]string),
	}
}

// AddUser registers credentials accepted by login
func (b *Backend) AddUser(email, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[email] = password
}

// Seed stores a contact without validation
func (b *Backend) Seed(c models.Contact) models.StoredContact {
	b.mu.Lock()
	defer b.mu.Unlock()
	stored := models.StoredContact{ID: common.NewEntityID(), Contact: c}
	b.contacts = append(b.contacts, stored)
	return stored
}

// Contacts returns a copy of the stored contacts
func (b *Backend) Contacts() []models.StoredContact {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.StoredContact(nil), b.contacts...)
}

// Quirks returns the configured quirks
func (b *Backend) Quirks() Quirks {
	return b.quirks
}

func (b *Backend) checkLogin(email, password string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	stored, ok := b.users[email]
	return ok && email != "" && stored == password
}

func (b *Backend) find(id string) (models.StoredContact, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.contacts {
		if c.ID == id {
			return c, true
		}
	}
	return models.StoredContact{}, false
}

// save validates and stores c; id empty creates a new contact
func (b *Backend) save(id string, c models.Contact) (models.StoredContact, error) {
	if msg := validate(c); msg != "" {
		return models.StoredContact{}, errors.New(msg)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if c.Email != "" {
		for _, existing := range b.contacts {
			if existing.ID != id && strings.EqualFold(existing.Email, c.Email) {
				return models.StoredContact{}, errors.New(DuplicateEmailText)
			}
		}
	}

	if id == "" {
		stored := models.StoredContact{ID: common.NewEntityID(), Contact: c}
		b.contacts = append(b.contacts, stored)
		return stored, nil
	}
	for i := range b.contacts {
		if b.contacts[i].ID == id {
			b.contacts[i].Contact = c
			return b.contacts[i], nil
		}
	}
	return models.StoredContact{}, fmt.Errorf("contact %s not found", id)
}

func (b *Backend) remove(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, c := range b.contacts {
		if c.ID == id {
			b.contacts = append(b.contacts[:i], b.contacts[i+1:]...)
			return true
		}
	}
	return false
}

func validate(c models.Contact) string {
	switch {
	case strings.TrimSpace(c.FirstName) == "":
		return "Contact validation failed: firstName: Path `firstName` is required."
	case strings.TrimSpace(c.LastName) == "":
		return "Contact validation failed: lastName: Path `lastName` is required."
	}
	if c.DateOfBirth != "" {
		if _, err := time.Parse("2006-01-02", c.DateOfBirth); err != nil {
			return "Contact validation failed: birthdate: Birthdate is invalid"
		}
	}
	return ""
}

func tokenFor(email string) models.APIToken {
	return models.APIToken("fake-token:" + email)
}

func (b *Backend) checkToken(token models.APIToken) error {
	email, ok := strings.CutPrefix(string(token), "fake-token:")
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, known := b.users[email]; !ok || !known {
		return errors.New("401 please authenticate")
	}
	return nil
}

// Authenticate implements interfaces.ContactsAPI
func (b *Backend) Authenticate(ctx context.Context, creds models.Credentials) (models.APIToken, error) {
	if !b.checkLogin(creds.Username, creds.Password) {
		return "", &models.AuthenticationRejectedError{Message: LoginErrorText}
	}
	return tokenFor(creds.Username), nil
}

// Create implements interfaces.ContactsAPI
func (b *Backend) Create(ctx context.Context, token models.APIToken, contact models.Contact) (models.StoredContact, error) {
	if err := b.checkToken(token); err != nil {
		return models.StoredContact{}, err
	}
	return b.save("", contact)
}

// List implements interfaces.ContactsAPI
func (b *Backend) List(ctx context.Context, token models.APIToken) ([]models.StoredContact, error) {
	if err := b.checkToken(token); err != nil {
		return nil, err
	}
	return b.Contacts(), nil
}

// Delete implements interfaces.ContactsAPI
func (b *Backend) Delete(ctx context.Context, token models.APIToken, id string) error {
	if err := b.checkToken(token); err != nil {
		return err
	}
	if !b.remove(id) {
		return fmt.Errorf("404 contact %s not found", id)
	}
	return nil
}
