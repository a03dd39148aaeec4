package testapp

import (
	"errors"
	"strings"
	"sync"

	"github.com/ternarybob/crudcheck/internal/common"
)

var (
	// ErrNotFound is returned for unknown contacts
	ErrNotFound = errors.New("contact not found")
	// ErrUnauthorized is returned for unknown credentials or tokens
	ErrUnauthorized = errors.New("please authenticate")
	// ErrUserExists is returned when signing up an email twice
	ErrUserExists = errors.New("email address is already in use")
)

// User is an account of the test application
type User struct {
	ID        string `json:"_id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"-"`
}

// Contact is a stored contact, owned by one user
type Contact struct {
	ID            string `json:"_id"`
	FirstName     string `json:"firstName" validate:"required,max=20"`
	LastName      string `json:"lastName" validate:"required,max=20"`
	Birthdate     string `json:"birthdate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Email         string `json:"email,omitempty" validate:"omitempty,email"`
	Phone         string `json:"phone,omitempty" validate:"omitempty,numeric,max=15"`
	Street1       string `json:"street1,omitempty" validate:"max=40"`
	Street2       string `json:"street2,omitempty" validate:"max=40"`
	City          string `json:"city,omitempty" validate:"max=40"`
	StateProvince string `json:"stateProvince,omitempty" validate:"max=20"`
	PostalCode    string `json:"postalCode,omitempty" validate:"max=10"`
	Country       string `json:"country,omitempty" validate:"max=40"`
	Owner         string `json:"owner"`
}

// Store keeps users, sessions and contacts in memory
type Store struct {
	mu       sync.Mutex
	users    map[string]*User // by lower-cased email
	tokens   map[string]string
	contacts []Contact
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		users:  make(map[string]*User),
		tokens: make(map[string]string),
	}
}

// AddUser registers an account
func (s *Store) AddUser(firstName, lastName, email, password string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(email)
	if _, exists := s.users[key]; exists {
		return User{}, ErrUserExists
	}
	u := &User{ID: common.NewEntityID(), FirstName: firstName, LastName: lastName, Email: email, Password: password}
	s.users[key] = u
	return *u, nil
}

// Login checks credentials and issues a token
func (s *Store) Login(email, password string) (User, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[strings.ToLower(email)]
	if email == "" || password == "" || !ok || u.Password != password {
		return User{}, "", ErrUnauthorized
	}
	token := common.NewEntityID()
	s.tokens[token] = u.ID
	return *u, token, nil
}

// Logout revokes token
func (s *Store) Logout(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// UserForToken resolves a session token
func (s *Store) UserForToken(token string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.tokens[token]
	if !ok {
		return User{}, ErrUnauthorized
	}
	for _, u := range s.users {
		if u.ID == id {
			return *u, nil
		}
	}
	return User{}, ErrUnauthorized
}

// List returns the contacts owned by owner in insertion order
func (s *Store) List(owner string) []Contact {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []Contact{}
	for _, c := range s.contacts {
		if c.Owner == owner {
			out = append(out, c)
		}
	}
	return out
}

// Get returns one contact of owner
func (s *Store) Get(owner, id string) (Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(owner, id)
	if i < 0 {
		return Contact{}, ErrNotFound
	}
	return s.contacts[i], nil
}

// Save validates c and creates it (empty id) or replaces the stored contact
func (s *Store) Save(owner, id string, c Contact) (Contact, error) {
	if err := validateContact(c); err != nil {
		return Contact{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c.Email != "" {
		for _, existing := range s.contacts {
			if existing.Owner == owner && existing.ID != id && strings.EqualFold(existing.Email, c.Email) {
				return Contact{}, &ValidationError{Fields: []FieldMessage{{Field: "email", Message: "Email is already in use"}}}
			}
		}
	}

	c.Owner = owner
	if id == "" {
		c.ID = common.NewEntityID()
		s.contacts = append(s.contacts, c)
		return c, nil
	}

	i := s.index(owner, id)
	if i < 0 {
		return Contact{}, ErrNotFound
	}
	c.ID = id
	s.contacts[i] = c
	return c, nil
}

// Delete removes one contact of owner
func (s *Store) Delete(owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(owner, id)
	if i < 0 {
		return ErrNotFound
	}
	s.contacts = append(s.contacts[:i], s.contacts[i+1:]...)
	return nil
}

func (s *Store) index(owner, id string) int {
	for i, c := range s.contacts {
		if c.ID == id && c.Owner == owner {
			return i
		}
	}
	return -1
}
