package models

import (
	"strings"
)

// Contact is the entity driven through the UI and the REST surface.
// Field tags follow the fixture schema (loginFixture/contactFixture).
type Contact struct {
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	FirstName   string `json:"firstName" yaml:"firstName" validate:"required"`
	LastName    string `json:"lastName" yaml:"lastName" validate:"required"`
	DateOfBirth string `json:"dob,omitempty" yaml:"dob,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Email       string `json:"email,omitempty" yaml:"email,omitempty"`
	Phone       string `json:"phone,omitempty" yaml:"phone,omitempty"`
	Address     string `json:"address,omitempty" yaml:"address,omitempty"`
	City        string `json:"city,omitempty" yaml:"city,omitempty"`
	State       string `json:"state,omitempty" yaml:"state,omitempty"`
	PostalCode  string `json:"postal,omitempty" yaml:"postal,omitempty"`
}

// DisplayName returns the "FirstName LastName" identity string.
// An explicit Name is only used when the name parts are missing.
func (c Contact) DisplayName() string {
	full := strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
	if full == "" {
		return strings.TrimSpace(c.Name)
	}
	return full
}

// IdentityTokens returns the whitespace-split identity used for row matching
func (c Contact) IdentityTokens() []string {
	return Tokenize(c.DisplayName())
}

// Tokenize splits a display name into identity tokens.
// Empty and whitespace-only input yields no tokens.
func Tokenize(name string) []string {
	return strings.Fields(name)
}

// Credentials are submitted verbatim to the login form; empty values are legal.
type Credentials struct {
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
}

// APIToken is a bearer token returned by the application's login endpoint.
// It is threaded explicitly through API calls and never stored globally.
type APIToken string

// StoredContact is a contact as persisted by the application
type StoredContact struct {
	ID string
	Contact
}
