// Package fixtures loads credential and contact fixtures from JSON or YAML.
// String values may reference environment variables as {NAME}.
package fixtures

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"

	"github.com/ternarybob/crudcheck/internal/common"
	"github.com/ternarybob/crudcheck/internal/models"
)

// Login holds the credentials used by the login scenarios
type Login struct {
	ValidUser   models.Credentials `json:"validUser" yaml:"validUser"`
	InvalidUser models.Credentials `json:"invalidUser" yaml:"invalidUser"`
}

// Contacts holds the contacts driven through the contact scenarios
type Contacts struct {
	NewContact      models.Contact  `json:"newContact" yaml:"newContact"`
	ContactToDelete models.Contact  `json:"contactToDelete" yaml:"contactToDelete"`
	UpdateContact   *models.Contact `json:"updateContact,omitempty" yaml:"updateContact,omitempty" validate:"omitempty"`
}

var validate = validator.New()

// LoadLogin reads and checks a login fixture
func LoadLogin(path string, logger arbor.ILogger) (*Login, error) {
	var f Login
	if err := load(path, &f, logger); err != nil {
		return nil, err
	}
	if f.ValidUser.Username == "" || f.ValidUser.Password == "" {
		return nil, fmt.Errorf("login fixture %s: validUser needs a username and password", path)
	}
	return &f, nil
}

// LoadContacts reads and validates a contact fixture
func LoadContacts(path string, logger arbor.ILogger) (*Contacts, error) {
	var f Contacts
	if err := load(path, &f, logger); err != nil {
		return nil, err
	}
	if err := validate.Struct(&f); err != nil {
		return nil, fmt.Errorf("contact fixture %s: %w", path, describe(err))
	}
	return &f, nil
}

func load(path string, v interface{}, logger arbor.ILogger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read fixture %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, v)
	default:
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		return fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}

	if err := common.ExpandInStruct(v, common.EnvVars(), logger); err != nil {
		return err
	}
	logger.Debug().Str("path", path).Msg("Fixture loaded")
	return nil
}

// describe flattens validator output into one readable error
func describe(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	parts := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		parts[i] = fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag())
	}
	return errors.New(strings.Join(parts, "; "))
}
