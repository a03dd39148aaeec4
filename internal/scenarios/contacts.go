package scenarios

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/crudcheck/internal/fixtures"
	"github.com/ternarybob/crudcheck/internal/models"
	"github.com/ternarybob/crudcheck/internal/services/contacts"
	"github.com/ternarybob/crudcheck/internal/services/locator"
)

// ContactSuite is the CRUD scenarios run after a valid login.
// Scenarios that leave contacts behind suffix the last name with the run id
// so identity matching never picks up rows from earlier runs.
func ContactSuite(f *fixtures.Contacts) []Scenario {
	return []Scenario{
		{Name: "view contacts", Suite: SuiteContacts, NeedsLogin: true, Run: viewContacts},
		{Name: "add contact", Suite: SuiteContacts, NeedsLogin: true, Run: addContact(f.NewContact)},
		{Name: "delete contact", Suite: SuiteContacts, NeedsLogin: true, Run: deleteContact(f.ContactToDelete)},
		{Name: "edit contact", Suite: SuiteContacts, NeedsLogin: true, Run: editContact(f.NewContact, f.UpdateContact)},
		{Name: "same base email twice", Suite: SuiteContacts, NeedsLogin: true, NeedsAPI: true, Run: sameBaseEmail(f.NewContact)},
		{Name: "invalid contact rejected", Suite: SuiteContacts, NeedsLogin: true, Run: invalidContact(f.NewContact)},
		{Name: "api contact visible in ui", Suite: SuiteContacts, NeedsLogin: true, NeedsAPI: true, Run: apiCrossCheck(f.ContactToDelete)},
	}
}

// withRunSuffix tags the last name so the identity is unique to this run
func withRunSuffix(c models.Contact, runID, tag string) models.Contact {
	c.Name = ""
	c.LastName = c.LastName + "-" + tag + runID
	return c
}

func viewContacts(ctx context.Context, env *Env) error {
	if _, err := env.Views.EnsureListView(ctx); err != nil {
		return err
	}
	_, err := env.Locator.Locate(ctx, locator.ContactsTable, env.Timeouts.Locate.D())
	return err
}

func addContact(contact models.Contact) func(ctx context.Context, env *Env) error {
	return func(ctx context.Context, env *Env) error {
		created, err := env.Contacts.Create(ctx, contact)
		if err != nil {
			return err
		}
		if created.Outcome == contacts.OutcomeUnconfirmed {
			env.Logger.Warn().Str("contact", contact.DisplayName()).Msg("Save was not confirmed, verifying in the list")
		}
		return env.Verify.AssertPresent(ctx, contact.IdentityTokens())
	}
}

func deleteContact(fixture models.Contact) func(ctx context.Context, env *Env) error {
	return func(ctx context.Context, env *Env) error {
		contact := withRunSuffix(fixture, env.RunID, "")
		tokens := contact.IdentityTokens()

		if _, err := env.Contacts.Create(ctx, contact); err != nil {
			return fmt.Errorf("seed contact: %w", err)
		}
		if err := env.Verify.AssertPresent(ctx, tokens); err != nil {
			return err
		}
		if err := env.Contacts.Delete(ctx, tokens); err != nil {
			return err
		}
		return env.Verify.AssertAbsent(ctx, tokens)
	}
}

func editContact(fixture models.Contact, update *models.Contact) func(ctx context.Context, env *Env) error {
	return func(ctx context.Context, env *Env) error {
		if update == nil {
			return errors.New("no updateContact fixture")
		}
		original := withRunSuffix(fixture, env.RunID, "")
		updated := withRunSuffix(*update, env.RunID, "")
		updated.Email = env.Unique.Apply(updated.Email)

		if _, err := env.Contacts.Create(ctx, original); err != nil {
			return fmt.Errorf("seed contact: %w", err)
		}
		if err := env.Verify.AssertPresent(ctx, original.IdentityTokens()); err != nil {
			return err
		}
		if err := env.Contacts.Edit(ctx, original.IdentityTokens(), updated); err != nil {
			return err
		}
		if err := env.Verify.AssertPresent(ctx, updated.IdentityTokens()); err != nil {
			return err
		}
		return env.Verify.AssertAbsent(ctx, original.IdentityTokens())
	}
}

// sameBaseEmail creates two contacts from one fixture email; both saves must
// succeed and store distinct addresses, each in its own list row
func sameBaseEmail(fixture models.Contact) func(ctx context.Context, env *Env) error {
	return func(ctx context.Context, env *Env) error {
		contact := withRunSuffix(fixture, env.RunID, "twin-")
		if contact.Email == "" {
			return errors.New("fixture contact has no email")
		}

		first, err := env.Contacts.Create(ctx, contact)
		if err != nil {
			return fmt.Errorf("first create: %w", err)
		}
		second, err := env.Contacts.Create(ctx, contact)
		if err != nil {
			return fmt.Errorf("second create: %w", err)
		}
		if strings.EqualFold(first.Email, second.Email) {
			return fmt.Errorf("both creates submitted %s", first.Email)
		}

		for _, email := range []string{first.Email, second.Email} {
			if err := env.Verify.AssertPresent(ctx, append(contact.IdentityTokens(), email)); err != nil {
				return err
			}
			if err := env.Verify.AssertStored(ctx, env.Token, contact, email); err != nil {
				return err
			}
		}
		return nil
	}
}

func invalidContact(fixture models.Contact) func(ctx context.Context, env *Env) error {
	return func(ctx context.Context, env *Env) error {
		contact := withRunSuffix(fixture, env.RunID, "invalid-")
		contact.DateOfBirth = "not-a-date"

		_, err := env.Contacts.Create(ctx, contact)
		var saveErr *models.SaveError
		if !errors.As(err, &saveErr) {
			if err == nil {
				return errors.New("contact with an invalid birthdate was saved")
			}
			return err
		}
		if !strings.Contains(saveErr.Message, "Birthdate is invalid") {
			return fmt.Errorf("unexpected save error %q", saveErr.Message)
		}
		env.Logger.Info().Str("message", saveErr.Message).Msg("Invalid contact rejected")

		// The rejected form stays open; leave it without saving
		if err := env.Views.NavigateToList(ctx); err != nil {
			return err
		}
		return env.Verify.AssertAbsent(ctx, contact.IdentityTokens())
	}
}

// apiCrossCheck creates and deletes through the API and follows both in the UI
func apiCrossCheck(fixture models.Contact) func(ctx context.Context, env *Env) error {
	return func(ctx context.Context, env *Env) error {
		contact := withRunSuffix(fixture, env.RunID, "api-")
		contact.Email = env.Unique.Apply(contact.Email)
		tokens := contact.IdentityTokens()

		stored, err := env.API.Create(ctx, env.Token, contact)
		if err != nil {
			return fmt.Errorf("api create: %w", err)
		}
		if err := env.Views.NavigateToList(ctx); err != nil {
			return err
		}
		if err := env.Verify.AssertPresent(ctx, tokens); err != nil {
			return err
		}

		if err := env.API.Delete(ctx, env.Token, stored.ID); err != nil {
			return fmt.Errorf("api delete: %w", err)
		}
		if err := env.Views.NavigateToList(ctx); err != nil {
			return err
		}
		return env.Verify.AssertAbsent(ctx, tokens)
	}
}
