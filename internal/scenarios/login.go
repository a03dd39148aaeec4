package scenarios

import (
	"context"
	"fmt"

	"github.com/ternarybob/crudcheck/internal/fixtures"
	"github.com/ternarybob/crudcheck/internal/models"
	"github.com/ternarybob/crudcheck/internal/services/session"
)

// LoginErrorMessage is the single message the application shows for any rejected login
const LoginErrorMessage = "Incorrect username or password"

// LoginSuite is the valid login plus seven malformed credential cases
func LoginSuite(f *fixtures.Login) []Scenario {
	valid := f.ValidUser
	return []Scenario{
		{Name: "valid login", Suite: SuiteLogin, Run: validLogin(valid)},
		rejected("invalid username and password", f.InvalidUser),
		rejected("valid username, invalid password", models.Credentials{Username: valid.Username, Password: "wrongpassword"}),
		rejected("no credentials", models.Credentials{}),
		rejected("empty username", models.Credentials{Password: "test123"}),
		rejected("empty password", models.Credentials{Username: "testuser@example.com"}),
		rejected("special characters only", models.Credentials{Username: "!@#$%^&*()", Password: "!@#$%^&*()"}),
		rejected("valid password, unknown username", models.Credentials{Username: "unknown-" + valid.Username, Password: valid.Password}),
	}
}

func validLogin(creds models.Credentials) func(ctx context.Context, env *Env) error {
	return func(ctx context.Context, env *Env) error {
		outcome, err := env.Session.Login(ctx, creds)
		if err != nil {
			return err
		}
		if err := session.RequireAuthenticated(outcome); err != nil {
			return err
		}
		return env.Session.VerifyListLanding(ctx)
	}
}

func rejected(name string, creds models.Credentials) Scenario {
	return Scenario{
		Name:  name,
		Suite: SuiteLogin,
		Run: func(ctx context.Context, env *Env) error {
			outcome, err := env.Session.Login(ctx, creds)
			if err != nil {
				return err
			}
			if outcome.Authenticated {
				return fmt.Errorf("login as %q was accepted", creds.Username)
			}
			if outcome.Reason != LoginErrorMessage {
				return fmt.Errorf("login error was %q, want %q", outcome.Reason, LoginErrorMessage)
			}

			state, err := env.Views.Probe(ctx)
			if err != nil {
				return err
			}
			if state == models.ListView {
				return fmt.Errorf("rejected login reached the contact list")
			}
			return nil
		},
	}
}
