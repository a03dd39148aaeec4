package models

// SessionOutcome classifies a login attempt
type SessionOutcome struct {
	Authenticated bool
	// Reason holds the application's error text verbatim when rejected
	Reason string
}

// Authenticated is the successful login outcome
func Authenticated() SessionOutcome {
	return SessionOutcome{Authenticated: true}
}

// Rejected is a login refused by the application, carrying its message
func Rejected(reason string) SessionOutcome {
	return SessionOutcome{Reason: reason}
}

func (o SessionOutcome) String() string {
	if o.Authenticated {
		return "authenticated"
	}
	return "rejected: " + o.Reason
}
