package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Error kinds reported in scenario results
const (
	KindElementNotFound        = "ElementNotFound"
	KindNavigationFailure      = "NavigationFailure"
	KindSaveError              = "SaveError"
	KindVerificationFailure    = "VerificationFailure"
	KindAuthenticationRejected = "AuthenticationRejected"
	KindTimeout                = "TimeoutError"
	KindInternal               = "Internal"
)

// ElementNotFoundError is returned when every locator of a strategy was exhausted
type ElementNotFoundError struct {
	Strategy string
	Tried    []Locator
	Timeout  time.Duration
}

func (e *ElementNotFoundError) Error() string {
	tried := make([]string, len(e.Tried))
	for i, l := range e.Tried {
		tried[i] = l.String()
	}
	return fmt.Sprintf("element %q not found within %v (tried: %s)", e.Strategy, e.Timeout, strings.Join(tried, ", "))
}

// NavigationFailureError is returned when normalization could not reach a known view
type NavigationFailureError struct {
	From   ViewState
	Reason string
	Err    error
}

func (e *NavigationFailureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("navigation failure from %s view: %s: %v", e.From, e.Reason, e.Err)
	}
	return fmt.Sprintf("navigation failure from %s view: %s", e.From, e.Reason)
}

func (e *NavigationFailureError) Unwrap() error {
	return e.Err
}

// SaveError carries the application's error banner text after a submission
type SaveError struct {
	Message string
}

func (e *SaveError) Error() string {
	return "failed to save contact: " + e.Message
}

// VerificationFailureError is returned when an expected row presence/absence was not observed
type VerificationFailureError struct {
	Identity []string
	Expected string // "present", "absent" or "stored"
	Observed int    // matching rows seen at the deadline
}

func (e *VerificationFailureError) Error() string {
	return fmt.Sprintf("verification failed: expected %q to be %s, observed %d matching row(s)",
		strings.Join(e.Identity, " "), e.Expected, e.Observed)
}

// AuthenticationRejectedError carries the literal login error message
type AuthenticationRejectedError struct {
	Message string
}

func (e *AuthenticationRejectedError) Error() string {
	return "authentication rejected: " + e.Message
}

// TimeoutError is a bound exceeded without any specific signal
type TimeoutError struct {
	Operation string
	After     time.Duration
	Err       error
}

func (e *TimeoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s timed out after %v: %v", e.Operation, e.After, e.Err)
	}
	return fmt.Sprintf("%s timed out after %v", e.Operation, e.After)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// ErrorKind maps an error chain to its taxonomy kind. The outermost taxonomy
// error decides, so a navigation failure caused by a missing element is still
// a navigation failure. Nil yields "".
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	if kind := outermostKind(err); kind != "" {
		return kind
	}
	return KindInternal
}

func outermostKind(err error) string {
	for err != nil {
		switch err.(type) {
		case *SaveError:
			return KindSaveError
		case *AuthenticationRejectedError:
			return KindAuthenticationRejected
		case *VerificationFailureError:
			return KindVerificationFailure
		case *NavigationFailureError:
			return KindNavigationFailure
		case *ElementNotFoundError:
			return KindElementNotFound
		case *TimeoutError:
			return KindTimeout
		}

		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				if kind := outermostKind(inner); kind != "" {
					return kind
				}
			}
			return ""
		case interface{ Unwrap() error }:
			err = u.Unwrap()
		default:
			return ""
		}
	}
	return ""
}

// ApplicationMessage returns the literal application text carried by SaveError or
// AuthenticationRejectedError, if any
func ApplicationMessage(err error) string {
	var save *SaveError
	if errors.As(err, &save) {
		return save.Message
	}
	var auth *AuthenticationRejectedError
	if errors.As(err, &auth) {
		return auth.Message
	}
	return ""
}
