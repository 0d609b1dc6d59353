package session

import "errors"

// ErrAuthRequired matches every AuthRequiredError via errors.Is.
var ErrAuthRequired = errors.New("authentication required")

// AuthRequiredError is returned, without any network call, when an
// identity-bound operation runs without a session.
type AuthRequiredError struct {
	// Action describes what the user tried to do, e.g. "request mentorship".
	Action string
}

// Error implements the error interface.
func (e *AuthRequiredError) Error() string {
	if e.Action == "" {
		return ErrAuthRequired.Error()
	}
	return ErrAuthRequired.Error() + " to " + e.Action
}

// Is makes errors.Is(err, ErrAuthRequired) succeed.
func (e *AuthRequiredError) Is(target error) bool {
	return target == ErrAuthRequired
}

// Retryable reports false: retrying cannot create a session.
func (e *AuthRequiredError) Retryable() bool {
	return false
}

// Message is the notice shown to the user.
func (e *AuthRequiredError) Message() string {
	if e.Action == "" {
		return "Please log in"
	}
	return "Please log in to " + e.Action
}

// Require fails fast with an AuthRequiredError when s is not authenticated.
func Require(s *Session, action string) error {
	if s.Authenticated() {
		return nil
	}
	return &AuthRequiredError{Action: action}
}
