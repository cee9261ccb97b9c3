package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrStateMismatch      = errors.New("authorization state mismatch")
	ErrNotFound           = errors.New("not found")
)

// RegistrationRule names the signup rule that rejected a registration.
// Rules are checked in the order they are declared; the first violation wins.
type RegistrationRule string

const (
	RuleUsernameCasing   RegistrationRule = "username_lowercase_letters_only"
	RuleUsernameLength   RegistrationRule = "username_too_long"
	RulePasswordLength   RegistrationRule = "password_too_short"
	RulePasswordDigit    RegistrationRule = "password_needs_digit"
	RuleConfirmMismatch  RegistrationRule = "password_confirmation_mismatch"
	RuleDuplicateAccount RegistrationRule = "username_already_registered"
)

type RegistrationError struct {
	Rule RegistrationRule
}

func (e *RegistrationError) Error() string {
	return "registration rejected: " + string(e.Rule)
}

// ExternalAuthError wraps a token-exchange or profile-fetch failure from the
// external identity provider, including provider rejection of a reused code.
type ExternalAuthError struct {
	Cause error
}

func (e *ExternalAuthError) Error() string {
	return fmt.Sprintf("external login failed: %v", e.Cause)
}

func (e *ExternalAuthError) Unwrap() error { return e.Cause }
