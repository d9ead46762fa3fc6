package auth

import (
	"errors"

	"shopfront/webshop/internal/validation"
)

var (
	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password; callers cannot tell the two apart.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrTokenNotFound      = errors.New("reset token not found")
	ErrTokenExpired       = errors.New("reset token expired")

	ErrInvalidEmail     = errors.New("invalid email")
	ErrForbiddenEmail   = errors.New("forbidden email")
	ErrEmailTaken       = errors.New("email already registered")
	ErrWeakPassword     = errors.New("weak password")
	ErrPasswordMismatch = errors.New("passwords do not match")
)

const (
	msgInvalidEmail     = "Please enter a valid email."
	msgForbiddenEmail   = "This email address is forbidden."
	msgEmailTaken       = "Email exists already, please pick a different one."
	msgWeakPassword     = "Please enter a password with only numbers and text and at least 5 characters."
	msgPasswordMismatch = "Passwords have to match!"
)

// ValidationError is the collected list of field failures returned by
// Signup, Login and CompleteReset.
type ValidationError = validation.Errors
