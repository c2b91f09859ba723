package app

import "errors"

var (
	// ErrInvalidCredentials is the client-facing login failure. The message
	// never distinguishes unknown accounts from wrong passwords.
	ErrInvalidCredentials = errors.New("Invalid email or password.")

	ErrEmailAndPasswordRequired = errors.New("email and password required")
	ErrEmailAlreadyExists       = errors.New("email already exists")

	// Reset-flow failures use the exact client-facing wording; both map to 400.
	ErrResetTokenInvalid = errors.New("Access expired or incorrect.")
	ErrResetTokenExpired = errors.New("Reset token has expired. Please request a new one.")

	ErrMessageRequired = errors.New("message is required")
)
