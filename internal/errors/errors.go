package errors

import (
	"errors"
)

// Errors shared by the token, session and server packages.
var (
	// Token errors
	ErrInvalidToken      = errors.New("invalid token")
	ErrInsufficientScope = errors.New("insufficient scope")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
)

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}
