package oauthmodel

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidCodeChallenge       = errors.New("invalid code challenge")
	ErrInvalidCodeChallengeMethod = errors.New("invalid code challenge method")
	ErrInvalidRedirectUri         = errors.New("invalid or no redirect uri")
	ErrInvalidResponseType        = errors.New("unsupported response type")
)

// ErrorCode is an OAuth2 error code as returned in the "error" member of an error response.
type ErrorCode string

const (
	ErrorInvalidRequest       ErrorCode = "invalid_request"
	ErrorInvalidClient        ErrorCode = "invalid_client"
	ErrorInvalidGrant         ErrorCode = "invalid_grant"
	ErrorInvalidScope         ErrorCode = "invalid_scope"
	ErrorUnsupportedGrantType ErrorCode = "unsupported_grant_type"
	ErrorUnauthorizedClient   ErrorCode = "unauthorized_client"
	ErrorServerError          ErrorCode = "server_error"
	ErrorAccessDenied         ErrorCode = "access_denied"
)

// GrantError is the error type returned by the grant engine. It carries the OAuth2
// error code, a description that is safe to show to the client, and the HTTP status.
type GrantError struct {
	Code        ErrorCode
	Description string
	Status      int
	Err         error // internal cause, never sent to the client
}

func (e *GrantError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Description, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func (e *GrantError) Unwrap() error {
	return e.Err
}

// NewGrantError builds a GrantError with the status the code maps to.
func NewGrantError(code ErrorCode, description string) *GrantError {
	return &GrantError{Code: code, Description: description, Status: statusFor(code)}
}

// ServerError wraps an internal failure. The cause is kept for logging only.
func ServerError(err error) *GrantError {
	return &GrantError{Code: ErrorServerError, Description: "internal server error", Status: http.StatusInternalServerError, Err: err}
}

func statusFor(code ErrorCode) int {
	switch code {
	case ErrorInvalidClient:
		return http.StatusUnauthorized
	case ErrorServerError:
		return http.StatusInternalServerError
	case ErrorAccessDenied:
		return http.StatusForbidden
	}
	return http.StatusBadRequest
}

// AsGrantError extracts a GrantError from err, mapping anything else to server_error.
func AsGrantError(err error) *GrantError {
	var ge *GrantError
	if errors.As(err, &ge) {
		return ge
	}
	return ServerError(err)
}
