package oauth2

// TokenResponse represents the response from an OAuth2 token request.
// This is the standard OAuth2 token endpoint response format as defined in RFC 6749.
// Returned from /oauth/token for both the authorization_code and refresh_token grants.
type TokenResponse struct {
	// AccessToken is the bearer credential used to call protected APIs.
	// Usage: Include in Authorization header: "Bearer <access_token>"
	// Lifespan: client configured (typically 1 hour)
	AccessToken string `json:"access_token"`

	// TokenType is always "Bearer".
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token.
	// Example: 3600
	ExpiresIn int `json:"expires_in"`

	// RefreshToken is an opaque token used to obtain a new access/refresh pair.
	// Only present: when the client is allowed the refresh_token grant
	// Security: rotates on each use
	RefreshToken *string `json:"refresh_token,omitempty"`

	// Scope is the comma separated list of granted scopes.
	// Note: May be narrower than requested, never wider than consented
	Scope string `json:"scope"`
}

// ErrorResponse is the OAuth2 error body returned by the token endpoint (RFC 6749 section 5.2).
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}
