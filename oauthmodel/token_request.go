package oauthmodel

import (
	"net/url"
	"strings"
)

// TokenRequest holds parameters for the OAuth2 token request.
// This represents the form body sent to the /oauth/token endpoint.
type TokenRequest struct {
	// GrantType selects authorization_code or refresh_token.
	GrantType GrantType

	// ClientID identifies the OAuth2 client making the request.
	// Required: Yes (for all grant types)
	ClientID string

	// ClientSecret is the secret credential for confidential clients.
	// Required: Yes for confidential clients, must be empty for public clients
	// Security: Never log or expose this value
	ClientSecret string

	// Code is the authorization code received from the authorization endpoint.
	// Required: Yes (only for authorization_code grant)
	// Usage: Exchanged once for tokens, then becomes invalid
	Code string

	// RedirectURI must equal the redirect URI bound to the code.
	// Required: Yes (only for authorization_code grant)
	RedirectURI string

	// CodeVerifier is the PKCE code verifier that matches the code_challenge.
	// Example: "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	CodeVerifier string

	// RefreshToken is used to obtain new access tokens without re-authentication.
	// Required: Yes (only for refresh_token grant)
	// Behavior: Rotated - old refresh token invalidated, new one issued
	RefreshToken string

	// Scope optionally narrows the granted scope. It can never widen it.
	Scope string
}

// ParseTokenRequest reads a form encoded token request.
func ParseTokenRequest(form url.Values) TokenRequest {
	return TokenRequest{
		GrantType:    GrantType(strings.TrimSpace(form.Get("grant_type"))),
		ClientID:     strings.TrimSpace(form.Get("client_id")),
		ClientSecret: form.Get("client_secret"),
		Code:         form.Get("code"),
		RedirectURI:  form.Get("redirect_uri"),
		CodeVerifier: form.Get("code_verifier"),
		RefreshToken: form.Get("refresh_token"),
		Scope:        form.Get("scope"),
	}
}
