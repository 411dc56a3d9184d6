package oauthmodel

import (
	"net/url"
	"strings"
)

// ResponseType represents the OAuth 2.0 response type.
// Only the authorization code flow is supported.
type ResponseType string

const (
	// CodeResponseType indicates the authorization code flow.
	// Example: /oauth/authorize?response_type=code&client_id=...
	CodeResponseType ResponseType = "code"
)

// CodeMethodType represents the PKCE (Proof Key for Code Exchange) challenge method.
type CodeMethodType string

const (
	// CodeMethodTypeS256 indicates SHA-256 hashing is used for the code challenge.
	// Client sends: code_challenge = BASE64URL(SHA256(code_verifier))
	// Server validates: BASE64URL(SHA256(provided code_verifier)) == stored code_challenge
	CodeMethodTypeS256 CodeMethodType = "S256"

	// CodeMethodTypePlain means no hashing, the verifier is compared directly.
	// Accepted for older clients only; S256 is the default when no method is sent.
	CodeMethodTypePlain CodeMethodType = "plain"
)

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges an authorization code (plus PKCE verifier) for tokens.
	// Token request includes: code, client_id, client_secret?, redirect_uri, code_verifier
	AuthorizationCodeGrant GrantType = "authorization_code"

	// RefreshTokenGrant exchanges a refresh token for a new access/refresh pair.
	// The presented refresh token is revoked on every use.
	RefreshTokenGrant GrantType = "refresh_token"
)

// Query parameters understood by the authorize endpoint.
const (
	ParamResponseType        = "response_type"
	ParamClientID            = "client_id"
	ParamState               = "state"
	ParamScope               = "scope"
	ParamRedirectURI         = "redirect_uri"
	ParamCodeChallenge       = "code_challenge"
	ParamCodeChallengeMethod = "code_challenge_method"

	// Consent actions posted back to the authorize endpoint by the consent view
	ParamCSRFToken = "csrfToken"
	ParamAgree     = "agree"
	ParamDeny      = "deny"
	ParamLogout    = "logout"
)

// AuthorizationParameters are the query parameters of an authorize request,
// including the consent decision fields the consent view submits.
type AuthorizationParameters struct {
	// ResponseType must be "code" (or empty, which is treated as "code").
	ResponseType ResponseType

	// ClientID identifies the relying party. Required.
	ClientID string

	// State is an opaque value echoed back on the redirect. Optional.
	State string

	// Scope is the comma separated list of requested scopes. Required.
	// Example: "user_info:read,user_info:write"
	Scope string

	// RedirectURI must exactly match one of the client's registered URIs.
	// Defaults to the client's first registered URI when omitted.
	RedirectURI string

	// CodeChallenge is BASE64URL(SHA256(code_verifier)).
	CodeChallenge string

	// CodeChallengeMethod is "S256" (default) or "plain".
	CodeChallengeMethod CodeMethodType

	// CSRFToken is the token rendered into the consent view.
	CSRFToken string

	// Deny and Logout are consent decisions; any non-empty value counts. A
	// confirmed CSRF token without either one agrees.
	Deny   bool
	Logout bool
}

// ParseAuthorizationParameters reads the authorize query string.
func ParseAuthorizationParameters(q url.Values) AuthorizationParameters {
	p := AuthorizationParameters{
		ResponseType:        ResponseType(q.Get(ParamResponseType)),
		ClientID:            strings.TrimSpace(q.Get(ParamClientID)),
		State:               q.Get(ParamState),
		Scope:               strings.TrimSpace(q.Get(ParamScope)),
		RedirectURI:         q.Get(ParamRedirectURI),
		CodeChallenge:       q.Get(ParamCodeChallenge),
		CodeChallengeMethod: CodeMethodType(q.Get(ParamCodeChallengeMethod)),
		CSRFToken:           q.Get(ParamCSRFToken),
		Deny:                q.Get(ParamDeny) != "",
		Logout:              q.Get(ParamLogout) != "",
	}
	if p.CodeChallengeMethod == "" && p.CodeChallenge != "" {
		p.CodeChallengeMethod = CodeMethodTypeS256
	}
	return p
}

// ResponseTypeValid reports whether the response type is supported.
func (p AuthorizationParameters) ResponseTypeValid() bool {
	return p.ResponseType == "" || p.ResponseType == CodeResponseType
}

// CodeChallengeMethodValid reports whether method is a supported PKCE method.
func CodeChallengeMethodValid(method CodeMethodType) bool {
	switch method {
	case CodeMethodTypeS256, CodeMethodTypePlain:
		return true
	}
	return false
}
