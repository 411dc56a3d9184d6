package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// OAuth2 Routes
	RouteOAuthAuthorize = "/oauth/authorize"
	RouteOAuthToken     = "/oauth/token"
	RouteOAuthRevoke    = "/oauth/revoke"

	// Login & Onboarding Routes
	RouteOAuthLogin    = "/oauth/login"
	RouteOAuthRegister = "/oauth/register"
	RouteOAuthInvite   = "/oauth/invite"

	// API Routes (bearer token)
	RouteAPIUser        = "/api/user"
	RouteAPIUserInvites = "/api/user/invites"

	// Discovery Routes
	RouteWellKnownOpenIDConfig = "/.well-known/openid-configuration"
	RouteWellKnownJWKS         = "/.well-known/jwks.json"
)

const (
	sessionCookieName = "incal_session"

	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"
)
