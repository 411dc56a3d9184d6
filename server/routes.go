package server

import (
	"net/http"

	"github.com/jrsteele09/incal-auth/oauthmodel"
	"github.com/rs/zerolog/log"
)

func (s *Server) initRoutes() {
	// Browser facing authorization flow
	s.RegisterRouteHandler("GET "+RouteOAuthAuthorize, ChainMiddleware(s.Authorize(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteOAuthLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteOAuthRegister, ChainMiddleware(s.RegisterHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteOAuthInvite, ChainMiddleware(s.InviteGetHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteOAuthInvite, ChainMiddleware(s.InvitePostHandler(), s.HTMLMiddleWare()...))

	// Client to server endpoints
	s.RegisterRouteHandler("POST "+RouteOAuthToken, ChainMiddleware(s.Token(), s.APIMiddleware(s.NoStoreMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteOAuthRevoke, ChainMiddleware(s.Revoke(), s.APIMiddleware(s.NoStoreMiddleware)...))
	s.RegisterRouteHandler("GET "+RouteWellKnownOpenIDConfig, ChainMiddleware(s.WellKnownOpenIDConfig(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteWellKnownJWKS, ChainMiddleware(s.JWKS(), s.APIMiddleware()...))

	// Protected API routes
	s.RegisterRouteHandler("GET "+RouteAPIUser, ChainMiddleware(s.UserInfo(), s.APIMiddleware(s.RequireAuth(oauthmodel.ScopeUserInfoRead))...))
	s.RegisterRouteHandler("POST "+RouteAPIUserInvites, ChainMiddleware(s.CreateInvite(), s.APIMiddleware(s.RequireAuth(oauthmodel.ScopeUserInfoWrite))...))

	// CORS preflight for the routes browsers call cross-origin
	for _, path := range []string{RouteOAuthToken, RouteOAuthRevoke, RouteAPIUser, RouteAPIUserInvites} {
		s.RegisterRouteHandler("OPTIONS "+path, ChainMiddleware(preflight, s.APIMiddleware()...))
	}
}

func preflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func logError(method, path, error string) {
	log.Error().Msgf("[%-19s] %s %s", colouredMethod(method), path, Red+error+ResetColor)
}
