package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/incal-auth/auth"
	"github.com/jrsteele09/incal-auth/consent"
	"github.com/jrsteele09/incal-auth/oauth2"
	"github.com/jrsteele09/incal-auth/oauthmodel"
	"github.com/jrsteele09/incal-auth/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Authorize runs one step of the login and consent flow and renders its outcome.
func (s *Server) Authorize() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := consent.AuthorizeRequest{
			Params: oauthmodel.ParseAuthorizationParameters(r.URL.Query()),
			URL:    r.URL,
		}
		if err := s.flow.Validate(req); err != nil {
			s.authorizeError(w, r, err)
			return
		}
		session, ok := s.consentSession(w, r)
		if !ok {
			return
		}

		outcome, err := s.flow.Authorize(r.Context(), req, session)
		if err != nil {
			s.authorizeError(w, r, err)
			return
		}

		switch o := outcome.(type) {
		case consent.OutcomeLogin:
			s.renderLogin(w, http.StatusOK, o.CallbackURI, "", "")
		case consent.OutcomeConsent:
			render(w, http.StatusOK, s.views.consent, ConsentPageData{
				Community:    s.config.GetAppName(),
				Email:        o.Email,
				ClientName:   o.ClientName,
				Scopes:       o.Scopes,
				CSRFToken:    o.CSRFToken,
				AuthorizeURL: s.config.GetServerURI() + RouteOAuthAuthorize,
				Params:       o.Params,
			})
		case consent.OutcomeDenied:
			render(w, http.StatusOK, s.views.deny, DenyPageData{
				Community:  s.config.GetAppName(),
				ClientName: o.ClientName,
				Email:      o.Email,
			})
		case consent.OutcomeRedirect:
			http.Redirect(w, r, o.Location, http.StatusFound)
		default:
			logError(r.Method, r.URL.Path, "unexpected authorize outcome")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
}

// authorizeError maps a flow failure to a bare status. Nothing about the
// client or session is echoed back.
func (s *Server) authorizeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var ge *oauthmodel.GrantError
	switch {
	case errors.Is(err, consent.ErrMissingParameter), errors.Is(err, consent.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, consent.ErrUnknownClient):
		status = http.StatusUnauthorized
	case errors.As(err, &ge):
		status = ge.Status
	}
	if status >= http.StatusInternalServerError {
		log.Err(err).Str("path", r.URL.Path).Msg("authorize failed")
	} else {
		log.Debug().Err(err).Int("status", status).Msg("authorize rejected")
	}
	http.Error(w, http.StatusText(status), status)
}

// Token exchanges an authorization code or refresh token for a token pair
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, string(oauthmodel.ErrorInvalidRequest), "Failed to parse form data", http.StatusBadRequest)
			return
		}

		tokenReq := oauthmodel.ParseTokenRequest(r.PostForm)
		// client_secret_basic is accepted alongside credentials in the body
		if id, secret, ok := r.BasicAuth(); ok && tokenReq.ClientID == "" {
			tokenReq.ClientID, tokenReq.ClientSecret = id, secret
		}

		tokenResponse, err := s.auth.Token(r.Context(), tokenReq)
		if err != nil {
			writeGrantError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tokenResponse)
	}
}

// Revoke removes an access or refresh token of the calling client (RFC 7009).
func (s *Server) Revoke() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, string(oauthmodel.ErrorInvalidRequest), "Failed to parse form data", http.StatusBadRequest)
			return
		}

		req := auth.RevokeRequest{
			ClientID:     r.PostForm.Get("client_id"),
			ClientSecret: r.PostForm.Get("client_secret"),
			Token:        r.PostForm.Get("token"),
		}
		if id, secret, ok := r.BasicAuth(); ok && req.ClientID == "" {
			req.ClientID, req.ClientSecret = id, secret
		}

		if err := s.auth.RevokeToken(r.Context(), req); err != nil {
			writeGrantError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// WellKnownOpenIDConfig serves the discovery document relying parties build their endpoint from
func (s *Server) WellKnownOpenIDConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		baseURL := s.config.GetServerURI()

		resp := map[string]any{
			"issuer":                 baseURL,
			"authorization_endpoint": baseURL + RouteOAuthAuthorize,
			"token_endpoint":         baseURL + RouteOAuthToken,
			"revocation_endpoint":    baseURL + RouteOAuthRevoke,
			"userinfo_endpoint":      baseURL + RouteAPIUser,
			"jwks_uri":               baseURL + RouteWellKnownJWKS,

			"response_types_supported": []string{string(oauthmodel.CodeResponseType)},
			"response_modes_supported": []string{"query"},
			"subject_types_supported":  []string{"public"},
			"grant_types_supported": []string{
				string(oauthmodel.AuthorizationCodeGrant),
				string(oauthmodel.RefreshTokenGrant),
			},
			"scopes_supported": []string{
				oauthmodel.ScopeUserInfoRead,
				oauthmodel.ScopeUserInfoWrite,
			},
			"token_endpoint_auth_methods_supported": []string{
				"none",                // Public clients with PKCE
				"client_secret_post",  // Credentials in POST body
				"client_secret_basic", // Credentials in Authorization header
			},
			"code_challenge_methods_supported": []string{
				string(oauthmodel.CodeMethodTypeS256),
				string(oauthmodel.CodeMethodTypePlain),
			},
			"id_token_signing_alg_values_supported": []string{"HS256"},
		}

		w.Header().Set("Cache-Control", "public, max-age=3600")
		writeJSON(w, http.StatusOK, resp)
	}
}

// JWKS publishes the token verification keys. Access tokens are opaque or
// HMAC signed, so there are no public keys to publish.
func (s *Server) JWKS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		writeJSON(w, http.StatusOK, map[string]any{"keys": []any{}})
	}
}

// consentSession returns the session named by the session cookie, starting a
// new one (and setting the cookie) when there is none.
func (s *Server) consentSession(w http.ResponseWriter, r *http.Request) (*sessions.ConsentSession, bool) {
	var id string
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		id = cookie.Value
	}
	session, created, err := s.flow.Session(r.Context(), id)
	if err != nil {
		log.Err(err).Msg("loading consent session")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, false
	}
	if created {
		s.setSessionCookie(w, r, session.ID)
	}
	return session, true
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.config.GetMaxSessionAge().Seconds()),
	})
}

func writeGrantError(w http.ResponseWriter, err error) {
	ge := oauthmodel.AsGrantError(err)
	if ge.Code == oauthmodel.ErrorServerError {
		log.Err(err).Msg("token endpoint failure")
	}
	if ge.Code == oauthmodel.ErrorInvalidClient {
		w.Header().Set("WWW-Authenticate", `Basic realm="oauth"`)
	}
	writeJSON(w, ge.Status, oauth2.ErrorResponse{Error: string(ge.Code), ErrorDescription: ge.Description})
}

func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	writeJSON(w, statusCode, oauth2.ErrorResponse{Error: errorCode, ErrorDescription: description})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("writing json response")
	}
}
