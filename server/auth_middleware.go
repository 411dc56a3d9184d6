package server

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/incal-auth/internal/errors"
	"github.com/jrsteele09/incal-auth/token"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyAccessToken stores the validated bearer token
	ContextKeyAccessToken ContextKey = "access_token"
)

// RequireAuth is middleware that validates a Bearer access token carrying at
// least one of scopes. Used for API routes called by relying parties.
func (s *Server) RequireAuth(scopes ...string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeBearerError(w, "invalid_request", "Missing Authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeBearerError(w, "invalid_request", "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			access, err := s.auth.ValidateAccessToken(r.Context(), parts[1], scopes...)
			switch {
			case apperrors.Is(err, apperrors.ErrInvalidToken):
				writeBearerError(w, "invalid_token", "The access token is invalid or expired", http.StatusUnauthorized)
				return
			case apperrors.Is(err, apperrors.ErrInsufficientScope):
				writeBearerError(w, "insufficient_scope", "The access token does not carry the required scope", http.StatusForbidden)
				return
			case err != nil:
				log.Err(err).Str("path", r.URL.Path).Msg("validating access token")
				writeJSONError(w, "server_error", "internal server error", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyAccessToken, access)
			next(w, r.WithContext(ctx))
		}
	}
}

// accessTokenFrom returns the token RequireAuth stored on the request.
func accessTokenFrom(r *http.Request) (*token.AccessToken, bool) {
	access, ok := r.Context().Value(ContextKeyAccessToken).(*token.AccessToken)
	return access, ok
}

func writeBearerError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	w.Header().Set("WWW-Authenticate", `Bearer error="`+errorCode+`"`)
	writeJSONError(w, errorCode, description, statusCode)
}
