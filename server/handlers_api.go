package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/incal-auth/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// UserInfo returns the member the bearer token was issued to (GET /api/user).
func (s *Server) UserInfo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, ok := accessTokenFrom(r)
		if !ok {
			writeJSONError(w, "invalid_token", "missing access token", http.StatusUnauthorized)
			return
		}

		user, err := s.users.GetByID(r.Context(), access.UserID)
		switch {
		case errors.Is(err, users.ErrUserNotFound):
			writeJSONError(w, "not_found", "user not found", http.StatusNotFound)
			return
		case err != nil:
			log.Err(err).Str("user_id", access.UserID).Msg("loading user")
			writeJSONError(w, "server_error", "internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

type createInviteRequest struct {
	Email string `json:"email"`
}

type createInviteResponse struct {
	Slug string `json:"slug"`
	URL  string `json:"url"`
}

// CreateInvite lets the token's member invite someone (POST /api/user/invites).
func (s *Server) CreateInvite() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, ok := accessTokenFrom(r)
		if !ok {
			writeJSONError(w, "invalid_token", "missing access token", http.StatusUnauthorized)
			return
		}

		var req createInviteRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
			writeJSONError(w, "invalid_request", "body must be a JSON object with an email", http.StatusBadRequest)
			return
		}

		inviter, err := s.users.GetByID(r.Context(), access.UserID)
		if err != nil {
			log.Err(err).Str("user_id", access.UserID).Msg("loading inviter")
			writeJSONError(w, "server_error", "internal server error", http.StatusInternalServerError)
			return
		}

		invite, err := s.users.CreateInvite(r.Context(), inviter.Email, req.Email)
		switch {
		case errors.Is(err, users.ErrMissingFields):
			writeJSONError(w, "invalid_request", "email is required", http.StatusBadRequest)
			return
		case errors.Is(err, users.ErrUserExists):
			writeJSONError(w, "conflict", "email already in use", http.StatusConflict)
			return
		case err != nil:
			log.Err(err).Msg("creating invite")
			writeJSONError(w, "server_error", "internal server error", http.StatusInternalServerError)
			return
		}

		log.Info().Str("from", invite.FromEmail).Str("slug", invite.Slug).Msg("invite created")
		writeJSON(w, http.StatusCreated, createInviteResponse{
			Slug: invite.Slug,
			URL:  s.config.GetServerURI() + RouteOAuthInvite + "?slug=" + invite.Slug,
		})
	}
}
