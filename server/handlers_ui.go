package server

import (
	"net/http"
	"net/url"

	"github.com/jrsteele09/incal-auth/consent"
	"github.com/jrsteele09/incal-auth/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	Community   string
	CallbackURI string // base64 authorize URI to continue at after login
	LoginURL    string
	RegisterURL string
	Error       string
	Email       string // Preserve email on error
}

// ConsentPageData contains data for rendering the consent page
type ConsentPageData struct {
	Community    string
	Email        string
	ClientName   string
	Scopes       []string
	CSRFToken    string
	AuthorizeURL string
	Params       url.Values // authorize parameters sent back with the decision
}

type DenyPageData struct {
	Community  string
	ClientName string
	Email      string
}

type InvitePageData struct {
	Community string
	FromName  string
	FromEmail string
	To        string
	Slug      string
	InviteURL string
}

func (s *Server) renderLogin(w http.ResponseWriter, status int, callbackURI, email, errorMsg string) {
	base := s.config.GetServerURI()
	render(w, status, s.views.login, LoginPageData{
		Community:   s.config.GetAppName(),
		CallbackURI: callbackURI,
		LoginURL:    base + RouteOAuthLogin,
		RegisterURL: base + RouteOAuthRegister,
		Error:       errorMsg,
		Email:       email,
	})
}

// LoginSubmissionHandler processes the login form submission
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		callbackURI := r.PostForm.Get("callback_uri")
		email := r.PostForm.Get("email")
		password := r.PostForm.Get("password")
		if callbackURI == "" || email == "" || password == "" {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		session, ok := s.consentSession(w, r)
		if !ok {
			return
		}

		callback, err := s.flow.Login(r.Context(), session, email, password, callbackURI)
		switch {
		case errors.Is(err, consent.ErrInvalidCallback):
			http.Error(w, "Invalid callback", http.StatusBadRequest)
			return
		case errors.Is(err, users.ErrInvalidCredentials):
			s.renderLogin(w, http.StatusOK, callbackURI, email, "Invalid username or password")
			return
		case err != nil:
			log.Err(err).Msg("login failed")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, callback, http.StatusFound)
	}
}

// RegisterHandler signs up a new member and returns to the login view with the
// same callback. The first member to register becomes an anchor.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		callbackURI := r.PostForm.Get("callback_uri")
		if callbackURI == "" {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if _, err := consent.DecodeCallback(callbackURI); err != nil {
			http.Error(w, "Invalid callback", http.StatusBadRequest)
			return
		}

		user, err := s.users.Register(r.Context(), users.RegisterRequest{
			Email:     r.PostForm.Get("email"),
			FirstName: r.PostForm.Get("firstname"),
			LastName:  r.PostForm.Get("lastname"),
			Password:  r.PostForm.Get("password"),
		})
		switch {
		case errors.Is(err, users.ErrMissingFields):
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		case errors.Is(err, users.ErrUserExists):
			http.Error(w, "Email already in use", http.StatusGone)
			return
		case err != nil:
			log.Err(err).Msg("registration failed")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		log.Info().Str("user_id", user.ID).Bool("anchor", user.IsAnchor).Msg("member registered")
		s.renderLogin(w, http.StatusOK, callbackURI, user.Email, "")
	}
}

// InviteGetHandler renders the invite acceptance form (GET /oauth/invite?slug=)
func (s *Server) InviteGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := r.URL.Query().Get("slug")
		if slug == "" {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}

		invitation, err := s.users.Invitation(r.Context(), slug)
		switch {
		case errors.Is(err, users.ErrInviteNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		case errors.Is(err, users.ErrBrokenInvite):
			http.Error(w, "Invite is invalid", http.StatusInternalServerError)
			return
		case err != nil:
			log.Err(err).Msg("loading invite")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		render(w, http.StatusOK, s.views.invite, InvitePageData{
			Community: s.config.GetAppName(),
			FromName:  invitation.From.FullName(),
			FromEmail: invitation.From.Email,
			To:        invitation.To.Email,
			Slug:      slug,
			InviteURL: s.config.GetServerURI() + RouteOAuthInvite,
		})
	}
}

// InvitePostHandler completes an invited member's account and shows the login view.
func (s *Server) InvitePostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		email := r.PostForm.Get("email")
		err := s.users.AcceptInvite(r.Context(), users.AcceptInviteRequest{
			Slug:      r.PostForm.Get("slug"),
			Email:     email,
			FirstName: r.PostForm.Get("firstname"),
			LastName:  r.PostForm.Get("lastname"),
			Password:  r.PostForm.Get("password"),
			Confirm:   r.PostForm.Get("confirm"),
		})
		switch {
		case errors.Is(err, users.ErrInvalidInvite),
			errors.Is(err, users.ErrPasswordMismatch),
			errors.Is(err, users.ErrExpiredInvite):
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		case err != nil:
			log.Err(err).Msg("accepting invite")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		s.renderLogin(w, http.StatusOK, consent.EncodeCallback(&url.URL{Path: "/"}), email, "")
	}
}
