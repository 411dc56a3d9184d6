package sessions

import (
	"crypto/subtle"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/incal-auth/token"
)

const (
	csrfPrefix      = "csrf-"
	csrfTokenLength = 24
)

// CSRFToken binds one consent decision to the session that rendered the consent view.
type CSRFToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewCSRFToken returns a random token valid for ttl from now.
func NewCSRFToken(now time.Time, ttl time.Duration) (*CSRFToken, error) {
	value, err := token.RandomURLString(csrfTokenLength)
	if err != nil {
		return nil, err
	}
	return &CSRFToken{Token: csrfPrefix + value, ExpiresAt: now.Add(ttl)}, nil
}

// Matches reports whether value equals the token and the token has not expired at now.
func (c *CSRFToken) Matches(value string, now time.Time) bool {
	if c == nil || value == "" || token.Expired(now, c.ExpiresAt) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.Token), []byte(value)) == 1
}

// ConsentSession is the per-browser state of the consent flow, keyed by the
// session cookie. It is loaded, passed through the flow and saved back.
type ConsentSession struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id,omitempty"` // set after login
	Email     string     `json:"email,omitempty"`
	CSRF      *CSRFToken `json:"csrf,omitempty"` // outstanding consent token, if any
	CreatedAt time.Time  `json:"created_at"`
}

// New returns an empty, unauthenticated session with a fresh ID.
func New(now time.Time) *ConsentSession {
	return &ConsentSession{ID: uuid.New().String(), CreatedAt: now}
}

// Authenticated reports whether a user has logged in on this session.
func (s *ConsentSession) Authenticated() bool {
	return s != nil && s.UserID != ""
}

// SetUser records a successful login. Any outstanding consent token is dropped.
func (s *ConsentSession) SetUser(userID, email string) {
	s.UserID, s.Email, s.CSRF = userID, email, nil
}

// ClearUser logs the session out.
func (s *ConsentSession) ClearUser() {
	s.SetUser("", "")
}

// Clone returns a copy that shares nothing with s.
func (s *ConsentSession) Clone() *ConsentSession {
	copied := *s
	if s.CSRF != nil {
		csrf := *s.CSRF
		copied.CSRF = &csrf
	}
	return &copied
}
