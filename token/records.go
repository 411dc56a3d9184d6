package token

import (
	"time"

	"github.com/jrsteele09/incal-auth/oauthmodel"
	"github.com/pkg/errors"
)

// AuthorizationCode is issued by the consent flow and redeemed once at the token endpoint.
type AuthorizationCode struct {
	Code                string                    `json:"code"`
	ClientID            string                    `json:"client_id"`
	UserID              string                    `json:"user_id"`
	RedirectURI         string                    `json:"redirect_uri"`
	RedirectURIExplicit bool                      `json:"redirect_uri_explicit"` // sent on the authorize request
	Scope               string                    `json:"scope"` // comma separated, as consented
	CodeChallenge       string                    `json:"code_challenge"`
	CodeChallengeMethod oauthmodel.CodeMethodType `json:"code_challenge_method"`
	ExpiresAt           time.Time                 `json:"expires_at"`
}

// AccessToken is a bearer credential validated by store lookup plus expiry.
type AccessToken struct {
	Token     string    `json:"token"`
	ClientID  string    `json:"client_id"`
	UserID    string    `json:"user_id"`
	Scope     string    `json:"scope"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RefreshToken is rotated on every use.
type RefreshToken struct {
	Token     string    `json:"token"`
	ClientID  string    `json:"client_id"`
	UserID    string    `json:"user_id"`
	Scope     string    `json:"scope"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewAuthorizationCode validates c and returns a pointer to it.
func NewAuthorizationCode(c AuthorizationCode) (*AuthorizationCode, error) {
	if err := requireFields(
		field{"code", c.Code},
		field{"client_id", c.ClientID},
		field{"user_id", c.UserID},
		field{"redirect_uri", c.RedirectURI},
		field{"scope", c.Scope},
		field{"code_challenge", c.CodeChallenge},
	); err != nil {
		return nil, err
	}
	if !oauthmodel.CodeChallengeMethodValid(c.CodeChallengeMethod) {
		return nil, oauthmodel.ErrInvalidCodeChallengeMethod
	}
	if c.ExpiresAt.IsZero() {
		return nil, errors.New("authorization code requires an expiry")
	}
	return &c, nil
}

func NewAccessToken(tok, clientID, userID, scope string, expiresAt time.Time) (*AccessToken, error) {
	if err := requireGrantFields(tok, clientID, userID, scope, expiresAt); err != nil {
		return nil, err
	}
	return &AccessToken{Token: tok, ClientID: clientID, UserID: userID, Scope: scope, ExpiresAt: expiresAt}, nil
}

func NewRefreshToken(tok, clientID, userID, scope string, expiresAt time.Time) (*RefreshToken, error) {
	if err := requireGrantFields(tok, clientID, userID, scope, expiresAt); err != nil {
		return nil, err
	}
	return &RefreshToken{Token: tok, ClientID: clientID, UserID: userID, Scope: scope, ExpiresAt: expiresAt}, nil
}

func requireGrantFields(tok, clientID, userID, scope string, expiresAt time.Time) error {
	if err := requireFields(
		field{"token", tok},
		field{"client_id", clientID},
		field{"user_id", userID},
		field{"scope", scope},
	); err != nil {
		return err
	}
	if expiresAt.IsZero() {
		return errors.New("token requires an expiry")
	}
	return nil
}

type field struct {
	name, value string
}

// requireFields reports the first empty field, in argument order.
func requireFields(fields ...field) error {
	for _, f := range fields {
		if f.value == "" {
			return errors.Errorf("%s is required", f.name)
		}
	}
	return nil
}
