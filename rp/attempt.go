package rp

import (
	"context"
	"crypto/subtle"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Attempt is one login attempt. Its state and PKCE verifier are never reused.
type Attempt struct {
	State string
	URL   string // authorize URL to open

	mu       sync.Mutex
	verifier string
}

// take hands out the verifier once.
func (a *Attempt) take() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	v := a.verifier
	a.verifier = ""
	return v
}

// Begin starts a login attempt with a fresh state and verifier.
func (c *Client) Begin() (*Attempt, error) {
	state := oauth2.GenerateVerifier()
	verifier := oauth2.GenerateVerifier()
	return &Attempt{
		State:    state,
		URL:      c.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)),
		verifier: verifier,
	}, nil
}

// Complete exchanges the code returned for attempt and stores the tokens.
// The attempt is spent whatever the outcome.
func (c *Client) Complete(ctx context.Context, attempt *Attempt, state, code string) (*TokenBundle, error) {
	verifier := attempt.take()
	if verifier == "" {
		return nil, ErrAttemptUsed
	}
	if subtle.ConstantTimeCompare([]byte(state), []byte(attempt.State)) != 1 {
		return nil, ErrStateMismatch
	}
	if code == "" {
		return nil, errors.New("[Client.Complete] code is required")
	}

	tok, err := c.oauth.Exchange(c.exchangeContext(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, asError(err)
	}
	bundle := bundleFromToken(tok)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.storage.Save(bundle); err != nil {
		return nil, err
	}
	log.Debug().Str("client_id", c.oauth.ClientID).Time("expires_at", bundle.ExpiresAt).Msg("login complete")
	return bundle, nil
}
