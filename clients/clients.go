package clients

import (
	"slices"
	"time"

	"github.com/jrsteele09/incal-auth/oauthmodel"
	"github.com/pkg/errors"
)

type ClientType string

const (
	ClientTypeConfidential ClientType = "confidential" // Can keep secrets (server-side apps)
	ClientTypePublic       ClientType = "public"       // Cannot keep secrets (SPAs, mobile apps)
)

var (
	ErrClientNotFound = errors.New("client not found")
	ErrInvalidClient  = errors.New("invalid client")
	ErrInvalidScope   = errors.New("invalid scope")
)

// Client is a registered relying party. Clients are immutable once registered.
type Client struct {
	ID              string                 `json:"id" yaml:"id"`
	Name            string                 `json:"name" yaml:"name"`
	Type            ClientType             `json:"type" yaml:"type"` // public or confidential
	Secret          string                 `json:"-" yaml:"secret"`  // empty for public clients
	AllowedGrants   []oauthmodel.GrantType `json:"allowedGrants" yaml:"allowedGrants"`
	RedirectURIs    []string               `json:"redirectURIs" yaml:"redirectURIs"`
	Scopes          []string               `json:"scopes" yaml:"scopes"` // Allowed scopes for this client
	AccessTokenTTL  time.Duration          `json:"accessTokenTTL" yaml:"accessTokenTTL"`
	RefreshTokenTTL time.Duration          `json:"refreshTokenTTL" yaml:"refreshTokenTTL"`
}

// Validate checks that the client record is complete and self consistent.
func (c *Client) Validate() error {
	if c.ID == "" {
		return errors.New("client id is required")
	}
	switch c.Type {
	case ClientTypePublic:
		if c.Secret != "" {
			return errors.Errorf("public client %q must not have a secret", c.ID)
		}
	case ClientTypeConfidential:
		if c.Secret == "" {
			return errors.Errorf("confidential client %q requires a secret", c.ID)
		}
	default:
		return errors.Errorf("client %q has unknown type %q", c.ID, c.Type)
	}
	if len(c.RedirectURIs) == 0 {
		return errors.Errorf("client %q requires at least one redirect uri", c.ID)
	}
	if !c.HasGrant(oauthmodel.AuthorizationCodeGrant) {
		return errors.Errorf("client %q must allow the %s grant", c.ID, oauthmodel.AuthorizationCodeGrant)
	}
	for _, g := range c.AllowedGrants {
		if g != oauthmodel.AuthorizationCodeGrant && g != oauthmodel.RefreshTokenGrant {
			return errors.Errorf("client %q has unsupported grant %q", c.ID, g)
		}
	}
	if len(c.Scopes) == 0 {
		return errors.Errorf("client %q requires at least one scope", c.ID)
	}
	if c.AccessTokenTTL < 0 || c.RefreshTokenTTL < 0 {
		return errors.Errorf("client %q has a negative token lifetime", c.ID)
	}
	return nil
}

// IsPublic returns true if the client is a public client
func (c *Client) IsPublic() bool {
	return c.Type == ClientTypePublic
}

// HasScope checks if the client has permission for a specific scope
func (c *Client) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

func (c *Client) HasGrant(grant oauthmodel.GrantType) bool {
	return slices.Contains(c.AllowedGrants, grant)
}

// ValidateScopes checks if all requested scopes are allowed for this client
func (c *Client) ValidateScopes(requested []string) error {
	if len(requested) == 0 {
		return ErrInvalidScope
	}
	for _, scope := range requested {
		if !c.HasScope(scope) {
			return ErrInvalidScope
		}
	}
	return nil
}

// RedirectURIAllowed reports whether uri exactly matches a registered redirect URI.
func (c *Client) RedirectURIAllowed(uri string) bool {
	return slices.Contains(c.RedirectURIs, uri)
}

// ResolveRedirectURI returns the requested URI when registered, or the first
// registered URI when none was requested.
func (c *Client) ResolveRedirectURI(requested string) (string, bool) {
	if requested == "" {
		return c.RedirectURIs[0], true
	}
	return requested, c.RedirectURIAllowed(requested)
}

// TokenLifetimes returns the client's access and refresh token TTLs,
// falling back to the supplied defaults where the client leaves them unset.
func (c *Client) TokenLifetimes(defaultAccess, defaultRefresh time.Duration) (time.Duration, time.Duration) {
	access, refresh := c.AccessTokenTTL, c.RefreshTokenTTL
	if access == 0 {
		access = defaultAccess
	}
	if refresh == 0 {
		refresh = defaultRefresh
	}
	return access, refresh
}

// Clone returns a deep copy of the client.
func (c *Client) Clone() *Client {
	copied := *c
	copied.AllowedGrants = slices.Clone(c.AllowedGrants)
	copied.RedirectURIs = slices.Clone(c.RedirectURIs)
	copied.Scopes = slices.Clone(c.Scopes)
	return &copied
}
