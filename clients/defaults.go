package clients

import (
	"time"

	"github.com/jrsteele09/incal-auth/oauthmodel"
)

const (
	DashboardClientID = "dashboard"
	SleepClientID     = "sleep"
)

// DefaultClients returns the built-in relying parties: the public dashboard SPA
// served from serverURI and the confidential sleep satellite app.
func DefaultClients(serverURI, sleepSecret, sleepRedirectURI string) []*Client {
	return []*Client{
		{
			ID:   DashboardClientID,
			Name: "Dashboard",
			Type: ClientTypePublic,
			AllowedGrants: []oauthmodel.GrantType{
				oauthmodel.AuthorizationCodeGrant,
				oauthmodel.RefreshTokenGrant,
			},
			RedirectURIs:    []string{serverURI},
			Scopes:          []string{oauthmodel.ScopeUserInfoRead, oauthmodel.ScopeUserInfoWrite},
			RefreshTokenTTL: 24 * time.Hour,
		},
		{
			ID:     SleepClientID,
			Name:   "Sleep",
			Type:   ClientTypeConfidential,
			Secret: sleepSecret,
			AllowedGrants: []oauthmodel.GrantType{
				oauthmodel.AuthorizationCodeGrant,
				oauthmodel.RefreshTokenGrant,
			},
			RedirectURIs: []string{sleepRedirectURI},
			Scopes:       []string{oauthmodel.ScopeUserInfoRead},
		},
	}
}
