package staticrepo_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/incal-auth/clients"
	"github.com/jrsteele09/incal-auth/clients/staticrepo"
	"github.com/jrsteele09/incal-auth/oauthmodel"
	"github.com/stretchr/testify/require"
)

const clientsYAML = `
clients:
  - id: dashboard
    name: Dashboard
    type: public
    allowedGrants: [authorization_code, refresh_token]
    redirectURIs: ["http://localhost:8080"]
    scopes: ["user_info:read", "user_info:write"]
    refreshTokenTTL: 24h
  - id: sleep
    name: Sleep
    type: confidential
    secret: nyanyanyan
    allowedGrants: [authorization_code]
    redirectURIs: ["http://localhost/sleep/api/login"]
    scopes: ["user_info:read"]
    accessTokenTTL: 30m
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clients.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	repo, err := staticrepo.LoadFile(writeFile(t, clientsYAML))
	require.NoError(t, err)

	list, err := repo.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "dashboard", list[0].ID)
	require.Equal(t, 24*time.Hour, list[0].RefreshTokenTTL)

	sleep, err := repo.Get("sleep")
	require.NoError(t, err)
	require.Equal(t, clients.ClientTypeConfidential, sleep.Type)
	require.Equal(t, "nyanyanyan", sleep.Secret)
	require.Equal(t, 30*time.Minute, sleep.AccessTokenTTL)
	require.False(t, sleep.HasGrant(oauthmodel.RefreshTokenGrant))
}

func TestLoadFile_Invalid(t *testing.T) {
	_, err := staticrepo.LoadFile(writeFile(t, "clients:\n  - id: broken\n    type: public\n"))
	require.Error(t, err)

	_, err = staticrepo.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestNew_RejectsDuplicates(t *testing.T) {
	c := clients.DefaultClients("http://localhost:8080", "s", "http://localhost/cb")
	_, err := staticrepo.New(append(c, c[0])...)
	require.Error(t, err)
}

func TestGet_ReturnsCopy(t *testing.T) {
	repo, err := staticrepo.New(clients.DefaultClients("http://localhost:8080", "s", "http://localhost/cb")...)
	require.NoError(t, err)

	c, err := repo.Get(clients.DashboardClientID)
	require.NoError(t, err)
	c.Scopes[0] = "admin"

	again, err := repo.Get(clients.DashboardClientID)
	require.NoError(t, err)
	require.Equal(t, oauthmodel.ScopeUserInfoRead, again.Scopes[0])

	_, err = repo.Get("nobody")
	require.ErrorIs(t, err, clients.ErrClientNotFound)
}
