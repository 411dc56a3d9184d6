package clients

import (
	"crypto/subtle"

	"github.com/pkg/errors"
)

// Registry looks up and authenticates clients.
type Registry struct {
	repo Repo
}

func NewRegistry(repo Repo) *Registry {
	return &Registry{repo: repo}
}

// Lookup returns the client registered under clientID or ErrClientNotFound.
func (r *Registry) Lookup(clientID string) (*Client, error) {
	if clientID == "" {
		return nil, ErrClientNotFound
	}
	client, err := r.repo.Get(clientID)
	if err != nil {
		return nil, errors.Wrapf(err, "[Registry.Lookup] %s", clientID)
	}
	return client, nil
}

// Authenticate verifies the client credentials. Unknown clients, wrong secrets,
// a missing secret on a confidential client and any secret sent for a public
// client all fail with ErrInvalidClient.
func (r *Registry) Authenticate(clientID, secret string) (*Client, error) {
	client, err := r.Lookup(clientID)
	if err != nil {
		return nil, ErrInvalidClient
	}
	if client.IsPublic() {
		if secret != "" {
			return nil, ErrInvalidClient
		}
		return client, nil
	}
	if secret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(client.Secret)) != 1 {
		return nil, ErrInvalidClient
	}
	return client, nil
}
