package auth

import (
	"context"
	"strings"

	apperrors "github.com/jrsteele09/incal-auth/internal/errors"
	"github.com/jrsteele09/incal-auth/oauthmodel"
	"github.com/jrsteele09/incal-auth/token"
	"github.com/pkg/errors"
)

// ValidateAccessToken looks up a bearer token and checks that it carries at
// least one of requiredScopes. With no required scopes any live token passes.
func (as *AuthorizationService) ValidateAccessToken(ctx context.Context, value string, requiredScopes ...string) (*token.AccessToken, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, apperrors.ErrInvalidToken
	}
	access, err := as.stores.Access.Get(ctx, value)
	if errors.Is(err, token.ErrNotFound) {
		return nil, apperrors.ErrInvalidToken
	}
	if err != nil {
		return nil, errors.Wrap(err, "[AuthorizationService.ValidateAccessToken]")
	}
	if len(requiredScopes) > 0 && len(oauthmodel.IntersectScopes(requiredScopes, oauthmodel.ParseScopes(access.Scope))) == 0 {
		return nil, apperrors.ErrInsufficientScope
	}
	return access, nil
}

// RevokeRequest is a token revocation request from an authenticated client.
type RevokeRequest struct {
	ClientID     string
	ClientSecret string
	Token        string
}

// RevokeToken removes an access or refresh token belonging to the calling client.
// Unknown tokens and tokens of other clients are ignored.
func (as *AuthorizationService) RevokeToken(ctx context.Context, req RevokeRequest) error {
	client, err := as.clients.Authenticate(req.ClientID, req.ClientSecret)
	if err != nil {
		return errInvalidClient()
	}
	if req.Token == "" {
		return errInvalidRequest("token is required")
	}

	access, err := as.stores.Access.Get(ctx, req.Token)
	switch {
	case err == nil:
		if access.ClientID == client.ID {
			if _, err := as.stores.Access.Remove(ctx, req.Token); err != nil {
				return as.serverError("[AuthorizationService.RevokeToken] removing access token", err)
			}
		}
		return nil
	case !errors.Is(err, token.ErrNotFound):
		return as.serverError("[AuthorizationService.RevokeToken] access lookup", err)
	}

	refresh, err := as.stores.Refresh.Get(ctx, req.Token)
	switch {
	case errors.Is(err, token.ErrNotFound):
		return nil
	case err != nil:
		return as.serverError("[AuthorizationService.RevokeToken] refresh lookup", err)
	case refresh.ClientID != client.ID:
		return nil
	}
	if _, err := as.stores.Refresh.Remove(ctx, req.Token); err != nil {
		return as.serverError("[AuthorizationService.RevokeToken] removing refresh token", err)
	}
	return nil
}
