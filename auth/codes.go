package auth

import (
	"context"

	"github.com/jrsteele09/incal-auth/oauthmodel"
	"github.com/jrsteele09/incal-auth/token"
	"github.com/rs/zerolog/log"
)

// CodeRequest is what the consent flow binds an authorization code to.
type CodeRequest struct {
	ClientID            string
	UserID              string
	RedirectURI         string // empty selects the client's first registered URI
	Scope               string
	CodeChallenge       string
	CodeChallengeMethod oauthmodel.CodeMethodType
}

// IssueCode creates and stores a single-use authorization code for a consented request.
func (as *AuthorizationService) IssueCode(ctx context.Context, req CodeRequest) (*token.AuthorizationCode, error) {
	client, err := as.clients.Lookup(req.ClientID)
	if err != nil {
		return nil, errInvalidClient()
	}
	if req.UserID == "" {
		return nil, errInvalidRequest("user is required")
	}
	redirectURI, ok := client.ResolveRedirectURI(req.RedirectURI)
	if !ok {
		return nil, errInvalidRequest(oauthmodel.ErrInvalidRedirectUri.Error())
	}
	scopes := oauthmodel.ParseScopes(req.Scope)
	if err := client.ValidateScopes(scopes); err != nil {
		return nil, errInvalidScope("scope is not registered for this client")
	}
	method := req.CodeChallengeMethod
	if method == "" {
		method = oauthmodel.CodeMethodTypeS256
	}
	if !ValidCodeChallenge(req.CodeChallenge, method) {
		return nil, errInvalidRequest(oauthmodel.ErrInvalidCodeChallenge.Error())
	}

	value, err := token.RandomURLString(as.settings.CodeLength)
	if err != nil {
		return nil, as.serverError("[AuthorizationService.IssueCode] generating code", err)
	}
	code, err := token.NewAuthorizationCode(token.AuthorizationCode{
		Code:                value,
		ClientID:            client.ID,
		UserID:              req.UserID,
		RedirectURI:         redirectURI,
		RedirectURIExplicit: req.RedirectURI != "",
		Scope:               oauthmodel.JoinScopes(scopes),
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: method,
		ExpiresAt:           as.nowTime().Add(as.settings.AuthCodeTTL),
	})
	if err != nil {
		return nil, as.serverError("[AuthorizationService.IssueCode] building code", err)
	}
	if err := as.stores.Codes.Put(ctx, code.Code, code, code.ExpiresAt); err != nil {
		return nil, as.serverError("[AuthorizationService.IssueCode] storing code", err)
	}

	log.Info().Str("client_id", client.ID).Str("user_id", req.UserID).Str("scope", code.Scope).Msg("authorization code issued")
	return code, nil
}
