package auth

import (
	"context"
	"time"

	"github.com/jrsteele09/incal-auth/clients"
	"github.com/jrsteele09/incal-auth/internal/utils"
	"github.com/jrsteele09/incal-auth/oauth2"
	"github.com/jrsteele09/incal-auth/oauthmodel"
	"github.com/jrsteele09/incal-auth/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const bearerTokenType = "Bearer"

// Settings holds the lifetimes and sizes the grant engine issues with.
type Settings struct {
	AuthCodeTTL        time.Duration // lifetime of an authorization code
	AccessTokenTTL     time.Duration // used when the client sets no access token TTL
	RefreshTokenTTL    time.Duration // used when the client sets no refresh token TTL
	CodeLength         int           // random bytes in an authorization code
	RefreshTokenLength int           // random bytes in a refresh token
}

// DefaultSettings are the lifetimes used when none are configured.
func DefaultSettings() Settings {
	return Settings{
		AuthCodeTTL:        5 * time.Minute,
		AccessTokenTTL:     time.Hour,
		RefreshTokenTTL:    14 * 24 * time.Hour,
		CodeLength:         32,
		RefreshTokenLength: 32,
	}
}

// AuthorizationService is the grant engine. It keeps no state of its own between
// calls; codes and tokens live in the token stores.
type AuthorizationService struct {
	clients   *clients.Registry
	stores    token.Stores
	generator token.AccessTokenGenerator
	settings  Settings
	nowTime   func() time.Time // injectable for testing
}

// AuthorizationServiceOption defines a function type to modify the AuthorizationService instance.
type AuthorizationServiceOption func(*AuthorizationService)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.nowTime = nowFunc
	}
}

// WithSettings replaces the default lifetimes.
func WithSettings(settings Settings) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.settings = settings
	}
}

// WithAccessTokenGenerator replaces the opaque access token generator.
func WithAccessTokenGenerator(generator token.AccessTokenGenerator) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.generator = generator
	}
}

// NewAuthorizationService initializes a new AuthorizationService with required dependencies.
func NewAuthorizationService(registry *clients.Registry, stores token.Stores, options ...AuthorizationServiceOption) (*AuthorizationService, error) {
	if registry == nil {
		return nil, errors.New("[NewAuthorizationService] client registry is required")
	}
	if stores.Codes == nil || stores.Access == nil || stores.Refresh == nil {
		return nil, errors.New("[NewAuthorizationService] code, access and refresh stores are required")
	}

	as := &AuthorizationService{
		clients:  registry,
		stores:   stores,
		settings: DefaultSettings(),
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(as)
	}
	if as.generator == nil {
		as.generator = token.OpaqueGenerator{Length: as.settings.CodeLength}
	}
	return as, nil
}

// Token handles a token endpoint request for the authorization_code and
// refresh_token grants. Every error returned is a *oauthmodel.GrantError.
func (as *AuthorizationService) Token(ctx context.Context, req oauthmodel.TokenRequest) (*oauth2.TokenResponse, error) {
	switch req.GrantType {
	case oauthmodel.AuthorizationCodeGrant, oauthmodel.RefreshTokenGrant:
	case "":
		return nil, oauthmodel.NewGrantError(oauthmodel.ErrorInvalidRequest, "grant_type is required")
	default:
		return nil, oauthmodel.NewGrantError(oauthmodel.ErrorUnsupportedGrantType, "grant_type is not supported")
	}
	if req.ClientID == "" {
		return nil, oauthmodel.NewGrantError(oauthmodel.ErrorInvalidRequest, "client_id is required")
	}

	client, err := as.clients.Authenticate(req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, errInvalidClient()
	}
	if !client.HasGrant(req.GrantType) {
		return nil, oauthmodel.NewGrantError(oauthmodel.ErrorUnauthorizedClient, "client is not allowed this grant type")
	}

	if req.GrantType == oauthmodel.RefreshTokenGrant {
		return as.refresh(ctx, client, req)
	}
	return as.exchangeCode(ctx, client, req)
}

// exchangeCode redeems an authorization code. The code is taken out of the store
// before any check runs, so a failed attempt still burns it.
func (as *AuthorizationService) exchangeCode(ctx context.Context, client *clients.Client, req oauthmodel.TokenRequest) (*oauth2.TokenResponse, error) {
	if req.Code == "" {
		return nil, oauthmodel.NewGrantError(oauthmodel.ErrorInvalidRequest, "code is required")
	}

	code, err := as.stores.Codes.Take(ctx, req.Code)
	if errors.Is(err, token.ErrNotFound) {
		return nil, errInvalidGrant("authorization code is invalid, expired or already used")
	}
	if err != nil {
		return nil, as.serverError("[AuthorizationService.exchangeCode] taking code", err)
	}

	if code.ClientID != client.ID {
		return nil, errInvalidGrant("authorization code was issued to another client")
	}
	// redirect_uri may be omitted here only if it was omitted when authorizing
	if (code.RedirectURIExplicit || req.RedirectURI != "") && code.RedirectURI != req.RedirectURI {
		return nil, errInvalidGrant("redirect_uri does not match the authorization request")
	}
	if !VerifyCodeVerifier(code.CodeChallenge, code.CodeChallengeMethod, req.CodeVerifier) {
		return nil, errInvalidGrant("code_verifier does not match the code challenge")
	}

	scope, err := grantedScope(code.Scope, req.Scope)
	if err != nil {
		return nil, err
	}
	return as.issue(ctx, client, code.UserID, scope, client.HasGrant(oauthmodel.RefreshTokenGrant))
}

// refresh rotates a refresh token. The presented token is revoked whatever the outcome.
func (as *AuthorizationService) refresh(ctx context.Context, client *clients.Client, req oauthmodel.TokenRequest) (*oauth2.TokenResponse, error) {
	if req.RefreshToken == "" {
		return nil, oauthmodel.NewGrantError(oauthmodel.ErrorInvalidRequest, "refresh_token is required")
	}

	old, err := as.stores.Refresh.Take(ctx, req.RefreshToken)
	if errors.Is(err, token.ErrNotFound) {
		return nil, errInvalidGrant("refresh token is invalid, expired or already used")
	}
	if err != nil {
		return nil, as.serverError("[AuthorizationService.refresh] taking refresh token", err)
	}
	if old.ClientID != client.ID {
		return nil, errInvalidGrant("refresh token was issued to another client")
	}

	scope, err := grantedScope(old.Scope, req.Scope)
	if err != nil {
		return nil, err
	}
	return as.issue(ctx, client, old.UserID, scope, true)
}

// issue stores a new access token and, when withRefresh is set, a refresh token.
// Either both are stored or neither is.
func (as *AuthorizationService) issue(ctx context.Context, client *clients.Client, userID, scope string, withRefresh bool) (*oauth2.TokenResponse, error) {
	now := as.nowTime()
	accessTTL, refreshTTL := client.TokenLifetimes(as.settings.AccessTokenTTL, as.settings.RefreshTokenTTL)

	value, err := as.generator.GenerateAccessToken(client.ID, userID, scope, now, now.Add(accessTTL))
	if err != nil {
		return nil, as.serverError("[AuthorizationService.issue] generating access token", err)
	}
	access, err := token.NewAccessToken(value, client.ID, userID, scope, now.Add(accessTTL))
	if err != nil {
		return nil, as.serverError("[AuthorizationService.issue] access token", err)
	}

	var refresh *token.RefreshToken
	if withRefresh {
		value, err := token.RandomHexString(as.settings.RefreshTokenLength)
		if err != nil {
			return nil, as.serverError("[AuthorizationService.issue] generating refresh token", err)
		}
		if refresh, err = token.NewRefreshToken(value, client.ID, userID, scope, now.Add(refreshTTL)); err != nil {
			return nil, as.serverError("[AuthorizationService.issue] refresh token", err)
		}
	}

	if err := as.stores.Access.Put(ctx, access.Token, access, access.ExpiresAt); err != nil {
		return nil, as.serverError("[AuthorizationService.issue] storing access token", err)
	}
	if refresh != nil {
		if err := as.stores.Refresh.Put(ctx, refresh.Token, refresh, refresh.ExpiresAt); err != nil {
			if _, rmErr := as.stores.Access.Remove(ctx, access.Token); rmErr != nil {
				log.Err(rmErr).Str("client_id", client.ID).Msg("failed to remove unpaired access token")
			}
			return nil, as.serverError("[AuthorizationService.issue] storing refresh token", err)
		}
	}

	log.Info().
		Str("client_id", client.ID).
		Str("user_id", userID).
		Str("scope", scope).
		Bool("refresh", refresh != nil).
		Msg("tokens issued")

	resp := &oauth2.TokenResponse{
		AccessToken: access.Token,
		TokenType:   bearerTokenType,
		ExpiresIn:   int(accessTTL.Seconds()),
		Scope:       scope,
	}
	if refresh != nil {
		resp.RefreshToken = utils.Ptr(refresh.Token)
	}
	return resp, nil
}

// serverError logs a store or generator failure and hides it from the client.
func (as *AuthorizationService) serverError(op string, err error) *oauthmodel.GrantError {
	err = errors.Wrap(err, op)
	log.Err(err).Msg("grant engine failure")
	return oauthmodel.ServerError(err)
}
