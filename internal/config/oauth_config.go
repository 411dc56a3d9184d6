package config

import "time"

const (
	authCodeTTLVar       = "AUTH_CODE_TTL"
	accessTokenTTLVar    = "ACCESS_TOKEN_TTL"
	refreshTokenTTLVar   = "REFRESH_TOKEN_TTL"
	tokenFormatVar       = "TOKEN_FORMAT"
	jwtSecretVar         = "JWT_SECRET"
	clientsFileVar       = "CLIENTS_FILE"
	sleepClientSecretVar = "SLEEP_CLIENT_SECRET"
	sleepRedirectURIVar  = "SLEEP_REDIRECT_URI"

	TokenFormatOpaque = "opaque"
	TokenFormatJWT    = "jwt"
)

type OAuthConfig interface {
	GetAuthCodeTTL() time.Duration
	GetCodeGenerationLength() int
	GetRefreshTokenLength() int
	GetDefaultAccessTokenTTL() time.Duration
	GetDefaultRefreshTokenTTL() time.Duration
	GetTokenFormat() string
	GetJWTSecret() string
	GetClientsFile() string
	GetSleepClientSecret() string
	GetSleepRedirectURI() string
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

func (OAuth) GetAuthCodeTTL() time.Duration {
	ttl, _ := envDuration(authCodeTTLVar, 5*time.Minute)
	return ttl
}

func (OAuth) GetCodeGenerationLength() int {
	return 32
}

func (OAuth) GetRefreshTokenLength() int {
	return 32 // 32 bytes = 256 bits
}

func (OAuth) GetDefaultAccessTokenTTL() time.Duration {
	ttl, _ := envDuration(accessTokenTTLVar, time.Hour)
	return ttl
}

func (OAuth) GetDefaultRefreshTokenTTL() time.Duration {
	ttl, _ := envDuration(refreshTokenTTLVar, 14*24*time.Hour)
	return ttl
}

// GetTokenFormat selects how access tokens are minted: random opaque strings or HMAC-signed JWTs.
func (OAuth) GetTokenFormat() string {
	return GetEnv(tokenFormatVar, TokenFormatOpaque)
}

func (OAuth) GetJWTSecret() string {
	return GetEnv(jwtSecretVar, "")
}

// GetClientsFile returns an optional YAML file that replaces the built-in client set.
func (OAuth) GetClientsFile() string {
	return GetEnv(clientsFileVar, "")
}

func (OAuth) GetSleepClientSecret() string {
	return GetEnv(sleepClientSecretVar, "nyanyanyan")
}

func (OAuth) GetSleepRedirectURI() string {
	return GetEnv(sleepRedirectURIVar, "http://localhost/sleep/api/login")
}
