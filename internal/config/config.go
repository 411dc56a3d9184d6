package config

import (
	"github.com/pkg/errors"
)

type Config interface {
	EnvConfig
	CorsConfig
	OAuthConfig
	SecurityConfig
	StorageConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetServerURI() string
	GetEnv() string
	GetLogLevel() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	OAuth
	Security
	Storage
}

func New() Config {
	return mainConfig{}
}

// Load reads envFile into the process environment (when it exists) and
// checks that every numeric and duration variable parses.
func Load(envFile string) (Config, error) {
	loadDotEnv(envFile)
	if err := validate(); err != nil {
		return nil, errors.Wrap(err, "[config.Load]")
	}
	return New(), nil
}

func validate() error {
	if _, err := envInt(saltRoundsVar, defaultSaltRounds); err != nil {
		return err
	}
	for _, v := range []string{csrfTTLVar, authCodeTTLVar, accessTokenTTLVar, refreshTokenTTLVar} {
		if _, err := envDuration(v, 0); err != nil {
			return err
		}
	}
	switch tokenFormat := (OAuth{}).GetTokenFormat(); tokenFormat {
	case TokenFormatOpaque:
	case TokenFormatJWT:
		if (OAuth{}).GetJWTSecret() == "" {
			return errors.Errorf("%s is required when %s=%s", jwtSecretVar, tokenFormatVar, TokenFormatJWT)
		}
	default:
		return errors.Errorf("unknown %s %q", tokenFormatVar, tokenFormat)
	}
	switch backend := (Storage{}).GetTokenStore(); backend {
	case TokenStoreMemory:
	case TokenStoreRedis:
		if (Storage{}).GetRedisURL() == "" {
			return errors.Errorf("%s is required when %s=%s", redisURLVar, tokenStoreVar, TokenStoreRedis)
		}
	default:
		return errors.Errorf("unknown %s %q", tokenStoreVar, backend)
	}
	return nil
}
