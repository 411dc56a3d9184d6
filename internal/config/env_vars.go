package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	portEnvVar    = "PORT"
	appNameVar    = "COMMUNITY_NAME"
	serverURIVar  = "SERVER_URI"
	logLevelVar   = "LOG_LEVEL"
	envFileEnvVar = "ENV_FILE_PATH"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

// GetAppName returns the community name shown on the login and consent views.
func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "INCAL")
}

// GetServerURI returns the public base URI of the authorization server
// (e.g. "https://incal.example.com"). Login, register and discovery links are built from it.
func (EnvVars) GetServerURI() string {
	return strings.TrimSuffix(GetEnv(serverURIVar, "http://localhost:8080"), "/")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func loadDotEnv(envFile string) {
	if override := os.Getenv(envFileEnvVar); override != "" {
		envFile = override
	}
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Debug().Str("file", envFile).Msg("no env file loaded, using process environment")
	}
}

func envInt(envVar string, fallback int) (int, error) {
	value := os.Getenv(envVar)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback, errors.Wrapf(err, "non-numeric %s specified", envVar)
	}
	return parsed, nil
}

func envDuration(envVar string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(envVar)
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback, errors.Wrapf(err, "invalid duration in %s", envVar)
	}
	return parsed, nil
}
