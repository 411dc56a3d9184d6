package config

import "time"

const (
	saltRoundsVar = "SALT_ROUNDS"
	csrfTTLVar    = "CSRF_TTL"

	defaultSaltRounds = 10
)

type SecurityConfig interface {
	GetSaltRounds() int
	GetCSRFTTL() time.Duration
	GetMaxSessionAge() time.Duration
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetSaltRounds returns the bcrypt work factor used when hashing passwords.
func (Security) GetSaltRounds() int {
	rounds, _ := envInt(saltRoundsVar, defaultSaltRounds)
	return rounds
}

func (Security) GetCSRFTTL() time.Duration {
	ttl, _ := envDuration(csrfTTLVar, 2*time.Minute)
	return ttl
}

func (Security) GetMaxSessionAge() time.Duration {
	return 24 * time.Hour
}
