package config

const (
	tokenStoreVar  = "TOKEN_STORE"
	redisURLVar    = "REDIS_URL"
	databaseURLVar = "DATABASE_URL"

	TokenStoreMemory = "memory"
	TokenStoreRedis  = "redis"
)

type StorageConfig interface {
	GetTokenStore() string
	GetRedisURL() string
	GetDatabaseURL() string
}

type Storage struct{}

var _ StorageConfig = Storage{}

// GetTokenStore selects the backend of the code and token store.
// "memory" suits a single instance; "redis" is required when running several.
func (Storage) GetTokenStore() string {
	return GetEnv(tokenStoreVar, TokenStoreMemory)
}

func (Storage) GetRedisURL() string {
	return GetEnv(redisURLVar, "")
}

// GetDatabaseURL returns the Postgres DSN of the user store. Empty keeps users in memory.
func (Storage) GetDatabaseURL() string {
	return GetEnv(databaseURLVar, "")
}
