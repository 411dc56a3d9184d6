package token

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrNotFound is returned for keys that were never stored, were removed, or have expired.
var ErrNotFound = errors.New("not found")

// Store is an expiring key-value store addressed by opaque token or code value.
// A value is retrievable strictly before its expiresAt; at or after it the key is gone.
type Store[T any] interface {
	Put(ctx context.Context, key string, value T, expiresAt time.Time) error
	Get(ctx context.Context, key string) (T, error)
	// Remove deletes key and reports whether an unexpired value was present.
	Remove(ctx context.Context, key string) (bool, error)
	// Take atomically returns and deletes the value. Of several concurrent
	// callers for the same key at most one receives the value.
	Take(ctx context.Context, key string) (T, error)
}

// Stores groups the three stores the grant engine works with.
type Stores struct {
	Codes   Store[*AuthorizationCode]
	Access  Store[*AccessToken]
	Refresh Store[*RefreshToken]
}

// Expired reports whether expiresAt has been reached at now.
func Expired(now, expiresAt time.Time) bool {
	return !now.Before(expiresAt)
}
