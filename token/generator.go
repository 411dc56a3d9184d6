package token

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"time"

	"github.com/pkg/errors"
)

// AccessTokenGenerator mints the string value of a new access token.
type AccessTokenGenerator interface {
	GenerateAccessToken(clientID, userID, scope string, issuedAt, expiresAt time.Time) (string, error)
}

// OpaqueGenerator produces random access tokens that carry no claims.
type OpaqueGenerator struct {
	Length int // bytes of entropy
}

var _ AccessTokenGenerator = OpaqueGenerator{}

func (g OpaqueGenerator) GenerateAccessToken(_, _, _ string, _, _ time.Time) (string, error) {
	return RandomURLString(g.length())
}

func (g OpaqueGenerator) length() int {
	if g.Length <= 0 {
		return 32
	}
	return g.Length
}

// RandomURLString returns n random bytes, base64url encoded without padding.
// Used for authorization codes and opaque access tokens.
func RandomURLString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "[token.RandomURLString] rand.Read")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// RandomHexString returns n random bytes, hex encoded. Used for refresh tokens.
func RandomHexString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "[token.RandomHexString] rand.Read")
	}
	return hex.EncodeToString(b), nil
}
