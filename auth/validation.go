package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"github.com/jrsteele09/incal-auth/oauthmodel"
)

const (
	minVerifierLength = 43
	maxVerifierLength = 128
)

// S256Challenge returns BASE64URL(SHA256(verifier)) without padding.
func S256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// ValidCodeChallenge reports whether challenge is well formed for method.
// An S256 challenge is exactly 43 base64url characters; a plain challenge is a
// verifier of 43 to 128 unreserved characters.
func ValidCodeChallenge(challenge string, method oauthmodel.CodeMethodType) bool {
	switch method {
	case oauthmodel.CodeMethodTypeS256:
		return len(challenge) == minVerifierLength && unreserved(challenge)
	case oauthmodel.CodeMethodTypePlain:
		return len(challenge) >= minVerifierLength && len(challenge) <= maxVerifierLength && unreserved(challenge)
	}
	return false
}

// VerifyCodeVerifier checks a PKCE verifier against the challenge stored with a code.
func VerifyCodeVerifier(challenge string, method oauthmodel.CodeMethodType, verifier string) bool {
	if verifier == "" || challenge == "" {
		return false
	}
	var computed string
	switch method {
	case oauthmodel.CodeMethodTypeS256:
		computed = S256Challenge(verifier)
	case oauthmodel.CodeMethodTypePlain:
		computed = verifier
	default:
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
}

// unreserved reports whether s only uses the RFC 7636 verifier alphabet.
func unreserved(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case r == '-', r == '.', r == '_', r == '~':
		default:
			return false
		}
	}
	return true
}

// grantedScope narrows consented by requested. An empty request keeps the
// consented scope; a request that shares nothing with it is invalid_scope.
func grantedScope(consented, requested string) (string, error) {
	granted := oauthmodel.ParseScopes(consented)
	if requested != "" {
		granted = oauthmodel.IntersectScopes(oauthmodel.ParseScopes(requested), granted)
	}
	if len(granted) == 0 {
		return "", errInvalidScope("requested scope was not granted")
	}
	return oauthmodel.JoinScopes(granted), nil
}
