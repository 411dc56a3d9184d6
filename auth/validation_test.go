package auth_test

import (
	"strings"
	"testing"

	"github.com/jrsteele09/incal-auth/auth"
	"github.com/jrsteele09/incal-auth/oauthmodel"
	"github.com/stretchr/testify/require"
)

func TestS256Challenge(t *testing.T) {
	// RFC 7636 appendix B
	require.Equal(t, testCodeChallenge, auth.S256Challenge(testCodeVerifier))
}

func TestValidCodeChallenge(t *testing.T) {
	tests := []struct {
		name      string
		challenge string
		method    oauthmodel.CodeMethodType
		want      bool
	}{
		{"s256", testCodeChallenge, oauthmodel.CodeMethodTypeS256, true},
		{"s256 too long", testCodeChallenge + "A", oauthmodel.CodeMethodTypeS256, false},
		{"s256 padded", testCodeChallenge[:42] + "=", oauthmodel.CodeMethodTypeS256, false},
		{"plain", testCodeVerifier, oauthmodel.CodeMethodTypePlain, true},
		{"plain max", strings.Repeat("a", 128), oauthmodel.CodeMethodTypePlain, true},
		{"plain too long", strings.Repeat("a", 129), oauthmodel.CodeMethodTypePlain, false},
		{"plain bad chars", strings.Repeat("a", 42) + "/", oauthmodel.CodeMethodTypePlain, false},
		{"empty", "", oauthmodel.CodeMethodTypeS256, false},
		{"unknown method", testCodeChallenge, "none", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, auth.ValidCodeChallenge(tt.challenge, tt.method))
		})
	}
}

func TestVerifyCodeVerifier(t *testing.T) {
	require.True(t, auth.VerifyCodeVerifier(testCodeChallenge, oauthmodel.CodeMethodTypeS256, testCodeVerifier))
	require.False(t, auth.VerifyCodeVerifier(testCodeChallenge, oauthmodel.CodeMethodTypeS256, wrongCodeVerifier))
	require.False(t, auth.VerifyCodeVerifier(testCodeChallenge, oauthmodel.CodeMethodTypeS256, ""))
	require.False(t, auth.VerifyCodeVerifier(testCodeChallenge, oauthmodel.CodeMethodTypeS256, testCodeChallenge))

	require.True(t, auth.VerifyCodeVerifier(testCodeVerifier, oauthmodel.CodeMethodTypePlain, testCodeVerifier))
	require.False(t, auth.VerifyCodeVerifier(testCodeVerifier, oauthmodel.CodeMethodTypePlain, wrongCodeVerifier))
	require.False(t, auth.VerifyCodeVerifier(testCodeVerifier, "", testCodeVerifier))
}
