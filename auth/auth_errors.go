package auth

import "github.com/jrsteele09/incal-auth/oauthmodel"

// errInvalidClient is shared by unknown clients and bad secrets so the two cannot be told apart.
func errInvalidClient() *oauthmodel.GrantError {
	return oauthmodel.NewGrantError(oauthmodel.ErrorInvalidClient, "client authentication failed")
}

func errInvalidGrant(description string) *oauthmodel.GrantError {
	return oauthmodel.NewGrantError(oauthmodel.ErrorInvalidGrant, description)
}

func errInvalidScope(description string) *oauthmodel.GrantError {
	return oauthmodel.NewGrantError(oauthmodel.ErrorInvalidScope, description)
}

func errInvalidRequest(description string) *oauthmodel.GrantError {
	return oauthmodel.NewGrantError(oauthmodel.ErrorInvalidRequest, description)
}
