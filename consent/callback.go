package consent

import (
	"encoding/base64"
	"net/url"
	"strings"

	"github.com/jrsteele09/incal-auth/oauthmodel"
	"github.com/pkg/errors"
)

var ErrInvalidCallback = errors.New("invalid callback uri")

// actionParams never survive into a login callback, so logging in cannot
// replay a consent decision.
var actionParams = []string{
	oauthmodel.ParamDeny,
	oauthmodel.ParamAgree,
	oauthmodel.ParamLogout,
	oauthmodel.ParamCSRFToken,
}

// StripActions returns the query without consent decision parameters.
func StripActions(q url.Values) url.Values {
	stripped := make(url.Values, len(q))
	for k, v := range q {
		stripped[k] = v
	}
	for _, p := range actionParams {
		stripped.Del(p)
	}
	return stripped
}

// EncodeCallback turns the request URI of an authorize request into the
// base64 callback the login form carries.
func EncodeCallback(requestURI *url.URL) string {
	u := url.URL{Path: requestURI.Path, RawQuery: StripActions(requestURI.Query()).Encode()}
	return base64.StdEncoding.EncodeToString([]byte(u.String()))
}

// DecodeCallback reverses EncodeCallback. Only same-site paths are accepted.
func DecodeCallback(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", errors.Wrap(ErrInvalidCallback, err.Error())
	}
	callback := string(raw)
	if !strings.HasPrefix(callback, "/") || strings.HasPrefix(callback, "//") || strings.HasPrefix(callback, "/\\") {
		return "", ErrInvalidCallback
	}
	return callback, nil
}
