package server_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"html"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/jrsteele09/incal-auth/auth"
	"github.com/jrsteele09/incal-auth/clients"
	"github.com/jrsteele09/incal-auth/clients/staticrepo"
	"github.com/jrsteele09/incal-auth/consent"
	"github.com/jrsteele09/incal-auth/internal/config"
	"github.com/jrsteele09/incal-auth/oauth2"
	"github.com/jrsteele09/incal-auth/oauthmodel"
	"github.com/jrsteele09/incal-auth/rp"
	"github.com/jrsteele09/incal-auth/server"
	"github.com/jrsteele09/incal-auth/sessions"
	"github.com/jrsteele09/incal-auth/token/memstore"
	"github.com/jrsteele09/incal-auth/users"
	"github.com/jrsteele09/incal-auth/users/memrepo"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testClientID      = "dashboard"
	testRedirectURI   = "http://localhost:3000/callback"
	testState         = "xyz-state"
	testEmail         = "alice@example.com"
	testPassword      = "wonderland"
	testCodeChallenge = "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"
	testCodeVerifier  = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	testOrigin        = "http://localhost:3000"
)

var (
	callbackInput = regexp.MustCompile(`name="callback_uri" value="([^"]*)"`)
	csrfInput     = regexp.MustCompile(`name="csrfToken" value="([^"]*)"`)
)

// testFixture holds a running server and a browser-like client
type testFixture struct {
	baseURL  string
	browser  *http.Client
	users    *users.Service
	sessions *sessions.InMemoryRepo
	userID   string
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	ts := httptest.NewUnstartedServer(nil)
	baseURL := "http://" + ts.Listener.Addr().String()
	t.Setenv("ENV", "TEST")
	t.Setenv("SERVER_URI", baseURL)
	t.Setenv("ALLOWED_ORIGINS", testOrigin)
	cfg := config.New()

	repo, err := staticrepo.New(&clients.Client{
		ID:            testClientID,
		Name:          "Dashboard",
		Type:          clients.ClientTypePublic,
		AllowedGrants: []oauthmodel.GrantType{oauthmodel.AuthorizationCodeGrant, oauthmodel.RefreshTokenGrant},
		RedirectURIs:  []string{testRedirectURI},
		Scopes:        []string{oauthmodel.ScopeUserInfoRead, oauthmodel.ScopeUserInfoWrite},
	})
	require.NoError(t, err)
	registry := clients.NewRegistry(repo)

	grants, err := auth.NewAuthorizationService(registry, memstore.NewStores())
	require.NoError(t, err)

	userRepo := memrepo.New()
	hasher, err := users.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)
	userService, err := users.NewService(userRepo, userRepo, hasher)
	require.NoError(t, err)
	alice, err := userService.Register(context.Background(), users.RegisterRequest{
		Email: testEmail, FirstName: "Alice", LastName: "Liddell", Password: testPassword,
	})
	require.NoError(t, err)

	sessionRepo := sessions.NewInMemoryRepo(cfg.GetMaxSessionAge())
	flow, err := consent.NewFlow(registry, grants, userService, sessionRepo)
	require.NoError(t, err)

	srv, err := server.New(cfg, grants, flow, userService)
	require.NoError(t, err)
	ts.Config.Handler = srv
	ts.Start()
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testFixture{
		baseURL: baseURL,
		browser: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		users:    userService,
		sessions: sessionRepo,
		userID:   alice.ID,
	}
}

func authorizeQuery() url.Values {
	return url.Values{
		oauthmodel.ParamResponseType:        {"code"},
		oauthmodel.ParamClientID:            {testClientID},
		oauthmodel.ParamState:               {testState},
		oauthmodel.ParamScope:               {oauthmodel.ScopeUserInfoRead},
		oauthmodel.ParamRedirectURI:         {testRedirectURI},
		oauthmodel.ParamCodeChallenge:       {testCodeChallenge},
		oauthmodel.ParamCodeChallengeMethod: {"S256"},
	}
}

func (f *testFixture) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := f.browser.Get(f.baseURL + path)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (f *testFixture) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := f.browser.PostForm(f.baseURL+path, form)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func hiddenValue(t *testing.T, re *regexp.Regexp, body string) string {
	t.Helper()
	m := re.FindStringSubmatch(body)
	require.Len(t, m, 2, "hidden input %s not found", re)
	return html.UnescapeString(m[1])
}

// login walks the login view for q and returns the path the server sends the browser back to.
func (f *testFixture) login(t *testing.T, q url.Values) string {
	t.Helper()
	resp, body := f.get(t, server.RouteOAuthAuthorize+"?"+q.Encode())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	callback := hiddenValue(t, callbackInput, body)

	resp, _ = f.post(t, server.RouteOAuthLogin, url.Values{
		"callback_uri": {callback},
		"email":        {testEmail},
		"password":     {testPassword},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	return resp.Header.Get("Location")
}

// consent logs in and returns the CSRF token of the rendered consent view.
func (f *testFixture) consent(t *testing.T, q url.Values) string {
	t.Helper()
	location := f.login(t, q)
	resp, body := f.get(t, location)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Read your user information")
	return hiddenValue(t, csrfInput, body)
}

// authorizeCode completes consent with agree and returns the code from the redirect.
func (f *testFixture) authorizeCode(t *testing.T) string {
	t.Helper()
	q := authorizeQuery()
	csrf := f.consent(t, q)
	q.Set(oauthmodel.ParamCSRFToken, csrf)
	q.Set(oauthmodel.ParamAgree, "1")

	resp, _ := f.get(t, server.RouteOAuthAuthorize+"?"+q.Encode())
	require.Equal(t, http.StatusFound, resp.StatusCode)
	redirect, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "localhost:3000", redirect.Host)
	require.Equal(t, "/callback", redirect.Path)
	require.Equal(t, testState, redirect.Query().Get("state"))
	code := redirect.Query().Get("code")
	require.NotEmpty(t, code)
	return code
}

func (f *testFixture) tokenRequest(t *testing.T, form url.Values) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.PostForm(f.baseURL+server.RouteOAuthToken, form)
	require.NoError(t, err)
	return resp, []byte(readBody(t, resp))
}

func (f *testFixture) exchange(t *testing.T, code string) oauth2.TokenResponse {
	t.Helper()
	resp, body := f.tokenRequest(t, url.Values{
		"grant_type":    {string(oauthmodel.AuthorizationCodeGrant)},
		"client_id":     {testClientID},
		"code":          {code},
		"redirect_uri":  {testRedirectURI},
		"code_verifier": {testCodeVerifier},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	var tok oauth2.TokenResponse
	require.NoError(t, json.Unmarshal(body, &tok))
	return tok
}

func (f *testFixture) apiGet(t *testing.T, path, accessToken string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.baseURL+path, nil)
	require.NoError(t, err)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func requireOAuthError(t *testing.T, body []byte, code oauthmodel.ErrorCode) {
	t.Helper()
	var e oauth2.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	require.Equal(t, string(code), e.Error)
}

func TestAuthorizationCodeFlow(t *testing.T) {
	f := setupTestFixture(t)

	code := f.authorizeCode(t)
	tok := f.exchange(t, code)
	require.Equal(t, "Bearer", tok.TokenType)
	require.Equal(t, oauthmodel.ScopeUserInfoRead, tok.Scope)
	require.NotEmpty(t, tok.AccessToken)
	require.NotNil(t, tok.RefreshToken)
	require.Positive(t, tok.ExpiresIn)

	resp, body := f.apiGet(t, server.RouteAPIUser, tok.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var user users.User
	require.NoError(t, json.Unmarshal([]byte(body), &user))
	require.Equal(t, f.userID, user.ID)
	require.Equal(t, testEmail, user.Email)
	require.NotContains(t, body, "$2a$")

	t.Run("code is single use", func(t *testing.T) {
		resp, body := f.tokenRequest(t, url.Values{
			"grant_type":    {string(oauthmodel.AuthorizationCodeGrant)},
			"client_id":     {testClientID},
			"code":          {code},
			"redirect_uri":  {testRedirectURI},
			"code_verifier": {testCodeVerifier},
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		requireOAuthError(t, body, oauthmodel.ErrorInvalidGrant)
	})
}

func TestAuthorizationCodeFlow_Denied(t *testing.T) {
	f := setupTestFixture(t)

	q := authorizeQuery()
	csrf := f.consent(t, q)
	q.Set(oauthmodel.ParamCSRFToken, csrf)
	q.Set(oauthmodel.ParamDeny, "1")

	resp, body := f.get(t, server.RouteOAuthAuthorize+"?"+q.Encode())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, resp.Header.Get("Location"))
	require.Contains(t, body, "did not allow")
	require.NotContains(t, body, "code=")
}

func TestRefreshRotation(t *testing.T) {
	f := setupTestFixture(t)
	tok := f.exchange(t, f.authorizeCode(t))
	oldRefresh := *tok.RefreshToken

	refreshForm := func(refresh string) url.Values {
		return url.Values{
			"grant_type":    {string(oauthmodel.RefreshTokenGrant)},
			"client_id":     {testClientID},
			"refresh_token": {refresh},
		}
	}

	resp, body := f.tokenRequest(t, refreshForm(oldRefresh))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var rotated oauth2.TokenResponse
	require.NoError(t, json.Unmarshal(body, &rotated))
	require.NotNil(t, rotated.RefreshToken)
	require.NotEqual(t, oldRefresh, *rotated.RefreshToken)
	require.NotEqual(t, tok.AccessToken, rotated.AccessToken)

	resp, body = f.tokenRequest(t, refreshForm(oldRefresh))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	requireOAuthError(t, body, oauthmodel.ErrorInvalidGrant)
	require.NotContains(t, string(body), "access_token")
}

func TestAuthorize_Rejections(t *testing.T) {
	f := setupTestFixture(t)

	tests := []struct {
		name   string
		mutate func(url.Values)
		status int
	}{
		{"missing client_id", func(q url.Values) { q.Del(oauthmodel.ParamClientID) }, http.StatusBadRequest},
		{"missing scope", func(q url.Values) { q.Del(oauthmodel.ParamScope) }, http.StatusBadRequest},
		{"unknown client", func(q url.Values) { q.Set(oauthmodel.ParamClientID, "nope") }, http.StatusUnauthorized},
		{"unregistered redirect", func(q url.Values) { q.Set(oauthmodel.ParamRedirectURI, "http://evil.example/cb") }, http.StatusBadRequest},
		{"missing challenge", func(q url.Values) { q.Del(oauthmodel.ParamCodeChallenge) }, http.StatusBadRequest},
		{"unsupported response type", func(q url.Values) { q.Set(oauthmodel.ParamResponseType, "token") }, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := authorizeQuery()
			tt.mutate(q)
			resp, body := f.get(t, server.RouteOAuthAuthorize+"?"+q.Encode())
			require.Equal(t, tt.status, resp.StatusCode)
			require.Empty(t, resp.Header.Get("Location"))
			require.NotContains(t, body, "callback_uri")
			require.Empty(t, resp.Header.Values("Set-Cookie"), "a rejected request must not start a session")
		})
	}
	require.Equal(t, 0, f.sessions.Len())

	resp, _ := f.get(t, server.RouteOAuthAuthorize+"?"+authorizeQuery().Encode())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Values("Set-Cookie"))
	require.Equal(t, 1, f.sessions.Len())
}

func TestAuthorize_LoginCallbackStripsActions(t *testing.T) {
	f := setupTestFixture(t)

	q := authorizeQuery()
	q.Set(oauthmodel.ParamAgree, "1")
	q.Set(oauthmodel.ParamCSRFToken, "csrf-forged")
	resp, body := f.get(t, server.RouteOAuthAuthorize+"?"+q.Encode())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("Set-Cookie"))

	callback, err := consent.DecodeCallback(hiddenValue(t, callbackInput, body))
	require.NoError(t, err)
	u, err := url.Parse(callback)
	require.NoError(t, err)
	require.Equal(t, server.RouteOAuthAuthorize, u.Path)
	require.Equal(t, testClientID, u.Query().Get(oauthmodel.ParamClientID))
	require.Empty(t, u.Query().Get(oauthmodel.ParamAgree))
	require.Empty(t, u.Query().Get(oauthmodel.ParamCSRFToken))
}

func TestAuthorize_StaleCSRFReRendersConsent(t *testing.T) {
	f := setupTestFixture(t)

	q := authorizeQuery()
	first := f.consent(t, q)
	q.Set(oauthmodel.ParamCSRFToken, "csrf-mismatched")
	q.Set(oauthmodel.ParamAgree, "1")

	resp, body := f.get(t, server.RouteOAuthAuthorize+"?"+q.Encode())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, resp.Header.Get("Location"))
	second := hiddenValue(t, csrfInput, body)
	require.NotEqual(t, first, second)

	// The first token was burned by the mismatched attempt.
	q.Set(oauthmodel.ParamCSRFToken, first)
	resp, _ = f.get(t, server.RouteOAuthAuthorize+"?"+q.Encode())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, resp.Header.Get("Location"))
}

func TestAuthorize_LogoutReturnsToLogin(t *testing.T) {
	f := setupTestFixture(t)

	q := authorizeQuery()
	csrf := f.consent(t, q)
	q.Set(oauthmodel.ParamCSRFToken, csrf)
	q.Set(oauthmodel.ParamLogout, "1")

	resp, body := f.get(t, server.RouteOAuthAuthorize+"?"+q.Encode())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `name="callback_uri"`)

	// The session no longer has a user, so the plain request asks for login again.
	resp, body = f.get(t, server.RouteOAuthAuthorize+"?"+authorizeQuery().Encode())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `name="callback_uri"`)
	require.NotContains(t, body, `name="csrfToken"`)
}

func TestLogin(t *testing.T) {
	f := setupTestFixture(t)
	callback := consent.EncodeCallback(&url.URL{Path: server.RouteOAuthAuthorize, RawQuery: authorizeQuery().Encode()})

	t.Run("wrong password re-renders login with the callback", func(t *testing.T) {
		resp, body := f.post(t, server.RouteOAuthLogin, url.Values{
			"callback_uri": {callback},
			"email":        {testEmail},
			"password":     {"wrong"},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, body, "Invalid username or password")
		require.Equal(t, callback, hiddenValue(t, callbackInput, body))
	})

	t.Run("missing fields", func(t *testing.T) {
		resp, _ := f.post(t, server.RouteOAuthLogin, url.Values{"email": {testEmail}, "password": {testPassword}})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("off-site callback", func(t *testing.T) {
		resp, _ := f.post(t, server.RouteOAuthLogin, url.Values{
			"callback_uri": {base64.StdEncoding.EncodeToString([]byte("https://evil.example/"))},
			"email":        {testEmail},
			"password":     {testPassword},
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Empty(t, resp.Header.Get("Location"))
	})

	t.Run("success redirects to the callback", func(t *testing.T) {
		resp, _ := f.post(t, server.RouteOAuthLogin, url.Values{
			"callback_uri": {callback},
			"email":        {testEmail},
			"password":     {testPassword},
		})
		require.Equal(t, http.StatusFound, resp.StatusCode)
		require.True(t, strings.HasPrefix(resp.Header.Get("Location"), server.RouteOAuthAuthorize+"?"))
	})
}

func TestRegister(t *testing.T) {
	f := setupTestFixture(t)
	callback := consent.EncodeCallback(&url.URL{Path: "/"})

	form := url.Values{
		"callback_uri": {callback},
		"email":        {"Bob@Example.com"},
		"firstname":    {"Bob"},
		"lastname":     {"Builder"},
		"password":     {"canwefixit"},
	}
	resp, body := f.post(t, server.RouteOAuthRegister, form)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, callback, hiddenValue(t, callbackInput, body))
	require.Contains(t, body, "bob@example.com")

	bob, err := f.users.Authenticate(context.Background(), "bob@example.com", "canwefixit")
	require.NoError(t, err)
	require.False(t, bob.IsAnchor, "only the first member is an anchor")

	t.Run("email already in use", func(t *testing.T) {
		resp, body := f.post(t, server.RouteOAuthRegister, form)
		require.Equal(t, http.StatusGone, resp.StatusCode)
		require.Contains(t, body, "Email already in use")
	})

	t.Run("missing fields", func(t *testing.T) {
		missing := url.Values{"callback_uri": {callback}, "email": {"carol@example.com"}}
		resp, _ := f.post(t, server.RouteOAuthRegister, missing)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp, _ = f.post(t, server.RouteOAuthRegister, url.Values{"email": {"carol@example.com"}})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestInvite(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	invite, err := f.users.CreateInvite(ctx, testEmail, "dave@example.com")
	require.NoError(t, err)

	t.Run("unknown slug", func(t *testing.T) {
		resp, _ := f.get(t, server.RouteOAuthInvite+"?slug=unknown")
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("renders the invite", func(t *testing.T) {
		resp, body := f.get(t, server.RouteOAuthInvite+"?slug="+invite.Slug)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, body, "Alice Liddell")
		require.Contains(t, body, "dave@example.com")
	})

	accept := url.Values{
		"slug":      {invite.Slug},
		"email":     {"dave@example.com"},
		"firstname": {"Dave"},
		"lastname":  {"Lister"},
		"password":  {"smeghead"},
		"confirm":   {"smeghead"},
	}

	t.Run("password mismatch", func(t *testing.T) {
		bad := url.Values{}
		for k, v := range accept {
			bad[k] = v
		}
		bad.Set("confirm", "different")
		resp, body := f.post(t, server.RouteOAuthInvite, bad)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Contains(t, body, "passwords do not match")
	})

	t.Run("wrong email", func(t *testing.T) {
		bad := url.Values{}
		for k, v := range accept {
			bad[k] = v
		}
		bad.Set("email", "eve@example.com")
		resp, body := f.post(t, server.RouteOAuthInvite, bad)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Contains(t, body, "invalid invite")
	})

	t.Run("accept", func(t *testing.T) {
		resp, body := f.post(t, server.RouteOAuthInvite, accept)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, body, `name="callback_uri"`)

		_, err := f.users.Authenticate(ctx, "dave@example.com", "smeghead")
		require.NoError(t, err)

		resp, _ = f.get(t, server.RouteOAuthInvite+"?slug="+invite.Slug)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestAPIUser_RequiresBearer(t *testing.T) {
	f := setupTestFixture(t)

	resp, _ := f.apiGet(t, server.RouteAPIUser, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := f.apiGet(t, server.RouteAPIUser, "not-a-token")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, resp.Header.Get("WWW-Authenticate"), "invalid_token")
	requireOAuthError(t, []byte(body), "invalid_token")
}

func TestAPIUser_InsufficientScope(t *testing.T) {
	f := setupTestFixture(t)

	q := authorizeQuery()
	q.Set(oauthmodel.ParamScope, oauthmodel.ScopeUserInfoWrite)
	location := f.login(t, q)
	resp, body := f.get(t, location)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	q.Set(oauthmodel.ParamCSRFToken, hiddenValue(t, csrfInput, body))
	q.Set(oauthmodel.ParamAgree, "1")
	resp, _ = f.get(t, server.RouteOAuthAuthorize+"?"+q.Encode())
	require.Equal(t, http.StatusFound, resp.StatusCode)
	redirect, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)

	tok := f.exchange(t, redirect.Query().Get("code"))
	require.Equal(t, oauthmodel.ScopeUserInfoWrite, tok.Scope)

	resp, _ = f.apiGet(t, server.RouteAPIUser, tok.AccessToken)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Contains(t, resp.Header.Get("WWW-Authenticate"), "insufficient_scope")
}

func TestRevoke(t *testing.T) {
	f := setupTestFixture(t)
	tok := f.exchange(t, f.authorizeCode(t))

	resp, err := http.PostForm(f.baseURL+server.RouteOAuthRevoke, url.Values{
		"client_id": {testClientID},
		"token":     {tok.AccessToken},
	})
	require.NoError(t, err)
	readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = f.apiGet(t, server.RouteAPIUser, tok.AccessToken)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := f.tokenRequest(t, url.Values{
		"grant_type":    {string(oauthmodel.RefreshTokenGrant)},
		"client_id":     {"nope"},
		"refresh_token": {*tok.RefreshToken},
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	requireOAuthError(t, body, oauthmodel.ErrorInvalidClient)
}

func TestTokenEndpoint_Errors(t *testing.T) {
	f := setupTestFixture(t)

	resp, body := f.tokenRequest(t, url.Values{"grant_type": {"password"}, "client_id": {testClientID}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	requireOAuthError(t, body, oauthmodel.ErrorUnsupportedGrantType)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	resp, body = f.tokenRequest(t, url.Values{
		"grant_type":    {string(oauthmodel.AuthorizationCodeGrant)},
		"client_id":     {testClientID},
		"code":          {f.authorizeCode(t)},
		"redirect_uri":  {testRedirectURI},
		"code_verifier": {"wrong-verifier-wrong-verifier-wrong-verifier"},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	requireOAuthError(t, body, oauthmodel.ErrorInvalidGrant)
}

func TestCreateInvite(t *testing.T) {
	f := setupTestFixture(t)

	q := authorizeQuery()
	q.Set(oauthmodel.ParamScope, oauthmodel.ScopeUserInfoRead+","+oauthmodel.ScopeUserInfoWrite)
	location := f.login(t, q)
	resp, body := f.get(t, location)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	q.Set(oauthmodel.ParamCSRFToken, hiddenValue(t, csrfInput, body))
	q.Set(oauthmodel.ParamAgree, "1")
	resp, _ = f.get(t, server.RouteOAuthAuthorize+"?"+q.Encode())
	require.Equal(t, http.StatusFound, resp.StatusCode)
	redirect, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	tok := f.exchange(t, redirect.Query().Get("code"))

	post := func(payload string) (*http.Response, string) {
		req, err := http.NewRequest(http.MethodPost, f.baseURL+server.RouteAPIUserInvites, strings.NewReader(payload))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp, readBody(t, resp)
	}

	resp, body = post(`{"email":"frank@example.com"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	var created struct {
		Slug string `json:"slug"`
		URL  string `json:"url"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &created))
	require.Equal(t, f.baseURL+server.RouteOAuthInvite+"?slug="+created.Slug, created.URL)

	resp, _ = post(`{"email":"alice@example.com"}`)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = post(`not json`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	f := setupTestFixture(t)

	req, err := http.NewRequest(http.MethodOptions, f.baseURL+server.RouteOAuthToken, nil)
	require.NoError(t, err)
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	readBody(t, resp)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, testOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
	require.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)

	req.Header.Set("Origin", "http://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	readBody(t, resp)
	require.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestDiscovery(t *testing.T) {
	f := setupTestFixture(t)

	endpoint, err := rp.Discover(context.Background(), f.baseURL, nil)
	require.NoError(t, err)
	require.Equal(t, f.baseURL+server.RouteOAuthAuthorize, endpoint.AuthURL)
	require.Equal(t, f.baseURL+server.RouteOAuthToken, endpoint.TokenURL)

	resp, body := f.get(t, server.RouteWellKnownJWKS)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"keys":[]}`, body)
}

// TestRelyingPartyAgainstServer drives the relying-party client through a full
// login against the running server, with the browser steps done by hand.
func TestRelyingPartyAgainstServer(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	endpoint, err := rp.Discover(ctx, f.baseURL, nil)
	require.NoError(t, err)
	client, err := rp.New(rp.Config{
		ClientID:    testClientID,
		RedirectURL: testRedirectURI,
		Scopes:      []string{oauthmodel.ScopeUserInfoRead},
		Endpoint:    endpoint,
		APIBaseURL:  f.baseURL,
	})
	require.NoError(t, err)

	attempt, err := client.Begin()
	require.NoError(t, err)
	authURL, err := url.Parse(attempt.URL)
	require.NoError(t, err)
	q := authURL.Query()

	location := f.login(t, q)
	resp, body := f.get(t, location)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	q.Set(oauthmodel.ParamCSRFToken, hiddenValue(t, csrfInput, body))
	q.Set(oauthmodel.ParamAgree, "1")
	resp, _ = f.get(t, server.RouteOAuthAuthorize+"?"+q.Encode())
	require.Equal(t, http.StatusFound, resp.StatusCode)
	redirect, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)

	bundle, err := client.Complete(ctx, attempt, redirect.Query().Get("state"), redirect.Query().Get("code"))
	require.NoError(t, err)
	require.NotEmpty(t, bundle.RefreshToken)

	result, err := client.Get(ctx, server.RouteAPIUser)
	require.NoError(t, err)
	require.Equal(t, rp.StatusSuccess, result.Status)
	var user users.User
	require.NoError(t, result.Decode(&user))
	require.Equal(t, testEmail, user.Email)

	refreshed, err := client.Refresh(ctx)
	require.NoError(t, err)
	require.NotEqual(t, bundle.RefreshToken, refreshed.RefreshToken)
}
