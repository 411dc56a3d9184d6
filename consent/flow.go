package consent

import (
	"context"
	"net/url"
	"time"

	"github.com/jrsteele09/incal-auth/auth"
	"github.com/jrsteele09/incal-auth/clients"
	"github.com/jrsteele09/incal-auth/oauthmodel"
	"github.com/jrsteele09/incal-auth/sessions"
	"github.com/jrsteele09/incal-auth/token"
	"github.com/jrsteele09/incal-auth/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	// ErrMissingParameter and ErrInvalidRequest map to 400.
	ErrMissingParameter = errors.New("missing required parameter")
	ErrInvalidRequest   = errors.New("invalid authorization request")
	// ErrUnknownClient maps to 401 and reads the same as a failed client secret.
	ErrUnknownClient = errors.New("invalid client")
)

// CodeIssuer creates authorization codes once consent is given.
type CodeIssuer interface {
	IssueCode(ctx context.Context, req auth.CodeRequest) (*token.AuthorizationCode, error)
}

// Authenticator checks user credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*users.User, error)
}

// Flow drives login, consent and code issuance for the authorize endpoint.
// All per-user state lives in the ConsentSession passed to each call.
type Flow struct {
	clients  *clients.Registry
	codes    CodeIssuer
	users    Authenticator
	sessions sessions.Repo
	csrfTTL  time.Duration
	nowTime  func() time.Time
}

type FlowOption func(*Flow)

func WithNowTime(now func() time.Time) FlowOption {
	return func(f *Flow) {
		f.nowTime = now
	}
}

// WithCSRFTTL sets how long a rendered consent view stays answerable.
func WithCSRFTTL(ttl time.Duration) FlowOption {
	return func(f *Flow) {
		f.csrfTTL = ttl
	}
}

func NewFlow(registry *clients.Registry, codes CodeIssuer, authenticator Authenticator, repo sessions.Repo, opts ...FlowOption) (*Flow, error) {
	if registry == nil || codes == nil || authenticator == nil || repo == nil {
		return nil, errors.New("[consent.NewFlow] registry, code issuer, authenticator and session repo are required")
	}
	f := &Flow{
		clients:  registry,
		codes:    codes,
		users:    authenticator,
		sessions: repo,
		csrfTTL:  2 * time.Minute,
		nowTime:  time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Session loads the session with id, or creates and stores a new one when id
// is empty, unknown or expired. created reports the latter.
func (f *Flow) Session(ctx context.Context, id string) (session *sessions.ConsentSession, created bool, err error) {
	if id != "" {
		session, err = f.sessions.Get(ctx, id)
		if err == nil {
			return session, false, nil
		}
		if !errors.Is(err, sessions.ErrNotFound) {
			return nil, false, errors.Wrap(err, "[Flow.Session] get")
		}
	}
	session = sessions.New(f.nowTime())
	if err := f.sessions.Save(ctx, session); err != nil {
		return nil, false, errors.Wrap(err, "[Flow.Session] save")
	}
	return session, true, nil
}

// AuthorizeRequest is one hit on the authorize endpoint.
type AuthorizeRequest struct {
	Params oauthmodel.AuthorizationParameters
	URL    *url.URL // request URL, used for the login callback
}

// Validate checks the request parameters and the client without touching any
// session, so rejected requests leave no state behind.
func (f *Flow) Validate(req AuthorizeRequest) error {
	_, _, err := f.validate(req)
	return err
}

func (f *Flow) validate(req AuthorizeRequest) (*clients.Client, []string, error) {
	p := req.Params
	if p.ClientID == "" || p.Scope == "" {
		return nil, nil, ErrMissingParameter
	}
	if !p.ResponseTypeValid() {
		return nil, nil, errors.Wrap(ErrInvalidRequest, oauthmodel.ErrInvalidResponseType.Error())
	}

	client, err := f.clients.Lookup(p.ClientID)
	if err != nil {
		return nil, nil, ErrUnknownClient
	}
	if _, ok := client.ResolveRedirectURI(p.RedirectURI); !ok {
		return nil, nil, errors.Wrap(ErrInvalidRequest, oauthmodel.ErrInvalidRedirectUri.Error())
	}
	scopes := oauthmodel.ParseScopes(p.Scope)
	if err := client.ValidateScopes(scopes); err != nil {
		return nil, nil, errors.Wrap(ErrInvalidRequest, err.Error())
	}
	if !auth.ValidCodeChallenge(p.CodeChallenge, p.CodeChallengeMethod) {
		return nil, nil, errors.Wrap(ErrInvalidRequest, oauthmodel.ErrInvalidCodeChallenge.Error())
	}
	return client, scopes, nil
}

// Authorize runs one step of the consent state machine for session.
func (f *Flow) Authorize(ctx context.Context, req AuthorizeRequest, session *sessions.ConsentSession) (Outcome, error) {
	client, scopes, err := f.validate(req)
	if err != nil {
		return nil, err
	}
	p := req.Params

	if !session.Authenticated() {
		return OutcomeLogin{CallbackURI: EncodeCallback(req.URL)}, nil
	}

	if p.CSRFToken != "" {
		confirmed, err := f.sessions.ConsumeCSRF(ctx, session.ID, p.CSRFToken, f.nowTime())
		if err != nil {
			return nil, errors.Wrap(err, "[Flow.Authorize] consume csrf")
		}
		session.CSRF = nil
		if confirmed {
			return f.decide(ctx, req, client, session)
		}
	}
	return f.askConsent(ctx, req, client, session, scopes)
}

// decide applies a confirmed consent decision.
func (f *Flow) decide(ctx context.Context, req AuthorizeRequest, client *clients.Client, session *sessions.ConsentSession) (Outcome, error) {
	p := req.Params
	switch {
	case p.Deny:
		log.Info().Str("client_id", client.ID).Str("user_id", session.UserID).Msg("consent denied")
		return OutcomeDenied{ClientName: clientName(client), Email: session.Email}, nil
	case p.Logout:
		if err := f.Logout(ctx, session); err != nil {
			return nil, err
		}
		return OutcomeLogin{CallbackURI: EncodeCallback(req.URL)}, nil
	}

	code, err := f.codes.IssueCode(ctx, auth.CodeRequest{
		ClientID:            client.ID,
		UserID:              session.UserID,
		RedirectURI:         p.RedirectURI,
		Scope:               p.Scope,
		CodeChallenge:       p.CodeChallenge,
		CodeChallengeMethod: p.CodeChallengeMethod,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Flow.decide] issue code")
	}
	location, err := redirectLocation(code.RedirectURI, code.Code, p.State)
	if err != nil {
		return nil, err
	}
	return OutcomeRedirect{Location: location}, nil
}

// askConsent binds a fresh CSRF token to the session and renders consent.
func (f *Flow) askConsent(ctx context.Context, req AuthorizeRequest, client *clients.Client, session *sessions.ConsentSession, scopes []string) (Outcome, error) {
	csrf, err := sessions.NewCSRFToken(f.nowTime(), f.csrfTTL)
	if err != nil {
		return nil, errors.Wrap(err, "[Flow.askConsent] csrf token")
	}
	session.CSRF = csrf
	if err := f.sessions.Save(ctx, session); err != nil {
		return nil, errors.Wrap(err, "[Flow.askConsent] save session")
	}

	labels := make([]string, 0, len(scopes))
	for _, s := range scopes {
		labels = append(labels, oauthmodel.ScopeLabel(s))
	}
	return OutcomeConsent{
		CSRFToken:  csrf.Token,
		ClientName: clientName(client),
		Email:      session.Email,
		Scopes:     labels,
		Params:     StripActions(req.URL.Query()),
	}, nil
}

// Login authenticates the user on session and returns the decoded callback to
// continue at. Bad credentials return users.ErrInvalidCredentials.
func (f *Flow) Login(ctx context.Context, session *sessions.ConsentSession, email, password, callbackURI string) (string, error) {
	callback, err := DecodeCallback(callbackURI)
	if err != nil {
		return "", err
	}
	user, err := f.users.Authenticate(ctx, email, password)
	if err != nil {
		return "", err
	}
	session.SetUser(user.ID, user.Email)
	if err := f.sessions.Save(ctx, session); err != nil {
		return "", errors.Wrap(err, "[Flow.Login] save session")
	}
	log.Info().Str("user_id", user.ID).Msg("user logged in")
	return callback, nil
}

// Logout clears the session user.
func (f *Flow) Logout(ctx context.Context, session *sessions.ConsentSession) error {
	session.ClearUser()
	if err := f.sessions.Save(ctx, session); err != nil {
		return errors.Wrap(err, "[Flow.Logout] save session")
	}
	return nil
}

func redirectLocation(redirectURI, code, state string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", errors.Wrap(err, "[consent.redirectLocation]")
	}
	q := u.Query()
	q.Set("code", code)
	if state != "" {
		q.Set(oauthmodel.ParamState, state)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func clientName(c *clients.Client) string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}
