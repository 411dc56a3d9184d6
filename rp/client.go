package rp

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const defaultHTTPTimeout = 30 * time.Second

var (
	// ErrLoginRequired means there is no usable token bundle; start a new login.
	ErrLoginRequired = errors.New("login required")
	ErrStateMismatch = errors.New("state does not match the login attempt")
	ErrAttemptUsed   = errors.New("login attempt already completed")
)

// Config describes the relying party and the authorization server it talks to.
type Config struct {
	ClientID     string
	ClientSecret string // empty for public clients
	RedirectURL  string
	Scopes       []string
	Endpoint     oauth2.Endpoint
	APIBaseURL   string // base for relative paths passed to Get and Post
}

// Client acquires, stores and refreshes tokens for one relying party and
// attaches them to API calls.
type Client struct {
	oauth      *oauth2.Config
	apiBase    string
	storage    TokenStorage
	httpClient *http.Client

	refreshGroup singleflight.Group
	mu           sync.Mutex // serialises storage updates
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithStorage(storage TokenStorage) Option {
	return func(c *Client) {
		c.storage = storage
	}
}

func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("[rp.New] client id is required")
	}
	if cfg.Endpoint.AuthURL == "" || cfg.Endpoint.TokenURL == "" {
		return nil, errors.New("[rp.New] authorization and token endpoints are required")
	}
	endpoint := cfg.Endpoint
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	c := &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
		},
		apiBase:    strings.TrimSuffix(cfg.APIBaseURL, "/"),
		storage:    NewMemoryStorage(),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Discover reads the authorization and token endpoints from the issuer's
// discovery document.
func Discover(ctx context.Context, issuer string, httpClient *http.Client) (oauth2.Endpoint, error) {
	if httpClient != nil {
		ctx = oidc.ClientContext(ctx, httpClient)
	}
	provider, err := oidc.NewProvider(ctx, strings.TrimSuffix(issuer, "/"))
	if err != nil {
		return oauth2.Endpoint{}, errors.Wrapf(err, "[rp.Discover] %s", issuer)
	}
	return provider.Endpoint(), nil
}

// Token returns the stored bundle or ErrLoginRequired.
func (c *Client) Token() (*TokenBundle, error) {
	bundle, err := c.storage.Load()
	if err != nil {
		return nil, err
	}
	if bundle == nil {
		return nil, ErrLoginRequired
	}
	return bundle, nil
}

// Logout forgets the stored bundle.
func (c *Client) Logout() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.storage.Clear()
}

// Refresh exchanges the stored refresh token for a new bundle.
func (c *Client) Refresh(ctx context.Context) (*TokenBundle, error) {
	bundle, err := c.Token()
	if err != nil {
		return nil, err
	}
	return c.refreshShared(ctx, bundle.AccessToken)
}

// refreshShared runs at most one refresh at a time. Callers that saw failedAccess
// rejected join the running refresh, or reuse its result when the stored access
// token has already moved on. The exchange is detached from ctx: a caller that
// gives up stops waiting, but the rotated pair is still stored.
func (c *Client) refreshShared(ctx context.Context, failedAccess string) (*TokenBundle, error) {
	detached := context.WithoutCancel(ctx)
	ch := c.refreshGroup.DoChan("refresh", func() (interface{}, error) {
		return c.refresh(detached, failedAccess)
	})
	select {
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "[Client.refresh] waiting for refresh")
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*TokenBundle), nil
	}
}

// refresh exchanges the stored refresh token. The stored bundle is cleared only
// when the authorization server rejects the refresh token; transport failures
// leave it in place for the next attempt.
func (c *Client) refresh(ctx context.Context, failedAccess string) (*TokenBundle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.storage.Load()
	if err != nil {
		return nil, err
	}
	if current == nil || current.RefreshToken == "" {
		return nil, ErrLoginRequired
	}
	if current.AccessToken != failedAccess {
		return current, nil
	}

	stale := &oauth2.Token{RefreshToken: current.RefreshToken, Expiry: time.Unix(1, 0)}
	tok, err := c.oauth.TokenSource(c.exchangeContext(ctx), stale).Token()
	if err != nil {
		var rejected *oauth2.RetrieveError
		if !errors.As(err, &rejected) {
			return nil, errors.Wrap(err, "[Client.refresh]")
		}
		if clearErr := c.storage.Clear(); clearErr != nil {
			return nil, errors.Wrap(clearErr, "[Client.refresh] clearing tokens")
		}
		return nil, errors.Wrap(ErrLoginRequired, asError(err).Error())
	}
	next := bundleFromToken(tok)
	if err := c.storage.Save(next); err != nil {
		return nil, err
	}
	return next, nil
}

func (c *Client) exchangeContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}
