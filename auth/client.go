// SPDX-License-Identifier: BSD-3-Clause

// Package auth layers JWT bearer authentication onto the generic API
// client: token capture on login, token attach on every request, CSRF
// field injection, and a redirect-to-login hook for 401 responses.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantmind/lux-go/api"
	"github.com/quantmind/lux-go/csrf"
	"github.com/quantmind/lux-go/internal/log"
	"github.com/quantmind/lux-go/token"
	"github.com/quantmind/lux-go/tokenstore"
)

// DefaultAuthName is the logical directory name of the authentication
// endpoint.
const DefaultAuthName = "authorizations_url"

// Client is a JWT-authenticated API client bound to one base URL.
//
// Its authentication state is fully derived from the token store:
// anonymous (no token, or an expired one), authenticated (valid token
// attached to every request), and back to anonymous on logout, explicit
// clear, or a 401 response. The client never refreshes a token on its
// own.
type Client struct {
	rest     *api.Client
	keyring  *tokenstore.Keyring
	authName string
	csrf     csrf.Field
	delegate *Client
	logger   zerolog.Logger
	now      func() time.Time

	// onLoginRedirect fires when a request comes back 401: the UX
	// recovery hook, not a retry.
	onLoginRedirect func()
	// onReload fires after a successful logout.
	onReload func()
}

// Option configures an authenticated client.
type Option func(*Client)

// WithKeyring sets the token keyring. Defaults to an in-memory keyring.
func WithKeyring(k *tokenstore.Keyring) Option {
	return func(c *Client) { c.keyring = k }
}

// WithAuthName overrides the logical name of the authentication endpoint.
func WithAuthName(name string) Option {
	return func(c *Client) { c.authName = name }
}

// WithCSRF sets the CSRF field merged into state-changing request bodies.
func WithCSRF(f csrf.Field) Option {
	return func(c *Client) { c.csrf = f }
}

// WithLoginRedirect sets the hook invoked on a 401 response.
func WithLoginRedirect(fn func()) Option {
	return func(c *Client) { c.onLoginRedirect = fn }
}

// WithReload sets the hook invoked after a successful logout.
func WithReload(fn func()) Option {
	return func(c *Client) { c.onReload = fn }
}

// WithDelegate routes all token operations to another authenticated
// client, making it the single source of truth when several logical APIs
// share one auth domain.
func WithDelegate(d *Client) Option {
	return func(c *Client) { c.delegate = d }
}

// WithLogger overrides the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates an authenticated client for baseURL. apiOpts are passed to
// the underlying api.Client; the authentication capability is installed
// on top of them.
func New(baseURL string, opts []Option, apiOpts ...api.ClientOption) *Client {
	c := &Client{
		authName: DefaultAuthName,
		keyring:  tokenstore.NewMemoryKeyring(),
		logger:   log.WithComponent("auth"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	apiOpts = append(apiOpts, api.WithCapability(c))
	c.rest = api.New(baseURL, apiOpts...)
	return c
}

// API exposes the underlying REST client.
func (c *Client) API() *api.Client {
	return c.rest
}

// BaseURL returns the client's base URL.
func (c *Client) BaseURL() string {
	return c.rest.BaseURL()
}

// AuthName returns the logical name of the authentication endpoint.
func (c *Client) AuthName() string {
	return c.authName
}

// Token returns the stored bearer token for this client's auth domain.
func (c *Client) Token() (string, bool) {
	if c.delegate != nil {
		return c.delegate.Token()
	}
	tok, ok, err := c.keyring.Read(c.BaseURL())
	if err != nil {
		c.logger.Warn().Err(err).Msg("token read failed")
		return "", false
	}
	return tok, ok
}

// SetToken stores a bearer token. The token's own "storage" claim picks
// the storage scope; malformed tokens are rejected.
func (c *Client) SetToken(tok string) error {
	if c.delegate != nil {
		return c.delegate.SetToken(tok)
	}
	return c.keyring.Write(c.BaseURL(), tok)
}

// ClearToken removes the stored token from every scope.
func (c *Client) ClearToken() error {
	if c.delegate != nil {
		return c.delegate.ClearToken()
	}
	return c.keyring.Clear(c.BaseURL())
}

// User returns the claims of the stored token, or nil when anonymous.
// The raw token is available under the "token" key of Extra.
func (c *Client) User() *token.Claims {
	tok, ok := c.Token()
	if !ok {
		return nil
	}
	claims, err := token.Decode(tok)
	if err != nil {
		c.logger.Warn().Err(err).Msg("stored token is malformed")
		return nil
	}
	claims.Extra["token"] = tok
	return &claims
}

// Authenticated reports whether a valid, unexpired token is stored.
func (c *Client) Authenticated() bool {
	tok, ok := c.Token()
	if !ok {
		return false
	}
	claims, err := token.Decode(tok)
	if err != nil {
		return false
	}
	return !claims.Expired(c.now())
}

// Login posts credentials to the authentication endpoint. On success the
// returned token is captured and stored by the authentication hook.
func (c *Client) Login(ctx context.Context, credentials any) error {
	_, err := c.Post(ctx, api.Options{Name: c.authName}, credentials)
	return err
}

// Logout posts to the authentication endpoint's logout sub-path, then
// clears the token and fires the reload hook. Fire-and-forget: failures
// are reported, never retried.
func (c *Client) Logout(ctx context.Context) error {
	if c.delegate != nil {
		return c.delegate.Logout(ctx)
	}
	if _, err := c.Post(ctx, api.Options{Name: c.authName, Path: "/logout"}, nil); err != nil {
		c.logger.Error().Err(err).Msg("error while logging out")
		return fmt.Errorf("auth: logout failed: %w", err)
	}
	if err := c.ClearToken(); err != nil {
		return err
	}
	if c.onReload != nil {
		c.onReload()
	}
	return nil
}

// Get performs an authenticated GET request.
func (c *Client) Get(ctx context.Context, opts api.Options, data any) (*api.Response, error) {
	return c.Request(ctx, http.MethodGet, opts, data)
}

// Post performs an authenticated POST request.
func (c *Client) Post(ctx context.Context, opts api.Options, data any) (*api.Response, error) {
	return c.Request(ctx, http.MethodPost, opts, data)
}

// Put performs an authenticated PUT request.
func (c *Client) Put(ctx context.Context, opts api.Options, data any) (*api.Response, error) {
	return c.Request(ctx, http.MethodPut, opts, data)
}

// Delete performs an authenticated DELETE request.
func (c *Client) Delete(ctx context.Context, opts api.Options, data any) (*api.Response, error) {
	return c.Request(ctx, http.MethodDelete, opts, data)
}

// Request dispatches through the underlying client and intercepts the
// error path: 401 triggers the login-redirect hook exactly once, 404 and
// transport failures are logged. The error always surfaces to the
// caller; nothing is retried.
func (c *Client) Request(ctx context.Context, method string, opts api.Options, data any) (*api.Response, error) {
	res, err := c.rest.Request(ctx, method, opts, data)
	if err != nil {
		c.interceptError(opts, err)
	}
	return res, err
}

func (c *Client) interceptError(opts api.Options, err error) {
	var te *api.TransportError
	if !errors.As(err, &te) {
		return
	}
	switch {
	case te.Status == http.StatusUnauthorized:
		c.logger.Info().Str(log.FieldBaseURL, c.BaseURL()).Msg("unauthorized, redirecting to login")
		if c.onLoginRedirect != nil {
			c.onLoginRedirect()
		}
	case te.Status == http.StatusNotFound:
		c.logger.Info().Str(log.FieldPath, opts.Path).Msg("endpoint not found")
	case te.Status == 0:
		c.logger.Error().Err(te.Err).Msg("server down, could not complete request")
	}
}
