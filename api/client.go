// SPDX-License-Identifier: BSD-3-Clause

// Package api implements a generic REST client for lux-style APIs.
//
// A Client is bound to one immutable base URL and carries a mutable set
// of default request options. Requests are described by Options, merged
// with the defaults, run through a pluggable Capability (request
// preparation and authentication hooks) and dispatched over plain HTTP
// with JSON bodies by default. Logical endpoint names are resolved
// through a directory.Resolver.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/quantmind/lux-go/directory"
	"github.com/quantmind/lux-go/internal/log"
)

const maxResponseBytes = 16 << 20

// Client is a REST client for a single API base URL.
type Client struct {
	baseURL    string
	defaults   Options
	http       *http.Client
	capability Capability
	resolver   *directory.Resolver
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// ClientOption configures a Client at construction time.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for dispatch. Wrap its
// transport (e.g. with otelhttp) to instrument every call.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.http = c }
}

// WithCapability sets the request-preparation and authentication hooks.
func WithCapability(cap Capability) ClientOption {
	return func(cl *Client) { cl.capability = cap }
}

// WithResolver sets the directory resolver used for logical endpoint
// names. Without one, requests using Options.Name fail.
func WithResolver(r *directory.Resolver) ClientOption {
	return func(cl *Client) { cl.resolver = r }
}

// WithDefaults sets the default request options merged into every call.
func WithDefaults(d Options) ClientOption {
	return func(cl *Client) { cl.defaults = d }
}

// WithRateLimit caps outgoing requests at rps with the given burst.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(cl *Client) { cl.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithLogger overrides the component logger.
func WithLogger(l zerolog.Logger) ClientOption {
	return func(cl *Client) { cl.logger = l }
}

// New creates a client for baseURL.
func New(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		http:       &http.Client{Timeout: 30 * time.Second},
		capability: NopCapability{},
		logger:     log.WithComponent("api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the immutable base URL the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Defaults returns a pointer to the client's mutable default options.
func (c *Client) Defaults() *Options {
	return &c.defaults
}

// Resolver returns the directory resolver, if any.
func (c *Client) Resolver() *directory.Resolver {
	return c.resolver
}

// Get performs a GET request. data travels in the query string.
func (c *Client) Get(ctx context.Context, opts Options, data any) (*Response, error) {
	return c.Request(ctx, http.MethodGet, opts, data)
}

// Post performs a POST request. data travels in the body.
func (c *Client) Post(ctx context.Context, opts Options, data any) (*Response, error) {
	return c.Request(ctx, http.MethodPost, opts, data)
}

// Put performs a PUT request. data travels in the body.
func (c *Client) Put(ctx context.Context, opts Options, data any) (*Response, error) {
	return c.Request(ctx, http.MethodPut, opts, data)
}

// Delete performs a DELETE request. data travels in the query string.
func (c *Client) Delete(ctx context.Context, opts Options, data any) (*Response, error) {
	return c.Request(ctx, http.MethodDelete, opts, data)
}

// Request merges the client defaults with the caller's options, builds a
// request envelope and dispatches it.
func (c *Client) Request(ctx context.Context, method string, opts Options, data any) (*Response, error) {
	merged, err := merge(c.defaults, method, data, opts)
	if err != nil {
		return nil, err
	}

	env := newEnvelope(merged)

	// An explicit URL equal to the base URL is redundant; collapse to
	// path-relative dispatch.
	if env.Options.URL == c.baseURL {
		env.Options.URL = ""
	}

	ctx = log.ContextWithRequestID(ctx, env.ID)
	return c.call(ctx, env)
}

// call runs the dispatch pipeline: resolve the target URL, apply the
// capability hooks, execute the transport call and classify the outcome.
func (c *Client) call(ctx context.Context, env *Envelope) (*Response, error) {
	start := time.Now()

	if env.Options.Name != "" && env.BaseURL == "" {
		if c.resolver == nil {
			return nil, fmt.Errorf("%w: logical name %q needs a directory resolver", ErrNoURL, env.Options.Name)
		}
		resolved, err := c.resolver.Resolve(ctx, c.baseURL, env.Options.Name)
		if err != nil {
			observeRequest(env.Options.Method, outcomeResolveError, start)
			return nil, err
		}
		env.BaseURL = resolved
	}
	if env.BaseURL == "" {
		env.BaseURL = c.baseURL
	}

	if env.Options.URL == "" {
		if env.Options.Path != "" {
			env.Options.URL = joinURL(env.BaseURL, env.Options.Path)
		} else {
			env.Options.URL = env.BaseURL
		}
	}

	if err := c.capability.PrepareRequest(ctx, env); err != nil {
		return nil, err
	}
	if res, err := c.capability.Authenticate(ctx, env); err != nil || res != nil {
		if err == nil {
			observeRequest(env.Options.Method, outcomeSuccess, start)
			env.settleSuccess(res)
		}
		return res, err
	}

	if env.Options.URL == "" {
		return nil, ErrNoURL
	}

	res, err := c.dispatch(ctx, env)
	switch {
	case err == nil:
		observeRequest(env.Options.Method, outcomeSuccess, start)
		env.settleSuccess(res)
	default:
		var appErr *ApplicationError
		if errors.As(err, &appErr) {
			observeRequest(env.Options.Method, outcomeApplicationError, start)
		} else {
			observeRequest(env.Options.Method, outcomeTransportError, start)
		}
	}
	return res, err
}

func (c *Client) dispatch(ctx context.Context, env *Envelope) (*Response, error) {
	opts := env.Options

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Err: err}
		}
	}

	body, contentType, err := encodeBody(opts.ContentType, bodyData(opts))
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, opts.URL, body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	if len(opts.Params) > 0 {
		q := req.URL.Query()
		for k, v := range opts.Params {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}
	for k, vs := range opts.Headers {
		req.Header[k] = append([]string(nil), vs...)
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("X-Request-ID", env.ID)

	c.logger.Debug().
		Str(log.FieldRequestID, env.ID).
		Str(log.FieldMethod, opts.Method).
		Str(log.FieldURL, req.URL.String()).
		Msg("executing http request")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Status: res.StatusCode, Err: err}
	}

	return classify(res.StatusCode, res.Header, raw)
}

// bodyData returns the request data destined for the body. GET, HEAD
// and OPTIONS requests never carry one. DELETE caller data travels in
// the query string (merge routes it there), but data a preparation
// hook places on Options.Data, such as the CSRF field, still ships in
// the body.
func bodyData(opts Options) any {
	switch opts.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return nil
	default:
		return opts.Data
	}
}

// Values converts string-map params into url.Values, mostly for tests and
// callers that want to inspect the effective query.
func Values(params map[string]string) url.Values {
	v := url.Values{}
	for k, p := range params {
		v.Set(k, p)
	}
	return v
}
