// SPDX-License-Identifier: BSD-3-Clause

package auth

import (
	"context"
	"net/http"

	"github.com/quantmind/lux-go/api"
	"github.com/quantmind/lux-go/token"
)

// csrfExempt lists the verbs that never carry a CSRF field.
var csrfExempt = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// PrepareRequest implements api.Capability: JSON content type unless the
// caller picked another, and the CSRF field merged into the body of
// state-changing requests.
func (c *Client) PrepareRequest(_ context.Context, env *api.Envelope) error {
	opts := &env.Options
	if opts.ContentType == "" && opts.Headers.Get("Content-Type") == "" {
		opts.ContentType = api.ContentTypeJSON
	}

	if c.csrf.Valid() && !csrfExempt[opts.Method] {
		switch data := opts.Data.(type) {
		case nil:
			opts.Data = c.csrf.Merge(nil)
		case map[string]any:
			opts.Data = c.csrf.Merge(data)
		case map[string]string:
			merged := make(map[string]any, len(data)+1)
			for k, v := range data {
				merged[k] = v
			}
			opts.Data = c.csrf.Merge(merged)
		default:
			// Typed struct bodies cannot take an extra field; the
			// caller opted out of CSRF by using one.
		}
	}
	return nil
}

// Authenticate implements api.Capability.
//
// A POST against the bare authentication endpoint is a login: the hook
// registers a success callback that captures the returned token. Every
// other request gets an Authorization header when a valid token exists;
// with no token, or an expired one, the request goes out anonymous and
// the server is expected to answer 401.
func (c *Client) Authenticate(_ context.Context, env *api.Envelope) (*api.Response, error) {
	if c.isLoginRequest(env) {
		env.OnSuccess(func(res *api.Response) {
			var body struct {
				Token string `json:"token"`
			}
			if err := res.Decode(&body); err != nil || body.Token == "" {
				c.logger.Warn().Msg("login response carried no token")
				return
			}
			if err := c.SetToken(body.Token); err != nil {
				c.logger.Error().Err(err).Msg("failed to store login token")
			}
		})
		return nil, nil
	}

	tok, ok := c.Token()
	if !ok {
		return nil, nil
	}
	claims, err := token.Decode(tok)
	if err != nil {
		return nil, err
	}
	if claims.Expired(c.now()) {
		return nil, nil
	}
	env.Options.Headers.Set("Authorization", "Bearer "+tok)
	return nil, nil
}

func (c *Client) isLoginRequest(env *api.Envelope) bool {
	return env.Options.Name == c.authName &&
		env.Options.Method == http.MethodPost &&
		env.Options.Path == ""
}
