// SPDX-License-Identifier: BSD-3-Clause

package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/quantmind/lux-go/api"
	"github.com/quantmind/lux-go/csrf"
	"github.com/quantmind/lux-go/directory"
	"github.com/quantmind/lux-go/test/helpers"
	"github.com/quantmind/lux-go/tokenstore"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreCurrent())
}

func newClient(t *testing.T, s *helpers.Server, opts ...Option) *Client {
	t.Helper()
	return New(s.URL, opts,
		api.WithHTTPClient(s.Client()),
		api.WithResolver(directory.NewResolver(directory.WithHTTPClient(s.Client()))),
	)
}

var credentials = map[string]string{"username": "pippo", "password": "pluto"}

func TestLoginCapturesToken(t *testing.T) {
	s := helpers.NewServer(t, helpers.ServerOptions{
		Resources:   map[string]string{"/widgets/1": `{"id":1}`},
		RequireAuth: []string{"/widgets"},
	})
	c := newClient(t, s)

	require.False(t, c.Authenticated())
	require.NoError(t, c.Login(context.Background(), credentials))
	require.True(t, c.Authenticated())
	require.Equal(t, int64(1), s.Logins.Load())

	tok, ok := c.Token()
	require.True(t, ok)
	require.NotEmpty(t, tok)

	// The captured token now opens the protected resource.
	res, err := c.Get(context.Background(), api.Options{Path: "/widgets/1"}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.Status)
}

func TestLoginBadCredentials(t *testing.T) {
	s := helpers.NewServer(t, helpers.ServerOptions{})
	c := newClient(t, s)

	err := c.Login(context.Background(), map[string]string{"username": "pippo", "password": "wrong"})
	require.ErrorIs(t, err, api.ErrAuthRequired)
	require.False(t, c.Authenticated())
	_, ok := c.Token()
	require.False(t, ok)
}

func TestStorageClaimPicksScope(t *testing.T) {
	s := helpers.NewServer(t, helpers.ServerOptions{
		TokenClaims: map[string]any{"storage": "session"},
	})
	session := tokenstore.NewMemory()
	persistent := tokenstore.NewMemory()
	c := newClient(t, s, WithKeyring(tokenstore.NewKeyring(session, persistent)))

	require.NoError(t, c.Login(context.Background(), credentials))

	key := tokenstore.Key(c.BaseURL())
	_, ok, err := session.Read(key)
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = persistent.Read(key)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestExpiredTokenGoesOutAnonymous(t *testing.T) {
	s := helpers.NewServer(t, helpers.ServerOptions{
		Resources:   map[string]string{"/widgets/1": `{"id":1}`},
		RequireAuth: []string{"/widgets"},
	})
	c := newClient(t, s)

	expired := s.MintToken(t, map[string]any{"exp": time.Now().Add(-time.Hour).Unix()})
	require.NoError(t, c.SetToken(expired))
	require.False(t, c.Authenticated())

	_, err := c.Get(context.Background(), api.Options{Path: "/widgets/1"}, nil)
	require.ErrorIs(t, err, api.ErrAuthRequired)
}

func TestUnauthorizedFiresLoginRedirectOnce(t *testing.T) {
	s := helpers.NewServer(t, helpers.ServerOptions{
		Resources:   map[string]string{"/widgets/1": `{"id":1}`},
		RequireAuth: []string{"/widgets"},
	})
	var redirects atomic.Int64
	c := newClient(t, s, WithLoginRedirect(func() { redirects.Add(1) }))

	_, err := c.Get(context.Background(), api.Options{Path: "/widgets/1"}, nil)
	require.ErrorIs(t, err, api.ErrAuthRequired)
	require.Equal(t, int64(1), redirects.Load(), "401 redirects, never retries")
}

func TestLogout(t *testing.T) {
	s := helpers.NewServer(t, helpers.ServerOptions{})
	var reloads atomic.Int64
	c := newClient(t, s, WithReload(func() { reloads.Add(1) }))

	require.NoError(t, c.Login(context.Background(), credentials))
	require.True(t, c.Authenticated())

	require.NoError(t, c.Logout(context.Background()))
	require.False(t, c.Authenticated())
	require.Equal(t, int64(1), s.Logouts.Load())
	require.Equal(t, int64(1), reloads.Load())
}

func TestLogoutAnonymousFails(t *testing.T) {
	s := helpers.NewServer(t, helpers.ServerOptions{})
	c := newClient(t, s)

	err := c.Logout(context.Background())
	require.ErrorIs(t, err, api.ErrAuthRequired)
	require.Equal(t, int64(0), s.Logouts.Load())
}

func TestDelegateSharesTokens(t *testing.T) {
	s := helpers.NewServer(t, helpers.ServerOptions{})
	primary := newClient(t, s)
	scoped := newClient(t, s, WithDelegate(primary))

	require.NoError(t, primary.Login(context.Background(), credentials))
	require.True(t, scoped.Authenticated())

	tok, ok := scoped.Token()
	require.True(t, ok)
	primaryTok, _ := primary.Token()
	require.Equal(t, primaryTok, tok)

	require.NoError(t, scoped.ClearToken())
	require.False(t, primary.Authenticated())
}

func TestUser(t *testing.T) {
	s := helpers.NewServer(t, helpers.ServerOptions{
		TokenClaims: map[string]any{"role": "admin"},
	})
	c := newClient(t, s)

	require.Nil(t, c.User(), "anonymous clients have no user")

	require.NoError(t, c.Login(context.Background(), credentials))
	u := c.User()
	require.NotNil(t, u)
	require.Equal(t, "pippo", u.Subject())
	require.Equal(t, "admin", u.Extra["role"])
	tok, _ := c.Token()
	require.Equal(t, tok, u.Extra["token"])
}

// recordingServer captures the last request body and content type.
type recordingServer struct {
	*httptest.Server
	body        []byte
	contentType string
}

func newRecordingServer(t *testing.T) *recordingServer {
	t.Helper()
	rs := &recordingServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.body, _ = io.ReadAll(r.Body)
		rs.contentType = r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(rs.Close)
	return rs
}

func TestCSRFInjectedIntoWriteBodies(t *testing.T) {
	rs := newRecordingServer(t)
	c := New(rs.URL, []Option{
		WithCSRF(csrf.Field{Name: "authenticity_token", Value: "tok-1"}),
	}, api.WithHTTPClient(rs.Client()))

	_, err := c.Post(context.Background(), api.Options{Path: "/things"},
		map[string]string{"name": "lamp"})
	require.NoError(t, err)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(rs.body, &sent))
	require.Equal(t, "lamp", sent["name"])
	require.Equal(t, "tok-1", sent["authenticity_token"])
	require.Equal(t, api.ContentTypeJSON, rs.contentType)
}

func TestCSRFSentOnDelete(t *testing.T) {
	rs := newRecordingServer(t)
	c := New(rs.URL, []Option{
		WithCSRF(csrf.Field{Name: "authenticity_token", Value: "tok-1"}),
	}, api.WithHTTPClient(rs.Client()))

	_, err := c.Delete(context.Background(), api.Options{Path: "/things/1"}, nil)
	require.NoError(t, err)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(rs.body, &sent))
	require.Equal(t, "tok-1", sent["authenticity_token"])
}

func TestCSRFSkipsReadRequests(t *testing.T) {
	rs := newRecordingServer(t)
	c := New(rs.URL, []Option{
		WithCSRF(csrf.Field{Name: "authenticity_token", Value: "tok-1"}),
	}, api.WithHTTPClient(rs.Client()))

	_, err := c.Get(context.Background(), api.Options{Path: "/things"}, nil)
	require.NoError(t, err)
	require.Empty(t, rs.body)
}
