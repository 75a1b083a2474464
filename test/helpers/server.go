// SPDX-License-Identifier: BSD-3-Clause

// Package helpers provides common test utilities: a mock lux API server
// serving a directory document, a token-minting auth endpoint and canned
// resource endpoints.
package helpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// ServerOptions configures the mock API server.
type ServerOptions struct {
	// Username/Password accepted by the auth endpoint.
	Username string
	Password string
	// TokenClaims are merged into every minted token.
	TokenClaims map[string]any
	// TokenTTL bounds minted tokens; zero mints tokens without expiry.
	TokenTTL time.Duration
	// Resources maps a path (e.g. "/widgets/1") to a canned JSON body.
	Resources map[string]string
	// RequireAuth lists path prefixes that demand a valid bearer token.
	RequireAuth []string
}

// Server wraps a mock lux API with counters for assertions.
type Server struct {
	*httptest.Server
	// DirectoryFetches counts GETs of the directory document.
	DirectoryFetches atomic.Int64
	// Logins counts successful authentications.
	Logins atomic.Int64
	// Logouts counts logout calls.
	Logouts atomic.Int64

	opts   ServerOptions
	secret []byte
}

const signingSecret = "helpers-signing-secret"

// NewServer starts a mock lux API server. The directory document at the
// bare base URL maps "authorizations_url" to the auth endpoint plus one
// entry per canned resource prefix.
func NewServer(t *testing.T, opts ServerOptions) *Server {
	t.Helper()

	if opts.Username == "" {
		opts.Username = "pippo"
	}
	if opts.Password == "" {
		opts.Password = "pluto"
	}

	s := &Server{opts: opts, secret: []byte(signingSecret)}

	r := chi.NewRouter()
	r.Get("/", s.handleDirectory)
	r.Post("/authorizations", s.handleLogin)
	r.Post("/authorizations/logout", s.handleLogout)
	r.NotFound(s.handleResource)
	r.MethodNotAllowed(s.handleResource)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// AuthURL returns the absolute URL of the auth endpoint.
func (s *Server) AuthURL() string {
	return s.URL + "/authorizations"
}

// MintToken signs a token the server will accept, with extra claims
// merged in. Used to seed stores in tests.
func (s *Server) MintToken(t *testing.T, extra map[string]any) string {
	t.Helper()
	return s.mint(t, extra)
}

func (s *Server) mint(t *testing.T, extra map[string]any) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": s.opts.Username}
	for k, v := range s.opts.TokenClaims {
		claims[k] = v
	}
	for k, v := range extra {
		claims[k] = v
	}
	if s.opts.TokenTTL > 0 {
		claims["exp"] = time.Now().Add(s.opts.TokenTTL).Unix()
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	require.NoError(t, err)
	return signed
}

func (s *Server) handleDirectory(w http.ResponseWriter, r *http.Request) {
	s.DirectoryFetches.Add(1)
	doc := map[string]string{
		"authorizations_url": s.AuthURL(),
	}
	for path := range s.opts.Resources {
		name := strings.Trim(path, "/")
		if i := strings.IndexByte(name, '/'); i > 0 {
			name = name[:i]
		}
		doc[name+"_url"] = s.URL + "/" + name
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": true, "message": "invalid credentials payload"})
		return
	}
	if creds.Username != s.opts.Username || creds.Password != s.opts.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": true, "message": "invalid credentials"})
		return
	}

	claims := jwt.MapClaims{"sub": creds.Username}
	for k, v := range s.opts.TokenClaims {
		claims[k] = v
	}
	if s.opts.TokenTTL > 0 {
		claims["exp"] = time.Now().Add(s.opts.TokenTTL).Unix()
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": true, "message": "signing failed"})
		return
	}

	s.Logins.Add(1)
	writeJSON(w, http.StatusOK, map[string]any{"token": signed, "success": true})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": true, "message": "unauthorized"})
		return
	}
	s.Logouts.Add(1)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleResource(w http.ResponseWriter, r *http.Request) {
	for _, prefix := range s.opts.RequireAuth {
		if strings.HasPrefix(r.URL.Path, prefix) && !s.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": true, "message": "unauthorized"})
			return
		}
	}
	if body, ok := s.opts.Resources[r.URL.Path]; ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"error": true, "message": "not found"})
}

func (s *Server) authorized(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return false
	}
	raw := strings.TrimPrefix(header, "Bearer ")
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return err == nil && tok.Valid
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
