// SPDX-License-Identifier: BSD-3-Clause

// Package directory resolves logical endpoint names to URLs.
//
// A lux API serves a directory document at its bare base URL: a JSON
// object mapping logical endpoint names to absolute or relative URLs.
// The resolver fetches that document once per base URL and answers every
// later lookup from cache.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/quantmind/lux-go/internal/log"
)

// ErrUnknownEndpoint is returned when the directory document has no entry
// for a requested name.
var ErrUnknownEndpoint = errors.New("directory: unknown endpoint")

// ErrFetch is returned when the directory document cannot be fetched or
// parsed.
var ErrFetch = errors.New("directory: fetch failed")

const maxDocumentBytes = 1 << 20

type cached struct {
	urls      map[string]string
	fetchedAt time.Time
}

// Resolver caches one directory document per base URL. Concurrent first
// lookups for the same base URL share a single fetch.
type Resolver struct {
	client *http.Client
	ttl    time.Duration

	mu    sync.RWMutex
	cache map[string]cached
	group singleflight.Group
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient sets the HTTP client used for directory fetches.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.client = c }
}

// WithTTL sets how long a cached directory document stays valid.
// Zero (the default) caches for the lifetime of the process.
func WithTTL(ttl time.Duration) Option {
	return func(r *Resolver) { r.ttl = ttl }
}

// NewResolver creates a resolver with an empty cache.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		client: &http.Client{Timeout: 30 * time.Second},
		cache:  make(map[string]cached),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the URL registered under name in the directory of
// baseURL. The first call per base URL fetches the directory document;
// later calls hit the cache until it expires.
func (r *Resolver) Resolve(ctx context.Context, baseURL, name string) (string, error) {
	urls, err := r.directory(ctx, baseURL)
	if err != nil {
		return "", err
	}
	u, ok := urls[name]
	if !ok {
		return "", fmt.Errorf("%w: %q not in directory of %s", ErrUnknownEndpoint, name, baseURL)
	}
	return u, nil
}

// Directory returns the full name-to-URL mapping for baseURL, fetching it
// if not cached.
func (r *Resolver) Directory(ctx context.Context, baseURL string) (map[string]string, error) {
	return r.directory(ctx, baseURL)
}

// Invalidate drops the cached directory for baseURL. The next lookup
// fetches a fresh document.
func (r *Resolver) Invalidate(baseURL string) {
	r.mu.Lock()
	delete(r.cache, baseURL)
	r.mu.Unlock()
}

func (r *Resolver) lookup(baseURL string) (map[string]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cache[baseURL]
	if !ok {
		return nil, false
	}
	if r.ttl > 0 && time.Since(c.fetchedAt) > r.ttl {
		return nil, false
	}
	return c.urls, true
}

func (r *Resolver) directory(ctx context.Context, baseURL string) (map[string]string, error) {
	if urls, ok := r.lookup(baseURL); ok {
		return urls, nil
	}

	v, err, _ := r.group.Do(baseURL, func() (any, error) {
		// A concurrent caller may have filled the cache while this one
		// waited for the flight slot.
		if urls, ok := r.lookup(baseURL); ok {
			return urls, nil
		}
		urls, err := r.fetch(ctx, baseURL)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.cache[baseURL] = cached{urls: urls, fetchedAt: time.Now()}
		r.mu.Unlock()
		return urls, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]string), nil
}

func (r *Resolver) fetch(ctx context.Context, baseURL string) (map[string]string, error) {
	logger := log.FromContext(ctx, "directory")
	logger.Info().Str(log.FieldBaseURL, baseURL).Msg("fetching api directory")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned HTTP %d", ErrFetch, baseURL, res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	urls := map[string]string{}
	if err := json.Unmarshal(body, &urls); err != nil {
		return nil, fmt.Errorf("%w: invalid directory document from %s: %v", ErrFetch, baseURL, err)
	}
	return urls, nil
}
