// SPDX-License-Identifier: BSD-3-Clause

package api

import (
	"fmt"
	"sync"
)

// Registry caches one client per distinct base URL, optionally aliased by
// a logical name. It replaces ambient module-level state: construct one
// at startup and thread it through explicitly.
type Registry struct {
	mu     sync.RWMutex
	byURL  map[string]*Client
	byName map[string]*Client
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byURL:  make(map[string]*Client),
		byName: make(map[string]*Client),
	}
}

// Add registers a client under its base URL. Registering a second client
// for the same base URL is an error: one client per URL per registry.
func (r *Registry) Add(c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byURL[c.BaseURL()]; ok {
		return fmt.Errorf("api: client for %q already registered", c.BaseURL())
	}
	r.byURL[c.BaseURL()] = c
	return nil
}

// Alias registers a logical name for an already-added client.
func (r *Registry) Alias(name string, c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byURL[c.BaseURL()]; !ok {
		return fmt.Errorf("api: client for %q not registered", c.BaseURL())
	}
	if _, ok := r.byName[name]; ok {
		return fmt.Errorf("api: alias %q already registered", name)
	}
	r.byName[name] = c
	return nil
}

// Get looks a client up by base URL or logical name.
func (r *Registry) Get(urlOrName string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.byURL[urlOrName]; ok {
		return c, true
	}
	c, ok := r.byName[urlOrName]
	return c, ok
}

// URLs returns the base URLs of every registered client.
func (r *Registry) URLs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byURL))
	for u := range r.byURL {
		out = append(out, u)
	}
	return out
}
