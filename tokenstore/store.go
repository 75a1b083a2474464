// SPDX-License-Identifier: BSD-3-Clause

// Package tokenstore persists bearer tokens per API base URL.
//
// Two storage scopes exist, mirroring browser session and local storage:
// a session scope that lives only as long as the process, and a persistent
// scope that survives restarts. A token chooses its own scope through its
// "storage" claim at write time.
package tokenstore

import (
	"sync"
)

// keyPrefix namespaces token keys so stores can be shared with other data.
const keyPrefix = "luxtoken-"

// Key returns the storage key for an API base URL.
func Key(baseURL string) string {
	return keyPrefix + baseURL
}

// Store is a minimal token-oriented key/value store.
type Store interface {
	// Read returns the token stored under key, if any.
	Read(key string) (string, bool, error)
	// Write stores a token under key, overwriting any previous value.
	Write(key, token string) error
	// Delete removes the token stored under key. Deleting a missing key
	// is a no-op.
	Delete(key string) error
}

// Memory is an in-process Store. It backs the session scope.
type Memory struct {
	mu     sync.RWMutex
	tokens map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{tokens: make(map[string]string)}
}

// Read returns the token stored under key.
func (m *Memory) Read(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tok, ok := m.tokens[key]
	return tok, ok, nil
}

// Write stores a token under key.
func (m *Memory) Write(key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[key] = token
	return nil
}

// Delete removes the token stored under key.
func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, key)
	return nil
}
