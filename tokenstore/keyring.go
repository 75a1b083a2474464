// SPDX-License-Identifier: BSD-3-Clause

package tokenstore

import (
	"github.com/quantmind/lux-go/token"
)

// Keyring routes token reads and writes between the session and
// persistent scopes. The scope a token lands in is decided by the token
// itself: a "storage":"session" claim selects the session scope,
// anything else the persistent one.
type Keyring struct {
	session    Store
	persistent Store
}

// NewKeyring creates a keyring over the two scope stores. Either store
// may be shared between keyrings.
func NewKeyring(session, persistent Store) *Keyring {
	return &Keyring{session: session, persistent: persistent}
}

// NewMemoryKeyring creates a keyring where both scopes live in process
// memory. Useful for tests and short-lived tools.
func NewMemoryKeyring() *Keyring {
	return NewKeyring(NewMemory(), NewMemory())
}

// Write decodes the token's claims and stores it in the scope the token
// requests. A malformed token is rejected before anything is stored.
func (k *Keyring) Write(baseURL, tok string) error {
	claims, err := token.Decode(tok)
	if err != nil {
		return err
	}
	key := Key(baseURL)
	if claims.Storage == token.StorageSession {
		return k.session.Write(key, tok)
	}
	return k.persistent.Write(key, tok)
}

// Read returns the token for baseURL, checking the session scope first.
func (k *Keyring) Read(baseURL string) (string, bool, error) {
	key := Key(baseURL)
	if tok, ok, err := k.session.Read(key); err != nil || ok {
		return tok, ok, err
	}
	return k.persistent.Read(key)
}

// Clear removes the token for baseURL from both scopes.
func (k *Keyring) Clear(baseURL string) error {
	key := Key(baseURL)
	if err := k.session.Delete(key); err != nil {
		return err
	}
	return k.persistent.Delete(key)
}
