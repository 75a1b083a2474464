// SPDX-License-Identifier: BSD-3-Clause

package tokenstore

import (
	"path/filepath"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/quantmind/lux-go/token"
)

func mint(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return signed
}

const baseURL = "https://example.com/api"

func TestKeyringSessionScope(t *testing.T) {
	session := NewMemory()
	persistent := NewMemory()
	k := NewKeyring(session, persistent)

	tok := mint(t, jwt.MapClaims{"sub": "a", "storage": token.StorageSession})
	require.NoError(t, k.Write(baseURL, tok))

	got, ok, err := session.Read(Key(baseURL))
	require.NoError(t, err)
	require.True(t, ok, "session token must land in the session scope")
	require.Equal(t, tok, got)

	_, ok, err = persistent.Read(Key(baseURL))
	require.NoError(t, err)
	require.False(t, ok, "session token must not leak into the persistent scope")
}

func TestKeyringPersistentScope(t *testing.T) {
	for _, storage := range []string{"", token.StorageLocal} {
		session := NewMemory()
		persistent := NewMemory()
		k := NewKeyring(session, persistent)

		claims := jwt.MapClaims{"sub": "a"}
		if storage != "" {
			claims["storage"] = storage
		}
		tok := mint(t, claims)
		require.NoError(t, k.Write(baseURL, tok))

		_, ok, err := session.Read(Key(baseURL))
		require.NoError(t, err)
		require.False(t, ok, "storage=%q must not land in the session scope", storage)

		got, ok, err := persistent.Read(Key(baseURL))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, tok, got)
	}
}

func TestKeyringReadPrefersSession(t *testing.T) {
	k := NewMemoryKeyring()
	require.NoError(t, k.session.Write(Key(baseURL), "session-token"))
	require.NoError(t, k.persistent.Write(Key(baseURL), "persistent-token"))

	got, ok, err := k.Read(baseURL)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "session-token", got)
}

func TestKeyringClearRemovesBothScopes(t *testing.T) {
	k := NewMemoryKeyring()
	require.NoError(t, k.session.Write(Key(baseURL), "s"))
	require.NoError(t, k.persistent.Write(Key(baseURL), "p"))

	require.NoError(t, k.Clear(baseURL))

	_, ok, err := k.Read(baseURL)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestKeyringRejectsMalformedToken(t *testing.T) {
	k := NewMemoryKeyring()
	err := k.Write(baseURL, "not-a-jwt")
	require.ErrorIs(t, err, token.ErrMalformed)

	_, ok, readErr := k.Read(baseURL)
	require.NoError(t, readErr)
	require.False(t, ok, "nothing may be stored on a failed write")
}

func TestKeyringWithFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	k := NewKeyring(NewMemory(), NewFile(path))

	tok := mint(t, jwt.MapClaims{"sub": "a"})
	require.NoError(t, k.Write(baseURL, tok))

	// A fresh keyring over the same file sees the persistent token.
	again := NewKeyring(NewMemory(), NewFile(path))
	got, ok, err := again.Read(baseURL)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, tok, got)
}
