// SPDX-License-Identifier: BSD-3-Clause

package api

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryAddAndGet(t *testing.T) {
	r := NewRegistry()
	c := New("https://x/api")

	require.NoError(t, r.Add(c))
	got, ok := r.Get("https://x/api")
	require.True(t, ok)
	require.Same(t, c, got)

	_, ok = r.Get("https://y/api")
	require.False(t, ok)
}

func TestRegistryOneClientPerURL(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add(New("https://x/api")))
	require.Error(t, r.Add(New("https://x/api")))
}

func TestRegistryAlias(t *testing.T) {
	r := NewRegistry()
	c := New("https://x/api")
	require.NoError(t, r.Add(c))
	require.NoError(t, r.Alias("main", c))

	got, ok := r.Get("main")
	require.True(t, ok)
	require.Same(t, c, got)

	require.Error(t, r.Alias("main", c), "aliases are unique")
	require.Error(t, r.Alias("other", New("https://y/api")), "alias requires a registered client")
}

func TestRegistryURLs(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add(New("https://x/api")))
	require.NoError(t, r.Add(New("https://y/api")))
	require.ElementsMatch(t, []string{"https://x/api", "https://y/api"}, r.URLs())
}
