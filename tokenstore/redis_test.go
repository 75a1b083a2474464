// SPDX-License-Identifier: BSD-3-Clause

package tokenstore

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	srv := miniredis.RunT(t)
	s, err := NewRedis(RedisConfig{Addr: srv.Addr()}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRedisStoreRoundTrip(t *testing.T) {
	s := newTestRedis(t)

	_, ok, err := s.Read("k")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Write("k", "v"))
	got, ok, err := s.Read("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", got)

	require.NoError(t, s.Delete("k"))
	_, ok, err = s.Read("k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisStoreUnreachable(t *testing.T) {
	_, err := NewRedis(RedisConfig{Addr: "127.0.0.1:1"}, zerolog.Nop())
	require.Error(t, err)
}
