package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/amirasaad/ledger/pkg/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStorage(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStorageWithClient(client, "ledger:", nil)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStorage_GetSetDelete(t *testing.T) {
	s, mr := newStorage(t)

	got, err := s.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.Set("10.0.0.1", []byte("3"), 0))
	assert.True(t, mr.Exists("ledger:10.0.0.1"), "keys are prefixed")

	got, err = s.Get("10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), got)

	require.NoError(t, s.Delete("10.0.0.1"))
	got, err = s.Get("10.0.0.1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStorage_Expiration(t *testing.T) {
	s, mr := newStorage(t)

	require.NoError(t, s.Set("k", []byte("v"), time.Minute))
	mr.FastForward(2 * time.Minute)

	got, err := s.Get("k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStorage_EmptyKeyOrValueIsIgnored(t *testing.T) {
	s, mr := newStorage(t)

	require.NoError(t, s.Set("", []byte("v"), 0))
	require.NoError(t, s.Set("k", nil, 0))
	assert.Empty(t, mr.Keys())

	got, err := s.Get("")
	require.NoError(t, err)
	assert.Nil(t, got)
	require.NoError(t, s.Delete(""))
}

func TestRedisStorage_ResetKeepsForeignKeys(t *testing.T) {
	s, mr := newStorage(t)
	require.NoError(t, mr.Set("other:key", "keep"))
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, s.Set(k, []byte("1"), 0))
	}

	require.NoError(t, s.Reset())
	assert.Equal(t, []string{"other:key"}, mr.Keys())
}

func TestRedisStorage_ErrorsSurface(t *testing.T) {
	s, mr := newStorage(t)
	mr.SetError("ERR server unavailable")

	_, err := s.Get("k")
	require.Error(t, err)
	require.Error(t, s.Set("k", []byte("v"), 0))
	require.Error(t, s.Delete("k"))
}

func TestNewRedisStorage(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := NewRedisStorage(&config.Redis{
		URL:          "redis://" + mr.Addr() + "/0",
		KeyPrefix:    "test:",
		PoolSize:     2,
		DialTimeout:  time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}, nil)
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck
	require.NoError(t, s.Ping(context.Background()))

	_, err = NewRedisStorage(&config.Redis{URL: "not a url"}, nil)
	require.Error(t, err)
}
