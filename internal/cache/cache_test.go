package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialist-recommender/internal/logging"
)

type fakeRemote struct {
	items map[string]string
	err   error
	gets  int
}

func (f *fakeRemote) Get(_ context.Context, key string) (string, bool, error) {
	f.gets++
	if f.err != nil {
		return "", false, f.err
	}
	v, ok := f.items[key]
	return v, ok, nil
}

func (f *fakeRemote) Set(_ context.Context, key, value string) error {
	if f.err != nil {
		return f.err
	}
	f.items[key] = value
	return nil
}

func TestMemoryCache(t *testing.T) {
	_, err := NewMemoryCache(0, time.Minute)
	require.Error(t, err)

	m, err := NewMemoryCache(2, 0)
	require.NoError(t, err)

	m.Set("a", "Urologist")
	m.Set("b", "Dermatologist")
	m.Set("c", "Cardiologist")

	_, ok := m.Get("a")
	assert.False(t, ok, "oldest entry evicted")
	v, ok := m.Get("c")
	assert.True(t, ok)
	assert.Equal(t, "Cardiologist", v)
	assert.Equal(t, 2, m.Len())

	m.Purge()
	assert.Equal(t, 0, m.Len())
}

func TestMemoryCache_Expiry(t *testing.T) {
	m, err := NewMemoryCache(10, 20*time.Millisecond)
	require.NoError(t, err)

	m.Set("k", "v")
	_, ok := m.Get("k")
	require.True(t, ok)

	time.Sleep(60 * time.Millisecond)
	_, ok = m.Get("k")
	assert.False(t, ok)
}

func TestTiered_MemoryOnly(t *testing.T) {
	m, err := NewMemoryCache(10, 0)
	require.NoError(t, err)
	c := NewTiered(m, nil, logging.Discard())
	ctx := context.Background()

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)

	c.Set(ctx, "k", "Orthopedist")
	v, ok := c.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "Orthopedist", v)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.MemoryHits)
	assert.Equal(t, int64(1), stats.Misses)

	c.Purge()
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestTiered_RemoteBackfillsMemory(t *testing.T) {
	m, err := NewMemoryCache(10, 0)
	require.NoError(t, err)
	remote := &fakeRemote{items: map[string]string{"k": "Neurologist"}}
	c := NewTiered(m, remote, logging.Discard())
	ctx := context.Background()

	v, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "Neurologist", v)

	_, ok = c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, 1, remote.gets, "second lookup served from memory")
	assert.Equal(t, int64(1), c.Stats().RemoteHits)
}

func TestTiered_RemoteFailureIsAMiss(t *testing.T) {
	m, err := NewMemoryCache(10, 0)
	require.NoError(t, err)
	remote := &fakeRemote{items: map[string]string{}, err: errors.New("connection refused")}
	c := NewTiered(m, remote, logging.Discard())
	ctx := context.Background()

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)

	c.Set(ctx, "k", "Urologist")
	v, ok := c.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "Urologist", v)
	assert.Equal(t, int64(2), c.Stats().RemoteErrors)
}

func TestRedisCache_InvalidURL(t *testing.T) {
	_, err := NewRedisCache(RedisConfig{URL: "not a url"})
	assert.Error(t, err)
}

func TestRedisCache_BreakerOpensWhenUnreachable(t *testing.T) {
	r, err := NewRedisCache(RedisConfig{
		URL:         "redis://127.0.0.1:1/0",
		Timeout:     50 * time.Millisecond,
		BreakerOpen: time.Minute,
		Logger:      logging.Discard(),
	})
	require.NoError(t, err)
	defer r.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _, err := r.Get(ctx, "k")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, r.State())

	_, _, err = r.Get(ctx, "k")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}
