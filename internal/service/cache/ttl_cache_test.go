package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTTLCacheSetGet(t *testing.T) {
	c := NewTTLCache()
	c.Set("k", 42, time.Minute)

	v, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, 42, v)

	_, ok = c.Get("missing")
	require.False(t, ok)
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache()
	c.Set("k", "v", 10*time.Millisecond)

	time.Sleep(25 * time.Millisecond)
	_, ok := c.Get("k")
	require.False(t, ok)
}

func TestTTLCacheZeroTTLNeverExpires(t *testing.T) {
	c := NewTTLCache()
	c.Set("k", "v", 0)

	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get("k")
	require.True(t, ok)
}

func TestTTLCacheDeletePrefix(t *testing.T) {
	c := NewTTLCache()
	c.Set("gap:VNM:0.100", 1, time.Minute)
	c.Set("gap:VNM:0.050", 2, time.Minute)
	c.Set("gap:FPT:0.100", 3, time.Minute)
	c.Set("smart:VNM:0.100:VCI", 4, time.Minute)

	c.DeletePrefix("gap:VNM")

	_, ok := c.Get("gap:VNM:0.100")
	require.False(t, ok)
	_, ok = c.Get("gap:VNM:0.050")
	require.False(t, ok)
	_, ok = c.Get("gap:FPT:0.100")
	require.True(t, ok)
	_, ok = c.Get("smart:VNM:0.100:VCI")
	require.True(t, ok)
}

func TestTTLCacheBytesRoundTrip(t *testing.T) {
	c := NewTTLCache()
	require.NoError(t, c.SetBytes("k", []byte("payload"), time.Minute))

	b, ok, err := c.GetBytes("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("payload"), b)

	// non-byte values are a miss, not an error
	c.Set("typed", 7, time.Minute)
	_, ok, err = c.GetBytes("typed")
	require.NoError(t, err)
	require.False(t, ok)
}
