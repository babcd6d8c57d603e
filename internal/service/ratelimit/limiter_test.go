package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllowConsumesCapacity(t *testing.T) {
	l := New()

	// capacity 3 with no refill: exactly three requests pass
	for i := 0; i < 3; i++ {
		require.True(t, l.Allow("k", 3, 0), "request %d", i)
	}
	require.False(t, l.Allow("k", 3, 0))
}

func TestAllowIsPerKey(t *testing.T) {
	l := New()

	require.True(t, l.Allow("a", 1, 0))
	require.False(t, l.Allow("a", 1, 0))
	// a different key has its own bucket
	require.True(t, l.Allow("b", 1, 0))
}
