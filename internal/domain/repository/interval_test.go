package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeInterval(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", Interval5m},
		{"1m", Interval1m},
		{"5m", Interval5m},
		{"15m", Interval15m},
		{"30m", Interval5m},
		{"bogus", Interval5m},
	}
	for _, c := range cases {
		require.Equal(t, c.want, NormalizeInterval(c.in), "input %q", c.in)
	}
}

func TestIsValidInterval(t *testing.T) {
	require.True(t, IsValidInterval(Interval1m))
	require.True(t, IsValidInterval(Interval15m))
	require.False(t, IsValidInterval(""))
	require.False(t, IsValidInterval("1h"))
}
