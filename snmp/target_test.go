package snmp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in       string
		wantHost string
		wantPort int
	}{
		{"192.168.1.1", "192.168.1.1", 161},
		{"192.168.1.1:1161", "192.168.1.1", 1161},
		{"switch01", "switch01", 161},
		{"switch01.example.com:162", "switch01.example.com", 162},
	}

	for _, tt := range tests {
		tgt, err := ParseTarget(tt.in, 0)
		require.NoError(t, err, "parsing %q", tt.in)
		assert.Equal(t, tt.wantHost, tgt.Host)
		assert.Equal(t, tt.wantPort, tgt.Port)
	}
}

func TestParseTargetDefaultPort(t *testing.T) {
	tgt, err := ParseTarget("host", 1161)
	require.NoError(t, err)
	assert.Equal(t, 1161, tgt.Port)
}

func TestParseTargetInvalid(t *testing.T) {
	_, err := ParseTarget("", 0)
	require.Error(t, err)

	_, err = ParseTarget("host:0", 0)
	require.ErrorIs(t, err, ErrInvalidPort)

	_, err = ParseTarget("host:99999", 0)
	require.ErrorIs(t, err, ErrInvalidPort)

	_, err = ParseTarget("host:abc", 0)
	require.ErrorIs(t, err, ErrInvalidPort)

	_, err = ParseTarget(":161", 0)
	require.Error(t, err)
}

func TestTargetResolveLiteral(t *testing.T) {
	tgt, err := ParseTarget("127.0.0.1:1161", 0)
	require.NoError(t, err)

	addr, err := tgt.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", addr.IP.String())
	assert.Equal(t, 1161, addr.Port)

	// Cached on second resolve.
	again, err := tgt.Resolve(context.Background())
	require.NoError(t, err)
	assert.Same(t, addr, again)
}

func TestTargetString(t *testing.T) {
	tgt, err := ParseTarget("10.0.0.1", 0)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:161", tgt.String())
}
