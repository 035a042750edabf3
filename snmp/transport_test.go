package snmp

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointSendRecv(t *testing.T) {
	a, err := OpenEndpoint(0)
	require.NoError(t, err)
	defer a.Close()

	b, err := OpenEndpoint(0)
	require.NoError(t, err)
	defer b.Close()

	payload := []byte{0x30, 0x03, 0x02, 0x01, 0x00}
	require.NoError(t, a.Send(b.LocalAddr(), payload))

	buf := make([]byte, 64)
	n, from, err := b.Recv(buf, time.Second)
	require.NoError(t, err)
	assert.Equal(t, payload, buf[:n])
	assert.Equal(t, a.LocalAddr().Port, from.Port)
}

func TestEndpointRecvTimeout(t *testing.T) {
	e, err := OpenEndpoint(0)
	require.NoError(t, err)
	defer e.Close()

	buf := make([]byte, 64)
	start := time.Now()
	_, _, err = e.Recv(buf, 50*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestOpenEndpointInvalidPort(t *testing.T) {
	_, err := OpenEndpoint(-1)
	require.ErrorIs(t, err, ErrInvalidPort)

	_, err = OpenEndpoint(70000)
	require.ErrorIs(t, err, ErrInvalidPort)
}

func TestEndpointSendInvalidPort(t *testing.T) {
	e, err := OpenEndpoint(0)
	require.NoError(t, err)
	defer e.Close()

	err = e.Send(&net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 700000}, []byte{0x00})
	require.ErrorIs(t, err, ErrInvalidPort)
}
