package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelayName(t *testing.T) {
	assert.Equal(t, "relay-5", RelayName(5))
	assert.Equal(t, 5, NodeIDFromName(RelayName(5)))
	assert.Equal(t, -1, NodeIDFromName("printer"))
	assert.Equal(t, -1, NodeIDFromName("relay-x"))
	assert.Equal(t, -1, NodeIDFromName("relay--3"))
}

func TestPeerFrom(t *testing.T) {
	p, ok := peerFrom("relay-2", 4002, []string{"fe80::1", "192.168.1.5"})
	require.True(t, ok)
	assert.Equal(t, Peer{Name: "relay-2", NodeID: 2, Addr: "192.168.1.5:4002", Port: 4002}, p)

	p, ok = peerFrom("relay-3", 4003, []string{"fe80::1"})
	require.True(t, ok)
	assert.Equal(t, "[fe80::1]:4003", p.Addr)

	_, ok = peerFrom("relay-4", 4004, nil)
	assert.False(t, ok)
}

func TestPeerEvent(t *testing.T) {
	p, ok := peerEvent("relay-6", 4006, []string{"10.0.0.6"}, false)
	require.True(t, ok)
	assert.False(t, p.Removed)
	assert.Equal(t, "10.0.0.6:4006", p.Addr)

	// A departing relay is reported even without addresses.
	p, ok = peerEvent("relay-6", 0, nil, true)
	require.True(t, ok)
	assert.Equal(t, Peer{Name: "relay-6", NodeID: 6, Removed: true}, p)
}

func TestParseAddr(t *testing.T) {
	host, port, err := ParseAddr("127.0.0.1:4001")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", host)
	assert.Equal(t, 4001, port)

	_, _, err = ParseAddr("nope")
	assert.Error(t, err)
}
