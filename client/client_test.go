package client

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SWAI-Ltd/onionmesh/internal/mesh"
	"github.com/SWAI-Ltd/onionmesh/internal/registry"
	"github.com/SWAI-Ltd/onionmesh/internal/transport"
)

// freePort returns a UDP port that was free a moment ago.
func freePort(t *testing.T) int {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()
	return pc.LocalAddr().(*net.UDPAddr).Port
}

// With zero base ports every id is its own port, so ids can be picked from free ports.
var testPorts = mesh.Ports{Host: "127.0.0.1"}

func TestClient_SendReceive(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	reg, err := registry.Listen(ctx, "127.0.0.1:0", registry.New(), nil)
	require.NoError(t, err)
	defer reg.Close()
	regClient := registry.NewClient(reg.Addr())

	for i := 0; i < 3; i++ {
		id := freePort(t)
		r, err := mesh.NewRelay(ctx, mesh.RelayConfig{
			NodeID:    id,
			Sender:    transport.NewSender(testPorts.Host),
			Registrar: regClient,
		})
		require.NoError(t, err)
		rs, err := mesh.ListenRelay(ctx, testPorts.Listen(testPorts.RelayAddress(id)), r)
		require.NoError(t, err)
		defer rs.Close()
	}

	newClient := func() *Client {
		c, err := New(ctx, Config{UserID: freePort(t), Ports: testPorts, RegistryAddr: reg.Addr()})
		require.NoError(t, err)
		return c
	}
	alice, bob := newClient(), newClient()
	defer alice.Close()
	defer bob.Close()

	require.NoError(t, alice.Send(ctx, "hi bob", bob.user.ID()))

	select {
	case m := <-bob.Messages():
		assert.Equal(t, "hi bob", string(m.Payload))
	case <-ctx.Done():
		t.Fatal("no delivery")
	}
	circuit, ok := alice.LastCircuit()
	require.True(t, ok)
	assert.Len(t, circuit, mesh.DefaultCircuitLength)
}

func TestClient_Closed(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, Config{UserID: freePort(t), Ports: testPorts, RegistryAddr: "127.0.0.1:1"})
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Send(ctx, "x", 1), ErrClosed)

	_, open := <-c.Messages()
	assert.False(t, open)
}
