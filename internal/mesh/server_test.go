package mesh

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SWAI-Ltd/onionmesh/internal/discovery"
	"github.com/SWAI-Ltd/onionmesh/internal/proto"
	"github.com/SWAI-Ltd/onionmesh/internal/transport"
)

func portOf(t *testing.T, addr string) proto.Address {
	t.Helper()
	_, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	p, err := strconv.ParseUint(port, 10, 64)
	require.NoError(t, err)
	return proto.Address(p)
}

// Relays and a user over real QUIC on loopback, with the onion built from the actual ports.
func TestServers_QUICCircuit(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sender := transport.NewSender("127.0.0.1")

	received := make(chan []byte, 1)
	dest := NewUser(UserConfig{UserID: 1, OnMessage: func(b []byte) { received <- b }})
	us, err := ListenUser(ctx, "127.0.0.1:0", dest)
	require.NoError(t, err)
	defer us.Close()

	var hops []Hop
	var servers []*RelayServer
	for id := 0; id < 3; id++ {
		r, err := NewRelay(ctx, RelayConfig{NodeID: id, Sender: sender})
		require.NoError(t, err)
		rs, err := ListenRelay(ctx, "127.0.0.1:0", r)
		require.NoError(t, err)
		defer rs.Close()
		servers = append(servers, rs)
		hops = append(hops, hopOf(r, portOf(t, rs.Addr())))
	}

	raw, err := BuildOnion(hops, portOf(t, us.Addr()), []byte("over quic"))
	require.NoError(t, err)
	require.NoError(t, sender.SendMessage(ctx, hops[0].Address, raw))

	select {
	case b := <-received:
		assert.Equal(t, "over quic", string(b))
	case <-ctx.Done():
		t.Fatal("message never arrived")
	}

	reply, err := transport.Call(ctx, servers[2].Addr(), &proto.Frame{Type: proto.FrameTypeInspect})
	require.NoError(t, err)
	require.NotNil(t, reply.State)
	assert.Equal(t, "relay", reply.State.Role)
	require.NotNil(t, reply.State.LastDestination)
	assert.Equal(t, portOf(t, us.Addr()), *reply.State.LastDestination)
	assert.Equal(t, []int{2, int(portOf(t, us.Addr()))}, reply.State.LastCircuit)
	assert.Empty(t, reply.State.PrivateKey)

	reply, err = transport.Call(ctx, servers[0].Addr(), &proto.Frame{Type: proto.FrameTypeInspect, Inspect: &proto.InspectFrame{IncludePrivateKey: true}})
	require.NoError(t, err)
	assert.NotEmpty(t, reply.State.PrivateKey)

	reply, err = transport.Call(ctx, us.Addr(), &proto.Frame{Type: proto.FrameTypeInspect})
	require.NoError(t, err)
	require.NotNil(t, reply.State.LastReceivedMessage)
	assert.Equal(t, "over quic", *reply.State.LastReceivedMessage)
	assert.Nil(t, reply.State.LastSentMessage)
}

func TestRelayServer_FailureAndStatus(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	r, err := NewRelay(ctx, RelayConfig{NodeID: 8, Sender: transport.NewSender("127.0.0.1")})
	require.NoError(t, err)
	rs, err := ListenRelay(ctx, "127.0.0.1:0", r)
	require.NoError(t, err)
	defer rs.Close()

	reply, err := transport.Call(ctx, rs.Addr(), &proto.Frame{Type: proto.FrameTypeStatus})
	require.NoError(t, err)
	assert.Equal(t, StatusLive, reply.Ack.Status)

	reply, err = transport.Call(ctx, rs.Addr(), &proto.Frame{Type: proto.FrameTypeInspect})
	require.NoError(t, err)
	assert.Nil(t, reply.State.LastDestination)
	assert.Nil(t, reply.State.LastEncryptedMessage)

	_, err = transport.Call(ctx, rs.Addr(), proto.NewMessage(make([]byte, proto.KeyBlockSize-1)))
	assert.ErrorIs(t, err, transport.ErrRemote)
	assert.Contains(t, err.Error(), codeRelayFailed)
	_, ok := r.Snapshot()
	assert.False(t, ok)
}

func TestRelayServer_DiscoveredPeers(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	r, err := NewRelay(ctx, RelayConfig{NodeID: 1, Sender: newMemNet()})
	require.NoError(t, err)
	rs, err := ListenRelay(ctx, "127.0.0.1:0", r)
	require.NoError(t, err)
	defer rs.Close()

	rs.onPeerDiscovered(discovery.Peer{Name: discovery.RelayName(1), NodeID: 1, Addr: "10.0.0.1:4001"})
	rs.onPeerDiscovered(discovery.Peer{Name: discovery.RelayName(3), NodeID: 3, Addr: "10.0.0.3:4003"})
	rs.onPeerDiscovered(discovery.Peer{Name: discovery.RelayName(2), NodeID: 2, Addr: "10.0.0.2:4002"})

	// The relay's own announcement is not a peer.
	require.Len(t, rs.Peers(), 2)

	reply, err := transport.Call(ctx, rs.Addr(), &proto.Frame{Type: proto.FrameTypeInspect})
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.2:4002", "10.0.0.3:4003"}, reply.State.Peers)

	rs.onPeerDiscovered(discovery.Peer{Name: discovery.RelayName(3), NodeID: 3, Removed: true})
	reply, err = transport.Call(ctx, rs.Addr(), &proto.Frame{Type: proto.FrameTypeInspect})
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.2:4002"}, reply.State.Peers)

	rs.onPeerDiscovered(discovery.Peer{Name: discovery.RelayName(2), NodeID: 2, Removed: true})
	reply, err = transport.Call(ctx, rs.Addr(), &proto.Frame{Type: proto.FrameTypeInspect})
	require.NoError(t, err)
	assert.Nil(t, reply.State.Peers)
}
