package mesh

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/SWAI-Ltd/onionmesh/internal/discovery"
	"github.com/SWAI-Ltd/onionmesh/internal/proto"
	"github.com/SWAI-Ltd/onionmesh/internal/transport"
)

// Generic failure code returned to the previous hop. The cause stays in the relay's log.
const codeRelayFailed = "RELAY_FAILED"

// RelayServer binds a Relay to a QUIC listener and optionally announces it over mDNS.
type RelayServer struct {
	relay  *Relay
	server *transport.Server
	disc   *discovery.Discovery
	peers  sync.Map // instance name -> discovery.Peer
	log    *slog.Logger
}

// RelayServerOption configures ListenRelay.
type RelayServerOption func(*relayServerOptions)

type relayServerOptions struct {
	discovery bool
}

// WithDiscovery announces the relay on the local network and records other relays seen there.
func WithDiscovery() RelayServerOption {
	return func(o *relayServerOptions) { o.discovery = true }
}

// ListenRelay starts serving r on addr.
func ListenRelay(ctx context.Context, addr string, r *Relay, opts ...RelayServerOption) (*RelayServer, error) {
	var o relayServerOptions
	for _, opt := range opts {
		opt(&o)
	}
	rs := &RelayServer{relay: r, log: r.log}
	server, err := transport.ListenQUICWithHandler(ctx, addr, rs.handleConn)
	if err != nil {
		return nil, err
	}
	rs.server = server

	if o.discovery {
		_, port, err := discovery.ParseAddr(server.LocalAddr())
		if err == nil {
			rs.disc, err = discovery.New(discovery.RelayName(r.ID()), port, rs.onPeerDiscovered)
		}
		if err != nil {
			server.Close()
			return nil, err
		}
	}
	rs.log.Info("relay listening", "addr", server.LocalAddr())
	return rs, nil
}

func (rs *RelayServer) onPeerDiscovered(peer discovery.Peer) {
	if peer.NodeID == rs.relay.ID() {
		return
	}
	if peer.Removed {
		rs.peers.Delete(peer.Name)
		rs.log.Debug("relay left", "peer", peer.NodeID)
		return
	}
	rs.peers.Store(peer.Name, peer)
	rs.log.Debug("relay discovered", "peer", peer.NodeID, "addr", peer.Addr)
}

// Peers returns the relays currently seen over mDNS, ordered by address.
func (rs *RelayServer) Peers() []discovery.Peer {
	var out []discovery.Peer
	rs.peers.Range(func(_, v any) bool {
		out = append(out, v.(discovery.Peer))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Addr < out[j].Addr })
	return out
}

func (rs *RelayServer) peerAddrs() []string {
	peers := rs.Peers()
	if len(peers) == 0 {
		return nil
	}
	addrs := make([]string, len(peers))
	for i, p := range peers {
		addrs[i] = p.Addr
	}
	return addrs
}

// Addr returns the local listen address.
func (rs *RelayServer) Addr() string { return rs.server.LocalAddr() }

// Close stops discovery and the listener.
func (rs *RelayServer) Close() error {
	if rs.disc != nil {
		rs.disc.Close()
	}
	return rs.server.Close()
}

func (rs *RelayServer) handleConn(c *transport.Conn) {
	defer c.Close()
	var f proto.Frame
	for {
		if err := c.RecvFrame(&f); err != nil {
			return
		}
		if err := c.SendFrame(rs.handleFrame(&f)); err != nil {
			rs.log.Debug("reply failed", "remote", c.RemoteAddr(), "err", err)
			return
		}
	}
}

func (rs *RelayServer) handleFrame(f *proto.Frame) *proto.Frame {
	switch f.Type {
	case proto.FrameTypeMessage:
		if f.Message == nil {
			return proto.NewError(codeRelayFailed, "error")
		}
		// The forward is not tied to the inbound connection: once started it completes or fails.
		if err := rs.relay.HandleMessage(context.Background(), f.Message.Payload); err != nil {
			return proto.NewError(codeRelayFailed, "error")
		}
		return proto.NewAck(f.Message.MessageID, "success")
	case proto.FrameTypeInspect:
		st := rs.relay.stateFrame(f.Inspect)
		st.Peers = rs.peerAddrs()
		return &proto.Frame{Type: proto.FrameTypeState, State: st}
	case proto.FrameTypeStatus:
		return proto.NewAck("", rs.relay.Status())
	default:
		return proto.NewError("UNKNOWN_FRAME", "unsupported frame type")
	}
}

func (r *Relay) stateFrame(req *proto.InspectFrame) *proto.StateFrame {
	st := &proto.StateFrame{Role: "relay", NodeID: r.id, PublicKey: r.pub}
	if req != nil && req.IncludePrivateKey {
		st.PrivateKey = r.PrivateKey()
	}
	if o, ok := r.Snapshot(); ok {
		dest := o.Destination
		st.LastEncryptedMessage = o.Encrypted
		st.LastDecryptedMessage = o.Decrypted
		st.LastDestination = &dest
		st.LastCircuit = []int{o.Hop.From, int(o.Hop.To)}
	}
	return st
}
