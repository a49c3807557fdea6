package registry

import (
	"context"
	"fmt"

	"github.com/SWAI-Ltd/onionmesh/internal/proto"
	"github.com/SWAI-Ltd/onionmesh/internal/transport"
)

// Client talks to a registry Server.
type Client struct {
	Addr string
}

// NewClient returns a Client for the registry at addr (host:port).
func NewClient(addr string) *Client {
	return &Client{Addr: addr}
}

// Register publishes nodeID's exported public key.
func (c *Client) Register(ctx context.Context, nodeID int, publicKey string) error {
	_, err := transport.Call(ctx, c.Addr, &proto.Frame{
		Type:     proto.FrameTypeRegister,
		Register: &proto.RegisterFrame{NodeInfo: proto.NodeInfo{NodeID: nodeID, PublicKey: publicKey}},
	})
	if err != nil {
		return fmt.Errorf("register node %d: %w", nodeID, err)
	}
	return nil
}

// Nodes fetches the current directory.
func (c *Client) Nodes(ctx context.Context) ([]proto.NodeInfo, error) {
	reply, err := transport.Call(ctx, c.Addr, &proto.Frame{Type: proto.FrameTypeLookup})
	if err != nil {
		return nil, fmt.Errorf("registry lookup: %w", err)
	}
	if reply.Type != proto.FrameTypeDirectory || reply.Directory == nil {
		return nil, fmt.Errorf("registry lookup: unexpected reply type %d", reply.Type)
	}
	return reply.Directory.Nodes, nil
}
