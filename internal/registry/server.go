package registry

import (
	"context"
	"log/slog"

	"github.com/SWAI-Ltd/onionmesh/internal/proto"
	"github.com/SWAI-Ltd/onionmesh/internal/transport"
)

// Server exposes a Registry over QUIC.
type Server struct {
	server *transport.Server
	reg    *Registry
	log    *slog.Logger
}

// Listen serves reg on addr until ctx is done.
func Listen(ctx context.Context, addr string, reg *Registry, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{reg: reg, log: log.With("component", "registry")}
	server, err := transport.ListenQUICWithHandler(ctx, addr, s.handleConn)
	if err != nil {
		return nil, err
	}
	s.server = server
	s.log.Info("registry listening", "addr", server.LocalAddr())
	return s, nil
}

// Addr returns the listen address.
func (s *Server) Addr() string { return s.server.LocalAddr() }

// Close stops the listener.
func (s *Server) Close() error { return s.server.Close() }

func (s *Server) handleConn(c *transport.Conn) {
	defer c.Close()
	var f proto.Frame
	for {
		if err := c.RecvFrame(&f); err != nil {
			return
		}
		if err := c.SendFrame(s.handleFrame(&f)); err != nil {
			return
		}
	}
}

func (s *Server) handleFrame(f *proto.Frame) *proto.Frame {
	switch f.Type {
	case proto.FrameTypeRegister:
		if f.Register == nil {
			return proto.NewError("BAD_REQUEST", "missing register body")
		}
		if err := s.reg.Register(f.Register.NodeInfo); err != nil {
			s.log.Warn("rejected registration", "node", f.Register.NodeID, "err", err)
			return proto.NewError("BAD_KEY", err.Error())
		}
		s.log.Info("node registered", "node", f.Register.NodeID)
		return proto.NewAck("", "")
	case proto.FrameTypeLookup:
		return &proto.Frame{Type: proto.FrameTypeDirectory, Directory: &proto.DirectoryFrame{Nodes: s.reg.Nodes()}}
	case proto.FrameTypeStatus:
		return proto.NewAck("", "live")
	default:
		return proto.NewError("UNKNOWN_FRAME", "unsupported frame type")
	}
}
