package mesh

import (
	"context"

	"github.com/SWAI-Ltd/onionmesh/internal/proto"
	"github.com/SWAI-Ltd/onionmesh/internal/transport"
)

// UserServer binds a User to a QUIC listener.
type UserServer struct {
	user   *User
	server *transport.Server
}

// ListenUser starts serving u on addr.
func ListenUser(ctx context.Context, addr string, u *User) (*UserServer, error) {
	us := &UserServer{user: u}
	server, err := transport.ListenQUICWithHandler(ctx, addr, us.handleConn)
	if err != nil {
		return nil, err
	}
	us.server = server
	u.log.Info("user listening", "addr", server.LocalAddr())
	return us, nil
}

// Addr returns the local listen address.
func (us *UserServer) Addr() string { return us.server.LocalAddr() }

// Close stops the listener.
func (us *UserServer) Close() error { return us.server.Close() }

func (us *UserServer) handleConn(c *transport.Conn) {
	defer c.Close()
	var f proto.Frame
	for {
		if err := c.RecvFrame(&f); err != nil {
			return
		}
		if err := c.SendFrame(us.handleFrame(&f)); err != nil {
			return
		}
	}
}

func (us *UserServer) handleFrame(f *proto.Frame) *proto.Frame {
	switch f.Type {
	case proto.FrameTypeMessage:
		if f.Message == nil {
			return proto.NewError("BAD_REQUEST", "missing message body")
		}
		us.user.Receive(f.Message.Payload)
		return proto.NewAck(f.Message.MessageID, "success")
	case proto.FrameTypeSend:
		if f.Send == nil {
			return proto.NewError("BAD_REQUEST", "missing send body")
		}
		if err := us.user.SendMessage(context.Background(), f.Send.Message, f.Send.DestinationUserID); err != nil {
			return proto.NewError("SEND_FAILED", err.Error())
		}
		return proto.NewAck("", "success")
	case proto.FrameTypeInspect:
		return &proto.Frame{Type: proto.FrameTypeState, State: us.user.stateFrame()}
	case proto.FrameTypeStatus:
		return proto.NewAck("", us.user.Status())
	default:
		return proto.NewError("UNKNOWN_FRAME", "unsupported frame type")
	}
}
