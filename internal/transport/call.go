package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/SWAI-Ltd/onionmesh/internal/proto"
)

// ErrRemote is returned when the peer answers with an Error frame.
var ErrRemote = errors.New("remote error")

// Call dials addr, sends f and waits for a single reply frame.
func Call(ctx context.Context, addr string, f *proto.Frame) (*proto.Frame, error) {
	conn, err := DialQUIC(ctx, addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := conn.SendFrame(f); err != nil {
		return nil, err
	}
	var reply proto.Frame
	if err := conn.RecvFrame(&reply); err != nil {
		return nil, err
	}
	if reply.Type == proto.FrameTypeError {
		if reply.Error == nil {
			return nil, ErrRemote
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrRemote, reply.Error.Code, reply.Error.Message)
	}
	return &reply, nil
}

// Sender delivers raw payloads to hop addresses, which are ports on Host.
type Sender struct {
	Host string
}

// NewSender returns a Sender dialing ports on host.
func NewSender(host string) *Sender {
	return &Sender{Host: host}
}

// HostPort resolves a hop address to a dialable host:port.
func (s *Sender) HostPort(addr proto.Address) string {
	return net.JoinHostPort(s.Host, strconv.FormatUint(uint64(addr), 10))
}

// SendMessage wraps raw in a Message frame and waits for the hop's Ack.
func (s *Sender) SendMessage(ctx context.Context, addr proto.Address, raw []byte) error {
	f := proto.NewMessage(raw)
	reply, err := Call(ctx, s.HostPort(addr), f)
	if err != nil {
		return err
	}
	if reply.Type != proto.FrameTypeAck || reply.Ack == nil || !reply.Ack.OK {
		return fmt.Errorf("unexpected reply type %d from %s", reply.Type, addr)
	}
	return nil
}
