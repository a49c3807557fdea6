// Package client provides the onionmesh developer SDK: a user endpoint that sends messages
// through random relay circuits and delivers received plaintext on a channel.
package client

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/SWAI-Ltd/onionmesh/internal/mesh"
	"github.com/SWAI-Ltd/onionmesh/internal/registry"
	"github.com/SWAI-Ltd/onionmesh/internal/transport"
)

const (
	// DefaultMessageBuffer is the buffer size for the Messages() channel.
	DefaultMessageBuffer = 64
)

// ErrClosed is returned when using a client after Close.
var ErrClosed = errors.New("client closed")

// ReceivedMessage is a message delivered to this user.
type ReceivedMessage struct {
	Payload []byte
}

// Config configures the client.
type Config struct {
	// UserID selects the listen port (Ports.BaseUserPort + UserID) unless Addr is set.
	UserID int
	// Addr overrides the local QUIC listen address (e.g. "127.0.0.1:0").
	Addr string
	// Ports is the addressing scheme; the zero value uses mesh.DefaultPorts.
	Ports mesh.Ports
	// RegistryAddr overrides Ports.Registry().
	RegistryAddr string
	// CircuitLength is the number of relays per message; 0 uses mesh.DefaultCircuitLength.
	CircuitLength int
	// MessageBuffer sets the capacity of Messages() channel; 0 uses DefaultMessageBuffer.
	MessageBuffer int
	Logger        *slog.Logger
}

// Client is the developer-facing user endpoint. Use Send and read from Messages().
type Client struct {
	user   *mesh.User
	server *mesh.UserServer
	msgs   chan ReceivedMessage
	closed bool
	mu     sync.Mutex
}

// New starts a user endpoint listening for deliveries.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Ports == (mesh.Ports{}) {
		cfg.Ports = mesh.DefaultPorts
	}
	if cfg.Addr == "" {
		cfg.Addr = cfg.Ports.Listen(cfg.Ports.UserAddress(cfg.UserID))
	}
	if cfg.RegistryAddr == "" {
		cfg.RegistryAddr = cfg.Ports.Registry()
	}
	buf := cfg.MessageBuffer
	if buf <= 0 {
		buf = DefaultMessageBuffer
	}
	c := &Client{msgs: make(chan ReceivedMessage, buf)}
	c.user = mesh.NewUser(mesh.UserConfig{
		UserID:        cfg.UserID,
		Directory:     registry.NewClient(cfg.RegistryAddr),
		Sender:        transport.NewSender(cfg.Ports.Host),
		Ports:         cfg.Ports,
		CircuitLength: cfg.CircuitLength,
		Logger:        cfg.Logger,
		OnMessage:     c.deliver,
	})
	server, err := mesh.ListenUser(ctx, cfg.Addr, c.user)
	if err != nil {
		return nil, err
	}
	c.server = server
	return c, nil
}

func (c *Client) deliver(payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.msgs <- ReceivedMessage{Payload: payload}:
	default:
		// channel full; the message is still visible through LastReceivedMessage
	}
}

// Send routes message to destUserID through a fresh circuit.
func (c *Client) Send(ctx context.Context, message string, destUserID int) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return c.user.SendMessage(ctx, message, destUserID)
}

// Messages returns the channel of received messages. Read until the client is closed.
func (c *Client) Messages() <-chan ReceivedMessage {
	return c.msgs
}

// LastCircuit returns the relay ids used by the last Send.
func (c *Client) LastCircuit() ([]int, bool) {
	return c.user.LastCircuit()
}

// Addr returns the local QUIC listen address.
func (c *Client) Addr() string {
	return c.server.Addr()
}

// Close shuts down the client and closes the Messages() channel.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.msgs)
	c.mu.Unlock()
	return c.server.Close()
}
