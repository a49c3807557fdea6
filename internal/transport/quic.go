package transport

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"io"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/SWAI-Ltd/onionmesh/internal/proto"
	"github.com/quic-go/quic-go"
)

// Default idle timeout: 5 minutes. A forward blocks until every later hop has answered.
var defaultQuicConfig = &quic.Config{
	MaxIdleTimeout: 5 * time.Minute,
}

const (
	AddrLADDR = ":0"
	ProtoID   = "onionmesh/1"
)

// Conn wraps a QUIC stream with frame read/write
type Conn struct {
	Stream quic.Stream
	Conn   quic.Connection
	dialed bool
}

// NewConnWithConn wraps an accepted QUIC stream and its connection
func NewConnWithConn(stream quic.Stream, conn quic.Connection) *Conn {
	return &Conn{Stream: stream, Conn: conn}
}

// RemoteAddr returns the peer address
func (c *Conn) RemoteAddr() string {
	if c.Conn != nil {
		return c.Conn.RemoteAddr().String()
	}
	return "unknown"
}

// SendFrame encodes and sends a frame
func (c *Conn) SendFrame(f *proto.Frame) error {
	return f.Encode(c.Stream)
}

// RecvFrame reads and decodes a frame
func (c *Conn) RecvFrame(f *proto.Frame) error {
	return f.Decode(c.Stream)
}

// Close closes the stream, and the connection too if we dialed it.
func (c *Conn) Close() error {
	err := c.Stream.Close()
	if c.dialed && c.Conn != nil {
		c.Conn.CloseWithError(0, "")
	}
	return err
}

// generateTLSConfig creates a self-signed cert for development
func generateTLSConfig() (*tls.Config, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	template := x509.Certificate{
		SerialNumber:          big.NewInt(1),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	tlsCert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{tlsCert},
		NextProtos:   []string{ProtoID},
	}, nil
}

// Server runs a QUIC listener
type Server struct {
	Listener *quic.Listener
	Handler  func(*Conn)
	closed   atomic.Bool
}

// ListenQUICWithHandler starts a QUIC server with handler set before accepting.
func ListenQUICWithHandler(ctx context.Context, addr string, handler func(*Conn)) (*Server, error) {
	tlsCfg, err := generateTLSConfig()
	if err != nil {
		return nil, err
	}
	listener, err := quic.ListenAddr(addr, tlsCfg, defaultQuicConfig)
	if err != nil {
		return nil, err
	}
	s := &Server{Listener: listener, Handler: handler}
	go s.acceptLoop(ctx)
	return s, nil
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		sess, err := s.Listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil || s.closed.Load() {
				return
			}
			continue
		}
		go func() {
			stream, err := sess.AcceptStream(ctx)
			if err != nil {
				return
			}
			if s.Handler != nil {
				s.Handler(NewConnWithConn(stream, sess))
			} else {
				io.Copy(io.Discard, stream)
			}
		}()
	}
}

// DialQUIC connects to a QUIC server (skips cert verification for dev)
func DialQUIC(ctx context.Context, addr string) (*Conn, error) {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{ProtoID},
	}
	sess, err := quic.DialAddr(ctx, addr, tlsCfg, defaultQuicConfig)
	if err != nil {
		return nil, err
	}
	stream, err := sess.OpenStreamSync(ctx)
	if err != nil {
		sess.CloseWithError(0, "")
		return nil, err
	}
	return &Conn{Stream: stream, Conn: sess, dialed: true}, nil
}

// LocalAddr returns the address of the QUIC listener
func (s *Server) LocalAddr() string {
	return s.Listener.Addr().String()
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	s.closed.Store(true)
	return s.Listener.Close()
}
