package mesh

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/SWAI-Ltd/onionmesh/internal/proto"
)

// DefaultCircuitLength is the number of relays a user routes through.
const DefaultCircuitLength = 3

// Directory lists the registered relays.
type Directory interface {
	Nodes(ctx context.Context) ([]proto.NodeInfo, error)
}

// UserConfig for NewUser
type UserConfig struct {
	UserID        int
	Directory     Directory
	Sender        Sender
	Ports         Ports
	CircuitLength int                  // 0 uses DefaultCircuitLength
	OnMessage     func(payload []byte) // optional
	Logger        *slog.Logger
	// Shuffle orders candidate relays before the first CircuitLength are taken.
	// Nil uses math/rand/v2.
	Shuffle func(n int, swap func(i, j int))
}

// User is a terminal endpoint: it builds onions toward other users and receives the
// plaintext that exits the last relay.
type User struct {
	cfg UserConfig
	log *slog.Logger

	mu           sync.RWMutex
	lastReceived *string
	lastSent     *string
	lastCircuit  []int
}

// NewUser creates a user endpoint.
func NewUser(cfg UserConfig) *User {
	if cfg.CircuitLength <= 0 {
		cfg.CircuitLength = DefaultCircuitLength
	}
	if cfg.Shuffle == nil {
		cfg.Shuffle = rand.Shuffle
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &User{cfg: cfg, log: log.With("user", cfg.UserID)}
}

// ID returns the user id.
func (u *User) ID() int { return u.cfg.UserID }

// Status is the liveness probe.
func (u *User) Status() string { return StatusLive }

// Receive records a delivered plaintext.
func (u *User) Receive(payload []byte) {
	msg := string(payload)
	u.mu.Lock()
	u.lastReceived = &msg
	u.mu.Unlock()
	userMessages.WithLabelValues("received").Inc()
	u.log.Debug("message received", "bytes", len(payload))
	if u.cfg.OnMessage != nil {
		u.cfg.OnMessage(payload)
	}
}

// SendMessage routes message to destUserID through a fresh random circuit.
func (u *User) SendMessage(ctx context.Context, message string, destUserID int) error {
	if u.cfg.Directory == nil || u.cfg.Sender == nil {
		return fmt.Errorf("user %d: no directory or sender configured", u.cfg.UserID)
	}
	hops, err := u.pickCircuit(ctx)
	if err != nil {
		return fmt.Errorf("user %d: %w", u.cfg.UserID, err)
	}
	onion, err := BuildOnion(hops, u.cfg.Ports.UserAddress(destUserID), []byte(message))
	if err != nil {
		return fmt.Errorf("user %d: %w", u.cfg.UserID, err)
	}

	circuit := make([]int, len(hops))
	for i, h := range hops {
		circuit[i] = h.NodeID
	}
	u.mu.Lock()
	u.lastSent = &message
	u.lastCircuit = circuit
	u.mu.Unlock()

	if err := u.cfg.Sender.SendMessage(ctx, hops[0].Address, onion); err != nil {
		u.log.Error("send failed", "entry", hops[0].NodeID, "err", err)
		return fmt.Errorf("user %d: %w: entry relay %d: %w", u.cfg.UserID, ErrTransport, hops[0].NodeID, err)
	}
	userMessages.WithLabelValues("sent").Inc()
	u.log.Info("message sent", "dest", destUserID, "circuit", circuit)
	return nil
}

func (u *User) pickCircuit(ctx context.Context) ([]Hop, error) {
	nodes, err := u.cfg.Directory.Nodes(ctx)
	if err != nil {
		return nil, err
	}
	if len(nodes) < u.cfg.CircuitLength {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughRelays, len(nodes), u.cfg.CircuitLength)
	}
	nodes = append([]proto.NodeInfo(nil), nodes...)
	u.cfg.Shuffle(len(nodes), func(i, j int) { nodes[i], nodes[j] = nodes[j], nodes[i] })

	hops := make([]Hop, u.cfg.CircuitLength)
	for i := range hops {
		h, err := HopFromInfo(nodes[i], u.cfg.Ports)
		if err != nil {
			return nil, err
		}
		hops[i] = h
	}
	return hops, nil
}

// LastReceivedMessage returns the last delivered plaintext.
func (u *User) LastReceivedMessage() (string, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.lastReceived == nil {
		return "", false
	}
	return *u.lastReceived, true
}

// LastSentMessage returns the last message this user originated.
func (u *User) LastSentMessage() (string, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.lastSent == nil {
		return "", false
	}
	return *u.lastSent, true
}

// LastCircuit returns the relay ids of the last circuit, entry first.
func (u *User) LastCircuit() ([]int, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.lastCircuit == nil {
		return nil, false
	}
	return append([]int(nil), u.lastCircuit...), true
}

func (u *User) stateFrame() *proto.StateFrame {
	st := &proto.StateFrame{Role: "user", NodeID: u.cfg.UserID}
	if m, ok := u.LastReceivedMessage(); ok {
		st.LastReceivedMessage = &m
	}
	if m, ok := u.LastSentMessage(); ok {
		st.LastSentMessage = &m
	}
	st.LastCircuit, _ = u.LastCircuit()
	return st
}
