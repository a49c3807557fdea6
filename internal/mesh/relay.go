package mesh

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/SWAI-Ltd/onionmesh/internal/crypto"
	"github.com/SWAI-Ltd/onionmesh/internal/proto"
)

// StatusLive is what a healthy endpoint reports.
const StatusLive = "live"

// Sender hands a raw payload to the hop listening at addr.
type Sender interface {
	SendMessage(ctx context.Context, addr proto.Address, raw []byte) error
}

// Registrar publishes a relay's public key.
type Registrar interface {
	Register(ctx context.Context, nodeID int, publicKey string) error
}

// RelayConfig for NewRelay
type RelayConfig struct {
	NodeID    int
	Sender    Sender
	Registrar Registrar // optional; nil skips registration
	State     *State    // optional; nil allocates a fresh one
	Logger    *slog.Logger
}

// Relay strips one layer from each message it receives and forwards the rest.
// It never looks past the address field of its own layer.
type Relay struct {
	id     int
	keys   *crypto.KeyPair
	pub    string
	sender Sender
	state  *State
	log    *slog.Logger
}

// NewRelay generates the relay's key pair and registers the public key. A failed registration
// is logged and otherwise ignored: the relay still forwards, it just may not be discoverable.
func NewRelay(ctx context.Context, cfg RelayConfig) (*Relay, error) {
	if cfg.Sender == nil {
		return nil, fmt.Errorf("relay %d: no sender", cfg.NodeID)
	}
	keys, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	r := &Relay{
		id:     cfg.NodeID,
		keys:   keys,
		pub:    crypto.ExportPublicKey(keys.Public),
		sender: cfg.Sender,
		state:  cfg.State,
		log:    log.With("node", cfg.NodeID),
	}
	if r.state == nil {
		r.state = NewState()
	}

	if cfg.Registrar != nil {
		_ = r.Register(ctx, cfg.Registrar)
	}
	return r, nil
}

// Register publishes the relay's public key through reg. Failure is logged and returned,
// never retried. Call it after the relay's listener is bound.
func (r *Relay) Register(ctx context.Context, reg Registrar) error {
	if err := reg.Register(ctx, r.id, r.pub); err != nil {
		r.log.Warn("registration failed", "err", err)
		return err
	}
	r.log.Info("registered", "key_id", fmt.Sprintf("%x", crypto.KeyID(r.keys.Public)))
	return nil
}

// Peel decrypts one layer of raw and splits off the next hop. It touches no state.
func (r *Relay) Peel(raw []byte) ([]byte, proto.DecryptedLayer, error) {
	msg, err := proto.SplitWireFormat(raw)
	if err != nil {
		return nil, proto.DecryptedLayer{}, err
	}
	symKey, err := crypto.OpenKey(msg.KeyBlock, r.keys)
	if err != nil {
		return nil, proto.DecryptedLayer{}, err
	}
	body, err := crypto.SymDecrypt(symKey, msg.Body)
	if err != nil {
		return nil, proto.DecryptedLayer{}, err
	}
	layer, err := proto.SplitDecryptedBody(body)
	if err != nil {
		return nil, proto.DecryptedLayer{}, err
	}
	return body, layer, nil
}

// HandleMessage runs one message through decrypt, route and forward. Observability is
// recorded once routing succeeds and before forwarding, so a failed forward still shows
// what the relay decrypted. Failures before that point leave the state untouched.
func (r *Relay) HandleMessage(ctx context.Context, raw []byte) error {
	body, layer, err := r.Peel(raw)
	if err != nil {
		return r.fail(err, raw)
	}

	r.state.Record(Observation{
		Encrypted:   raw,
		Decrypted:   body,
		Destination: layer.Next,
		Hop:         CircuitHop{From: r.id, To: layer.Next},
	})

	if err := r.sender.SendMessage(ctx, layer.Next, layer.Payload); err != nil {
		return r.fail(fmt.Errorf("%w: forward to %s: %w", ErrTransport, layer.Next, err), raw)
	}
	relayedMessages.Inc()
	r.log.Debug("forwarded", "next", layer.Next, "bytes", len(layer.Payload))
	return nil
}

func (r *Relay) fail(err error, raw []byte) error {
	reason := failureReason(err)
	relayFailures.WithLabelValues(reason).Inc()
	r.log.Error("message failed", "reason", reason, "err", err, "bytes", len(raw), "msg", msgPrefix(raw))
	return fmt.Errorf("relay %d: %w", r.id, err)
}

// Bytes of a failing message kept in the log.
const logPrefixLen = 32

func msgPrefix(raw []byte) string {
	if len(raw) > logPrefixLen {
		return hex.EncodeToString(raw[:logPrefixLen]) + "..."
	}
	return hex.EncodeToString(raw)
}

// ID returns the relay's node id.
func (r *Relay) ID() int { return r.id }

// Status is the liveness probe.
func (r *Relay) Status() string { return StatusLive }

// PublicKey returns the exported public key as published to the registry.
func (r *Relay) PublicKey() string { return r.pub }

// PrivateKey exports the private key. Debug use only.
func (r *Relay) PrivateKey() string { return crypto.ExportPrivateKey(r.keys.Private) }

// Snapshot returns the last observation, or false before any message was processed.
func (r *Relay) Snapshot() (Observation, bool) { return r.state.Snapshot() }

// LastEncryptedMessage returns the raw input of the last processed message.
func (r *Relay) LastEncryptedMessage() ([]byte, bool) {
	o, ok := r.state.Snapshot()
	return o.Encrypted, ok
}

// LastDecryptedMessage returns the decrypted body of the last processed message.
func (r *Relay) LastDecryptedMessage() ([]byte, bool) {
	o, ok := r.state.Snapshot()
	return o.Decrypted, ok
}

// LastDestination returns the next hop of the last processed message.
func (r *Relay) LastDestination() (proto.Address, bool) {
	o, ok := r.state.Snapshot()
	return o.Destination, ok
}

// LastCircuitHop returns (self, next hop) for the last processed message.
func (r *Relay) LastCircuitHop() (CircuitHop, bool) {
	o, ok := r.state.Snapshot()
	return o.Hop, ok
}
