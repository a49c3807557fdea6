package mesh

import (
	"errors"
	"fmt"

	"github.com/SWAI-Ltd/onionmesh/internal/crypto"
	"github.com/SWAI-Ltd/onionmesh/internal/proto"
)

// Hop is one relay of a circuit as known to the sender.
type Hop struct {
	NodeID    int
	Address   proto.Address
	PublicKey *[crypto.PublicKeySize]byte
}

// HopFromInfo resolves a registry entry into a Hop using ports.
func HopFromInfo(n proto.NodeInfo, ports Ports) (Hop, error) {
	pub, err := crypto.ImportPublicKey(n.PublicKey)
	if err != nil {
		return Hop{}, fmt.Errorf("node %d: %w", n.NodeID, err)
	}
	return Hop{NodeID: n.NodeID, Address: ports.RelayAddress(n.NodeID), PublicKey: pub}, nil
}

// BuildOnion wraps payload in one layer per hop, innermost first. hops[0] is the entry relay
// and the returned bytes are what it should receive. The last hop forwards to dest.
func BuildOnion(hops []Hop, dest proto.Address, payload []byte) ([]byte, error) {
	if len(hops) == 0 {
		return nil, errors.New("build onion: empty circuit")
	}
	inner := payload
	next := dest
	for i := len(hops) - 1; i >= 0; i-- {
		if hops[i].PublicKey == nil {
			return nil, fmt.Errorf("build onion: hop %d: no public key", hops[i].NodeID)
		}
		symKey, err := crypto.NewSymKey()
		if err != nil {
			return nil, err
		}
		keyBlock, err := crypto.SealKey(symKey, hops[i].PublicKey)
		if err != nil {
			return nil, fmt.Errorf("build onion: hop %d: %w", hops[i].NodeID, err)
		}
		layer, err := proto.EncodeLayer(keyBlock, next, inner, func(body []byte) ([]byte, error) {
			return crypto.SymEncrypt(symKey, body)
		})
		if err != nil {
			return nil, fmt.Errorf("build onion: hop %d: %w", hops[i].NodeID, err)
		}
		inner = layer.Marshal()
		next = hops[i].Address
	}
	return inner, nil
}
