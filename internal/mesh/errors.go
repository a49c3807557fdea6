package mesh

import (
	"errors"

	"github.com/SWAI-Ltd/onionmesh/internal/crypto"
	"github.com/SWAI-Ltd/onionmesh/internal/proto"
)

// ErrTransport wraps any failure to hand the remaining payload to the next hop.
var ErrTransport = errors.New("transport error")

// ErrNotEnoughRelays is returned when the directory cannot fill a circuit.
var ErrNotEnoughRelays = errors.New("not enough relays")

// failureReason maps an error onto the relay error taxonomy for metrics and logs.
func failureReason(err error) string {
	switch {
	// A forward failure may wrap whatever went wrong further down the circuit.
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, proto.ErrMalformedMessage):
		return "malformed_message"
	case errors.Is(err, crypto.ErrDecryption):
		return "decryption"
	case errors.Is(err, proto.ErrMalformedAddress):
		return "malformed_address"
	default:
		return "other"
	}
}
