package proto

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/SWAI-Ltd/onionmesh/internal/crypto"
)

const (
	// KeyBlockSize is the length of the sealed symmetric key at the front of every layer.
	KeyBlockSize = crypto.SealedKeySize
	// AddressFieldWidth is the zero-padded decimal width of the next-hop field.
	AddressFieldWidth = 10
)

var (
	ErrMalformedMessage = errors.New("malformed message")
	ErrMalformedAddress = errors.New("malformed address")
)

// Address identifies a hop. In practice it is the port the hop listens on.
type Address uint64

func (a Address) String() string { return strconv.FormatUint(uint64(a), 10) }

// RelayMessage is one layer as carried between hops.
type RelayMessage struct {
	KeyBlock []byte // sealed symmetric key, KeyBlockSize bytes
	Body     []byte // symmetric ciphertext of a DecryptedLayer
}

// Marshal returns the wire form: key block followed by body.
func (m RelayMessage) Marshal() []byte {
	out := make([]byte, 0, len(m.KeyBlock)+len(m.Body))
	out = append(out, m.KeyBlock...)
	return append(out, m.Body...)
}

// DecryptedLayer is the plaintext of a RelayMessage body.
type DecryptedLayer struct {
	Next    Address
	Payload []byte // next RelayMessage, or terminal plaintext at the last hop
}

// Sealer encrypts a layer body under the layer's symmetric key.
type Sealer func(body []byte) ([]byte, error)

// PadAddress renders a as a fixed-width, zero-padded decimal field.
func PadAddress(a Address) (string, error) {
	s := fmt.Sprintf("%0*d", AddressFieldWidth, uint64(a))
	if len(s) != AddressFieldWidth {
		return "", fmt.Errorf("%w: %d does not fit in %d digits", ErrMalformedAddress, uint64(a), AddressFieldWidth)
	}
	return s, nil
}

// EncodeBody concatenates the padded next-hop field with the inner payload.
func EncodeBody(next Address, inner []byte) ([]byte, error) {
	field, err := PadAddress(next)
	if err != nil {
		return nil, err
	}
	body := make([]byte, 0, AddressFieldWidth+len(inner))
	body = append(body, field...)
	return append(body, inner...), nil
}

// EncodeLayer lays out one hop: keyBlock must already hold the sealed symmetric key and seal
// must encrypt under that same key.
func EncodeLayer(keyBlock []byte, next Address, inner []byte, seal Sealer) (RelayMessage, error) {
	if len(keyBlock) != KeyBlockSize {
		return RelayMessage{}, fmt.Errorf("%w: key block is %d bytes, want %d", ErrMalformedMessage, len(keyBlock), KeyBlockSize)
	}
	body, err := EncodeBody(next, inner)
	if err != nil {
		return RelayMessage{}, err
	}
	enc, err := seal(body)
	if err != nil {
		return RelayMessage{}, err
	}
	return RelayMessage{KeyBlock: keyBlock, Body: enc}, nil
}

// SplitWireFormat slices raw into key block and body. The result aliases raw.
func SplitWireFormat(raw []byte) (RelayMessage, error) {
	if len(raw) < KeyBlockSize {
		return RelayMessage{}, fmt.Errorf("%w: %d bytes, need at least %d", ErrMalformedMessage, len(raw), KeyBlockSize)
	}
	return RelayMessage{KeyBlock: raw[:KeyBlockSize], Body: raw[KeyBlockSize:]}, nil
}

// SplitDecryptedBody parses the next-hop field and returns the rest untouched.
func SplitDecryptedBody(body []byte) (DecryptedLayer, error) {
	if len(body) < AddressFieldWidth {
		return DecryptedLayer{}, fmt.Errorf("%w: body is %d bytes", ErrMalformedAddress, len(body))
	}
	field := body[:AddressFieldWidth]
	for _, c := range field {
		if c < '0' || c > '9' {
			return DecryptedLayer{}, fmt.Errorf("%w: %q", ErrMalformedAddress, field)
		}
	}
	n, err := strconv.ParseUint(string(field), 10, 64)
	if err != nil {
		return DecryptedLayer{}, fmt.Errorf("%w: %v", ErrMalformedAddress, err)
	}
	return DecryptedLayer{Next: Address(n), Payload: body[AddressFieldWidth:]}, nil
}
