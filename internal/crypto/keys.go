package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/box"
)

const (
	PublicKeySize  = 32
	PrivateKeySize = 32
)

// ErrDecryption is returned when a ciphertext does not open under the given key.
var ErrDecryption = errors.New("decryption failed")

// KeyPair holds a Curve25519 key pair
type KeyPair struct {
	Public  *[PublicKeySize]byte
	Private *[PrivateKeySize]byte
}

// GenerateKeyPair creates a new X25519 key pair
func GenerateKeyPair() (*KeyPair, error) {
	public, private, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &KeyPair{Public: public, Private: private}, nil
}

// ExportPublicKey encodes pub in the form published to the registry.
func ExportPublicKey(pub *[PublicKeySize]byte) string {
	return base64.StdEncoding.EncodeToString(pub[:])
}

// ExportPrivateKey encodes priv for debug introspection only.
func ExportPrivateKey(priv *[PrivateKeySize]byte) string {
	return base64.StdEncoding.EncodeToString(priv[:])
}

// ImportPublicKey reverses ExportPublicKey.
func ImportPublicKey(s string) (*[PublicKeySize]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("public key: %w", err)
	}
	if len(b) != PublicKeySize {
		return nil, fmt.Errorf("public key: want %d bytes, got %d", PublicKeySize, len(b))
	}
	pub := new([PublicKeySize]byte)
	copy(pub[:], b)
	return pub, nil
}

// KeyID returns first 8 bytes of public key as a log fingerprint
func KeyID(pub *[PublicKeySize]byte) []byte {
	return pub[:8]
}
