package crypto

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/nacl/box"
)

const (
	// SymKeySize is the size of a per-layer symmetric key.
	SymKeySize = chacha20poly1305.KeySize
	// SymNonceSize is prepended to every symmetric ciphertext.
	SymNonceSize = chacha20poly1305.NonceSizeX
	// SealedKeySize is the length of a symmetric key sealed to a relay's public key.
	SealedKeySize = SymKeySize + box.AnonymousOverhead
)

// NewSymKey returns a fresh random symmetric key.
func NewSymKey() ([]byte, error) {
	key := make([]byte, SymKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// SealKey encrypts symKey so that only the holder of recipient's private key can open it.
// The result is always SealedKeySize bytes.
func SealKey(symKey []byte, recipient *[PublicKeySize]byte) ([]byte, error) {
	if len(symKey) != SymKeySize {
		return nil, fmt.Errorf("seal key: want %d bytes, got %d", SymKeySize, len(symKey))
	}
	if recipient == nil {
		return nil, fmt.Errorf("seal key: no recipient key")
	}
	return box.SealAnonymous(nil, symKey, recipient, rand.Reader)
}

// OpenKey recovers a symmetric key sealed with SealKey.
func OpenKey(block []byte, keys *KeyPair) ([]byte, error) {
	if len(block) != SealedKeySize {
		return nil, fmt.Errorf("%w: key block is %d bytes", ErrDecryption, len(block))
	}
	key, ok := box.OpenAnonymous(nil, block, keys.Public, keys.Private)
	if !ok {
		return nil, fmt.Errorf("%w: key block", ErrDecryption)
	}
	return key, nil
}

// SymEncrypt seals plaintext with XChaCha20-Poly1305. The nonce is prepended.
func SymEncrypt(key, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, SymNonceSize, SymNonceSize+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, out); err != nil {
		return nil, err
	}
	return aead.Seal(out, out[:SymNonceSize], plaintext, nil), nil
}

// SymDecrypt opens a ciphertext produced by SymEncrypt.
func SymDecrypt(key, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	if len(ciphertext) < SymNonceSize+aead.Overhead() {
		return nil, fmt.Errorf("%w: body too short", ErrDecryption)
	}
	plain, err := aead.Open(nil, ciphertext[:SymNonceSize], ciphertext[SymNonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: body", ErrDecryption)
	}
	return plain, nil
}
