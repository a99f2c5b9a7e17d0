package crypto

import (
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
)

// ChaChaTagSize is the Poly1305 tag size.
const ChaChaTagSize = chacha20poly1305.Overhead

// ErrChaChaAuthFailed is returned when a ChaCha20-Poly1305 tag does not verify.
var ErrChaChaAuthFailed = errors.New("chacha20poly1305: authentication failed")

// ChaChaSeal encrypts plaintext and appends the tag.
func ChaChaSeal(key, nonce, plaintext, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce, plaintext, aad), nil
}

// ChaChaOpen decrypts ciphertext||tag.
func ChaChaOpen(key, nonce, ciphertext, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	plain, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrChaChaAuthFailed
	}
	return plain, nil
}

// SealPairingMessage encrypts a pairing sub-TLV under a label nonce.
func SealPairingMessage(key []byte, label string, plaintext []byte) ([]byte, error) {
	nonce, err := BuildLabelNonce(label)
	if err != nil {
		return nil, err
	}
	return ChaChaSeal(key, nonce, plaintext, nil)
}

// OpenPairingMessage decrypts a pairing sub-TLV under a label nonce.
func OpenPairingMessage(key []byte, label string, ciphertext []byte) ([]byte, error) {
	nonce, err := BuildLabelNonce(label)
	if err != nil {
		return nil, err
	}
	return ChaChaOpen(key, nonce, ciphertext, nil)
}
