// Nonce construction for HAP ChaCha20-Poly1305.
// HAP uses 8-byte nonces left-padded with four zero bytes to the 12 bytes
// required by the AEAD.

package crypto

import (
	"encoding/binary"
	"errors"
)

const (
	// NonceSize is the ChaCha20-Poly1305 nonce length.
	NonceSize = 12

	// ShortNonceSize is the HAP nonce length before padding.
	ShortNonceSize = 8
)

// ErrInvalidNonceLabel is returned for pairing nonce labels that are not
// exactly 8 bytes.
var ErrInvalidNonceLabel = errors.New("nonce: label must be 8 bytes")

// BuildLabelNonce pads a pairing message label such as "PS-Msg05".
func BuildLabelNonce(label string) ([]byte, error) {
	if len(label) != ShortNonceSize {
		return nil, ErrInvalidNonceLabel
	}
	nonce := make([]byte, NonceSize)
	copy(nonce[4:], label)
	return nonce, nil
}

// BuildCounterNonce encodes a frame counter for session encryption.
//
// Format: 0x00000000 || Counter (8 bytes LE)
func BuildCounterNonce(counter uint64) []byte {
	nonce := make([]byte, NonceSize)
	binary.LittleEndian.PutUint64(nonce[4:], counter)
	return nonce
}
