// AES-128-CTR keystream used by the legacy Pair-Verify exchange.
// Both directions of a single exchange share one keystream: the device's
// encrypted signature is consumed first, then the client's signature is
// encrypted with the continuation of the same stream.

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
)

// AES constants for the legacy scheme.
const (
	// AESKeySize is the AES-128 key size in bytes.
	AESKeySize = 16

	// AESIVSize is the IV size used for both CTR and GCM in the legacy scheme.
	AESIVSize = 16
)

// Errors for AES operations.
var (
	ErrAESInvalidKeySize = errors.New("aes: invalid key size, must be 16 bytes")
	ErrAESInvalidIVSize  = errors.New("aes: invalid IV size, must be 16 bytes")
)

// AESCTR is a stateful AES-128-CTR keystream.
type AESCTR struct {
	stream cipher.Stream
}

// NewAESCTR creates a keystream from a 16-byte key and 16-byte IV.
func NewAESCTR(key, iv []byte) (*AESCTR, error) {
	if len(key) != AESKeySize {
		return nil, ErrAESInvalidKeySize
	}
	if len(iv) != AESIVSize {
		return nil, ErrAESInvalidIVSize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	return &AESCTR{stream: cipher.NewCTR(block, iv)}, nil
}

// XOR returns data XORed with the next len(data) bytes of keystream.
// Encryption and decryption are the same operation.
func (c *AESCTR) XOR(data []byte) []byte {
	out := make([]byte, len(data))
	c.stream.XORKeyStream(out, data)
	return out
}
