package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
)

// GCMTagSize is the AES-GCM authentication tag size.
const GCMTagSize = 16

// ErrGCMAuthFailed is returned when GCM tag verification fails.
var ErrGCMAuthFailed = errors.New("aesgcm: authentication failed")

func newGCM16(key, iv []byte) (cipher.AEAD, error) {
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
	return cipher.NewGCMWithNonceSize(block, AESIVSize)
}

// SealGCM encrypts plaintext with AES-128-GCM using a 16-byte IV and
// returns the ciphertext and tag separately, as the legacy setup message
// carries them in distinct fields.
func SealGCM(key, iv, plaintext []byte) (ciphertext, tag []byte, err error) {
	aead, err := newGCM16(key, iv)
	if err != nil {
		return nil, nil, err
	}
	sealed := aead.Seal(nil, iv, plaintext, nil)
	n := len(sealed) - GCMTagSize
	return sealed[:n], sealed[n:], nil
}

// OpenGCM reverses SealGCM.
func OpenGCM(key, iv, ciphertext, tag []byte) ([]byte, error) {
	aead, err := newGCM16(key, iv)
	if err != nil {
		return nil, err
	}
	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)
	plain, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, ErrGCMAuthFailed
	}
	return plain, nil
}
